package main

import (
	"context"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rxtech-lab/argo-sim/internal/journal"
	"github.com/urfave/cli/v3"
)

func browseAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("a journal file is required")
	}

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("journal %s: %w", path, err)
	}

	reader, err := journal.NewDuckDB(ctx, path, nil)
	if err != nil {
		return err
	}
	defer reader.Close()

	program := tea.NewProgram(NewModel(reader), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = program.Run()

	return err
}

func main() {
	cmd := &cli.Command{
		Name:      "journal",
		Usage:     "Browse the fills recorded in a backtest journal",
		ArgsUsage: "JOURNAL",
		Action:    browseAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
