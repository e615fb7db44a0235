package provider

import (
	"context"

	"github.com/rxtech-lab/argo-sim/internal/types"
)

// mockWriter is a hand-written BarWriter for provider tests.
type mockWriter struct {
	initialized       bool
	initializeErr     error
	writeErr          error
	writeErrAfterN    int // fail after N successful writes
	finalizeErr       error
	outputPath        string
	written           []types.Bar
	writeCallCount    int
	finalizeCallCount int
	closeCallCount    int
}

func (m *mockWriter) Initialize(_ context.Context) error {
	if m.initializeErr != nil {
		return m.initializeErr
	}

	m.initialized = true

	return nil
}

func (m *mockWriter) Write(bar types.Bar) error {
	m.writeCallCount++
	if m.writeErr != nil && m.writeCallCount > m.writeErrAfterN {
		return m.writeErr
	}

	m.written = append(m.written, bar)

	return nil
}

func (m *mockWriter) Finalize(_ context.Context) (string, error) {
	m.finalizeCallCount++
	if m.finalizeErr != nil {
		return "", m.finalizeErr
	}

	return m.outputPath, nil
}

func (m *mockWriter) Close() error {
	m.closeCallCount++

	return nil
}

func (m *mockWriter) OutputPath() string {
	return m.outputPath
}
