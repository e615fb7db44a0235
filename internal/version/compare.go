package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
)

// Development is the version string of builds without a release tag.
const Development = "main"

// CheckCompatibility reports whether a config written for configVersion can run on
// engineVersion. Major and minor must match; patch may differ. A development build on
// either side skips the check, and so does an empty config version.
func CheckCompatibility(engineVersion, configVersion string) error {
	engineVersion = strings.TrimPrefix(strings.TrimSpace(engineVersion), "v")
	configVersion = strings.TrimPrefix(strings.TrimSpace(configVersion), "v")

	if engineVersion == Development || configVersion == Development || configVersion == "" {
		return nil
	}

	engine, err := semver.NewVersion(engineVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid engine version %q", engineVersion)
	}

	config, err := semver.NewVersion(configVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid config version %q", configVersion)
	}

	if engine.Major() != config.Major() {
		return errors.Newf(errors.ErrCodeVersionMismatch,
			"major version mismatch: engine is %d.x.x but config requires %d.x.x",
			engine.Major(), config.Major())
	}

	if engine.Minor() != config.Minor() {
		return errors.Newf(errors.ErrCodeVersionMismatch,
			"minor version mismatch: engine is %d.%d.x but config requires %d.%d.x",
			engine.Major(), engine.Minor(), config.Major(), config.Minor())
	}

	return nil
}
