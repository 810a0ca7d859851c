package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/rxtech-lab/argo-oanda/pkg/errors"
)

// Version is the current version of the argo-oanda CLI and library.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/rxtech-lab/argo-oanda/internal/version.Version=1.2.3"
// The default value "main" indicates a development build.
var Version = "main"

// ConfigVersion is the config file format this build reads.
const ConfigVersion = "1.1.0"

// GetVersion returns the current version of the library.
func GetVersion() string {
	return Version
}

// CheckConfigVersion checks that a config file declaring declared can be read by
// this build. An empty declaration is accepted.
//
// Compatibility Rules:
//   - Major versions must match exactly
//   - The declared minor version must not be newer than ConfigVersion
//   - Patch versions are ignored
//
// Examples:
//   - declared 1.1.0 -> OK (exact match)
//   - declared 1.0 -> OK (older minor)
//   - declared 1.2.0 -> ERROR (newer minor)
//   - declared 2.0.0 -> ERROR (major differs)
func CheckConfigVersion(declared string) error {
	declared = strings.TrimPrefix(strings.TrimSpace(declared), "v")
	if declared == "" {
		return nil
	}

	file, err := semver.NewVersion(declared)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid config version '%s'", declared)
	}

	supported := semver.MustParse(ConfigVersion)

	if file.Major() != supported.Major() {
		return errors.Newf(errors.ErrCodeInvalidConfiguration,
			"major version mismatch: config is %d.x.x but this build reads %d.x.x",
			file.Major(), supported.Major())
	}

	if file.Minor() > supported.Minor() {
		return errors.Newf(errors.ErrCodeInvalidConfiguration,
			"minor version mismatch: config is %d.%d.x but this build reads up to %d.%d.x",
			file.Major(), file.Minor(), supported.Major(), supported.Minor())
	}

	return nil
}
