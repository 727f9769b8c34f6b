// Package validate provides security validation for unit names, unit paths and unit-file content.
package validate

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Qian-MoBai/systemd-web/internal/systemd"
)

// ServiceSuffix is the suffix every accepted unit name carries.
const ServiceSuffix = ".service"

// unitNamePattern accepts systemd service names, including \xHH escapes.
var unitNamePattern = regexp.MustCompile(`^(?:[a-zA-Z0-9_.@-]|\\x[0-9a-fA-F]{2})+\.service$`)

// deniedUnits are units whose disruption would cut the control channel.
// Both the bare and the .service form are rejected.
var deniedUnits = []string{
	"systemd",
	"dbus",
	"udevadm",
	"networking",
	"network-manager",
	"logind",
}

// IsDeniedUnit reports whether name is on the deny-list in either its bare
// or .service-qualified form. Matching is case-sensitive.
func IsDeniedUnit(name string) bool {
	bare := strings.TrimSuffix(name, ServiceSuffix)
	for _, denied := range deniedUnits {
		if name == denied || bare == denied {
			return true
		}
	}
	return false
}

// UnitName validates that a unit name is safe to pass to systemctl and to
// join onto a unit directory. Failures are InvalidUnitName errors.
func UnitName(unitName string) error {
	if unitName == "" {
		return systemd.NewError(systemd.KindInvalidUnitName, unitName, "unit name cannot be empty", nil)
	}

	if IsDeniedUnit(unitName) {
		return systemd.NewError(systemd.KindInvalidUnitName, unitName, "unit is protected", nil)
	}

	if !unitNamePattern.MatchString(unitName) {
		return systemd.NewError(systemd.KindInvalidUnitName, unitName, "name does not match the unit name pattern", nil)
	}

	return nil
}

// IsValidUnitName reports whether UnitName accepts unitName.
func IsValidUnitName(unitName string) bool {
	return UnitName(unitName) == nil
}

// PathWithinBase joins name onto basePath and ensures the cleaned result stays
// strictly inside basePath. It returns a PathTraversal error otherwise.
func PathWithinBase(name, basePath string) (string, error) {
	if name == "" {
		return "", systemd.NewError(systemd.KindInvalidArgument, "", "path cannot be empty", nil)
	}
	if basePath == "" {
		return "", systemd.NewError(systemd.KindInvalidArgument, "", "base path cannot be empty", nil)
	}

	absBase, err := filepath.Abs(filepath.Clean(basePath))
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}

	var absPath string
	if filepath.IsAbs(name) {
		absPath = filepath.Clean(name)
	} else {
		absPath = filepath.Clean(filepath.Join(absBase, name))
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", systemd.NewError(systemd.KindPathTraversal, name, "path escapes "+absBase, nil)
	}

	return absPath, nil
}
