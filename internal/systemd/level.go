// Package systemd builds and runs systemctl commands for the system and user managers.
package systemd

import (
	"errors"
)

// Level is the privilege domain an operation runs in.
type Level string

// Service levels.
const (
	LevelSystem Level = "system"
	LevelUser   Level = "user"
)

// UserFlag is inserted after the program name for user-level commands.
const UserFlag = "--user"

// ParseLevel converts a request value to a Level.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case LevelSystem, LevelUser:
		return Level(s), nil
	default:
		return "", NewInvalidLevelError(s)
	}
}

// String returns the level name.
func (l Level) String() string {
	return string(l)
}

// IsUser reports whether the level targets the per-user manager.
func (l Level) IsUser() bool {
	return l == LevelUser
}

// CommandBuilder turns a base command vector into the vector executed for a level.
type CommandBuilder struct {
	elevation []string
}

// NewCommandBuilder creates a builder that prefixes system-level commands
// with elevation, e.g. ["sudo"]. An empty elevation runs system commands as-is.
func NewCommandBuilder(elevation []string) *CommandBuilder {
	return &CommandBuilder{elevation: append([]string(nil), elevation...)}
}

// Build returns the argv to execute for base at the given level. base is not modified.
func (b *CommandBuilder) Build(level Level, base []string) ([]string, error) {
	if len(base) == 0 {
		return nil, NewError(KindInvalidArgument, "", "empty command", errors.New("nothing to build"))
	}

	switch level {
	case LevelSystem:
		argv := make([]string, 0, len(b.elevation)+len(base))
		argv = append(argv, b.elevation...)
		return append(argv, base...), nil
	case LevelUser:
		argv := make([]string, 0, len(base)+1)
		argv = append(argv, base[0], UserFlag)
		return append(argv, base[1:]...), nil
	default:
		return nil, NewInvalidLevelError(string(level))
	}
}
