// Package fs provides file system operations for systemd unit files
package fs

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"

	"github.com/Qian-MoBai/systemd-web/internal/config"
	"github.com/Qian-MoBai/systemd-web/internal/log"
	"github.com/Qian-MoBai/systemd-web/internal/systemd"
	"github.com/Qian-MoBai/systemd-web/internal/validate"
)

// File modes for unit files and the directories holding them.
const (
	UnitFileMode os.FileMode = 0644
	UnitDirMode  os.FileMode = 0755
)

// Service provides file system operations with configurable paths.
type Service struct {
	configProvider config.Provider
	logger         log.Logger
}

// NewService creates a new filesystem service with the given config provider.
func NewService(configProvider config.Provider) *Service {
	return &Service{
		configProvider: configProvider,
		logger:         log.NewLogger(configProvider.GetConfig().Verbose),
	}
}

// NewServiceWithLogger creates a new filesystem service with explicit logger injection.
func NewServiceWithLogger(configProvider config.Provider, logger log.Logger) *Service {
	return &Service{
		configProvider: configProvider,
		logger:         logger,
	}
}

// GetUnitFilesDirectory returns the directory unit files for level are stored in.
func (s *Service) GetUnitFilesDirectory(level systemd.Level) (string, error) {
	dir, ok := s.configProvider.GetConfig().UnitDir(level.String())
	if !ok {
		return "", systemd.NewInvalidLevelError(level.String())
	}
	return dir, nil
}

// ResolveUnitPath returns the normalized destination of unitName for level.
// It fails with PathTraversal if the result would leave the level's directory.
func (s *Service) ResolveUnitPath(level systemd.Level, unitName string) (string, error) {
	base, err := s.GetUnitFilesDirectory(level)
	if err != nil {
		return "", err
	}
	return validate.PathWithinBase(unitName, base)
}

// CreateUnitFile writes content to unitPath, which must not exist yet. The
// create is exclusive, so a concurrent writer loses with FileAlreadyExists
// instead of overwriting.
func (s *Service) CreateUnitFile(unitPath, content string) error {
	s.logger.Debug("Writing unit file", "path", unitPath)

	if err := os.MkdirAll(filepath.Dir(unitPath), UnitDirMode); err != nil {
		return systemd.NewExecutionError(filepath.Dir(unitPath), "failed to create unit directory", err)
	}

	f, err := os.OpenFile(unitPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, UnitFileMode) //nolint:gosec // path is confined by ResolveUnitPath
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return systemd.NewError(systemd.KindFileAlreadyExists, filepath.Base(unitPath), "unit file already exists", err)
		}
		return systemd.NewExecutionError(unitPath, "failed to create unit file", err)
	}

	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		_ = os.Remove(unitPath)
		return systemd.NewExecutionError(unitPath, "failed to write unit file", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(unitPath)
		return systemd.NewExecutionError(unitPath, "failed to close unit file", err)
	}

	return nil
}

// GetContentHash calculates a BLAKE3 digest of unit content, hex encoded.
func GetContentHash(content string) string {
	sum := blake3.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
