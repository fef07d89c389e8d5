// Package home manages the ~/.tome directory: uploaded volume PDFs, the
// SQLite database, and the config file.
package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the tome home directory.
	DefaultDirName = ".tome"

	// VolumesDirName is the subdirectory holding uploaded volume PDFs.
	VolumesDirName = "volumes"

	// DatabaseFileName is the SQLite database file name.
	DatabaseFileName = "tome.db"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the tome home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.tome).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// VolumesPath returns the directory where volume PDFs are stored.
func (d *Dir) VolumesPath() string {
	return filepath.Join(d.path, VolumesDirName)
}

// VolumePDFPath returns the storage path for a volume's PDF.
func (d *Dir) VolumePDFPath(volumeID int64) string {
	return filepath.Join(d.VolumesPath(), fmt.Sprintf("volume_%d.pdf", volumeID))
}

// DatabasePath returns the path to the SQLite database file.
func (d *Dir) DatabasePath() string {
	return filepath.Join(d.path, DatabaseFileName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	if err := os.MkdirAll(d.VolumesPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create volumes directory: %w", err)
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// RemoveVolumePDF deletes a stored volume PDF. Missing files are not an
// error; the database row may outlive the file.
func (d *Dir) RemoveVolumePDF(volumeID int64) error {
	err := os.Remove(d.VolumePDFPath(volumeID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove volume PDF: %w", err)
	}
	return nil
}
