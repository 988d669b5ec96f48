package cli

import (
	"os"
	"path/filepath"
)

// Default locations relative to the home directory.
const (
	DefaultBaseDir    = ".rotaryphone"
	DefaultConfigFile = "config.yaml"
)

// Paths provides access to the rotaryphone directory structure.
type Paths struct {
	// HomeDir is the user's home directory
	HomeDir string
}

// NewPaths resolves paths against the current user's home directory.
func NewPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Paths{HomeDir: home}, nil
}

// BaseDir returns the base directory (~/.rotaryphone)
func (p *Paths) BaseDir() string {
	return filepath.Join(p.HomeDir, DefaultBaseDir)
}

// ConfigFile returns the config file path (~/.rotaryphone/config.yaml)
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.BaseDir(), DefaultConfigFile)
}

// EnsureBaseDir creates the base directory if it doesn't exist
func (p *Paths) EnsureBaseDir() error {
	return os.MkdirAll(p.BaseDir(), 0755)
}

// DefaultConfigPath returns ~/.rotaryphone/config.yaml, or config.yaml in
// the working directory when the home directory is unknown.
func DefaultConfigPath() string {
	p, err := NewPaths()
	if err != nil {
		return DefaultConfigFile
	}
	return p.ConfigFile()
}
