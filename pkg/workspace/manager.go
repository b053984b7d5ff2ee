// Package workspace manages the .treeagent/ and ~/.treeagent directories.
//
// A workspace holds everything an agent owns: config.toml, the SQLite
// database with the memory tree and concept store, the run log, the files
// interpreters create, and the pending question of a stopped run.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the treeagent directory.
	dirName = ".treeagent"

	// DatabaseFile is the default SQLite database inside a workspace.
	DatabaseFile = "treeagent.db"

	// LogFile receives the run log next to the database.
	LogFile = "treeagent.log"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a workspace directory.
// Order of precedence is as follows:
//  1. Provided override
//  2. Local ./.treeagent/ dir
//  3. Home ~/.treeagent/ dir
//
// The directory is created if it does not exist.
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, dirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating workspace directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// InitLocal creates ./.treeagent in the current directory.
func (m *Manager) InitLocal() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	return m.Target(filepath.Join(cwd, dirName))
}

// DatabasePath is the default SQLite database of the workspace at dir.
func DatabasePath(dir string) string {
	return filepath.Join(dir, DatabaseFile)
}

// LogPath is the run log of the workspace at dir.
func LogPath(dir string) string {
	return filepath.Join(dir, LogFile)
}

// localDirExists checks whether a .treeagent/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}

// OpenLog opens the run log of the workspace at dir for appending.
func OpenLog(dir string) (*os.File, error) {
	f, err := os.OpenFile(LogPath(dir), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening run log: %w", err)
	}
	return f, nil
}
