// Package users enumerates the users of a gallery data directory.
//
// A user exists when <data_dir>/<user>/files is a directory. Nothing else
// about users is stored.
package users

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"gallery-thumbs/internal/filesystem"
	"gallery-thumbs/internal/logging"
)

// Manager answers user queries from the layout of the data directory.
type Manager struct {
	dataDir string
	retry   filesystem.RetryConfig
}

// NewManager returns a Manager for dataDir.
func NewManager(dataDir string) *Manager {
	return &Manager{dataDir: dataDir, retry: filesystem.DefaultRetryConfig()}
}

// UserExists reports whether user has a files folder in the data directory.
func (m *Manager) UserExists(user string) bool {
	if !validName(user) {
		return false
	}
	info, err := filesystem.StatWithRetry(filepath.Join(m.dataDir, user, "files"), m.retry)
	return err == nil && info.IsDir()
}

// List returns every user, sorted.
func (m *Manager) List() ([]string, error) {
	entries, err := filesystem.ReadDirWithRetry(m.dataDir, m.retry)
	if err != nil {
		return nil, fmt.Errorf("failed to list users in %s: %w", m.dataDir, err)
	}

	var users []string
	for _, e := range entries {
		if !e.IsDir() || !validName(e.Name()) {
			continue
		}
		if m.UserExists(e.Name()) {
			users = append(users, e.Name())
		}
	}
	sort.Strings(users)
	logging.Debug("Found %d users in %s", len(users), m.dataDir)
	return users, nil
}

func validName(user string) bool {
	return user != "" && !strings.HasPrefix(user, ".") && !strings.ContainsAny(user, "/\\\x00")
}
