package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TranscriptExtensions are the file types convo can import and follow.
var TranscriptExtensions = []string{".json", ".toml"}

// PathHandler resolves convo's on-disk locations.
type PathHandler struct {
	policy *Policy
}

func NewSecurePathHandler() *PathHandler {
	return &PathHandler{policy: ConfinedPolicy()}
}

func NewPermissivePathHandler() *PathHandler {
	return &PathHandler{policy: OpenPolicy()}
}

func dataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".convo"), nil
}

// DBPath validates the database file location, defaulting to
// ~/.convo/convo.db, and makes sure its directory exists.
func (ph *PathHandler) DBPath(userPath string) (string, error) {
	return ph.dataFile(userPath, "convo.db")
}

// LogPath is DBPath for the log file.
func (ph *PathHandler) LogPath(userPath string) (string, error) {
	return ph.dataFile(userPath, "convo.log")
}

func (ph *PathHandler) dataFile(userPath, defaultName string) (string, error) {
	if userPath == "" {
		dir, err := dataDir()
		if err != nil {
			return "", err
		}
		userPath = filepath.Join(dir, defaultName)
	}
	path, err := ph.policy.File(userPath)
	if err != nil {
		return "", err
	}
	if _, err := ph.policy.Dir(filepath.Dir(path), true); err != nil {
		return "", err
	}
	return path, nil
}

// IndexPath validates the bleve index directory. It is not created here;
// bleve creates it on first use.
func (ph *PathHandler) IndexPath(userPath string) (string, error) {
	if userPath == "" {
		dir, err := dataDir()
		if err != nil {
			return "", err
		}
		userPath = filepath.Join(dir, "index.bleve")
	}
	return ph.policy.Dir(userPath, false)
}

// ConfigPath validates the configuration file location.
func (ph *PathHandler) ConfigPath(userPath string) (string, error) {
	if userPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		userPath = filepath.Join(homeDir, ".config", "convo", "config.toml")
	}
	return ph.policy.File(userPath)
}

// TranscriptPath validates a transcript to import or follow. It must exist
// and carry a supported extension.
func (ph *PathHandler) TranscriptPath(userPath string) (string, error) {
	path, err := ph.policy.File(userPath)
	if err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(path))
	supported := false
	for _, e := range TranscriptExtensions {
		if ext == e {
			supported = true
			break
		}
	}
	if !supported {
		return "", fmt.Errorf("unsupported transcript extension %q (want one of %s)", ext, strings.Join(TranscriptExtensions, ", "))
	}

	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("transcript %s: %w", path, err)
	}
	return path, nil
}
