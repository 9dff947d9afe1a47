package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	// FilePermissions is the default permission mode for regular files (read/write for owner, read for others)
	FilePermissions = 0644
	// DirPermissions is the default permission mode for directories (rwxr-xr-x)
	DirPermissions = 0755

	// DirEnv overrides the configuration directory.
	DirEnv = "SHEETDESK_DIR"
	// DefaultBaseURL is the backend the default profile points at.
	DefaultBaseURL = "http://localhost:5002/api"
)

var (
	// ConfigDir is the global configuration directory
	ConfigDir string

	// DatabasePath is the SQLite database holding the request journal
	DatabasePath string

	// LogFile receives the structured log
	LogFile string

	// ExportsDir is where downloads land when no output path is given
	ExportsDir string

	// SessionFile is the session state file
	SessionFile string

	// ProfilesFile is the profiles configuration file
	ProfilesFile string

	// MockSeedFile is the optional seed of the mock backend
	MockSeedFile string

	// KeybindsFile holds the user's TUI key overrides
	KeybindsFile string
)

// ResolveDir returns the configuration directory: $SHEETDESK_DIR when set,
// else sheetdesk under the XDG config home.
func ResolveDir() string {
	if explicit := os.Getenv(DirEnv); explicit != "" {
		return explicit
	}

	xdg.Reload()

	configHome := xdg.ConfigHome
	if configHome == "" {
		home := xdg.Home
		if home == "" {
			var err error
			home, err = os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), "sheetdesk")
			}
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "sheetdesk")
}

// Initialize sets up the configuration directories and files.
func Initialize() error {
	ConfigDir = ResolveDir()
	DatabasePath = filepath.Join(ConfigDir, "journal.db")
	LogFile = filepath.Join(ConfigDir, "sheetdesk.log")
	ExportsDir = filepath.Join(ConfigDir, "exports")
	SessionFile = filepath.Join(ConfigDir, ".session.json")
	ProfilesFile = filepath.Join(ConfigDir, ".profiles.json")
	MockSeedFile = filepath.Join(ConfigDir, "mock.yaml")
	KeybindsFile = filepath.Join(ConfigDir, "keybinds.json")

	for _, dir := range []string{ConfigDir, ExportsDir} {
		if err := os.MkdirAll(dir, DirPermissions); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if _, err := os.Stat(SessionFile); os.IsNotExist(err) {
		defaultSession := []byte(`{"activeProfile":"Default","journalEnabled":true}`)
		if err := os.WriteFile(SessionFile, defaultSession, FilePermissions); err != nil {
			return fmt.Errorf("failed to create session file: %w", err)
		}
	}

	if _, err := os.Stat(ProfilesFile); os.IsNotExist(err) {
		defaultProfiles := []byte(`[
  // Add one entry per backend. Comments are allowed.
  {"name": "Default", "baseUrl": "` + DefaultBaseURL + `", "headers": {}, "pageSize": 50, "timeout": 30}
]
`)
		if err := os.WriteFile(ProfilesFile, defaultProfiles, FilePermissions); err != nil {
			return fmt.Errorf("failed to create profiles file: %w", err)
		}
	}

	return nil
}

// GetSessionFilePath returns the session file path (local or global)
func GetSessionFilePath() string {
	if _, err := os.Stat(".session.json"); err == nil {
		return ".session.json"
	}
	return SessionFile
}

// GetProfilesFilePath returns the profiles file path (local or global)
func GetProfilesFilePath() string {
	if _, err := os.Stat(".profiles.json"); err == nil {
		return ".profiles.json"
	}
	return ProfilesFile
}
