package session

import (
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"slices"

	"github.com/tidwall/jsonc"

	"github.com/studiowebux/sheetdesk/internal/config"
	"github.com/studiowebux/sheetdesk/internal/types"
)

// DefaultPageSize is the page size used when a profile sets none.
const DefaultPageSize = 50

// Manager handles session and profile management
type Manager struct {
	session  *types.Session
	profiles []types.Profile

	sessionPath  string
	profilesPath string
}

// NewManager creates a manager that resolves its files through the config package.
func NewManager() *Manager {
	return NewManagerAt("", "")
}

// NewManagerAt creates a manager bound to explicit file paths. Empty paths
// fall back to the local-or-global resolution of the config package.
func NewManagerAt(sessionPath, profilesPath string) *Manager {
	return &Manager{
		session:      &types.Session{},
		sessionPath:  sessionPath,
		profilesPath: profilesPath,
	}
}

func (m *Manager) sessionFile() string {
	if m.sessionPath != "" {
		return m.sessionPath
	}
	return config.GetSessionFilePath()
}

func (m *Manager) profilesFile() string {
	if m.profilesPath != "" {
		return m.profilesPath
	}
	return config.GetProfilesFilePath()
}

// Load loads session and profiles from disk
func (m *Manager) Load() error {
	if err := m.LoadSession(); err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if err := m.LoadProfiles(); err != nil {
		return fmt.Errorf("failed to load profiles: %w", err)
	}
	return nil
}

// LoadSession loads the session file
func (m *Manager) LoadSession() error {
	data, err := os.ReadFile(m.sessionFile())
	if err != nil {
		m.session = &types.Session{}
		return nil
	}

	var session types.Session
	if err := json.Unmarshal(jsonc.ToJSON(data), &session); err != nil {
		return fmt.Errorf("failed to parse session file: %w", err)
	}
	m.session = &session
	return nil
}

// SaveSession saves the session to disk
func (m *Manager) SaveSession() error {
	data, err := json.MarshalIndent(m.session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.WriteFile(m.sessionFile(), data, config.FilePermissions); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// LoadProfiles loads the profiles file. Comments and trailing commas are allowed.
func (m *Manager) LoadProfiles() error {
	data, err := os.ReadFile(m.profilesFile())
	if err != nil {
		m.profiles = []types.Profile{DefaultProfile()}
		return nil
	}

	var profiles []types.Profile
	if err := json.Unmarshal(jsonc.ToJSON(data), &profiles); err != nil {
		return fmt.Errorf("failed to parse profiles file: %w", err)
	}

	for i := range profiles {
		if profiles[i].Name == "" {
			return fmt.Errorf("profile %d has no name", i+1)
		}
		if slices.ContainsFunc(profiles[:i], func(p types.Profile) bool { return p.Name == profiles[i].Name }) {
			return fmt.Errorf("duplicate profile: %s", profiles[i].Name)
		}
		if err := ValidateOutput(profiles[i].Output); err != nil {
			fmt.Fprintf(os.Stderr, "warning: profile '%s': %v\n", profiles[i].Name, err)
			profiles[i].Output = ""
		}
	}
	if len(profiles) == 0 {
		profiles = []types.Profile{DefaultProfile()}
	}

	m.profiles = profiles
	return nil
}

// SaveProfiles saves the profiles to disk
func (m *Manager) SaveProfiles() error {
	data, err := json.MarshalIndent(m.profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}
	if err := os.WriteFile(m.profilesFile(), data, config.FilePermissions); err != nil {
		return fmt.Errorf("failed to write profiles file: %w", err)
	}
	return nil
}

// GetSession returns the current session
func (m *Manager) GetSession() *types.Session {
	return m.session
}

// GetProfiles returns all profiles
func (m *Manager) GetProfiles() []types.Profile {
	return m.profiles
}

// GetActiveProfile returns the active profile with defaults applied. An
// unknown or empty active name falls back to the first profile.
func (m *Manager) GetActiveProfile() types.Profile {
	for _, p := range m.profiles {
		if p.Name == m.session.ActiveProfile {
			return WithDefaults(p)
		}
	}
	if len(m.profiles) > 0 {
		return WithDefaults(m.profiles[0])
	}
	return DefaultProfile()
}

// Profile returns the named profile with defaults applied.
func (m *Manager) Profile(name string) (types.Profile, error) {
	for _, p := range m.profiles {
		if p.Name == name {
			return WithDefaults(p), nil
		}
	}
	return types.Profile{}, fmt.Errorf("profile not found: %s", name)
}

// SetActiveProfile sets the active profile by name
func (m *Manager) SetActiveProfile(name string) error {
	if _, err := m.Profile(name); err != nil {
		return err
	}
	m.session.ActiveProfile = name
	return m.SaveSession()
}

// IsJournalEnabled returns whether the request journal is recorded
func (m *Manager) IsJournalEnabled() bool {
	if m.session.JournalEnabled == nil {
		return true
	}
	return *m.session.JournalEnabled
}

// SetJournalEnabled sets whether the request journal is recorded
func (m *Manager) SetJournalEnabled(enabled bool) error {
	m.session.JournalEnabled = &enabled
	return m.SaveSession()
}

// DefaultProfile targets a backend on localhost.
func DefaultProfile() types.Profile {
	return WithDefaults(types.Profile{Name: "Default"})
}

// WithDefaults fills the unset fields of p.
func WithDefaults(p types.Profile) types.Profile {
	if p.BaseURL == "" {
		p.BaseURL = config.DefaultBaseURL
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.TimeoutSeconds <= 0 {
		p.TimeoutSeconds = 30
	}
	if p.User == "" {
		p.User = CurrentUser()
	}
	if p.Headers == nil {
		p.Headers = map[string]string{}
	}
	return p
}

// CurrentUser names the acting user: $SHEETDESK_USER, then $USER, then the OS account.
func CurrentUser() string {
	for _, env := range []string{"SHEETDESK_USER", "USER", "USERNAME"} {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}

// ValidateOutput checks an output format name. Empty means the default.
func ValidateOutput(format string) error {
	switch format {
	case "", "json", "yaml", "table", "text":
		return nil
	}
	return fmt.Errorf("invalid output format %q (want json, yaml, table or text)", format)
}
