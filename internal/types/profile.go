package types

import "time"

// Session holds state persisted between runs.
type Session struct {
	ActiveProfile  string `json:"activeProfile,omitempty"`
	JournalEnabled *bool  `json:"journalEnabled,omitempty"`
}

// Profile describes one backend and the identity used against it.
type Profile struct {
	Name           string            `json:"name"`
	BaseURL        string            `json:"baseUrl,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
	User           string            `json:"user,omitempty"`
	PageSize       int               `json:"pageSize,omitempty"`
	TimeoutSeconds int               `json:"timeout,omitempty"`
	Output         string            `json:"output,omitempty"` // json, yaml, table, text
}

// Timeout returns the per-request deadline, or fallback when unset.
func (p Profile) Timeout(fallback time.Duration) time.Duration {
	if p.TimeoutSeconds <= 0 {
		return fallback
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}
