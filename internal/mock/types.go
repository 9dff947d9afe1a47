package mock

import "time"

// Config describes the mock backend: where it listens and what data it
// starts with.
type Config struct {
	Port     int        `json:"port" yaml:"port"`                             // Server port (default: 5002)
	Host     string     `json:"host" yaml:"host"`                             // Server host (default: localhost)
	BasePath string     `json:"basePath,omitempty" yaml:"basePath,omitempty"` // Route prefix (default: /api)
	Delay    int        `json:"delay,omitempty" yaml:"delay,omitempty"`       // Response delay in milliseconds
	Logging  bool       `json:"logging" yaml:"logging"`                       // Enable request logging
	User     string     `json:"user,omitempty" yaml:"user,omitempty"`         // Uploader of seeded files
	Files    []SeedFile `json:"files,omitempty" yaml:"files,omitempty"`
}

// SeedFile is a workbook present when the backend starts. Seeded files
// are already processed.
type SeedFile struct {
	Name   string      `json:"name" yaml:"name"`
	Sheets []SeedSheet `json:"sheets" yaml:"sheets"`
}

// SeedSheet lists rows positionally against Columns so column order
// survives YAML decoding.
type SeedSheet struct {
	Name    string   `json:"name" yaml:"name"`
	Columns []string `json:"columns" yaml:"columns"`
	Rows    [][]any  `json:"rows" yaml:"rows"`
}

// RequestLog represents a logged request
type RequestLog struct {
	Timestamp time.Time         `json:"timestamp"`
	Method    string            `json:"method"`
	Path      string            `json:"path"`
	Query     string            `json:"query,omitempty"`
	Headers   map[string]string `json:"headers"`
	Body      string            `json:"body"`
	Status    int               `json:"status"`
	Duration  time.Duration     `json:"duration"`
}
