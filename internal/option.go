package internal

import "github.com/docomatic/docomatic/internal/export"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	mcpStdio  bool
	publisher export.Publisher
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithMCPStdio runs the MCP server on stdin/stdout instead of the HTTP server.
func WithMCPStdio() Option {
	return func(a *application) {
		a.mcpStdio = true
	}
}

// WithPublisher overrides the export publisher (used in tests).
func WithPublisher(p export.Publisher) Option {
	return func(a *application) {
		a.publisher = p
	}
}
