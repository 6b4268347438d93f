package internal

import (
	"io"

	"github.com/starford/raido/internal/applier"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	mode      string
	version   string
	confirmer applier.Confirmer
	logOut    io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithMode selects poll, once or watch. Poll is the default.
func WithMode(mode string) Option {
	return func(a *application) {
		a.mode = mode
	}
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithConfirmer overrides how pending actions are confirmed during passes.
// Without it, auto_confirm and the terminal decide.
func WithConfirmer(c applier.Confirmer) Option {
	return func(a *application) {
		a.confirmer = c
	}
}

// WithLogOutput sets where log lines are written (stdout by default).
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOut = w
	}
}
