package internal

import (
	"io"
	"os"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	apiKey  string
	version string
	stdout  io.Writer
	logOut  io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithAPIKey sets the key clients must present as a Bearer token.
func WithAPIKey(key string) Option {
	return func(a *application) {
		a.apiKey = key
	}
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithOutput sets where build results are printed when no output file is given.
func WithOutput(w io.Writer) Option {
	return func(a *application) {
		a.stdout = w
	}
}

// WithLogOutput sets the destination of the JSON logs.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOut = w
	}
}

func newApplication(opts []Option) *application {
	app := &application{
		version: "dev",
		stdout:  os.Stdout,
		logOut:  os.Stderr,
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}
