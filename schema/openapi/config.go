package openapi

import "strings"

// Info is the document's info block.
type Info struct {
	Title       string
	Version     string
	Description string
}

// Operation is the path operation whose request body carries the options.
// An empty ID becomes "method:path".
type Operation struct {
	Path    string
	Method  string
	ID      string
	Summary string
}

type config struct {
	version     string
	info        Info
	operation   Operation
	contentType string
	responses   map[string]string
	component   string
}

func newConfig(opts []GeneratorOption) config {
	cfg := config{
		version:     "3.0.3",
		info:        Info{Title: "Options Schema", Version: "1.0.0"},
		operation:   Operation{Path: "/options", Method: "post"},
		contentType: "application/json",
		responses:   map[string]string{"204": "OK"},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	cfg.operation.Method = strings.ToLower(cfg.operation.Method)
	if cfg.operation.ID == "" {
		cfg.operation.ID = cfg.operation.Method + ":" + cfg.operation.Path
	}
	return cfg
}

// GeneratorOption configures the document around the options schema.
type GeneratorOption func(*config)

// WithOpenAPIVersion replaces the default "3.0.3".
func WithOpenAPIVersion(version string) GeneratorOption {
	return func(cfg *config) {
		cfg.version = or(version, cfg.version)
	}
}

// WithInfo sets the info block. Blank fields keep their current values.
func WithInfo(info Info) GeneratorOption {
	return func(cfg *config) {
		cfg.info.Title = or(info.Title, cfg.info.Title)
		cfg.info.Version = or(info.Version, cfg.info.Version)
		cfg.info.Description = or(info.Description, cfg.info.Description)
	}
}

// WithOperation sets the request operation, POST /options by default. Blank
// fields keep their current values.
func WithOperation(op Operation) GeneratorOption {
	return func(cfg *config) {
		cfg.operation.Path = or(op.Path, cfg.operation.Path)
		cfg.operation.Method = or(op.Method, cfg.operation.Method)
		cfg.operation.ID = or(op.ID, cfg.operation.ID)
		cfg.operation.Summary = or(op.Summary, cfg.operation.Summary)
	}
}

func WithContentType(contentType string) GeneratorOption {
	return func(cfg *config) {
		cfg.contentType = or(contentType, cfg.contentType)
	}
}

// WithResponse documents a response for status next to the default 204.
func WithResponse(status, description string) GeneratorOption {
	return func(cfg *config) {
		if status = strings.TrimSpace(status); status != "" {
			cfg.responses[status] = description
		}
	}
}

// WithRootComponent moves the options schema to components.schemas under
// name and references it from the request body.
func WithRootComponent(name string) GeneratorOption {
	return func(cfg *config) {
		cfg.component = strings.TrimSpace(name)
	}
}

func or(value, fallback string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return fallback
}
