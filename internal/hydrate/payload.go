package hydrate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format names a payload encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseOption configures Parse.
type ParseOption func(*parseConfig)

type parseConfig struct {
	source   string
	preHooks []PreHook
}

// WithSource names the payload in hook context and errors.
func WithSource(source string) ParseOption {
	return func(cfg *parseConfig) {
		cfg.source = source
	}
}

// WithParseHook runs hook on the parsed map before it is returned.
func WithParseHook(hook PreHook) ParseOption {
	return func(cfg *parseConfig) {
		if hook != nil {
			cfg.preHooks = append(cfg.preHooks, hook)
		}
	}
}

// Parse decodes a JSON or YAML object into a map. Whole JSON numbers become
// int and the rest float64, matching what yaml.v3 yields for the same
// document. An empty payload parses to an empty map.
func Parse(format Format, data []byte, opts ...ParseOption) (map[string]any, error) {
	cfg := parseConfig{source: string(format)}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	var (
		out map[string]any
		err error
	)
	switch Format(strings.ToLower(string(format))) {
	case FormatJSON:
		out, err = parseJSON(data)
	case FormatYAML:
		out, err = parseYAML(data)
	default:
		return nil, fmt.Errorf("hydrate: unsupported format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("hydrate: parse %q: %w", cfg.source, err)
	}
	if out == nil {
		out = map[string]any{}
	}

	return applyPreHooks(Context{Source: cfg.source, Format: format}, cfg.preHooks, out)
}

func parseJSON(data []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var out map[string]any
	if err := decoder.Decode(&out); err != nil {
		return nil, err
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after the top-level object")
	}
	normalized, _ := normalizeNumbers(out).(map[string]any)
	return normalized, nil
}

func parseYAML(data []byte) (map[string]any, error) {
	var out map[string]any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeNumbers(value any) any {
	switch typed := value.(type) {
	case json.Number:
		if i, err := typed.Int64(); err == nil {
			return int(i)
		}
		if f, err := typed.Float64(); err == nil {
			return f
		}
		return typed.String()
	case map[string]any:
		for key, item := range typed {
			typed[key] = normalizeNumbers(item)
		}
		return typed
	case []any:
		for i, item := range typed {
			typed[i] = normalizeNumbers(item)
		}
		return typed
	default:
		return value
	}
}
