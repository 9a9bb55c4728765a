// Package hydrate turns raw payloads into populate maps and decodes
// populated snapshots into typed structs.
package hydrate

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Context names the payload in hooks and errors.
type Context struct {
	Source string
	Format Format
}

// PreHook rewrites a payload before it is decoded. Returning a nil map keeps
// the current one.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook adjusts or rejects the decoded value.
type PostHook[T any] func(Context, *T) error

type DecoderOption[T any] func(*Decoder[T])

// Decoder decodes snapshot maps into T through mapstructure. Weak typing is
// on: "8080" fills an int, "2s" a time.Duration and "a,b" a []string.
type Decoder[T any] struct {
	pre    []PreHook
	post   []PostHook[T]
	tag    string
	strict bool
}

func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.pre = append(d.pre, hook)
	}
}

func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.post = append(d.post, hook)
	}
}

// WithTagName picks the struct tag keys are matched against, "json" by
// default.
func WithTagName[T any](name string) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if name != "" {
			d.tag = name
		}
	}
}

// WithErrorUnused rejects payload keys that no struct field takes.
func WithErrorUnused[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.strict = true
	}
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{tag: "json"}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode runs the pre-hooks on a copy of payload, decodes the result and
// hands it to the post-hooks. The caller's map is never modified.
func (d *Decoder[T]) Decode(ctx Context, payload map[string]any) (T, error) {
	var out T
	if payload == nil {
		return out, fmt.Errorf("hydrate: payload is nil for %q", ctx.Source)
	}
	current, err := applyPreHooks(ctx, d.pre, clonePayload(payload))
	if err != nil {
		return out, err
	}
	if err := decodeInto(&out, current, d.tag, d.strict); err != nil {
		return out, fmt.Errorf("hydrate: decode %q: %w", ctx.Source, err)
	}
	for _, hook := range d.post {
		if hook == nil {
			continue
		}
		if err := hook(ctx, &out); err != nil {
			var zero T
			return zero, fmt.Errorf("hydrate: post-hook for %q failed: %w", ctx.Source, err)
		}
	}
	return out, nil
}

// Into decodes payload into out, a pointer to a struct or map, matching keys
// against the tag struct tag. Keys without a field are ignored.
func Into(out any, payload map[string]any, tag string) error {
	return decodeInto(out, payload, tag, false)
}

func decodeInto(out any, payload map[string]any, tag string, strict bool) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          tag,
		WeaklyTypedInput: true,
		ErrorUnused:      strict,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(payload)
}

func applyPreHooks(ctx Context, hooks []PreHook, payload map[string]any) (map[string]any, error) {
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, payload)
		if err != nil {
			return nil, fmt.Errorf("hydrate: hook for %q failed: %w", ctx.Source, err)
		}
		if next != nil {
			payload = next
		}
	}
	return payload, nil
}

// clonePayload copies nested maps so hooks cannot reach the caller's map.
func clonePayload(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		if nested, ok := value.(map[string]any); ok {
			value = clonePayload(nested)
		}
		out[key] = value
	}
	return out
}
