package optset

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/goliatone/go-optset/internal/clone"
)

// ValidateFunc rejects a candidate value by returning an error.
type ValidateFunc func(value any) error

// NormalizeFunc maps a stored value to the value handed to readers.
type NormalizeFunc func(value any) any

// ValidateWithOptionsFunc checks a value against its sibling fields.
type ValidateWithOptionsFunc func(value any, o *Options) error

// PostProcessFunc runs after a value changes.
type PostProcessFunc func(value any) error

// PostProcessWithOptionsFunc runs after a value changes once its siblings are
// consistent.
type PostProcessWithOptionsFunc func(value any, o *Options) error

// Param configures a field declaration.
type Param func(*params)

type params struct {
	field      string
	def        any
	hasDefault bool
	required   bool
	types      []reflect.Type
	nullable   bool
	locked     bool
	validate   ValidateFunc
	normalize  NormalizeFunc
	tag        string
	help       string
	logger     *slog.Logger

	validateWithOptions    ValidateWithOptionsFunc
	postProcess            PostProcessFunc
	postProcessWithOptions PostProcessWithOptionsFunc
	rules                  []Rule
}

func newParams(field string, ps []Param) params {
	p := params{field: field}
	for _, param := range ps {
		if param != nil {
			param(&p)
		}
	}
	return p
}

func (p params) clone() params {
	out := p
	if p.hasDefault {
		out.def = clone.Value(p.def)
	}
	out.types = append([]reflect.Type(nil), p.types...)
	out.rules = append([]Rule(nil), p.rules...)
	return out
}

func (p params) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return slog.Default()
}

// Default declares the value used when a field is not supplied.
func Default(value any) Param {
	return func(p *params) {
		p.def = value
		p.hasDefault = true
	}
}

// NoDefault removes a previously declared default.
func NoDefault() Param {
	return func(p *params) {
		p.def = nil
		p.hasDefault = false
	}
}

// Required marks the field as mandatory. A required field cannot declare a
// default.
func Required() Param {
	return func(p *params) {
		p.required = true
	}
}

// Optional clears Required.
func Optional() Param {
	return func(p *params) {
		p.required = false
	}
}

// Types restricts values to the dynamic types of the given samples, e.g.
// Types(0, 0.0) accepts int and float64.
func Types(samples ...any) Param {
	return func(p *params) {
		p.types = nil
		for _, sample := range samples {
			switch typed := sample.(type) {
			case nil:
			case reflect.Type:
				p.types = append(p.types, typed)
			default:
				p.types = append(p.types, reflect.TypeOf(sample))
			}
		}
	}
}

// TypeOf adds T to the accepted types. Interface types accept any
// implementation.
func TypeOf[T any]() Param {
	return func(p *params) {
		p.types = append(p.types, reflect.TypeFor[T]())
	}
}

// Nullable lets nil satisfy a declared type constraint.
func Nullable() Param {
	return func(p *params) {
		p.nullable = true
	}
}

// Locked forbids changing the value once it is set.
func Locked() Param {
	return func(p *params) {
		p.locked = true
	}
}

// Validate adds a user check to the validation pipeline.
func Validate(fn ValidateFunc) Param {
	return func(p *params) {
		p.validate = fn
	}
}

// Normalize transforms values on read.
func Normalize(fn NormalizeFunc) Param {
	return func(p *params) {
		p.normalize = fn
	}
}

// Tag validates values with a go-playground/validator rule such as
// "gte=0,lte=100".
func Tag(rule string) Param {
	return func(p *params) {
		p.tag = strings.TrimSpace(rule)
	}
}

// Help attaches a description used by schema generators.
func Help(text string) Param {
	return func(p *params) {
		p.help = text
	}
}

// Logger sets the logger used for declaration warnings.
func Logger(logger *slog.Logger) Param {
	return func(p *params) {
		p.logger = logger
	}
}

// ValidateWithOptions checks the value against its siblings once the
// aggregate is consistent.
func ValidateWithOptions(fn ValidateWithOptionsFunc) Param {
	return func(p *params) {
		p.validateWithOptions = fn
	}
}

// PostProcess runs fn with the new value after every change.
func PostProcess(fn PostProcessFunc) Param {
	return func(p *params) {
		p.postProcess = fn
	}
}

// PostProcessWithOptions runs fn with the new value and the aggregate once
// the aggregate is consistent.
func PostProcessWithOptions(fn PostProcessWithOptionsFunc) Param {
	return func(p *params) {
		p.postProcessWithOptions = fn
	}
}

// Expect adds an expression that must evaluate to true. The expression sees
// every sibling field plus value and field.
func Expect(expr, message string) Param {
	return func(p *params) {
		p.rules = append(p.rules, Rule{Expr: expr, Message: message})
	}
}

func (p params) typeNames() []string {
	names := make([]string, len(p.types))
	for i, t := range p.types {
		names[i] = t.String()
	}
	return names
}

func (p params) describeTypes() string {
	if len(p.types) == 1 {
		return p.types[0].String()
	}
	return fmt.Sprintf("one of (%s)", strings.Join(p.typeNames(), ", "))
}
