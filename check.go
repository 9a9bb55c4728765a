package optset

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-optset/internal/clone"
	"github.com/goliatone/go-optset/pkg/fault"
)

var tagValidator = sync.OnceValue(func() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
})

// check runs the value pipeline: nil handling, type constraint, tag rule and
// the user validate function, in that order.
func (p params) check(value any) error {
	if value == nil {
		if p.required {
			return fault.New(fault.KindRequired, p.field, "a value is required")
		}
		if len(p.types) > 0 && !p.nullable {
			return fault.New(fault.KindInvalidType, p.field, "nil does not satisfy %s", p.describeTypes())
		}
		return nil
	}
	if len(p.types) > 0 && !matchesType(value, p.types) {
		return fault.New(fault.KindInvalidType, p.field, "expected %s, got %T", p.describeTypes(), value)
	}
	if p.tag != "" {
		if err := tagValidator().Var(value, p.tag); err != nil {
			return fault.Wrap(fault.KindInvalid, p.field, err, "rule %q not satisfied", p.tag)
		}
	}
	if p.validate != nil {
		if err := p.validate(value); err != nil {
			if fault.IsInvalid(err) {
				return err
			}
			return fault.Wrap(fault.KindInvalid, p.field, err, "")
		}
	}
	return nil
}

func matchesType(value any, types []reflect.Type) bool {
	vt := reflect.TypeOf(value)
	for _, t := range types {
		if vt == t || vt.AssignableTo(t) {
			return true
		}
	}
	return false
}

// validateConfiguration checks the declaration itself. It never looks at the
// stored value.
func (p params) validateConfiguration() error {
	field := strings.TrimSpace(p.field)
	if field == "" {
		return fault.New(fault.KindConfiguration, p.field, "field name must not be empty")
	}
	if field != p.field {
		return fault.New(fault.KindConfiguration, p.field, "field name must not carry surrounding whitespace")
	}
	if strings.HasPrefix(field, "_") {
		return fault.New(fault.KindConfiguration, p.field, "field name must not start with %q", "_")
	}
	if p.required && p.hasDefault {
		return fault.New(fault.KindConfiguration, p.field, "a required field cannot declare a default")
	}
	if p.required && p.nullable {
		cause := fault.New(fault.KindNotRequired, p.field, "nil is only accepted by optional fields")
		return fault.Wrap(fault.KindConfiguration, p.field, cause, "a required field cannot be nullable")
	}
	if !p.required && !p.hasDefault {
		p.log().Warn("optional field declares no default", "field", p.field)
	}
	if !p.hasDefault {
		return nil
	}
	if err := p.check(p.def); err != nil {
		return fault.Wrap(fault.KindConfiguration, p.field, err, "default %v violates the field constraints", p.def)
	}
	if p.normalize != nil {
		normalized := p.normalize(clone.Value(p.def))
		if err := p.check(normalized); err != nil {
			return fault.Wrap(fault.KindConfiguration, p.field, err, "normalized default %v violates the field constraints", normalized)
		}
	}
	return nil
}
