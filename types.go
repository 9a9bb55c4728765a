package optset

import (
	"log/slog"
	"time"

	"github.com/goliatone/go-optset/pkg/activity"
)

// State reports where an Options aggregate is in its lifecycle.
type State int

const (
	NotPopulated State = iota
	Populated
	Overridden
)

func (s State) String() string {
	switch s {
	case Populated:
		return "populated"
	case Overridden:
		return "overridden"
	default:
		return "not_populated"
	}
}

// Rule is an expression that must evaluate to true. Message is reported when
// it does not.
type Rule struct {
	Expr    string
	Message string
}

// SchemaFormat identifies the representation a schema document encodes.
type SchemaFormat string

const (
	// SchemaFormatDescriptors represents the flattened field descriptors.
	SchemaFormatDescriptors SchemaFormat = "descriptors"
	// SchemaFormatOpenAPI represents OpenAPI-compatible JSON Schema documents.
	SchemaFormatOpenAPI SchemaFormat = "openapi"
)

// SchemaDocument encapsulates a generated schema output alongside its format
// identifier. Document must be JSON-serialisable.
type SchemaDocument struct {
	Format   SchemaFormat
	Document any
}

// SchemaGenerator renders field declarations into a schema document.
type SchemaGenerator interface {
	Generate(fields []FieldDescriptor) (SchemaDocument, error)
}

// RuleContext carries inputs needed when evaluating an expression. Field and
// Value are set for field rules only.
type RuleContext struct {
	Snapshot map[string]any
	Field    string
	Value    any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Snapshot == nil {
		ctx.Snapshot = map[string]any{}
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaults()
	return *ctx.Now
}

func (ctx RuleContext) label() string {
	if ctx.Field != "" {
		return ctx.Field
	}
	return "options"
}

// bindings returns the variables visible to an expression: every snapshot
// field, then now/args/metadata, then value/field for field rules.
func (ctx RuleContext) bindings() map[string]any {
	env := make(map[string]any, len(ctx.Snapshot)+5)
	for key, value := range ctx.Snapshot {
		env[key] = value
	}
	env["now"] = ctx.timestamp()
	env["args"] = ctx.Args
	env["metadata"] = ctx.Metadata
	if ctx.Field != "" {
		env["field"] = ctx.Field
		env["value"] = ctx.Value
	}
	return env
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct {
	variables []string
}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}

// WithVariables declares variable names up front for engines that type
// check at compile time.
func WithVariables(names ...string) CompileOption {
	return compileOptionFunc(func(cfg *compileConfig) {
		cfg.variables = append(cfg.variables, names...)
	})
}

func applyCompileOptions(opts []CompileOption) compileConfig {
	cfg := compileConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt.applyCompileOption(&cfg)
		}
	}
	return cfg
}

// Setting configures an Options aggregate.
type Setting func(*optionsConfig)

type optionsConfig struct {
	id              string
	strict          bool
	validators      []func(*Options) error
	postProcessors  []func(*Options) error
	rules           []Rule
	evaluator       Evaluator
	programCache    ProgramCache
	functions       *FunctionRegistry
	evaluatorLogger EvaluatorLogger
	logger          *slog.Logger
	schemaGenerator SchemaGenerator
	activityHooks   activity.Hooks
	activityConfig  activity.Config
	err             error
}

func applySettings(settings []Setting) optionsConfig {
	cfg := optionsConfig{
		strict:         true,
		activityConfig: activity.Config{Enabled: true},
	}
	for _, setting := range settings {
		if setting != nil {
			setting(&cfg)
		}
	}
	return cfg
}

// WithID sets the aggregate identifier used in activity events. A random
// UUID is used otherwise.
func WithID(id string) Setting {
	return func(cfg *optionsConfig) {
		cfg.id = id
	}
}

// WithStrict controls how Populate reports field errors. Strict aggregates
// stop at the first failing field; non-strict ones visit every field and
// report all failures as one composite error.
func WithStrict(strict bool) Setting {
	return func(cfg *optionsConfig) {
		cfg.strict = strict
	}
}

// WithValidate adds an aggregate check run after every populate, override
// and restore cycle.
func WithValidate(fn func(*Options) error) Setting {
	return func(cfg *optionsConfig) {
		if fn != nil {
			cfg.validators = append(cfg.validators, fn)
		}
	}
}

// WithValidateMessage adds an aggregate check that reports a failure by
// returning a non-empty message.
func WithValidateMessage(fn func(*Options) string) Setting {
	return WithValidate(func(o *Options) error {
		if fn == nil {
			return nil
		}
		if msg := fn(o); msg != "" {
			return newOptionsInvalid(msg)
		}
		return nil
	})
}

// WithPostProcess adds a hook run after aggregate validation succeeds.
func WithPostProcess(fn func(*Options) error) Setting {
	return func(cfg *optionsConfig) {
		if fn != nil {
			cfg.postProcessors = append(cfg.postProcessors, fn)
		}
	}
}

// WithRule adds an aggregate expression that must evaluate to true.
func WithRule(expr, message string) Setting {
	return func(cfg *optionsConfig) {
		cfg.rules = append(cfg.rules, Rule{Expr: expr, Message: message})
	}
}

// WithEvaluator configures the engine used for rules and Evaluate.
func WithEvaluator(e Evaluator) Setting {
	return func(cfg *optionsConfig) {
		cfg.evaluator = e
	}
}

// WithSchemaGenerator configures a custom schema generator implementation.
func WithSchemaGenerator(generator SchemaGenerator) Setting {
	return func(cfg *optionsConfig) {
		cfg.schemaGenerator = generator
	}
}
