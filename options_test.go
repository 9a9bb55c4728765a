package optset

import (
	"errors"
	"strings"
	"testing"
)

func shapeDecls() []*Option {
	return []*Option{
		MustOption("color", Default("red"), Types("")),
		MustOption("height", Required(), Types(0, 0.0)),
		MustOption("width", Default(0.0), Types(0, 0.0)),
	}
}

func asFloat(t *testing.T, v any) float64 {
	t.Helper()
	switch n := v.(type) {
	case int:
		return float64(n)
	case float64:
		return n
	}
	t.Fatalf("expected a number, got %T", v)
	return 0
}

func heightBelowWidth(o *Options) string {
	h, _ := o.Value("height")
	w, _ := o.Value("width")
	hf, hok := h.(float64)
	wf, wok := w.(float64)
	if hok && wok && hf < wf {
		return "height<width"
	}
	return ""
}

func TestPopulateFillsDefaults(t *testing.T) {
	o, err := New(shapeDecls())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := o.Populate(map[string]any{"height": 1.0}); err != nil {
		t.Fatalf("populate: %v", err)
	}

	color, _ := o.Get("color")
	value, _ := color.Value()
	if value != "red" || !color.IsDefaulted() {
		t.Fatalf("expected defaulted red, got %v defaulted=%v", value, color.IsDefaulted())
	}
	width, err := ValueOf[float64](o, "width")
	if err != nil || width != 0.0 {
		t.Fatalf("expected width 0.0, got %v (%v)", width, err)
	}
	if o.State() != Populated {
		t.Fatalf("expected populated, got %s", o.State())
	}
}

func TestOverrideThenRestore(t *testing.T) {
	o, _ := New(shapeDecls())
	if err := o.Populate(map[string]any{"color": "blue", "height": 5}); err != nil {
		t.Fatalf("populate: %v", err)
	}
	if err := o.Override(map[string]any{"color": "red"}); err != nil {
		t.Fatalf("override: %v", err)
	}
	if value, _ := o.Value("color"); value != "red" {
		t.Fatalf("expected override red, got %v", value)
	}
	if o.State() != Overridden {
		t.Fatalf("expected overridden, got %s", o.State())
	}
	if err := o.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if value, _ := o.Value("color"); value != "blue" {
		t.Fatalf("expected restored blue, got %v", value)
	}
	if o.State() != Populated {
		t.Fatalf("expected populated after restore, got %s", o.State())
	}
}

func TestAggregateValidateReportsMessage(t *testing.T) {
	o, _ := New(shapeDecls(), WithValidateMessage(heightBelowWidth))
	err := o.Populate(map[string]any{"width": 5.0, "height": 1.0})
	if !errors.Is(err, ErrOptionsInvalid) {
		t.Fatalf("expected ErrOptionsInvalid, got %v", err)
	}
	if !strings.Contains(err.Error(), "height<width") {
		t.Fatalf("expected message in %q", err.Error())
	}
	if o.State() != NotPopulated {
		t.Fatalf("a failed populate must not count as populated, got %s", o.State())
	}
}

func TestDefaultViolatingTypesIsRejected(t *testing.T) {
	_, err := NewOption("width", Default(0.0), Types(0))
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestRestoreMatchesPlainPopulate(t *testing.T) {
	data := map[string]any{"color": "blue", "height": 2.5}
	overrides := []map[string]any{
		{"color": "green"},
		{"width": 1.0, "height": 3},
		{"color": "black", "width": 2},
	}

	plain, _ := New(shapeDecls())
	if err := plain.Populate(data); err != nil {
		t.Fatalf("populate: %v", err)
	}

	layered, _ := New(shapeDecls())
	if err := layered.Populate(data); err != nil {
		t.Fatalf("populate: %v", err)
	}
	for i, batch := range overrides {
		if err := layered.Override(batch); err != nil {
			t.Fatalf("override %d: %v", i, err)
		}
	}
	if got := layered.Routines().MustGet(RoutineOverriding).HistoryLen(); got != len(overrides) {
		t.Fatalf("expected %d batches, got %d", len(overrides), got)
	}
	if err := layered.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}

	want, got := plain.Snapshot(), layered.Snapshot()
	if len(want) != len(got) {
		t.Fatalf("snapshot size mismatch: %v vs %v", want, got)
	}
	for field, value := range want {
		if got[field] != value {
			t.Fatalf("field %s: want %v, got %v", field, value, got[field])
		}
	}
	for _, field := range []string{"color", "height", "width"} {
		a, _ := plain.Get(field)
		b, _ := layered.Get(field)
		if a.IsDefaulted() != b.IsDefaulted() {
			t.Fatalf("field %s: defaulted flag differs after restore", field)
		}
	}
}

func TestDefaultedFlagTracksPopulate(t *testing.T) {
	o, _ := New(shapeDecls())
	if err := o.Populate(map[string]any{"height": 1}); err != nil {
		t.Fatalf("populate: %v", err)
	}
	width, _ := o.Get("width")
	if !width.IsDefaulted() {
		t.Fatalf("omitted field must be defaulted")
	}

	if err := o.Populate(map[string]any{"height": 1, "width": 0.0}); err != nil {
		t.Fatalf("populate: %v", err)
	}
	if width.IsDefaulted() {
		t.Fatalf("supplied field must not be defaulted, even when it equals the default")
	}
}

func TestUnknownFieldFailsFast(t *testing.T) {
	o, _ := New(shapeDecls())
	err := o.Populate(map[string]any{"height": 1, "zeta": 1, "alpha": 2})
	if !errors.Is(err, ErrDoesNotExist) {
		t.Fatalf("expected ErrDoesNotExist, got %v", err)
	}
	if !strings.Contains(err.Error(), "alpha,zeta") {
		t.Fatalf("expected sorted unknown keys in %q", err.Error())
	}
	if !o.Routines().MustGet(RoutinePopulating).NotStarted() {
		t.Fatalf("unknown keys must be rejected before the cycle starts")
	}

	if err := o.Populate(map[string]any{"height": 1}); err != nil {
		t.Fatalf("populate: %v", err)
	}
	if err := o.Override(map[string]any{"depth": 1}); !errors.Is(err, ErrDoesNotExist) {
		t.Fatalf("expected ErrDoesNotExist from override, got %v", err)
	}
}

func TestStrictPopulateStopsAtFirstFailure(t *testing.T) {
	o, _ := New(shapeDecls())
	err := o.Populate(map[string]any{"color": 1, "width": "wide"})
	if !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
	if errors.Is(err, ErrComposite) {
		t.Fatalf("strict populate must not accumulate: %v", err)
	}
	height, _ := o.Get("height")
	if height.IsSet() {
		t.Fatalf("fields after the failure must not be visited")
	}
}

func TestLenientPopulateCollectsEveryFailure(t *testing.T) {
	o, _ := New(shapeDecls(), WithStrict(false))
	err := o.Populate(map[string]any{"color": 1, "width": "wide"})
	if !errors.Is(err, ErrComposite) {
		t.Fatalf("expected a composite error, got %v", err)
	}
	for _, target := range []error{ErrInvalidType, ErrRequired} {
		if !errors.Is(err, target) {
			t.Fatalf("expected composite to contain %v: %v", target, err)
		}
	}
	if !strings.Contains(err.Error(), "(3 errors)") {
		t.Fatalf("expected three failures in %q", err.Error())
	}
}

func TestOverrideRequiresPopulate(t *testing.T) {
	o, _ := New(shapeDecls())
	if err := o.Override(map[string]any{"color": "blue"}); !errors.Is(err, ErrRoutineNotFinished) {
		t.Fatalf("expected ErrRoutineNotFinished, got %v", err)
	}
}

func TestRestoreWithoutOverrideIsNoop(t *testing.T) {
	o, _ := New(shapeDecls())
	if err := o.Populate(map[string]any{"height": 1}); err != nil {
		t.Fatalf("populate: %v", err)
	}
	if err := o.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !o.Routines().MustGet(RoutineRestoring).NotStarted() {
		t.Fatalf("restoring routine must not run")
	}
}

func TestFailedOverrideBatchCanBeRestored(t *testing.T) {
	o, _ := New(shapeDecls())
	if err := o.Populate(map[string]any{"color": "blue", "height": 4}); err != nil {
		t.Fatalf("populate: %v", err)
	}

	err := o.Override(map[string]any{"color": "green", "width": "wide"})
	if !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
	if value, _ := o.Value("color"); value != "green" {
		t.Fatalf("fields before the failure keep their override, got %v", value)
	}
	if err := o.Override(map[string]any{"color": "black"}); !errors.Is(err, ErrRoutineNotFinished) {
		t.Fatalf("expected a restore to be required, got %v", err)
	}

	if err := o.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if value, _ := o.Value("color"); value != "blue" {
		t.Fatalf("expected blue, got %v", value)
	}
	if err := o.Override(map[string]any{"color": "black"}); err != nil {
		t.Fatalf("override after restore: %v", err)
	}
}

func TestOverrideRejectedByPostProcessCanBeRestored(t *testing.T) {
	reject := PostProcess(func(v any) error {
		if v == "bad" {
			return errors.New("boom")
		}
		return nil
	})
	o, _ := New([]*Option{MustOption("color", Default("red"), Types(""), reject)})
	if err := o.Populate(map[string]any{"color": "blue"}); err != nil {
		t.Fatalf("populate: %v", err)
	}

	if err := o.Override(map[string]any{"color": "bad"}); err == nil {
		t.Fatalf("expected the post-process failure")
	}
	if value, _ := o.Value("color"); value != "bad" {
		t.Fatalf("expected the committed override, got %v", value)
	}
	if state := o.State(); state != Overridden {
		t.Fatalf("expected overridden, got %v", state)
	}

	if err := o.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if value, _ := o.Value("color"); value != "blue" {
		t.Fatalf("expected blue, got %v", value)
	}
	if c, _ := o.Get("color"); c.IsOverridden() {
		t.Fatalf("color still reports an override")
	}
	if state := o.State(); state != Populated {
		t.Fatalf("expected populated, got %v", state)
	}
}

func TestRestoreClearsOverridesWhenPostCycleFails(t *testing.T) {
	failing := false
	o, _ := New(shapeDecls(), WithPostProcess(func(*Options) error {
		if failing {
			return errors.New("rejected")
		}
		return nil
	}))
	if err := o.Populate(map[string]any{"color": "blue", "height": 4}); err != nil {
		t.Fatalf("populate: %v", err)
	}
	if err := o.Override(map[string]any{"color": "green"}); err != nil {
		t.Fatalf("override: %v", err)
	}

	failing = true
	if err := o.Restore(); err == nil {
		t.Fatalf("expected the post-process failure")
	}
	if value, _ := o.Value("color"); value != "blue" {
		t.Fatalf("expected blue, got %v", value)
	}
	if state := o.State(); state != Populated {
		t.Fatalf("expected populated, got %v", state)
	}
}

func TestOverrideFailingAggregateCheckCanBeRestored(t *testing.T) {
	o, _ := New(shapeDecls(), WithValidateMessage(heightBelowWidth))
	if err := o.Populate(map[string]any{"height": 3.0, "width": 2.0}); err != nil {
		t.Fatalf("populate: %v", err)
	}
	err := o.Override(map[string]any{"width": 9.0})
	if !errors.Is(err, ErrOptionsInvalid) {
		t.Fatalf("expected ErrOptionsInvalid, got %v", err)
	}
	if err := o.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if w := asFloat(t, mustValue(t, o, "width")); w != 2.0 {
		t.Fatalf("expected width 2, got %v", w)
	}
}

func mustValue(t *testing.T, o *Options, field string) any {
	t.Helper()
	value, err := o.Value(field)
	if err != nil {
		t.Fatalf("value %s: %v", field, err)
	}
	return value
}

func TestSiblingChecksDeferredUntilCycleEnds(t *testing.T) {
	var calls []string
	decls := []*Option{
		MustOption("max", Default(10), Types(0), ValidateWithOptions(func(v any, o *Options) error {
			lo, err := ValueOf[int](o, "min")
			if err != nil {
				return err
			}
			calls = append(calls, "max")
			if v.(int) < lo {
				return errors.New("max below min")
			}
			return nil
		})),
		MustOption("min", Default(0), Types(0)),
	}
	o, _ := New(decls)

	if err := o.Populate(map[string]any{"max": 20, "min": 5}); err != nil {
		t.Fatalf("populate: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("expected one deferred sibling check, got %v", calls)
	}

	err := o.Populate(map[string]any{"max": 1, "min": 5})
	if !errors.Is(err, ErrOptionsInvalid) || !strings.Contains(err.Error(), "max below min") {
		t.Fatalf("expected sibling failure, got %v", err)
	}
}

func TestAggregateFailuresAccumulate(t *testing.T) {
	decls := []*Option{
		MustOption("low", Default(0), Types(0)),
		MustOption("high", Default(10), Types(0), Expect("value >= low", "high must not be below low")),
	}
	o, _ := New(decls,
		WithValidate(func(*Options) error { return errors.New("first") }),
		WithRule("high - low <= 10", "range too wide"),
	)

	err := o.Populate(map[string]any{"low": 5, "high": 1})
	if !errors.Is(err, ErrOptionsInvalid) {
		t.Fatalf("expected ErrOptionsInvalid, got %v", err)
	}
	msg := err.Error()
	for _, want := range []string{"(2 errors)", "high must not be below low", "first"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in %q", want, msg)
		}
	}

	err = o.Populate(map[string]any{"low": 0, "high": 20})
	if err == nil || !strings.Contains(err.Error(), "range too wide") {
		t.Fatalf("expected aggregate rule failure, got %v", err)
	}
}

func TestPostProcessOrdering(t *testing.T) {
	var order []string
	decls := []*Option{
		MustOption("name", Default("svc"),
			PostProcess(func(any) error {
				order = append(order, "field")
				return nil
			}),
			PostProcessWithOptions(func(any, *Options) error {
				order = append(order, "field-with-options")
				return nil
			}),
		),
	}
	o, _ := New(decls,
		WithValidate(func(*Options) error {
			order = append(order, "validate")
			return nil
		}),
		WithPostProcess(func(*Options) error {
			order = append(order, "aggregate")
			return nil
		}),
	)
	if err := o.Populate(nil); err != nil {
		t.Fatalf("populate: %v", err)
	}
	want := []string{"field", "validate", "field-with-options", "aggregate"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, order)
	}

	order = nil
	if err := o.PostProcess(); err != nil {
		t.Fatalf("post-process: %v", err)
	}
	if strings.Join(order, ",") != "field-with-options,aggregate" {
		t.Fatalf("unexpected explicit post-process order %v", order)
	}
}

func TestValidateOnDemand(t *testing.T) {
	o, _ := New(shapeDecls(), WithValidateMessage(heightBelowWidth))
	if err := o.Populate(map[string]any{"height": 4.0, "width": 1.0}); err != nil {
		t.Fatalf("populate: %v", err)
	}
	if err := o.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := o.Set("width", 8.0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := o.Validate(); !errors.Is(err, ErrOptionsInvalid) {
		t.Fatalf("expected ErrOptionsInvalid, got %v", err)
	}
}

func TestDynamicAccess(t *testing.T) {
	o, _ := New(shapeDecls())
	if err := o.Populate(map[string]any{"height": 2}); err != nil {
		t.Fatalf("populate: %v", err)
	}
	if err := o.Set("color", "teal"); err != nil {
		t.Fatalf("set: %v", err)
	}
	color, err := ValueOf[string](o, "color")
	if err != nil || color != "teal" {
		t.Fatalf("expected teal, got %q (%v)", color, err)
	}
	if _, err := ValueOf[string](o, "height"); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
	if _, err := o.Value("depth"); !errors.Is(err, ErrDoesNotExist) {
		t.Fatalf("expected ErrDoesNotExist, got %v", err)
	}
	if err := o.Set("depth", 1); !errors.Is(err, ErrDoesNotExist) {
		t.Fatalf("expected ErrDoesNotExist, got %v", err)
	}
	if got := strings.Join(o.Fields(), ","); got != "color,height,width" {
		t.Fatalf("unexpected field order %q", got)
	}
}

func TestResetReturnsToNotPopulated(t *testing.T) {
	o, _ := New(shapeDecls())
	if err := o.Populate(map[string]any{"height": 2}); err != nil {
		t.Fatalf("populate: %v", err)
	}
	if err := o.Override(map[string]any{"height": 3}); err != nil {
		t.Fatalf("override: %v", err)
	}
	if err := o.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if o.State() != NotPopulated {
		t.Fatalf("expected not populated, got %s", o.State())
	}
	if len(o.Snapshot()) != 0 {
		t.Fatalf("expected an empty snapshot, got %v", o.Snapshot())
	}
}

func TestDeclarationsAreShared(t *testing.T) {
	decls := shapeDecls()
	a, _ := New(decls)
	b, _ := New(decls)
	if err := a.Populate(map[string]any{"height": 1}); err != nil {
		t.Fatalf("populate: %v", err)
	}
	if _, ok := decls[1].Parent(); ok {
		t.Fatalf("declarations must stay detached")
	}
	if height, _ := b.Get("height"); height.IsSet() {
		t.Fatalf("aggregates must not share values")
	}
}

func TestNewRejectsBadDeclarations(t *testing.T) {
	if _, err := New([]*Option{nil}); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for nil, got %v", err)
	}
	dup := []*Option{MustOption("a", Default(1)), MustOption("a", Default(2))}
	if _, err := New(dup); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for duplicates, got %v", err)
	}
	if _, err := New([]*Option{{}}); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for an undeclared option, got %v", err)
	}
}

func TestLoadPopulates(t *testing.T) {
	o, err := Load(shapeDecls(), map[string]any{"height": 3}, WithID("shape"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if o.ID() != "shape" || o.State() != Populated {
		t.Fatalf("unexpected aggregate %s in state %s", o.ID(), o.State())
	}
	if _, err := Load(shapeDecls(), nil); !errors.Is(err, ErrRequired) {
		t.Fatalf("expected ErrRequired, got %v", err)
	}
}

func TestRemoveChildDetaches(t *testing.T) {
	o, _ := New(shapeDecls())
	color, _ := o.Get("color")
	if err := o.RemoveChild(color); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := color.Parent(); ok {
		t.Fatalf("removed option must be detached")
	}
	if err := o.Populate(map[string]any{"color": "red", "height": 1}); !errors.Is(err, ErrDoesNotExist) {
		t.Fatalf("expected ErrDoesNotExist, got %v", err)
	}
}
