package runtime_test

import (
	"context"
	"testing"

	"github.com/aretw0/nodegraph/internal/runtime"
	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// relay copies its Float input to its output and counts calls.
type relay struct {
	domain.Behavior
	calls int
}

func (r *relay) Type() string { return "test.relay" }
func (r *relay) Ports() []domain.PortSpec {
	return []domain.PortSpec{
		{Name: "in", Type: schema.Float, Direction: domain.In, Required: true},
		{Name: "out", Type: schema.Float, Direction: domain.Out},
	}
}
func (r *relay) Calculate(c *domain.Calc) bool {
	r.calls++
	v, ok := c.Float("in")
	if !ok {
		return false
	}
	return c.SetOutput("out", v)
}

// sum adds two Float inputs.
type sum struct{ domain.Behavior }

func (s *sum) Type() string { return "test.sum" }
func (s *sum) Ports() []domain.PortSpec {
	return []domain.PortSpec{
		{Name: "a", Type: schema.Float, Direction: domain.In, Required: true},
		{Name: "b", Type: schema.Float, Direction: domain.In, Required: true},
		{Name: "out", Type: schema.Float, Direction: domain.Out},
	}
}
func (s *sum) Calculate(c *domain.Calc) bool {
	a, okA := c.Float("a")
	b, okB := c.Float("b")
	if !okA || !okB {
		return false
	}
	return c.SetOutput("out", a+b)
}

// flaky stages an output and then refuses to finish.
type flaky struct{ domain.Behavior }

func (f *flaky) Type() string { return "test.flaky" }
func (f *flaky) Ports() []domain.PortSpec {
	return []domain.PortSpec{{Name: "out", Type: schema.Float, Direction: domain.Out}}
}
func (f *flaky) Calculate(c *domain.Calc) bool {
	c.SetOutput("out", 99)
	return false
}

// panicky blows up when calculated.
type panicky struct{ domain.Behavior }

func (p *panicky) Type() string             { return "test.panic" }
func (p *panicky) Ports() []domain.PortSpec { return nil }
func (p *panicky) Calculate(*domain.Calc) bool {
	panic("boom")
}

type fixture struct {
	t *testing.T
	g *domain.Graph
}

func newFixture(t *testing.T) *fixture {
	return &fixture{t: t, g: domain.NewGraph(nil)}
}

func (f *fixture) add(name string, n domain.Node) domain.NodeID {
	id, err := f.g.AddNode(name, n)
	require.NoError(f.t, err)
	return id
}

func (f *fixture) connect(from, fromPort, to, toPort string) {
	_, err := f.g.ConnectByName(from, fromPort, to, toPort)
	require.NoError(f.t, err)
}

func (f *fixture) set(node, port string, v any) {
	id, ok := f.g.Lookup(node)
	require.True(f.t, ok)
	pid, err := f.g.InputPort(id, port)
	require.NoError(f.t, err)
	require.NoError(f.t, f.g.SetInput(pid, v))
}

func (f *fixture) out(node string) (any, bool) {
	id, ok := f.g.Lookup(node)
	require.True(f.t, ok)
	pid, err := f.g.OutputPort(id, "out")
	require.NoError(f.t, err)
	return f.g.Value(pid)
}

func stuckNames(r *runtime.Report) []string {
	var names []string
	for _, s := range r.Stuck {
		names = append(names, s.Name)
	}
	return names
}

func TestTraverseAll_Chain(t *testing.T) {
	f := newFixture(t)
	f.add("x", &relay{})
	f.add("y", &relay{})
	f.add("sum", &sum{})
	f.add("result", &relay{})
	f.connect("x", "out", "sum", "a")
	f.connect("y", "out", "sum", "b")
	f.connect("sum", "out", "result", "in")
	f.set("x", "in", 2)
	f.set("y", "in", 3)

	report := runtime.New().TraverseAll(context.Background(), f.g, nil)

	require.True(t, report.OK(), "stuck: %v", stuckNames(report))
	assert.NoError(t, report.Err())
	assert.Len(t, report.Calculated, 4)
	v, ok := f.out("result")
	require.True(t, ok)
	assert.Equal(t, 5.0, v)
	for _, id := range f.g.Nodes() {
		assert.True(t, f.g.Calculated(id))
	}
}

func TestTraverseAll_Diamond(t *testing.T) {
	// a feeds b and c, which both feed d: d must wait for c after b's descent.
	f := newFixture(t)
	f.add("a", &relay{})
	f.add("b", &relay{})
	f.add("c", &relay{})
	f.add("d", &sum{})
	f.connect("a", "out", "b", "in")
	f.connect("a", "out", "c", "in")
	f.connect("b", "out", "d", "a")
	f.connect("c", "out", "d", "b")
	f.set("a", "in", 4)

	report := runtime.New().TraverseAll(context.Background(), f.g, nil)

	require.True(t, report.OK())
	v, _ := f.out("d")
	assert.Equal(t, 8.0, v)
}

func TestTraverseAll_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.add("a", &relay{})
	f.add("b", &relay{})
	f.add("orphan", &relay{})
	f.connect("a", "out", "b", "in")
	f.set("a", "in", 1.5)

	ev := runtime.New()
	first := ev.TraverseAll(context.Background(), f.g, nil)
	snap1 := f.g.Snapshot()
	second := ev.TraverseAll(context.Background(), f.g, nil)
	snap2 := f.g.Snapshot()

	assert.Equal(t, snap1, snap2)
	assert.Nil(t, domain.Diff(snap1, snap2))
	assert.Equal(t, stuckNames(first), stuckNames(second))
	assert.Equal(t, []string{"orphan"}, stuckNames(second))
}

func TestTraverseAll_CycleReportsStuck(t *testing.T) {
	f := newFixture(t)
	f.add("x", &relay{})
	f.add("y", &relay{})
	f.connect("x", "out", "y", "in")
	f.connect("y", "out", "x", "in")

	report := runtime.New().TraverseAll(context.Background(), f.g, nil)

	assert.False(t, report.OK())
	assert.Equal(t, []string{"x", "y"}, stuckNames(report))
	assert.Empty(t, report.Calculated)

	var stuckErr *runtime.StuckError
	require.ErrorAs(t, report.Err(), &stuckErr)
	assert.Len(t, stuckErr.Nodes, 2)
	assert.Contains(t, stuckErr.Error(), "x, y")
}

func TestTraverseAll_UnsetInputThenRecalculate(t *testing.T) {
	f := newFixture(t)
	src := f.add("src", &relay{})
	f.add("dst", &relay{})
	f.connect("src", "out", "dst", "in")

	ev := runtime.New()
	report := ev.TraverseAll(context.Background(), f.g, nil)
	require.Len(t, report.Stuck, 2)
	assert.Equal(t, `input "in" has no connection and no value`, report.Stuck[0].Reason)
	assert.Equal(t, `waiting on upstream node "src"`, report.Stuck[1].Reason)

	f.set("src", "in", 7)
	report, err := ev.RecalculateFrom(context.Background(), f.g, src, nil)
	require.NoError(t, err)
	assert.True(t, report.OK())
	v, _ := f.out("dst")
	assert.Equal(t, 7.0, v)
}

func TestRecalculateFrom_Locality(t *testing.T) {
	f := newFixture(t)
	r1 := &relay{}
	r2 := &relay{}
	r3 := &relay{}
	r4 := &relay{}
	a := f.add("r1", r1)
	b := f.add("r2", r2)
	f.add("r3", r3)
	f.add("r4", r4)
	f.connect("r1", "out", "r2", "in")
	f.connect("r3", "out", "r4", "in")
	f.set("r1", "in", 1)
	f.set("r3", "in", 2)

	ev := runtime.New()
	require.True(t, ev.TraverseAll(context.Background(), f.g, nil).OK())
	before3, before4 := r3.calls, r4.calls
	untouched, _ := f.out("r4")

	f.set("r1", "in", 10)
	report, err := ev.RecalculateFrom(context.Background(), f.g, a, nil)
	require.NoError(t, err)

	assert.Equal(t, []domain.NodeID{a, b}, report.Calculated)
	v, _ := f.out("r2")
	assert.Equal(t, 10.0, v)
	assert.Equal(t, before3, r3.calls)
	assert.Equal(t, before4, r4.calls)
	after, _ := f.out("r4")
	assert.Equal(t, untouched, after)
}

func TestRecalculateFrom_UnknownNode(t *testing.T) {
	f := newFixture(t)
	_, err := runtime.New().RecalculateFrom(context.Background(), f.g, domain.NodeID(42), nil)
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
}

func TestRecalculateFrom_StopsAtFixedPoint(t *testing.T) {
	// A pass without progress ends the run even though y can never be calculated.
	f := newFixture(t)
	x := f.add("x", &relay{})
	f.add("y", &sum{})
	f.connect("x", "out", "y", "a")
	f.set("x", "in", 1)

	report, err := runtime.New().RecalculateFrom(context.Background(), f.g, x, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"y"}, stuckNames(report))
	assert.Equal(t, 2, report.Passes)
}

func TestEvaluator_FailedCalculationWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.add("flaky", &flaky{})

	report := runtime.New().TraverseAll(context.Background(), f.g, nil)

	assert.Equal(t, []string{"flaky"}, stuckNames(report))
	_, ok := f.out("flaky")
	assert.False(t, ok, "staged output must be discarded when Calculate fails")
}

func TestEvaluator_StopPropagation(t *testing.T) {
	f := newFixture(t)
	f.add("gate", &relay{Behavior: domain.Behavior{StopPropagation: true}})
	f.add("after", &relay{})
	f.connect("gate", "out", "after", "in")
	f.set("gate", "in", 1)

	report := runtime.New().TraverseAll(context.Background(), f.g, nil)

	assert.Equal(t, []string{"after"}, stuckNames(report))
}

func TestEvaluator_RecursiveCycleTerminates(t *testing.T) {
	f := newFixture(t)
	loop := &relay{Behavior: domain.Behavior{Source: true, Recursive: true}}
	f.add("loop", loop)
	f.add("echo", &relay{})
	f.connect("loop", "out", "echo", "in")
	f.connect("echo", "out", "loop", "in")

	// Neither node can start, and the run must still end.
	report := runtime.New().TraverseAll(context.Background(), f.g, nil)

	assert.Equal(t, []string{"loop", "echo"}, stuckNames(report))
	assert.Positive(t, report.Passes)
}

func TestEvaluator_PanicIsContained(t *testing.T) {
	f := newFixture(t)
	f.add("bad", &panicky{})
	f.add("good", &relay{})
	f.set("good", "in", 3)

	report := runtime.New().TraverseAll(context.Background(), f.g, nil)

	assert.Equal(t, []string{"bad"}, stuckNames(report))
	v, _ := f.out("good")
	assert.Equal(t, 3.0, v)
}

func TestEvaluator_LifecycleHooks(t *testing.T) {
	f := newFixture(t)
	f.add("a", &relay{})
	f.add("b", &relay{})
	f.add("c", &relay{})
	f.connect("a", "out", "b", "in")
	f.set("a", "in", 1)

	var calculated, stuck []string
	var evals []*domain.EvaluationEvent
	hooks := domain.LifecycleHooks{
		OnCalculate: func(ctx context.Context, e *domain.NodeEvent) {
			if e.Success {
				calculated = append(calculated, e.Name)
			}
		},
		OnStuck: func(ctx context.Context, e *domain.NodeEvent) {
			stuck = append(stuck, e.Name)
		},
		OnEvaluation: func(ctx context.Context, e *domain.EvaluationEvent) {
			evals = append(evals, e)
		},
	}

	runtime.New(runtime.WithLifecycleHooks(hooks)).TraverseAll(context.Background(), f.g, nil)

	assert.Equal(t, []string{"a", "b"}, calculated)
	assert.Equal(t, []string{"c"}, stuck)
	require.Len(t, evals, 1)
	assert.Equal(t, runtime.ScopeAll, evals[0].Scope)
	assert.Equal(t, 2, evals[0].Calculated)
	assert.Equal(t, 1, evals[0].Stuck)
}
