package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/nodegraph"
	"github.com/aretw0/nodegraph/internal/config"
	"github.com/aretw0/nodegraph/internal/logging"
	"github.com/aretw0/nodegraph/pkg/adapters/file"
	"github.com/aretw0/nodegraph/pkg/adapters/hcl"
	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const calcYAML = `
name: calc
nodes:
  - name: x
    type: float.value
    params:
      value: 4
  - name: half
    type: math.divide
    inputs:
      b: 2
  - name: show
    type: display
connections:
  - from: x.out
    to: half.a
  - from: half.out
    to: show.in
`

const talkYAML = `
name: talk
nodes:
  - name: hello
    type: dialog.start
    params:
      dialog_id: 1
      text: Hi
  - name: bye
    type: dialog.end
    params:
      text: See you.
connections:
  - from: hello.next
    to: bye.prev
`

func writeGraph(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func testConfig(graph string) *config.Config {
	cfg := config.Default()
	cfg.Graph = graph
	return cfg
}

func TestOpenLoader(t *testing.T) {
	t.Run("YAML file", func(t *testing.T) {
		l, err := OpenLoader(writeGraph(t, "g.yaml", calcYAML), false)
		require.NoError(t, err)
		assert.IsType(t, &file.Loader{}, l)
	})

	t.Run("HCL file", func(t *testing.T) {
		l, err := OpenLoader(writeGraph(t, "g.hcl", `name = "x"`), false)
		require.NoError(t, err)
		assert.IsType(t, &hcl.Loader{}, l)
	})

	t.Run("Lenient JSON", func(t *testing.T) {
		l, err := OpenLoader(writeGraph(t, "g.json", `{"name": "x", "nodes": [],}`), true)
		require.NoError(t, err)
		doc, err := l.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "x", doc.Name)
	})

	t.Run("Errors", func(t *testing.T) {
		_, err := OpenLoader("", false)
		assert.ErrorIs(t, err, ErrNoGraph)

		_, err = OpenLoader(filepath.Join(t.TempDir(), "missing.yaml"), false)
		assert.ErrorIs(t, err, os.ErrNotExist)

		_, err = OpenLoader(writeGraph(t, "g.toml", ""), false)
		assert.Error(t, err)
	})
}

func TestParseAssignment(t *testing.T) {
	tests := []struct {
		in    string
		node  string
		port  string
		value any
	}{
		{"x.in=3", "x", "in", 3.0},
		{"flag.in=true", "flag", "in", true},
		{"name.in=alice", "name", "in", "alice"},
		{`name.in="bob"`, "name", "in", "bob"},
		{"a.b.in=1.5", "a.b", "in", 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			a, err := ParseAssignment(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.node, a.Node)
			assert.Equal(t, tt.port, a.Port)
			assert.Equal(t, tt.value, a.Value)
		})
	}

	for _, bad := range []string{"x.in", "x=3", ".in=3"} {
		_, err := ParseAssignment(bad)
		assert.Error(t, err, bad)
	}
}

func TestEval(t *testing.T) {
	ctx := context.Background()
	metrics := observability.NewMetrics()
	engine, err := NewEngine(ctx, testConfig(writeGraph(t, "calc.yaml", calcYAML)), EngineOptions{
		Logger:  logging.NewNop(),
		Metrics: metrics,
	})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, Eval(ctx, engine, EvalOptions{Plain: true}, &out))
	assert.Contains(t, out.String(), "half out=2")
	assert.Contains(t, out.String(), "0 stuck")

	out.Reset()
	require.NoError(t, Eval(ctx, engine, EvalOptions{Set: []string{"x.in=10"}, From: "x", JSON: true}, &out))
	var got struct {
		Scope      string   `json:"scope"`
		Origin     string   `json:"origin"`
		Calculated []string `json:"calculated"`
		Graph      domain.GraphSnapshot
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "x", got.Origin)
	assert.Contains(t, got.Calculated, "half")
	assert.Equal(t, 5.0, got.Graph["half"].Outputs["out"])

	err = Eval(ctx, engine, EvalOptions{Set: []string{"half.b=0"}, Plain: true}, &out)
	var stuck *nodegraph.StuckError
	assert.True(t, errors.As(err, &stuck), "expected a stuck error, got %v", err)

	err = Eval(ctx, engine, EvalOptions{Set: []string{"nope.in=1"}}, &out)
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
}

const varsYAML = `
name: vars
nodes:
  - name: x
    type: float.value
    params:
      value: 4
  - name: put
    type: blackboard.set
    params:
      key: gold
connections:
  - from: x.out
    to: put.value
`

func TestEval_Blackboard(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, testConfig(writeGraph(t, "vars.yaml", varsYAML)), EngineOptions{Logger: logging.NewNop()})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, Eval(ctx, engine, EvalOptions{JSON: true}, &out))
	var got struct {
		Calculated []string       `json:"calculated"`
		Blackboard map[string]any `json:"blackboard"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.ElementsMatch(t, []string{"x", "put"}, got.Calculated)
	assert.Equal(t, 4.0, got.Blackboard["gold"])
}

func TestNewEngine_StrictOwnership(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(writeGraph(t, "calc.yaml", calcYAML))
	cfg.StrictOwnership = true

	shared, err := NewEngine(ctx, cfg, EngineOptions{Logger: logging.NewNop(), Shared: true})
	require.NoError(t, err)
	errc := make(chan error, 1)
	go func() {
		_, err := shared.Evaluate(ctx)
		errc <- err
	}()
	assert.NoError(t, <-errc)

	owned, err := NewEngine(ctx, cfg, EngineOptions{Logger: logging.NewNop()})
	require.NoError(t, err)
	go func() {
		_, err := owned.Evaluate(ctx)
		errc <- err
	}()
	assert.Error(t, <-errc)
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()
	state := domain.NewSessionState("s1")
	state.Active[1] = "hello"
	state.Blackboards[1] = map[string]any{"email": "a@b.c", "mood": "fine"}

	t.Run("Memory", func(t *testing.T) {
		store, locker, closer, err := NewStore(ctx, config.Default())
		require.NoError(t, err)
		assert.Nil(t, locker)
		assert.Nil(t, closer)
		require.NoError(t, store.Save(ctx, "s1", state))
	})

	t.Run("File with PII masking and encryption", func(t *testing.T) {
		cfg := config.Default()
		cfg.Store = config.StoreConfig{Kind: config.StoreFile, Dir: t.TempDir()}
		cfg.Security.PIIKeys = []string{"email"}
		cfg.Security.EncryptionKey = strings.Repeat("ab", 32)

		store, _, _, err := NewStore(ctx, cfg)
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, "s1", state))

		raw, err := os.ReadFile(filepath.Join(cfg.Store.Dir, "s1.json"))
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "fine")

		loaded, err := store.Load(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "hello", loaded.Active[1])
		assert.Equal(t, "fine", loaded.Blackboards[1]["mood"])
		assert.NotEqual(t, "a@b.c", loaded.Blackboards[1]["email"])
	})

	t.Run("Redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := config.Default()
		cfg.Store.Kind = config.StoreRedis
		cfg.Redis.Addr = mr.Addr()

		store, locker, closer, err := NewStore(ctx, cfg)
		require.NoError(t, err)
		require.NotNil(t, locker)
		defer closer()

		require.NoError(t, store.Save(ctx, "s1", state))
		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"s1"}, ids)
	})

	t.Run("Unreachable redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		cfg := config.Default()
		cfg.Store.Kind = config.StoreRedis
		cfg.Redis.Addr = addr
		_, _, _, err := NewStore(ctx, cfg)
		assert.Error(t, err)
	})
}

func TestPlay_StoredSession(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, testConfig(writeGraph(t, "talk.yaml", talkYAML)), EngineOptions{Logger: logging.NewNop()})
	require.NoError(t, err)

	p, err := NewPersistence(ctx, config.Default(), logging.NewNop(), engine.DialogOptions()...)
	require.NoError(t, err)
	defer p.Close()

	var out bytes.Buffer
	err = Play(ctx, engine, PlayOptions{
		DialogID:  1,
		SessionID: "cli",
		Manager:   p.Manager,
		Input:     strings.NewReader("\n"),
		Output:    &out,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi\nSee you.\n", out.String())

	state, err := p.Manager.Load(ctx, "cli")
	require.NoError(t, err)
	assert.Equal(t, "bye", state.Active[1])

	out.Reset()
	require.NoError(t, ListSessions(ctx, p.Store, &out))
	assert.Equal(t, "cli\n", out.String())

	out.Reset()
	require.NoError(t, InspectSession(ctx, p.Store, "cli", &out))
	assert.Contains(t, out.String(), `"bye"`)

	out.Reset()
	require.NoError(t, RemoveSession(ctx, p.Store, "cli", &out))
	require.NoError(t, ListSessions(ctx, p.Store, &out))
	assert.Contains(t, out.String(), "No active sessions found.")
}

func TestPlay_NeedsManagerForSessions(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, testConfig(writeGraph(t, "talk.yaml", talkYAML)), EngineOptions{Logger: logging.NewNop()})
	require.NoError(t, err)

	err = Play(ctx, engine, PlayOptions{DialogID: 1, SessionID: "x", Input: strings.NewReader(""), Output: &bytes.Buffer{}})
	assert.Error(t, err)
}

type fakeReloader struct {
	changes chan string
	reloads int
	fail    bool
}

func (f *fakeReloader) Watch(ctx context.Context) (<-chan string, error) {
	if f.changes == nil {
		return nil, errors.New("not watchable")
	}
	return f.changes, nil
}

func (f *fakeReloader) Reload(ctx context.Context) error {
	f.reloads++
	if f.fail {
		return errors.New("broken graph")
	}
	return nil
}

func TestWatchAndReload(t *testing.T) {
	ctx := context.Background()

	t.Run("Reloads on each change", func(t *testing.T) {
		f := &fakeReloader{changes: make(chan string, 2)}
		f.changes <- "a"
		f.changes <- "b"
		close(f.changes)

		var seen []string
		err := WatchAndReload(ctx, f, logging.NewNop(), func(changed string) { seen = append(seen, changed) })
		require.NoError(t, err)
		assert.Equal(t, 2, f.reloads)
		assert.Equal(t, []string{"a", "b"}, seen)
	})

	t.Run("Failed reload keeps watching", func(t *testing.T) {
		f := &fakeReloader{changes: make(chan string, 1), fail: true}
		f.changes <- "a"
		close(f.changes)

		called := false
		require.NoError(t, WatchAndReload(ctx, f, logging.NewNop(), func(string) { called = true }))
		assert.Equal(t, 1, f.reloads)
		assert.False(t, called)
	})

	t.Run("Not watchable", func(t *testing.T) {
		assert.Error(t, WatchAndReload(ctx, &fakeReloader{}, logging.NewNop(), nil))
	})
}
