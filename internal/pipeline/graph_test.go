package pipeline

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder tracks stage completion order across concurrent rounds.
type recorder struct {
	mu    sync.Mutex
	order []string
}

func (r *recorder) done(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, name)
}

func (r *recorder) indexOf(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.order {
		if n == name {
			return i
		}
	}
	return -1
}

func noopStage(rec *recorder, name string) func(context.Context, *State) Update {
	return func(context.Context, *State) Update {
		rec.done(name)
		return Update{}
	}
}

func TestNewGraphRejectsCycle(t *testing.T) {
	run := func(context.Context, *State) Update { return Update{} }
	_, err := NewGraph([]Stage{
		{Name: "a", Deps: []string{"b"}, Run: run},
		{Name: "b", Deps: []string{"a"}, Run: run},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestNewGraphRejectsUnknownDependency(t *testing.T) {
	run := func(context.Context, *State) Update { return Update{} }
	_, err := NewGraph([]Stage{
		{Name: "a", Deps: []string{"ghost"}, Run: run},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown stage")
}

func TestNewGraphRejectsDuplicateNames(t *testing.T) {
	run := func(context.Context, *State) Update { return Update{} }
	_, err := NewGraph([]Stage{
		{Name: "a", Run: run},
		{Name: "a", Run: run},
	})
	require.Error(t, err)
}

func TestExecuteRespectsDependencyOrder(t *testing.T) {
	rec := &recorder{}
	g, err := NewGraph([]Stage{
		{Name: "left", Run: noopStage(rec, "left")},
		{Name: "right", Run: noopStage(rec, "right")},
		{Name: "join", Deps: []string{"left", "right"}, Run: noopStage(rec, "join")},
		{Name: "tail", Deps: []string{"join"}, Run: noopStage(rec, "tail")},
	})
	require.NoError(t, err)

	s := g.Execute(context.Background(), &State{Status: StatusInitialized})
	require.NotEqual(t, StatusFailed, s.Status)

	assert.Greater(t, rec.indexOf("join"), rec.indexOf("left"))
	assert.Greater(t, rec.indexOf("join"), rec.indexOf("right"))
	assert.Greater(t, rec.indexOf("tail"), rec.indexOf("join"))
}

func TestExecuteRunsIndependentStagesConcurrently(t *testing.T) {
	// Both stages block until the other has started; the run only
	// finishes if they share a round.
	gate := make(chan struct{}, 2)
	both := make(chan struct{})
	var once sync.Once

	waitForSibling := func(context.Context, *State) Update {
		gate <- struct{}{}
		if len(gate) == 2 {
			once.Do(func() { close(both) })
		}
		select {
		case <-both:
			return Update{}
		case <-time.After(2 * time.Second):
			return failedUpdate(errors.New("sibling never started"))
		}
	}

	g, err := NewGraph([]Stage{
		{Name: "a", Run: waitForSibling},
		{Name: "b", Run: waitForSibling},
	})
	require.NoError(t, err)

	s := g.Execute(context.Background(), &State{Status: StatusInitialized})
	assert.NotEqual(t, StatusFailed, s.Status)
}

func TestBarrierNeverSeesHalfSetBranches(t *testing.T) {
	// Two parallel branches finish with randomized timing across many
	// runs; the join stage must always observe both fields set or
	// neither, never one without the other.
	for i := 0; i < 50; i++ {
		branch := func(assign func(*Update)) func(context.Context, *State) Update {
			return func(context.Context, *State) Update {
				time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)
				var u Update
				assign(&u)
				return u
			}
		}

		g, err := NewGraph([]Stage{
			{Name: "resume", Run: branch(func(u *Update) {
				u.ResumeSkillsClassified = []Skill{}
			})},
			{Name: "jd", Run: branch(func(u *Update) {
				u.JDSkillsClassified = []Skill{}
			})},
			{Name: "join", Deps: []string{"resume", "jd"}, Run: func(_ context.Context, s *State) Update {
				if s.ResumeSkillsClassified == nil || s.JDSkillsClassified == nil {
					return failedUpdate(errors.New("barrier released with a branch unset"))
				}
				return Update{}
			}},
		})
		require.NoError(t, err)

		s := g.Execute(context.Background(), &State{Status: StatusInitialized})
		require.NotEqual(t, StatusFailed, s.Status, "run %d: %s", i, s.ErrorMessage)
	}
}

func TestExecuteStopsDispatchAfterFailure(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("boom")

	g, err := NewGraph([]Stage{
		{Name: "first", Run: func(context.Context, *State) Update {
			rec.done("first")
			return failedUpdate(boom)
		}},
		{Name: "second", Deps: []string{"first"}, Run: noopStage(rec, "second")},
	})
	require.NoError(t, err)

	s := g.Execute(context.Background(), &State{Status: StatusInitialized})

	assert.Equal(t, StatusFailed, s.Status)
	assert.ErrorIs(t, s.Err, boom)
	assert.Equal(t, boom.Error(), s.ErrorMessage)
	assert.Equal(t, -1, rec.indexOf("second"))
}

func TestExecuteGuardSkipsStage(t *testing.T) {
	rec := &recorder{}
	g, err := NewGraph([]Stage{
		{Name: "always", Run: noopStage(rec, "always")},
		{
			Name:  "guarded",
			Deps:  []string{"always"},
			Guard: func(*State) bool { return false },
			Run:   noopStage(rec, "guarded"),
		},
		{Name: "after", Deps: []string{"guarded"}, Run: noopStage(rec, "after")},
	})
	require.NoError(t, err)

	s := g.Execute(context.Background(), &State{Status: StatusInitialized})

	require.NotEqual(t, StatusFailed, s.Status)
	assert.Equal(t, -1, rec.indexOf("guarded"))
	// A skipped stage still satisfies its dependents.
	assert.NotEqual(t, -1, rec.indexOf("after"))
}

func TestExecuteCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g, err := NewGraph([]Stage{
		{Name: "a", Run: func(context.Context, *State) Update { return Update{} }},
	})
	require.NoError(t, err)

	s := g.Execute(ctx, &State{Status: StatusInitialized})
	assert.Equal(t, StatusFailed, s.Status)
	assert.ErrorIs(t, s.Err, context.Canceled)
}

func TestApplyMergesInDeclarationOrder(t *testing.T) {
	// Two concurrent stages both set Degraded and one fails; the
	// failure must win regardless of merge position.
	g, err := NewGraph([]Stage{
		{Name: "a", Run: func(context.Context, *State) Update {
			return Update{Degraded: true}
		}},
		{Name: "b", Run: func(context.Context, *State) Update {
			return failedUpdate(errors.New("late failure"))
		}},
		{Name: "c", Deps: []string{"a", "b"}, Run: func(context.Context, *State) Update {
			return Update{Status: StatusCompleted}
		}},
	})
	require.NoError(t, err)

	s := g.Execute(context.Background(), &State{Status: StatusInitialized})

	assert.Equal(t, StatusFailed, s.Status)
	assert.True(t, s.Degraded)
}

func TestApplyEmptyNonNilSliceIsAnAssignment(t *testing.T) {
	s := &State{Status: StatusInitialized}
	s.apply(Update{ResumeSkillsClassified: []Skill{}})
	assert.NotNil(t, s.ResumeSkillsClassified)
	assert.Empty(t, s.ResumeSkillsClassified)

	s.apply(Update{})
	assert.NotNil(t, s.ResumeSkillsClassified)
}

func TestApplyFirstErrorWins(t *testing.T) {
	first := errors.New("first")
	second := errors.New("second")

	s := &State{Status: StatusInitialized}
	s.apply(failedUpdate(first))
	s.apply(failedUpdate(second))

	assert.ErrorIs(t, s.Err, first)
	assert.Equal(t, first.Error(), s.ErrorMessage)
	assert.Equal(t, StatusFailed, s.Status)
}
