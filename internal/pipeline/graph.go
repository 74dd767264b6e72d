package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// Stage is one node of the DAG: a name, the stages it waits for, an
// optional guard, and the transformation itself. Run receives the
// current state read-only and returns a sparse update.
type Stage struct {
	Name  string
	Deps  []string
	Guard func(s *State) bool
	Run   func(ctx context.Context, s *State) Update
}

// Graph executes a fixed set of stages in dependency order. Stages
// whose dependencies are all satisfied run concurrently; their updates
// are merged into the state between rounds, so a running stage never
// observes a half-applied sibling update.
type Graph struct {
	stages []Stage
	index  map[string]int
}

func NewGraph(stages []Stage) (*Graph, error) {
	index := make(map[string]int, len(stages))
	for i, st := range stages {
		if st.Name == "" {
			return nil, fmt.Errorf("stage %d has no name", i)
		}
		if st.Run == nil {
			return nil, fmt.Errorf("stage %q has no run function", st.Name)
		}
		if _, dup := index[st.Name]; dup {
			return nil, fmt.Errorf("duplicate stage %q", st.Name)
		}
		index[st.Name] = i
	}
	for _, st := range stages {
		for _, dep := range st.Deps {
			if _, ok := index[dep]; !ok {
				return nil, fmt.Errorf("stage %q depends on unknown stage %q", st.Name, dep)
			}
		}
	}

	g := &Graph{stages: stages, index: index}
	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}
	return g, nil
}

// checkAcyclic runs Kahn's algorithm over the declared dependencies.
func (g *Graph) checkAcyclic() error {
	indegree := make(map[string]int, len(g.stages))
	dependents := make(map[string][]string, len(g.stages))
	for _, st := range g.stages {
		indegree[st.Name] += 0
		for _, dep := range st.Deps {
			indegree[st.Name]++
			dependents[dep] = append(dependents[dep], st.Name)
		}
	}

	var queue []string
	for _, st := range g.stages {
		if indegree[st.Name] == 0 {
			queue = append(queue, st.Name)
		}
	}

	visited := 0
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		visited++
		for _, next := range dependents[name] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if visited != len(g.stages) {
		return fmt.Errorf("stage graph contains a cycle")
	}
	return nil
}

// Execute drives the state through the DAG until every stage has run,
// a stage reports a terminal failure, or the context is cancelled.
// The returned state is the same record that was passed in.
func (g *Graph) Execute(ctx context.Context, s *State) *State {
	done := make(map[string]bool, len(g.stages))

	for len(done) < len(g.stages) {
		if s.Status == StatusFailed {
			return s
		}
		if err := ctx.Err(); err != nil {
			s.apply(failedUpdate(err))
			return s
		}

		ready := g.readyStages(done)
		if len(ready) == 0 {
			// Every remaining stage is blocked; NewGraph rules out
			// cycles, so this cannot happen.
			s.apply(failedUpdate(fmt.Errorf("no runnable stage among %d remaining", len(g.stages)-len(done))))
			return s
		}

		updates := make([]Update, len(ready))
		var wg sync.WaitGroup
		for i, idx := range ready {
			st := g.stages[idx]
			done[st.Name] = true

			if st.Guard != nil && !st.Guard(s) {
				log.Printf("⏭️  Stage %s skipped by guard\n", st.Name)
				continue
			}

			wg.Add(1)
			go func(slot int, st Stage) {
				defer wg.Done()
				updates[slot] = st.Run(ctx, s)
			}(i, st)
		}
		wg.Wait()

		// Merge in declaration order so concurrent rounds stay
		// deterministic.
		for _, u := range updates {
			s.apply(u)
		}
	}

	return s
}

func (g *Graph) readyStages(done map[string]bool) []int {
	var ready []int
	for i, st := range g.stages {
		if done[st.Name] {
			continue
		}
		ok := true
		for _, dep := range st.Deps {
			if !done[dep] {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, i)
		}
	}
	return ready
}
