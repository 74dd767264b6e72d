package pipeline

import (
	"context"
	"log"
	"sync"
	"time"
)

// Batch category thresholds.
const (
	HighMatchThreshold  = 80.0
	CloseMatchThreshold = 65.0
)

// DefaultBatchConcurrency bounds how many pipelines a batch runs at
// once.
const DefaultBatchConcurrency = 5

// MatchInput is one resume/JD pair to evaluate.
type MatchInput struct {
	ResumeID   string
	JDID       string
	ResumeText string
	JDText     string
}

// BatchItem is the per-pair outcome of a batch run. Exactly one of
// Result and Err is set.
type BatchItem struct {
	Input  MatchInput
	Result *MatchResult
	Err    error
}

// BatchSummary aggregates a whole batch. Items preserve input order
// regardless of completion order.
type BatchSummary struct {
	Items          []BatchItem
	HighMatches    []*MatchResult
	CloseMatches   []*MatchResult
	LowMatches     []*MatchResult
	Failed         int
	AverageMatch   float64
	ProcessingTime time.Duration
}

// Runner drives the matching pipeline for single pairs and batches.
type Runner struct {
	stages      *Stages
	concurrency int
}

func NewRunner(stages *Stages, batchConcurrency int) *Runner {
	if batchConcurrency <= 0 {
		batchConcurrency = DefaultBatchConcurrency
	}
	return &Runner{stages: stages, concurrency: batchConcurrency}
}

// RunSingle evaluates one resume against one job description. Input
// validation fails fast before any model call; pipeline failures come
// back as the state's recorded error.
func (r *Runner) RunSingle(ctx context.Context, in MatchInput) (*MatchResult, error) {
	if in.ResumeText == "" {
		return nil, &ValidationError{Field: "resume_text", Reason: "must not be empty"}
	}
	if in.JDText == "" {
		return nil, &ValidationError{Field: "jd_text", Reason: "must not be empty"}
	}

	graph, err := r.stages.BuildGraph()
	if err != nil {
		return nil, err
	}

	state := &State{
		ResumeID:   in.ResumeID,
		JDID:       in.JDID,
		ResumeText: in.ResumeText,
		JDText:     in.JDText,
		Status:     StatusInitialized,
	}

	log.Printf("🚀 Starting match pipeline for resume %s vs JD %s\n", in.ResumeID, in.JDID)
	graph.Execute(ctx, state)

	if state.Status == StatusFailed {
		return nil, state.Err
	}
	state.Status = StatusCompleted

	return &MatchResult{
		ResumeID:          state.ResumeID,
		JDID:              state.JDID,
		MatchPercentage:   state.MatchPercentage,
		TechnicalScore:    state.TechnicalScore,
		NonTechnicalScore: state.NonTechnicalScore,
		ExperienceScore:   state.ExperienceScore,
		MatchedSkills:     orEmpty(state.MatchedSkills),
		MissingSkills:     orEmpty(state.MissingSkills),
		AdditionalSkills:  orEmpty(state.AdditionalSkills),
		Recommendation:    state.Recommendation,
		Suggestions:       state.Suggestions,
		Degraded:          state.Degraded,
		ProcessedAt:       time.Now().UTC(),
	}, nil
}

// RunBatch evaluates many pairs with bounded concurrency. One pair's
// failure never affects its siblings; the summary reports results in
// input order and buckets them by match strength.
func (r *Runner) RunBatch(ctx context.Context, inputs []MatchInput) *BatchSummary {
	started := time.Now()
	items := make([]BatchItem, len(inputs))

	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup
	for i, in := range inputs {
		wg.Add(1)
		go func(slot int, in MatchInput) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result, err := r.RunSingle(ctx, in)
			items[slot] = BatchItem{Input: in, Result: result, Err: err}
		}(i, in)
	}
	wg.Wait()

	summary := &BatchSummary{
		Items:          items,
		HighMatches:    []*MatchResult{},
		CloseMatches:   []*MatchResult{},
		LowMatches:     []*MatchResult{},
		ProcessingTime: time.Since(started),
	}

	total := 0.0
	succeeded := 0
	for _, item := range items {
		if item.Err != nil {
			summary.Failed++
			log.Printf("❌ Batch pair %s/%s failed: %v\n", item.Input.ResumeID, item.Input.JDID, item.Err)
			continue
		}
		succeeded++
		total += item.Result.MatchPercentage
		switch {
		case item.Result.MatchPercentage >= HighMatchThreshold:
			summary.HighMatches = append(summary.HighMatches, item.Result)
		case item.Result.MatchPercentage >= CloseMatchThreshold:
			summary.CloseMatches = append(summary.CloseMatches, item.Result)
		default:
			summary.LowMatches = append(summary.LowMatches, item.Result)
		}
	}
	if succeeded > 0 {
		summary.AverageMatch = Round2(total / float64(succeeded))
	}

	log.Printf("✅ Batch finished: %d high, %d close, %d low, %d failed in %s\n",
		len(summary.HighMatches), len(summary.CloseMatches), len(summary.LowMatches),
		summary.Failed, summary.ProcessingTime.Round(time.Millisecond))
	return summary
}
