// Package classifier runs submitted Q&A pairs through an ensemble of
// independent model backends and aggregates their votes by majority.
package classifier

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/qaforge/backend/internal/cache"
	"github.com/qaforge/backend/internal/metrics"
	"github.com/qaforge/backend/internal/storage/models"
	"github.com/qaforge/backend/pkg/logger"
	"github.com/qaforge/backend/pkg/utils"
)

// Vote is one backend's opinion on a pair. RawResponse keeps the verbatim
// model output (or an error marker) for diagnostics; it is never persisted.
type Vote struct {
	Backend       string
	Decision      string
	QualityRating float64
	HasRating     bool
	Category      string
	RawResponse   string
}

// Result is the aggregate outcome of one classification call. Votes is empty
// when the result came from the cache.
type Result struct {
	Decision string
	Category string
	Votes    []Vote
}

type Ensemble struct {
	backends []Backend
	cache    cache.Cache
}

func NewEnsemble(backends []Backend, c cache.Cache) (*Ensemble, error) {
	if len(backends) == 0 {
		return nil, fmt.Errorf("at least one backend is required")
	}
	if c == nil {
		c = cache.NewMemoryCache()
	}
	return &Ensemble{backends: backends, cache: c}, nil
}

// Classify fans the pair out to every backend concurrently, waits for all of
// them, and majority-votes the decisions. A backend that fails or returns
// garbage casts a rejected vote; the call as a whole only errors before any
// network work is attempted.
func (e *Ensemble) Classify(ctx context.Context, question, answer string) (Result, error) {
	contentKey := utils.HashString(question + ":" + answer)

	if entry, ok, err := e.cache.Get(ctx, contentKey); err != nil {
		logger.Warn("Classification cache lookup failed", zap.Error(err))
	} else if ok {
		metrics.CacheHits.WithLabelValues("classification").Inc()
		return Result{Decision: entry.Decision, Category: entry.Category, Votes: []Vote{}}, nil
	}
	metrics.CacheMisses.WithLabelValues("classification").Inc()

	cleanQuestion := sanitizeField(question)
	cleanAnswer := sanitizeField(answer)
	userPrompt := buildPrompt(cleanQuestion, cleanAnswer)

	votes := make([]Vote, len(e.backends))
	var wg sync.WaitGroup
	for i, backend := range e.backends {
		wg.Add(1)
		go func(i int, backend Backend) {
			defer wg.Done()
			votes[i] = e.collectVote(ctx, backend, userPrompt)
		}(i, backend)
	}
	wg.Wait()

	result := aggregate(votes)
	metrics.ClassificationsTotal.WithLabelValues(result.Decision).Inc()

	logger.Info("Pair classified",
		zap.String("decision", result.Decision),
		zap.String("category", result.Category),
		zap.Int("approving_votes", countApproved(votes)),
		zap.Int("backends", len(votes)),
	)

	if err := e.cache.Set(ctx, contentKey, cache.Entry{
		Decision: result.Decision,
		Category: result.Category,
	}); err != nil {
		logger.Warn("Classification cache store failed", zap.Error(err))
	}

	return result, nil
}

func (e *Ensemble) collectVote(ctx context.Context, backend Backend, userPrompt string) Vote {
	raw, err := backend.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		metrics.BackendErrors.WithLabelValues(backend.Name()).Inc()
		metrics.BackendVotes.WithLabelValues(backend.Name(), models.DecisionRejected).Inc()
		logger.Warn("Backend vote failed",
			zap.String("backend", backend.Name()),
			zap.Error(err),
		)
		return Vote{
			Backend:     backend.Name(),
			Decision:    models.DecisionRejected,
			Category:    models.DefaultCategory,
			RawResponse: fmt.Sprintf("ERROR: %v", err),
		}
	}

	parsed := ParseModelResponse(raw)
	metrics.BackendVotes.WithLabelValues(backend.Name(), parsed.Decision).Inc()

	return Vote{
		Backend:       backend.Name(),
		Decision:      parsed.Decision,
		QualityRating: parsed.QualityRating,
		HasRating:     parsed.HasRating,
		Category:      parsed.Category,
		RawResponse:   raw,
	}
}

// aggregate majority-votes the decision (approved needs strictly more than
// half) and plurality-votes the category, ties broken by the earliest vote.
// Rejected pairs still get a best-effort category.
func aggregate(votes []Vote) Result {
	decision := models.DecisionRejected
	if countApproved(votes) > len(votes)/2 {
		decision = models.DecisionApproved
	}

	counts := make(map[string]int, len(votes))
	for _, v := range votes {
		counts[v.Category]++
	}

	category := models.DefaultCategory
	best := 0
	for _, v := range votes {
		if counts[v.Category] > best {
			best = counts[v.Category]
			category = v.Category
		}
	}

	return Result{Decision: decision, Category: category, Votes: votes}
}

func countApproved(votes []Vote) int {
	n := 0
	for _, v := range votes {
		if v.Decision == models.DecisionApproved {
			n++
		}
	}
	return n
}
