// Package processor drains pending submissions in bounded batches: classify,
// score, persist, one record at a time.
package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qaforge/backend/internal/classifier"
	"github.com/qaforge/backend/internal/metrics"
	"github.com/qaforge/backend/internal/reward"
	"github.com/qaforge/backend/internal/storage"
	"github.com/qaforge/backend/internal/storage/models"
	"github.com/qaforge/backend/pkg/logger"
)

// Classifier is the ensemble boundary the processor depends on.
type Classifier interface {
	Classify(ctx context.Context, question, answer string) (classifier.Result, error)
}

type Processor struct {
	store      storage.ObjectStore
	classifier Classifier
	stage      string
}

func NewProcessor(store storage.ObjectStore, c Classifier, stage string) *Processor {
	return &Processor{
		store:      store,
		classifier: c,
		stage:      stage,
	}
}

// Process drains up to batchSize pending records and returns how many it
// handled. Records are processed strictly sequentially, so external API
// concurrency never exceeds the ensemble size. There is no claim step on the
// store: two overlapping invocations can pick up the same pending record and
// the last write wins. Callers with a bigger backlog invoke repeatedly.
func (p *Processor) Process(ctx context.Context, batchSize int) (int, error) {
	runID := uuid.New().String()
	started := time.Now()

	logger.Info("Batch run started",
		zap.String("run_id", runID),
		zap.Int("batch_size", batchSize),
		zap.String("stage", p.stage),
	)

	processed := 0
	token := ""

	for processed < batchSize {
		keys, nextToken, err := p.store.ListPage(ctx, storage.RecordPrefix, token)
		if err != nil {
			return processed, fmt.Errorf("failed to list pending records: %w", err)
		}

		for _, key := range keys {
			if processed >= batchSize {
				break
			}

			var record models.Record
			if err := p.store.Get(ctx, key, &record); err != nil {
				return processed, fmt.Errorf("failed to read record %s: %w", key, err)
			}
			if record.Processed {
				continue
			}

			if err := p.processRecord(ctx, key, &record); err != nil {
				return processed, err
			}
			processed++
		}

		if nextToken == "" {
			break
		}
		token = nextToken
	}

	metrics.BatchDuration.Observe(time.Since(started).Seconds())
	logger.Info("Batch run finished",
		zap.String("run_id", runID),
		zap.Int("processed", processed),
		zap.Duration("elapsed", time.Since(started)),
	)

	return processed, nil
}

// processRecord classifies one record, computes its reward when approved,
// and persists the terminal state. This is the record's single mutation.
func (p *Processor) processRecord(ctx context.Context, key string, record *models.Record) error {
	result, err := p.classifier.Classify(ctx, record.Question, record.Answer)
	if err != nil {
		return fmt.Errorf("failed to classify record %s: %w", key, err)
	}

	tokens := 0
	if result.Decision == models.DecisionApproved {
		tokens, err = p.computeReward(ctx, record.WalletAddress, result)
		if err != nil {
			return fmt.Errorf("failed to compute reward for %s: %w", key, err)
		}
	}

	now := time.Now().UTC()
	record.Classification = result.Decision
	record.Category = result.Category
	record.Tokens = tokens
	record.Processed = true
	record.UpdatedAt = &now

	if err := p.store.Put(ctx, key, record); err != nil {
		return fmt.Errorf("failed to persist record %s: %w", key, err)
	}

	metrics.RecordsProcessed.WithLabelValues(result.Decision).Inc()
	if tokens > 0 {
		metrics.TokensAwarded.Add(float64(tokens))
	}

	logger.Info("Record processed",
		zap.String("key", key),
		zap.String("decision", result.Decision),
		zap.String("category", result.Category),
		zap.Int("tokens", tokens),
	)

	return nil
}

func (p *Processor) computeReward(ctx context.Context, walletAddress string, result classifier.Result) (int, error) {
	avgRating := averageApprovingRating(result.Votes)

	approvalRate, err := p.walletApprovalRate(ctx, walletAddress)
	if err != nil {
		return 0, err
	}

	return reward.Tokens(p.stage, avgRating, approvalRate, result.Category), nil
}

// averageApprovingRating means the ratings supplied by approving backends;
// cache hits carry no votes and fall back to the default rating.
func averageApprovingRating(votes []classifier.Vote) float64 {
	sum, n := 0.0, 0
	for _, v := range votes {
		if v.Decision == models.DecisionApproved && v.HasRating {
			sum += v.QualityRating
			n++
		}
	}
	if n == 0 {
		return reward.DefaultQualityRating
	}
	return sum / float64(n)
}

// walletApprovalRate scans the wallet's previously processed records. The
// full-prefix scan is the known cost driver here; it stays a plain read so
// the rate always reflects what the store actually holds.
func (p *Processor) walletApprovalRate(ctx context.Context, walletAddress string) (float64, error) {
	records, err := storage.ListWalletRecords(ctx, p.store, walletAddress)
	if err != nil {
		return 0, err
	}

	processedCount, approvedCount := 0, 0
	for _, kr := range records {
		if !kr.Record.Processed {
			continue
		}
		processedCount++
		if kr.Record.Classification == models.DecisionApproved {
			approvedCount++
		}
	}

	if processedCount == 0 {
		return reward.NeutralApprovalRate, nil
	}
	return float64(approvedCount) / float64(processedCount) * 100, nil
}
