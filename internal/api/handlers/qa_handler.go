package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/qaforge/backend/internal/metrics"
	"github.com/qaforge/backend/internal/storage"
	"github.com/qaforge/backend/internal/storage/models"
	"github.com/qaforge/backend/pkg/logger"
)

const (
	defaultBatchSize = 10
	maxBatchSize     = 100
	defaultListLimit = 100
	maxListLimit     = 200
)

// BatchProcessor is the drain operation exposed over HTTP.
type BatchProcessor interface {
	Process(ctx context.Context, batchSize int) (int, error)
}

type QAHandler struct {
	store     storage.ObjectStore
	processor BatchProcessor
}

func NewQAHandler(store storage.ObjectStore, processor BatchProcessor) *QAHandler {
	return &QAHandler{
		store:     store,
		processor: processor,
	}
}

type pairInput struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type submitRequest struct {
	WalletAddress string      `json:"walletAddress"`
	Pairs         []pairInput `json:"pairs"`
}

// Submit validates every pair up front and only then writes; a single bad
// pair rejects the whole submission with nothing persisted.
func (h *QAHandler) Submit(c *fiber.Ctx) error {
	var req submitRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse submit request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.WalletAddress == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "walletAddress is required",
		})
	}
	if len(req.Pairs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "at least one pair is required",
		})
	}
	for i, pair := range req.Pairs {
		if len(pair.Question) < models.QuestionMinLen || len(pair.Question) > models.QuestionMaxLen {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "question length must be between 10 and 500 characters",
				"pair":  i,
			})
		}
		if len(pair.Answer) < models.AnswerMinLen || len(pair.Answer) > models.AnswerMaxLen {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "answer length must be between 10 and 5000 characters",
				"pair":  i,
			})
		}
	}

	now := time.Now().UTC()
	baseMillis := now.UnixMilli()
	keys := make([]string, 0, len(req.Pairs))

	for i, pair := range req.Pairs {
		key := storage.SubmissionKey(baseMillis, req.WalletAddress, i)
		record := models.Record{
			WalletAddress: req.WalletAddress,
			Question:      pair.Question,
			Answer:        pair.Answer,
			Processed:     false,
			CreatedAt:     now,
		}

		if err := h.store.Put(c.Context(), key, record); err != nil {
			logger.Error("Failed to store submission", zap.String("key", key), zap.Error(err))
			metrics.SubmissionsTotal.WithLabelValues("error").Inc()
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Submission failed",
			})
		}
		keys = append(keys, key)
	}

	metrics.SubmissionsTotal.WithLabelValues("ok").Inc()
	logger.Info("Submission stored",
		zap.String("wallet", req.WalletAddress),
		zap.Int("pairs", len(keys)),
	)

	return c.JSON(fiber.Map{
		"success": true,
		"keys":    keys,
	})
}

type processRequest struct {
	BatchSize *int `json:"batchSize"`
}

func (h *QAHandler) Process(c *fiber.Ctx) error {
	var req processRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
	}

	batchSize := defaultBatchSize
	if req.BatchSize != nil {
		batchSize = *req.BatchSize
	}
	if batchSize < 1 || batchSize > maxBatchSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "batchSize must be between 1 and 100",
		})
	}

	processed, err := h.processor.Process(c.Context(), batchSize)
	if err != nil {
		logger.Error("Batch processing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Processing failed",
		})
	}

	return c.JSON(fiber.Map{
		"processed": processed,
	})
}

type listedPair struct {
	WalletAddress  string    `json:"walletAddress"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer"`
	Classification string    `json:"classification,omitempty"`
	Category       string    `json:"category,omitempty"`
	Tokens         int       `json:"tokens"`
	CreatedAt      time.Time `json:"createdAt"`
}

// List reads one page of the underlying listing, drops records that fail
// schema validation, then filters and truncates. nextCursor pages the raw
// listing, so short pages are normal when filters are active.
func (h *QAHandler) List(c *fiber.Ctx) error {
	walletFilter := c.Query("walletAddress")
	classificationFilter := c.Query("classification")
	processedFilter := c.Query("processed")
	cursor := c.Query("cursor")

	if classificationFilter != "" &&
		classificationFilter != models.DecisionApproved &&
		classificationFilter != models.DecisionRejected {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "classification must be approved or rejected",
		})
	}

	var processedWant *bool
	if processedFilter != "" {
		parsed, err := strconv.ParseBool(processedFilter)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "processed must be a boolean",
			})
		}
		processedWant = &parsed
	}

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxListLimit {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "limit must be between 1 and 200",
			})
		}
		limit = parsed
	}

	keys, nextToken, err := h.store.ListPage(c.Context(), storage.RecordPrefix, cursor)
	if err != nil {
		logger.Error("Failed to list records", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Fetch failed",
		})
	}

	pairs := make([]listedPair, 0, limit)
	for _, key := range keys {
		if len(pairs) >= limit {
			break
		}

		var record models.Record
		if err := h.store.Get(c.Context(), key, &record); err != nil {
			continue
		}
		if err := record.Validate(); err != nil {
			continue
		}

		if walletFilter != "" && !strings.EqualFold(record.WalletAddress, walletFilter) {
			continue
		}
		if classificationFilter != "" && record.Classification != classificationFilter {
			continue
		}
		if processedWant != nil && record.Processed != *processedWant {
			continue
		}

		pairs = append(pairs, listedPair{
			WalletAddress:  record.WalletAddress,
			Question:       record.Question,
			Answer:         record.Answer,
			Classification: record.Classification,
			Category:       record.Category,
			Tokens:         record.Tokens,
			CreatedAt:      record.CreatedAt,
		})
	}

	resp := fiber.Map{"pairs": pairs}
	if nextToken != "" {
		resp["nextCursor"] = nextToken
	}

	return c.JSON(resp)
}
