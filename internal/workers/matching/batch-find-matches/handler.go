// internal/workers/matching/batch-find-matches/handler.go
package batchfindmatches

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"exchange-matcher/internal/common/camunda"
	apperrors "exchange-matcher/internal/common/errors"
	"exchange-matcher/internal/common/logger"
	"exchange-matcher/internal/common/observability"
	"exchange-matcher/internal/common/validation"
	"exchange-matcher/internal/matching"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "batch-find-matches"
)

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["listingIds"],
	"properties": {
		"listingIds": {
			"type": "array",
			"minItems": 1,
			"items": {"type": "string", "minLength": 1}
		},
		"limit": {"type": "integer", "minimum": 1, "maximum": 100}
	}
}`)

type Handler struct {
	config *Config
	engine *matching.Engine
	errors *apperrors.ErrorHandler
	obs    *observability.Observability
	logger logger.Logger
}

func NewHandler(config *Config, engine *matching.Engine, obs *observability.Observability, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		engine: engine,
		errors: apperrors.NewErrorHandler(log),
		obs:    obs,
		logger: log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	input, err := h.parseInput(job.Variables)
	if err != nil {
		h.failJob(client, job, err, start)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, input)
	if err != nil {
		h.failJob(client, job, apperrors.FromMatching(err, apperrors.NewCandidateQueryFailedError), start)
		return
	}

	if err := camunda.CompleteJob(context.Background(), client, job, output, h.logger); err != nil {
		h.obs.RecordJobProcessed(ctx, TaskType, "complete_failed")
		return
	}
	h.obs.RecordJobProcessed(ctx, TaskType, "success")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "success")
	h.obs.RecordMatchesReturned(ctx, TaskType, output.Count)
}

func (h *Handler) parseInput(variables string) (*Input, error) {
	if result := inputSchema.Validate(variables); !result.Valid {
		return nil, apperrors.NewInvalidInputError(result.Error())
	}
	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}
	if h.config.MaxListings > 0 && len(input.ListingIDs) > h.config.MaxListings {
		return nil, apperrors.NewInvalidInputError(
			fmt.Sprintf("listingIds: %d exceeds the maximum of %d", len(input.ListingIDs), h.config.MaxListings))
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = h.config.DefaultLimit
	}

	batch, err := h.engine.Ranker().BatchFindMatches(ctx, input.ListingIDs, limit)
	if err != nil {
		return nil, err
	}

	out := &Output{Results: make(map[string][]MatchResult, len(batch))}
	for id, results := range batch {
		rows := make([]MatchResult, len(results))
		for i, r := range results {
			rows[i] = MatchResult{
				ListingID: r.Listing.ID,
				OwnerID:   r.Listing.OwnerID,
				Score:     r.Score,
				Reasons:   r.Reasons,
			}
		}
		out.Results[id] = rows
		out.Count += len(rows)
	}

	h.logger.Info("batch matching completed", map[string]interface{}{
		"listings": len(input.ListingIDs),
		"matches":  out.Count,
	})
	return out, nil
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error, start time.Time) {
	ctx := context.Background()
	h.errors.HandleJobError(ctx, client, job, err)
	h.obs.RecordJobProcessed(ctx, TaskType, "failed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "failed")
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
