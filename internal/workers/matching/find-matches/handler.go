// internal/workers/matching/find-matches/handler.go
package findmatches

import (
	"context"
	"encoding/json"
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
	TaskType = "find-matches"
)

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["listingId"],
	"properties": {
		"listingId": {"type": "string", "minLength": 1},
		"limit": {"type": "integer", "minimum": 1, "maximum": 100},
		"persist": {"type": "boolean"},
		"filters": {
			"type": "object",
			"properties": {
				"maxDistanceKm": {"type": "number", "minimum": 0},
				"minScore": {"type": "number", "minimum": 0, "maximum": 1},
				"categories": {"type": "array", "items": {"type": "string"}},
				"minOwnerRating": {"type": "number", "minimum": 0, "maximum": 5}
			}
		}
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

	input, err := parseInput(job.Variables)
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

func parseInput(variables string) (*Input, error) {
	if result := inputSchema.Validate(variables); !result.Valid {
		return nil, apperrors.NewInvalidInputError(result.Error())
	}
	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	out := &Output{ListingID: input.ListingID, Matches: []MatchResult{}}

	source, ok, err := h.engine.Listing(ctx, input.ListingID)
	if err != nil {
		return nil, err
	}
	if !ok {
		h.logger.Warn("listing not found, returning no matches", map[string]interface{}{
			"listingId": input.ListingID,
		})
		return out, nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = h.config.DefaultLimit
	}

	var results []matching.Result
	if input.Filters != nil {
		results, err = h.engine.Ranker().FindMatchesFiltered(ctx, source, limit, *input.Filters)
	} else {
		results, err = h.engine.Ranker().FindMatches(ctx, source, limit)
	}
	if err != nil {
		return nil, err
	}

	var ids []string
	if input.Persist {
		stored, err := h.engine.StoreResults(ctx, *source, results)
		if err != nil {
			return nil, apperrors.NewMatchStoreFailedError(err)
		}
		ids = make([]string, len(stored))
		for i, m := range stored {
			ids[i] = m.ID
		}
	}

	for i, r := range results {
		mr := MatchResult{
			ListingID: r.Listing.ID,
			OwnerID:   r.Listing.OwnerID,
			Title:     r.Listing.Title,
			Score:     r.Score,
			Reasons:   r.Reasons,
			Factors:   factorNames(r.Factors),
		}
		if i < len(ids) {
			mr.MatchID = ids[i]
		}
		out.Matches = append(out.Matches, mr)
	}
	out.Count = len(out.Matches)

	h.logger.Info("matches found", map[string]interface{}{
		"listingId": input.ListingID,
		"count":     out.Count,
		"persisted": input.Persist,
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
