// internal/workers/matching/rebuild-matches/handler.go
package rebuildmatches

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
	TaskType = "rebuild-matches"
)

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"properties": {
		"pageSize": {"type": "integer", "minimum": 1, "maximum": 1000}
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
	h.obs.RecordMatchesReturned(ctx, TaskType, output.MatchesStored)
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
	pageSize := input.PageSize
	if pageSize <= 0 {
		pageSize = h.config.DefaultPageSize
	}

	stats, err := h.engine.RebuildAll(ctx, pageSize, h.config.Limit)
	if err != nil {
		return nil, err
	}
	if stats.Failures > 0 {
		h.logger.Warn("rebuild finished with failures", map[string]interface{}{
			"failures":          stats.Failures,
			"listingsProcessed": stats.ListingsProcessed,
		})
	}
	return &Output{
		ListingsProcessed: stats.ListingsProcessed,
		MatchesStored:     stats.MatchesStored,
		Failures:          stats.Failures,
	}, nil
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
