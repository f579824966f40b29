// internal/workers/matching/record-match-feedback/handler.go
package recordmatchfeedback

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
	TaskType = "record-match-feedback"
)

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["matchId", "status"],
	"properties": {
		"matchId": {"type": "string", "minLength": 1},
		"status": {
			"type": "string",
			"enum": ["suggested", "interested", "contacted", "completed", "not_interested"]
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
		h.failJob(client, job, apperrors.FromMatching(err, apperrors.NewMatchStoreFailedError), start)
		return
	}

	if err := camunda.CompleteJob(context.Background(), client, job, output, h.logger); err != nil {
		h.obs.RecordJobProcessed(ctx, TaskType, "complete_failed")
		return
	}
	h.obs.RecordJobProcessed(ctx, TaskType, "success")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "success")
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
	status, err := matching.ParseMatchStatus(input.Status)
	if err != nil {
		return nil, err
	}

	m, err := h.engine.RecordFeedback(ctx, input.MatchID, status)
	if err != nil {
		return nil, err
	}

	out := &Output{
		MatchID:          m.ID,
		ListingID:        m.ListingID,
		MatchedListingID: m.MatchedListingID,
		Status:           string(m.Status),
	}
	if m.FeedbackAt != nil {
		out.FeedbackAt = *m.FeedbackAt
	}
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
