// internal/workers/matching/optimize-weights/handler.go
package optimizeweights

import (
	"context"
	"time"

	"exchange-matcher/internal/common/camunda"
	apperrors "exchange-matcher/internal/common/errors"
	"exchange-matcher/internal/common/logger"
	"exchange-matcher/internal/common/observability"
	"exchange-matcher/internal/matching"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "optimize-weights"
)

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

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &Input{})
	if err != nil {
		h.errors.HandleJobError(context.Background(), client, job, apperrors.FromMatching(err, apperrors.NewOptimizationFailedError))
		h.obs.RecordJobProcessed(ctx, TaskType, "failed")
		h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "failed")
		return
	}

	if err := camunda.CompleteJob(context.Background(), client, job, output, h.logger); err != nil {
		h.obs.RecordJobProcessed(ctx, TaskType, "complete_failed")
		return
	}
	h.obs.RecordJobProcessed(ctx, TaskType, "success")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "success")
}

func (h *Handler) execute(ctx context.Context, _ *Input) (*Output, error) {
	res, err := h.engine.Optimize(ctx)
	if err != nil {
		return nil, err
	}
	return &Output{
		Skipped:         res.Skipped,
		SampleSize:      res.SampleSize,
		Weights:         res.After,
		PreviousWeights: res.Before,
		Rates:           res.Rates,
		RanAt:           res.RanAt,
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
