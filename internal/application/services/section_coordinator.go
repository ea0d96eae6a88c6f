package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/caldermed/chartsync/internal/domain/entities"
	"github.com/caldermed/chartsync/internal/infrastructure/observability"
	apperrors "github.com/caldermed/chartsync/pkg/errors"
)

// SectionCoordinator fans one content submission out to the registered
// section processors and aggregates their outcomes. Tasks run concurrently
// with per-task failure isolation: a panic or timeout in one category never
// aborts its siblings, and the caller always receives a report.
type SectionCoordinator struct {
	registry      *ProcessorRegistry
	taskTimeout   time.Duration
	maxConcurrent int
	metrics       *observability.Metrics
}

// NewSectionCoordinator creates a new section coordinator.
// maxConcurrent bounds simultaneously running tasks; zero or negative means
// one goroutine per task.
func NewSectionCoordinator(registry *ProcessorRegistry, taskTimeout time.Duration, maxConcurrent int, metrics *observability.Metrics) *SectionCoordinator {
	return &SectionCoordinator{
		registry:      registry,
		taskTimeout:   taskTimeout,
		maxConcurrent: maxConcurrent,
		metrics:       metrics,
	}
}

// ProcessAll runs every enabled registered category against the submission
// and returns the aggregate report. A nil enabledCategories means all
// registered categories; unknown names are ignored. The only hard failure
// is a precondition violation in the inputs.
func (c *SectionCoordinator) ProcessAll(ctx context.Context, content entities.SubmissionContent, pctx entities.ProcessingContext, enabledCategories []entities.Category) (*entities.AggregateReport, error) {
	if pctx.PatientID == "" {
		return nil, apperrors.NewValidationError("patient id is required")
	}
	if content.SourceType == "" {
		return nil, apperrors.NewValidationError("content source type is required")
	}

	ctx, span := observability.StartSpan(ctx, "coordinator.ProcessAll")
	defer span.End()

	start := time.Now()
	plans := c.registry.resolve(enabledCategories)
	tasks := make([]entities.ProcessingTask, len(plans))

	var sem chan struct{}
	if c.maxConcurrent > 0 {
		sem = make(chan struct{}, c.maxConcurrent)
	}

	var wg sync.WaitGroup
	for i, plan := range plans {
		tasks[i] = entities.ProcessingTask{
			Category: plan.category,
			Priority: plan.priority,
			Status:   entities.TaskStatusPending,
		}

		if plan.processor == nil {
			tasks[i].Status = entities.TaskStatusSkipped
			tasks[i].Error = apperrors.NewNotImplementedError(fmt.Sprintf("category %s is not implemented", plan.category)).Error()
			continue
		}

		// Admission happens in priority order; execution is concurrent.
		if sem != nil {
			sem <- struct{}{}
		}

		wg.Add(1)
		go func(task *entities.ProcessingTask, processor SectionProcessor) {
			defer wg.Done()
			if sem != nil {
				defer func() { <-sem }()
			}
			c.runTask(ctx, task, processor, content, pctx)
		}(&tasks[i], plan.processor)
	}
	wg.Wait()

	report := &entities.AggregateReport{
		TotalTasks: len(tasks),
		ElapsedMs:  time.Since(start).Milliseconds(),
		Tasks:      tasks,
	}
	for _, task := range tasks {
		switch task.Status {
		case entities.TaskStatusSucceeded:
			report.Succeeded++
		case entities.TaskStatusFailed:
			report.Failed++
		case entities.TaskStatusSkipped:
			report.Skipped++
		}
	}

	span.SetAttributes(
		attribute.Int("processing.tasks", report.TotalTasks),
		attribute.Int("processing.succeeded", report.Succeeded),
		attribute.Int("processing.failed", report.Failed),
	)

	observability.LoggerFromContext(ctx).Info().
		Str("patient_id", pctx.PatientID).
		Int("tasks", report.TotalTasks).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Int64("elapsed_ms", report.ElapsedMs).
		Msg("processing run completed")

	return report, nil
}

type taskOutcome struct {
	result *entities.SectionResult
	err    error
}

// runTask executes one processor inside its execution boundary: panics are
// absorbed into a failed status, and a processor that never returns is
// forced to failed once the task timeout elapses.
func (c *SectionCoordinator) runTask(ctx context.Context, task *entities.ProcessingTask, processor SectionProcessor, content entities.SubmissionContent, pctx entities.ProcessingContext) {
	task.Status = entities.TaskStatusRunning
	start := time.Now()

	taskCtx, cancel := context.WithTimeout(ctx, c.taskTimeout)
	defer cancel()

	done := make(chan taskOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- taskOutcome{err: apperrors.NewInternalError(fmt.Sprintf("processor panicked: %v", r), nil)}
			}
		}()
		result, err := processor.Process(taskCtx, content, pctx)
		done <- taskOutcome{result: result, err: err}
	}()

	var outcome taskOutcome
	select {
	case outcome = <-done:
	case <-taskCtx.Done():
		outcome = taskOutcome{err: apperrors.NewTimeoutError(
			fmt.Sprintf("category %s exceeded the %s task budget", task.Category, c.taskTimeout))}
	}

	task.DurationMs = time.Since(start).Milliseconds()

	if outcome.err != nil {
		task.Status = entities.TaskStatusFailed
		task.Error = outcome.err.Error()
		observability.LoggerFromContext(ctx).Warn().
			Err(outcome.err).
			Str("category", string(task.Category)).
			Msg("section processing task failed")
	} else {
		task.Status = entities.TaskStatusSucceeded
		if outcome.result != nil {
			task.Summary = outcome.result.Summary
		}
	}

	observability.RecordTaskMetric(ctx, c.metrics, string(task.Category), string(task.Status), time.Since(start))
}
