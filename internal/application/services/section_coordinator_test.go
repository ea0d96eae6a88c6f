package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/caldermed/chartsync/internal/application/services"
	"github.com/caldermed/chartsync/internal/domain/entities"
)

// fakeProcessor is a scriptable section processor
type fakeProcessor struct {
	category entities.Category
	priority int
	fn       func(ctx context.Context) (*entities.SectionResult, error)
}

func (p *fakeProcessor) Category() entities.Category { return p.category }
func (p *fakeProcessor) Priority() int               { return p.priority }
func (p *fakeProcessor) Process(ctx context.Context, _ entities.SubmissionContent, _ entities.ProcessingContext) (*entities.SectionResult, error) {
	return p.fn(ctx)
}

func succeedWith(summary string) func(context.Context) (*entities.SectionResult, error) {
	return func(context.Context) (*entities.SectionResult, error) {
		return &entities.SectionResult{Summary: summary}, nil
	}
}

func testContent() entities.SubmissionContent {
	return entities.SubmissionContent{
		Text:       "BP: 120/80",
		SourceType: entities.SourceTypeEncounterNote,
	}
}

func testPctx() entities.ProcessingContext {
	return entities.ProcessingContext{PatientID: "pat-1"}
}

func taskFor(t *testing.T, report *entities.AggregateReport, category entities.Category) entities.ProcessingTask {
	t.Helper()
	for _, task := range report.Tasks {
		if task.Category == category {
			return task
		}
	}
	t.Fatalf("no task for category %s in report", category)
	return entities.ProcessingTask{}
}

func TestSectionCoordinator_ProcessAll_PanicDoesNotAbortSiblings(t *testing.T) {
	registry := services.NewProcessorRegistry()
	registry.Register(&fakeProcessor{category: entities.CategoryVitals, priority: 10, fn: succeedWith("1 vitals entries affected")})
	registry.Register(&fakeProcessor{category: entities.CategoryLabs, priority: 20, fn: func(context.Context) (*entities.SectionResult, error) {
		panic("malformed lab payload")
	}})

	coordinator := services.NewSectionCoordinator(registry, time.Second, 0, nil)
	report, err := coordinator.ProcessAll(context.Background(), testContent(), testPctx(), nil)
	assert.NoError(t, err)
	assert.Equal(t, 2, report.TotalTasks)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)

	vitals := taskFor(t, report, entities.CategoryVitals)
	assert.Equal(t, entities.TaskStatusSucceeded, vitals.Status)
	assert.Equal(t, "1 vitals entries affected", vitals.Summary)

	labs := taskFor(t, report, entities.CategoryLabs)
	assert.Equal(t, entities.TaskStatusFailed, labs.Status)
	assert.Contains(t, labs.Error, "panicked")
}

func TestSectionCoordinator_ProcessAll_HungProcessorIsForcedToFailed(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	registry := services.NewProcessorRegistry()
	registry.Register(&fakeProcessor{category: entities.CategoryVitals, priority: 10, fn: func(context.Context) (*entities.SectionResult, error) {
		// Ignores its context entirely
		<-block
		return nil, nil
	}})
	registry.Register(&fakeProcessor{category: entities.CategoryLabs, priority: 20, fn: succeedWith("done")})

	coordinator := services.NewSectionCoordinator(registry, 50*time.Millisecond, 0, nil)

	start := time.Now()
	report, err := coordinator.ProcessAll(context.Background(), testContent(), testPctx(), nil)
	assert.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	vitals := taskFor(t, report, entities.CategoryVitals)
	assert.Equal(t, entities.TaskStatusFailed, vitals.Status)
	assert.Contains(t, vitals.Error, "task budget")
	assert.Equal(t, entities.TaskStatusSucceeded, taskFor(t, report, entities.CategoryLabs).Status)
}

func TestSectionCoordinator_ProcessAll_ErrorIsReportedPerCategory(t *testing.T) {
	registry := services.NewProcessorRegistry()
	registry.Register(&fakeProcessor{category: entities.CategoryVitals, priority: 10, fn: func(context.Context) (*entities.SectionResult, error) {
		return nil, errors.New("extraction service unavailable")
	}})

	coordinator := services.NewSectionCoordinator(registry, time.Second, 0, nil)
	report, err := coordinator.ProcessAll(context.Background(), testContent(), testPctx(), nil)
	assert.NoError(t, err, "a task failure must not escalate to a run failure")
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, taskFor(t, report, entities.CategoryVitals).Error, "extraction service unavailable")
}

func TestSectionCoordinator_ProcessAll_StubsAreSkipped(t *testing.T) {
	registry := services.NewProcessorRegistry()
	registry.Register(&fakeProcessor{category: entities.CategoryVitals, priority: 10, fn: succeedWith("done")})
	registry.RegisterStub(entities.CategoryProblems, 90)

	coordinator := services.NewSectionCoordinator(registry, time.Second, 0, nil)
	report, err := coordinator.ProcessAll(context.Background(), testContent(), testPctx(), nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Skipped)

	problems := taskFor(t, report, entities.CategoryProblems)
	assert.Equal(t, entities.TaskStatusSkipped, problems.Status)
	assert.Contains(t, problems.Error, "not implemented")
}

func TestSectionCoordinator_ProcessAll_EmptyRegistry(t *testing.T) {
	coordinator := services.NewSectionCoordinator(services.NewProcessorRegistry(), time.Second, 0, nil)
	report, err := coordinator.ProcessAll(context.Background(), testContent(), testPctx(), nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, report.TotalTasks)
	assert.Empty(t, report.Tasks)
}

func TestSectionCoordinator_ProcessAll_UnknownEnabledCategoriesAreIgnored(t *testing.T) {
	registry := services.NewProcessorRegistry()
	registry.Register(&fakeProcessor{category: entities.CategoryVitals, priority: 10, fn: succeedWith("done")})
	registry.Register(&fakeProcessor{category: entities.CategoryLabs, priority: 20, fn: succeedWith("done")})

	coordinator := services.NewSectionCoordinator(registry, time.Second, 0, nil)
	report, err := coordinator.ProcessAll(context.Background(), testContent(), testPctx(), []entities.Category{
		entities.CategoryVitals,
		entities.Category("genomics"),
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, report.TotalTasks)
	assert.Equal(t, entities.CategoryVitals, report.Tasks[0].Category)
}

func TestSectionCoordinator_ProcessAll_ValidatesInputs(t *testing.T) {
	coordinator := services.NewSectionCoordinator(services.NewProcessorRegistry(), time.Second, 0, nil)

	t.Run("missing patient id", func(t *testing.T) {
		_, err := coordinator.ProcessAll(context.Background(), testContent(), entities.ProcessingContext{}, nil)
		assert.Error(t, err)
	})

	t.Run("missing source type", func(t *testing.T) {
		_, err := coordinator.ProcessAll(context.Background(), entities.SubmissionContent{Text: "note"}, testPctx(), nil)
		assert.Error(t, err)
	})
}

func TestSectionCoordinator_ProcessAll_BoundedConcurrency(t *testing.T) {
	var mu sync.Mutex
	running, peak := 0, 0

	fn := func(context.Context) (*entities.SectionResult, error) {
		mu.Lock()
		running++
		if running > peak {
			peak = running
		}
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		running--
		mu.Unlock()
		return &entities.SectionResult{}, nil
	}

	registry := services.NewProcessorRegistry()
	registry.Register(&fakeProcessor{category: entities.CategoryVitals, priority: 10, fn: fn})
	registry.Register(&fakeProcessor{category: entities.CategoryLabs, priority: 20, fn: fn})
	registry.Register(&fakeProcessor{category: entities.CategoryMedications, priority: 30, fn: fn})
	registry.Register(&fakeProcessor{category: entities.CategoryDiagnoses, priority: 40, fn: fn})

	coordinator := services.NewSectionCoordinator(registry, time.Second, 2, nil)
	report, err := coordinator.ProcessAll(context.Background(), testContent(), testPctx(), nil)
	assert.NoError(t, err)
	assert.Equal(t, 4, report.Succeeded)
	assert.LessOrEqual(t, peak, 2)
}
