package services

import (
	"context"
	"sort"
	"sync"

	"github.com/caldermed/chartsync/internal/domain/entities"
)

// SectionProcessor processes one clinical category for a content submission.
// Implementations are pure functions of (candidate facts, existing chart
// state); they share no mutable state and have no ordering dependency on
// other categories.
type SectionProcessor interface {
	// Category returns the clinical category this processor handles
	Category() entities.Category

	// Priority orders tasks for presentation and bounded-concurrency
	// admission; lower runs first when capacity-limited
	Priority() int

	// Process reconciles the submission's facts for this category
	Process(ctx context.Context, content entities.SubmissionContent, pctx entities.ProcessingContext) (*entities.SectionResult, error)
}

// Registration describes one registered category, implemented or not
type Registration struct {
	Category    entities.Category `json:"category"`
	Priority    int               `json:"priority"`
	Implemented bool              `json:"implemented"`
}

type registration struct {
	processor SectionProcessor
	category  entities.Category
	priority  int
	order     int
}

// ProcessorRegistry is a name-keyed table of section processors.
// Categories that are registered but not yet implemented are first-class
// entries, so status reporting stays uniform for features that ship
// incrementally.
type ProcessorRegistry struct {
	mu      sync.RWMutex
	entries map[entities.Category]*registration
	nextOrd int
}

// NewProcessorRegistry creates a new empty registry
func NewProcessorRegistry() *ProcessorRegistry {
	return &ProcessorRegistry{
		entries: make(map[entities.Category]*registration),
	}
}

// Register registers an implemented section processor
func (r *ProcessorRegistry) Register(p SectionProcessor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[p.Category()] = &registration{
		processor: p,
		category:  p.Category(),
		priority:  p.Priority(),
		order:     r.nextOrd,
	}
	r.nextOrd++
}

// RegisterStub registers a category whose processor is not implemented yet
func (r *ProcessorRegistry) RegisterStub(category entities.Category, priority int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[category] = &registration{
		category: category,
		priority: priority,
		order:    r.nextOrd,
	}
	r.nextOrd++
}

// List returns all registrations ordered by priority then registration order
func (r *ProcessorRegistry) List() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	regs := r.sortedLocked()
	out := make([]Registration, 0, len(regs))
	for _, reg := range regs {
		out = append(out, Registration{
			Category:    reg.category,
			Priority:    reg.priority,
			Implemented: reg.processor != nil,
		})
	}
	return out
}

// Categories returns all registered category names
func (r *ProcessorRegistry) Categories() []entities.Category {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entities.Category, 0, len(r.entries))
	for _, reg := range r.sortedLocked() {
		out = append(out, reg.category)
	}
	return out
}

// resolve maps requested categories to registrations, preserving priority
// order. Unknown names are ignored: category availability is dynamic, and
// asking for a category that does not exist yet is not an error.
func (r *ProcessorRegistry) resolve(enabled []entities.Category) []*registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if enabled == nil {
		return r.sortedLocked()
	}

	seen := make(map[entities.Category]bool, len(enabled))
	var out []*registration
	for _, reg := range r.sortedLocked() {
		for _, name := range enabled {
			if reg.category == name && !seen[name] {
				seen[name] = true
				out = append(out, reg)
				break
			}
		}
	}
	return out
}

func (r *ProcessorRegistry) sortedLocked() []*registration {
	regs := make([]*registration, 0, len(r.entries))
	for _, reg := range r.entries {
		regs = append(regs, reg)
	}
	sort.Slice(regs, func(i, j int) bool {
		if regs[i].priority != regs[j].priority {
			return regs[i].priority < regs[j].priority
		}
		return regs[i].order < regs[j].order
	})
	return regs
}
