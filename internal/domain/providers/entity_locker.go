package providers

import (
	"context"
	"fmt"

	"github.com/caldermed/chartsync/internal/domain/entities"
)

// EntityLocker provides mutual exclusion scoped to one
// (patient, category, entity-identity-key) tuple. Reconciliation's
// read-decide-write step runs entirely inside one acquired lock; operations
// on unrelated keys never contend.
type EntityLocker interface {
	// Acquire blocks until the lock for key is held or ctx is done.
	// The returned release function must be called exactly once.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// LockKey builds the lock table key for an entity identity
func LockKey(patientID string, category entities.Category, identityKey string) string {
	return fmt.Sprintf("%s:%s:%s", patientID, category, identityKey)
}
