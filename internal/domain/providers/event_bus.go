package providers

import (
	"context"

	"github.com/caldermed/chartsync/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to chart events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.ChartEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.ChartEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannel constants for different event types
const (
	// EventChannelChartUpdates is the channel for all chart updates
	EventChannelChartUpdates = "chart:updates"

	// EventChannelPatientPrefix is the prefix for patient-specific channels
	EventChannelPatientPrefix = "chart:patient:"
)

// GetPatientChannel returns the channel name for a specific patient's chart
func GetPatientChannel(patientID string) string {
	return EventChannelPatientPrefix + patientID
}
