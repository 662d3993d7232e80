package nats

import (
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/campaign-assistant/internal/infrastructure/resilience"
)

// classifyNATSError treats connection loss as transient. Anything else, such
// as a bad subject, fails the publish at once.
func classifyNATSError(err error) resilience.ErrorClassification {
	if class, ok := resilience.ClassifyCommon(err); ok {
		return class
	}
	for _, transient := range []error{nats.ErrNoServers, nats.ErrTimeout, nats.ErrConnectionClosed, nats.ErrDisconnected, nats.ErrReconnectBufExceeded} {
		if errors.Is(err, transient) {
			return resilience.Transient
		}
	}
	return resilience.Permanent
}
