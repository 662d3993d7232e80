package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/campaign-assistant/internal/core/domain"
	"github.com/kirillkom/campaign-assistant/internal/infrastructure/resilience"
)

func TestClassifyNATSError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
		record    bool
	}{
		{name: "canceled", err: context.Canceled},
		{name: "no servers", err: fmt.Errorf("nats publish: %w", nats.ErrNoServers), retryable: true, record: true},
		{name: "timeout", err: nats.ErrTimeout, retryable: true, record: true},
		{name: "bad subject", err: nats.ErrBadSubject, record: true},
	}
	for _, tc := range cases {
		got := classifyNATSError(tc.err)
		if got.Retryable != tc.retryable || got.RecordFailure != tc.record {
			t.Fatalf("%s: unexpected classification %+v", tc.name, got)
		}
	}
}

func TestPublishFailuresWrapAsTemporary(t *testing.T) {
	if err := resilience.WrapTemporary("nats publish", nats.ErrDisconnected, classifyNATSError); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary kind, got %v", err)
	}
	permanent := errors.New("bad payload")
	if err := resilience.WrapTemporary("nats publish", permanent, classifyNATSError); domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("permanent error should not be temporary: %v", err)
	}
}
