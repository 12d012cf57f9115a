package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/avoronin/docmd/internal/core/domain"
)

func TestClassifyConnectivityErrorsAreRetryable(t *testing.T) {
	for _, err := range []error{nats.ErrNoServers, nats.ErrTimeout, nats.ErrConnectionClosed, nats.ErrDisconnected} {
		c := classifyNATSError(err)
		if !c.Retryable || !c.RecordFailure {
			t.Fatalf("expected %v retryable and recorded, got %+v", err, c)
		}
	}
}

func TestClassifyCancellationIsNotRecorded(t *testing.T) {
	c := classifyNATSError(context.Canceled)
	if c.Retryable || c.RecordFailure {
		t.Fatalf("expected cancellation ignored, got %+v", c)
	}
}

func TestClassifyUnknownErrorIsFatal(t *testing.T) {
	c := classifyNATSError(errors.New("bad payload"))
	if c.Retryable {
		t.Fatalf("expected unknown error fatal, got %+v", c)
	}
	if !c.RecordFailure {
		t.Fatalf("expected unknown error recorded, got %+v", c)
	}
}

func TestWrapTemporaryOnlyForRetryableErrors(t *testing.T) {
	if err := wrapTemporaryIfNeeded(nats.ErrNoServers); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary wrap, got %v", err)
	}

	fatal := errors.New("bad payload")
	if err := wrapTemporaryIfNeeded(fatal); !errors.Is(err, fatal) || domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected fatal error unchanged, got %v", err)
	}

	if err := wrapTemporaryIfNeeded(nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
