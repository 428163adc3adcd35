package events

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nimbusboard/nimbusboard/internal/ports"
)

type stubOutbox struct {
	records      []ports.OutboxRecord
	published    []uuid.UUID
	failed       []uuid.UUID
	deadLettered []uuid.UUID
}

func (s *stubOutbox) Enqueue(context.Context, ports.OutboxEvent) error { return nil }

func (s *stubOutbox) ClaimUnpublished(context.Context, int, string, time.Time) ([]ports.OutboxRecord, error) {
	return s.records, nil
}

func (s *stubOutbox) MarkPublished(_ context.Context, id uuid.UUID, _ string, _ time.Time) error {
	s.published = append(s.published, id)
	return nil
}

func (s *stubOutbox) MarkFailed(_ context.Context, id uuid.UUID, _, _ string, _ time.Time) error {
	s.failed = append(s.failed, id)
	return nil
}

func (s *stubOutbox) MarkDeadLettered(_ context.Context, id uuid.UUID, _, _ string, _ time.Time) error {
	s.deadLettered = append(s.deadLettered, id)
	return nil
}

type stubPublisher struct {
	failType  string
	delivered []string
	attempts  int
}

func (s *stubPublisher) Publish(_ context.Context, eventType string, _ []byte, _ string) error {
	s.attempts++
	if eventType == s.failType {
		return fmt.Errorf("broker unavailable")
	}
	s.delivered = append(s.delivered, eventType)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOutboxWorkerPublishesBatch(t *testing.T) {
	t.Parallel()

	outbox := &stubOutbox{records: []ports.OutboxRecord{
		{OutboxID: uuid.New(), EventType: "auth.session.created", Payload: []byte(`{}`)},
		{OutboxID: uuid.New(), EventType: "user.registered", Payload: []byte(`{}`)},
	}}
	publisher := &stubPublisher{}
	worker := NewOutboxWorker(testLogger(), outbox, publisher, 0, 0, 0, 0)

	if err := worker.processOnce(context.Background()); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if len(publisher.delivered) != 2 || len(outbox.published) != 2 {
		t.Fatalf("expected both records published, got %d delivered %d marked", len(publisher.delivered), len(outbox.published))
	}
	if len(outbox.failed) != 0 || len(outbox.deadLettered) != 0 {
		t.Fatalf("unexpected failure marks: %+v %+v", outbox.failed, outbox.deadLettered)
	}
}

func TestOutboxWorkerSchedulesRetry(t *testing.T) {
	t.Parallel()

	rec := ports.OutboxRecord{OutboxID: uuid.New(), EventType: "auth.session.created", RetryCount: 1}
	outbox := &stubOutbox{records: []ports.OutboxRecord{rec}}
	publisher := &stubPublisher{failType: "auth.session.created"}
	worker := NewOutboxWorker(testLogger(), outbox, publisher, 0, 0, 0, 5)

	if err := worker.processOnce(context.Background()); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if len(outbox.failed) != 1 || outbox.failed[0] != rec.OutboxID {
		t.Fatalf("expected record marked failed for retry")
	}
	if len(outbox.deadLettered) != 0 {
		t.Fatalf("record below the retry threshold must not dead-letter")
	}
}

func TestOutboxWorkerDeadLettersAtThreshold(t *testing.T) {
	t.Parallel()

	rec := ports.OutboxRecord{OutboxID: uuid.New(), EventType: "auth.session.created", RetryCount: 4}
	outbox := &stubOutbox{records: []ports.OutboxRecord{rec}}
	publisher := &stubPublisher{failType: "auth.session.created"}
	worker := NewOutboxWorker(testLogger(), outbox, publisher, 0, 0, 0, 5)

	if err := worker.processOnce(context.Background()); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if len(outbox.deadLettered) != 1 || outbox.deadLettered[0] != rec.OutboxID {
		t.Fatalf("expected record dead-lettered at the threshold")
	}
	if len(outbox.failed) != 0 {
		t.Fatalf("dead-lettered record must not also be marked failed")
	}
}

func TestOutboxWorkerSkipsExhaustedRecords(t *testing.T) {
	t.Parallel()

	rec := ports.OutboxRecord{OutboxID: uuid.New(), EventType: "auth.session.created", RetryCount: 5}
	outbox := &stubOutbox{records: []ports.OutboxRecord{rec}}
	publisher := &stubPublisher{}
	worker := NewOutboxWorker(testLogger(), outbox, publisher, 0, 0, 0, 5)

	if err := worker.processOnce(context.Background()); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if publisher.attempts != 0 {
		t.Fatalf("exhausted record must not reach the publisher")
	}
	if len(outbox.deadLettered) != 1 {
		t.Fatalf("expected exhausted record dead-lettered")
	}
}
