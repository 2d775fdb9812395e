package bid

import (
	"context"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/activity"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/model"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/store"
)

func newStatusConsumer(mem *store.MemoryStore) *notificationStatusConsumer {
	return &notificationStatusConsumer{
		activity: &activity.Logger{Store: mem, Now: func() time.Time { return testTime }},
	}
}

func TestRecordStatusLogsFailedDelivery(t *testing.T) {
	mem := store.NewMemory()
	consumer := newStatusConsumer(mem)

	consumer.recordStatus(context.Background(), notificationStatus{
		Type:   "BID_PLACED",
		GameId: "game-1",
		UserId: "user-1",
		Status: "failed",
		Error:  "telegram chat unreachable",
	})

	failures := activityLogs(t, mem, model.ActivityNotificationFailed)
	if len(failures) != 1 {
		t.Fatalf("expected 1 delivery-failure log, got %d", len(failures))
	}
	if failures[0].Severity != activity.SeverityWarning {
		t.Errorf("expected warning severity, got %q", failures[0].Severity)
	}
	if failures[0].Details["notificationType"] != "BID_PLACED" {
		t.Errorf("expected notification type in details, got %v", failures[0].Details)
	}
	if failures[0].Details["error"] != "telegram chat unreachable" {
		t.Errorf("expected delivery error in details, got %v", failures[0].Details)
	}
}

func TestRecordStatusEscalatesLostRestoreNotification(t *testing.T) {
	mem := store.NewMemory()
	consumer := newStatusConsumer(mem)

	consumer.recordStatus(context.Background(), notificationStatus{
		Type:   "BID_RESTORE_FAILED",
		GameId: "game-1",
		UserId: "user-1",
		Status: "failed",
		Error:  "mailbox full",
	})

	failures := activityLogs(t, mem, model.ActivityNotificationFailed)
	if len(failures) != 1 {
		t.Fatalf("expected 1 delivery-failure log, got %d", len(failures))
	}
	if failures[0].Severity != activity.SeverityCritical {
		t.Errorf("expected critical severity for lost restore notification, got %q", failures[0].Severity)
	}
}

func TestRecordStatusIgnoresDeliveredReports(t *testing.T) {
	mem := store.NewMemory()
	consumer := newStatusConsumer(mem)

	consumer.recordStatus(context.Background(), notificationStatus{
		Type:   "BID_PLACED",
		GameId: "game-1",
		UserId: "user-1",
		Status: "delivered",
	})

	if mem.Count(store.ActivityLogs) != 0 {
		t.Errorf("expected no log for a delivered report, got %d", mem.Count(store.ActivityLogs))
	}
}

func TestHandleStatusMessageRejectsMalformedPayload(t *testing.T) {
	mem := store.NewMemory()
	consumer := newStatusConsumer(mem)

	consumer.handleStatusMessage(context.Background(), &gcppubsub.Message{
		Data: []byte("{not json"),
	})

	if mem.Count(store.ActivityLogs) != 0 {
		t.Errorf("expected malformed message dropped without logging, got %d entries", mem.Count(store.ActivityLogs))
	}
}
