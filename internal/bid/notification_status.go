package bid

import (
	"context"

	gcppubsub "cloud.google.com/go/pubsub"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/activity"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/model"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/utils"
	"github.com/rs/zerolog/log"
)

const notificationStatusSubscription = "oracle-games.notifications.status-sub"

// notificationStatus is the delivery report the out-of-process email/Telegram
// workers publish back for every notification command they pick up.
type notificationStatus struct {
	Type   string `json:"type"`
	GameId string `json:"gameId"`
	UserId string `json:"userId"`
	Status string `json:"status"` // "delivered" or "failed"
	Error  string `json:"error,omitempty"`
}

type notificationStatusConsumer struct {
	activity *activity.Logger
}

func (nc *notificationStatusConsumer) handleStatusMessage(ctx context.Context, message *gcppubsub.Message) {
	log.Info().Msg("Received message payload " + string(message.Data))
	status, err := utils.JsonDecodeByteStream[notificationStatus](message.Data)
	if err != nil {
		log.Warn().Err(err).Msg("Error while parsing notification status message")
		return
	}

	nc.recordStatus(ctx, *status)
	message.Ack()
}

// recordStatus keeps failed deliveries visible. A lost BID_RESTORE_FAILED
// notification is the last signal a user gets about a dropped bid, so those
// failures are critical; everything else is a warning.
func (nc *notificationStatusConsumer) recordStatus(ctx context.Context, status notificationStatus) {
	if status.Status != "failed" {
		log.Debug().
			Str("type", status.Type).
			Str("gameId", status.GameId).
			Msg("Notification delivered")
		return
	}

	severity := activity.SeverityWarning
	if status.Type == "BID_RESTORE_FAILED" {
		severity = activity.SeverityCritical
	}

	nc.activity.Log(ctx, model.ActivityLog{
		Type:     model.ActivityNotificationFailed,
		GameId:   status.GameId,
		UserId:   status.UserId,
		Severity: severity,
		Details: map[string]any{
			"notificationType": status.Type,
			"error":            status.Error,
		},
	})
}
