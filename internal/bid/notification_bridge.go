package bid

import (
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/model"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/pubsub"
)

const notificationCommandTopic = "oracle-games.notifications.commands"

// notificationCommand is consumed by the out-of-process email/Telegram
// workers. Delivery is entirely their concern.
type notificationCommand struct {
	Type    string         `json:"type"`
	GameId  string         `json:"gameId"`
	UserId  string         `json:"userId"`
	Payload map[string]any `json:"payload,omitempty"`
}

func (c notificationCommand) GetEventTopicName() string {
	return notificationCommandTopic
}

type notificationBridge struct {
	publish func(message pubsub.Publishable, options ...map[string]any)
}

func newNotificationBridge() *notificationBridge {
	return &notificationBridge{publish: pubsub.Publish}
}

func (nb *notificationBridge) sendBidPlaced(bid *model.Bid, isUpdate bool, previousAmount int64) {
	nb.publish(notificationCommand{
		Type:   "BID_PLACED",
		GameId: bid.GameId,
		UserId: bid.UserId,
		Payload: map[string]any{
			"riderNameId":    bid.RiderNameId,
			"riderName":      bid.RiderName,
			"amount":         bid.Amount,
			"isUpdate":       isUpdate,
			"previousAmount": previousAmount,
		},
	})
}

func (nb *notificationBridge) sendBidRestoreFailed(gameId, userId, riderNameId string) {
	nb.publish(notificationCommand{
		Type:   "BID_RESTORE_FAILED",
		GameId: gameId,
		UserId: userId,
		Payload: map[string]any{
			"riderNameId": riderNameId,
		},
	})
}
