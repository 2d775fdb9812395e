package profile

import (
	"time"
)

type Profile struct {
	Id             string    `json:"id"`
	Email          string    `json:"email"`
	Playername     string    `json:"playername"`
	TelegramChatId string    `json:"telegramChatId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}
