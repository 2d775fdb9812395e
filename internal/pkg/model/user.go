package model

import (
	"time"
)

type User struct {
	Id               string    `json:"id" firestore:"-"`
	Email            string    `json:"email" firestore:"email"`
	Playername       string    `json:"playername" firestore:"playername"`
	GoogleIdentityId string    `json:"googleIdentityId" firestore:"googleIdentityId"`
	TelegramChatId   string    `json:"telegramChatId,omitempty" firestore:"telegramChatId"`
	CreatedAt        time.Time `json:"createdAt" firestore:"createdAt"`
}
