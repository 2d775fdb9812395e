// Package activity writes the append-only audit trail. Entries are write-only
// from the engines' perspective; a failed write must never fail the request
// that produced it, so errors are logged and swallowed here.
package activity

import (
	"context"
	"time"

	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/model"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/store"
	"github.com/rs/zerolog/log"
)

const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

type Logger struct {
	Store store.Store
	Now   func() time.Time
}

func NewLogger(s store.Store) *Logger {
	return &Logger{Store: s, Now: time.Now}
}

func (l *Logger) Log(ctx context.Context, entry model.ActivityLog) {
	if entry.Severity == "" {
		entry.Severity = SeverityInfo
	}
	entry.CreatedAt = l.Now()

	if _, err := l.Store.Add(ctx, store.ActivityLogs, entry); err != nil {
		log.Error().Err(err).
			Str("type", entry.Type).
			Str("gameId", entry.GameId).
			Msg("Failed to write activity log entry")
	}
}

func (l *Logger) ValidationFailed(ctx context.Context, gameId, userId, validationType string, details map[string]any) {
	l.Log(ctx, model.ActivityLog{
		Type:           model.ActivityBidValidationFailed,
		GameId:         gameId,
		UserId:         userId,
		Severity:       SeverityWarning,
		ValidationType: validationType,
		Details:        details,
	})
}
