package service

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	ProfileEventTypeUpserted       = "profile.upserted"
	ProfileEventTypeAccountDeleted = "account.deleted"
)

type ProfileEvent struct {
	EventType      string    `json:"event_type"`
	UserID         uuid.UUID `json:"user_id"`
	GithubUserName string    `json:"github_user_name,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type EventPublisher interface {
	PublishProfileEvent(ctx context.Context, evt ProfileEvent) error
}
