package github

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/khoahotran/devconnector/internal/application/service"
	"github.com/khoahotran/devconnector/internal/domain/github"
	"github.com/khoahotran/devconnector/pkg/logger"
)

// ProcessProfileEventUseCase keeps the repository cache in step with profile
// changes consumed from the event stream.
type ProcessProfileEventUseCase struct {
	github *GithubUseCase
	logger logger.Logger
}

func NewProcessProfileEventUseCase(uc *GithubUseCase, log logger.Logger) *ProcessProfileEventUseCase {
	return &ProcessProfileEventUseCase{github: uc, logger: log}
}

func (uc *ProcessProfileEventUseCase) Execute(ctx context.Context, evt service.ProfileEvent) error {
	if evt.GithubUserName == "" {
		return nil
	}

	switch evt.EventType {
	case service.ProfileEventTypeUpserted:
		_, err := uc.github.Refresh(ctx, evt.GithubUserName)
		if errors.Is(err, github.ErrGithubProfileNotFound) {
			return uc.github.Evict(ctx, evt.GithubUserName)
		}
		return err
	case service.ProfileEventTypeAccountDeleted:
		return uc.github.Evict(ctx, evt.GithubUserName)
	default:
		uc.logger.Warn("Ignoring unknown profile event", zap.String("event_type", evt.EventType))
		return nil
	}
}
