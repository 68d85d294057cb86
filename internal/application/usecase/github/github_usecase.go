package github

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/devconnector/internal/application/service"
	"github.com/khoahotran/devconnector/internal/domain/github"
	"github.com/khoahotran/devconnector/pkg/logger"
)

var tracer = otel.Tracer("github_usecase")

type GithubUseCase struct {
	fetcher service.RepoFetcher
	cache   service.RepoCache
	logger  logger.Logger
}

// NewGithubUseCase builds the repository lookup. cache may be nil.
func NewGithubUseCase(fetcher service.RepoFetcher, cache service.RepoCache, log logger.Logger) *GithubUseCase {
	return &GithubUseCase{fetcher: fetcher, cache: cache, logger: log}
}

// GetRepos serves from cache when it can and falls back to a single fetch.
// Cache failures are logged and never fail the request.
func (uc *GithubUseCase) GetRepos(ctx context.Context, username string) ([]github.Repo, error) {
	ctx, span := tracer.Start(ctx, "GetRepos")
	defer span.End()
	span.SetAttributes(attribute.String("github.username", username))

	if uc.cache != nil {
		repos, ok, err := uc.cache.Get(ctx, username)
		if err != nil {
			uc.logger.Warn("Failed to read github repo cache", zap.String("username", username), zap.Error(err))
		} else if ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return repos, nil
		}
	}

	return uc.Refresh(ctx, username)
}

// Refresh fetches once and stores the result in the cache.
func (uc *GithubUseCase) Refresh(ctx context.Context, username string) ([]github.Repo, error) {
	repos, err := uc.fetcher.ListRepos(ctx, username)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, username, repos); err != nil {
			uc.logger.Warn("Failed to write github repo cache", zap.String("username", username), zap.Error(err))
		}
	}
	return repos, nil
}

func (uc *GithubUseCase) Evict(ctx context.Context, username string) error {
	if uc.cache == nil {
		return nil
	}
	return uc.cache.Delete(ctx, username)
}
