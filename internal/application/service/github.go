package service

import (
	"context"

	"github.com/khoahotran/devconnector/internal/domain/github"
)

type RepoFetcher interface {
	ListRepos(ctx context.Context, username string) ([]github.Repo, error)
}

// RepoCache stores fetched repositories. Get reports ok=false on a miss.
type RepoCache interface {
	Get(ctx context.Context, username string) (repos []github.Repo, ok bool, err error)
	Set(ctx context.Context, username string, repos []github.Repo) error
	Delete(ctx context.Context, username string) error
}
