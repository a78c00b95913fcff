package github

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/skillxpress/skillxpress/internal/types"
)

// CollectSignals lists the user's repositories, skips forks and fetches
// every language breakdown with at most the configured number of requests
// in flight. Any failed fetch fails the whole collection so that a partial
// signal set is never scored.
func (c *Client) CollectSignals(ctx context.Context, username string) ([]types.RepositorySignal, error) {
	repos, err := c.ListRepositories(ctx, username)
	if err != nil {
		return nil, err
	}

	owned := make([]Repository, 0, len(repos))
	for _, r := range repos {
		if !r.Fork {
			owned = append(owned, r)
		}
	}

	signals := make([]types.RepositorySignal, len(owned))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, repo := range owned {
		g.Go(func() error {
			langs, err := c.Languages(gctx, repo)
			if err != nil {
				return err
			}
			signals[i] = types.RepositorySignal{
				Name:      repo.FullName,
				Stars:     repo.Stars,
				Forks:     repo.Forks,
				SizeKB:    repo.Size,
				LastPush:  repo.PushedAt,
				Languages: langs,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return signals, nil
}
