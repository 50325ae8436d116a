// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package github

import (
	"context"

	"github.com/google/go-github/v60/github"
	"github.com/rs/zerolog"
	"github.com/walteh/skelbench/pkg/remote"
	"gitlab.com/tozd/go/errors"
)

const perPage = 100

// 📂 Lister implements remote.Lister with the GitHub REST API
type Lister struct {
	client *github.Client
}

var _ remote.Lister = (*Lister)(nil)

// 🏭 NewLister creates a lister. An empty token uses unauthenticated requests.
func NewLister(token string) *Lister {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return &Lister{client: client}
}

// NewListerWithClient wraps an existing go-github client.
func NewListerWithClient(client *github.Client) *Lister {
	return &Lister{client: client}
}

// ListRepos implements remote.Lister. Archived repositories and forks are
// skipped. Results are ordered as the API returns them.
func (l *Lister) ListRepos(ctx context.Context, kind remote.OwnerKind, owner string) ([]remote.RepoRef, error) {
	logger := zerolog.Ctx(ctx)

	if owner == "" {
		return nil, errors.New("owner is required")
	}

	var refs []remote.RepoRef
	page := 1
	for page != 0 {
		var (
			repos []*github.Repository
			resp  *github.Response
			err   error
		)

		switch kind {
		case remote.OwnerOrg:
			repos, resp, err = l.client.Repositories.ListByOrg(ctx, owner, &github.RepositoryListByOrgOptions{
				ListOptions: github.ListOptions{Page: page, PerPage: perPage},
			})
		case remote.OwnerUser:
			repos, resp, err = l.client.Repositories.ListByUser(ctx, owner, &github.RepositoryListByUserOptions{
				ListOptions: github.ListOptions{Page: page, PerPage: perPage},
			})
		default:
			return nil, errors.Errorf("unknown owner kind %q", kind)
		}
		if err != nil {
			return nil, errors.Errorf("listing repositories of %s %s: %w", kind, owner, err)
		}

		for _, r := range repos {
			if r.GetArchived() || r.GetFork() {
				continue
			}
			refs = append(refs, remote.RepoRef{
				Owner: r.GetOwner().GetLogin(),
				Name:  r.GetName(),
			})
		}

		page = resp.NextPage
	}

	logger.Debug().Str("owner", owner).Int("count", len(refs)).Msg("listed repositories")
	return refs, nil
}
