// Package remote describes how skelbench reaches remote source repositories.
package remote

import (
	"context"
	"net/url"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// ErrInvalidRepoRef is returned for references that are not owner/name.
var ErrInvalidRepoRef = errors.Base("invalid repository reference")

// RepoRef identifies a repository by owner and name (e.g. "walteh/skelbench")
type RepoRef struct {
	Owner string
	Name  string
}

// String returns the owner/name form.
func (r RepoRef) String() string {
	return r.Owner + "/" + r.Name
}

// ParseRepoRef accepts "owner/name", "github.com/owner/name" and
// "https://github.com/owner/name(.git)".
func ParseRepoRef(raw string) (RepoRef, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return RepoRef{}, errors.Errorf("empty reference: %w", ErrInvalidRepoRef)
	}

	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return RepoRef{}, errors.Errorf("parsing %q: %w", raw, ErrInvalidRepoRef)
		}
		s = u.Host + u.Path
	}

	s = strings.TrimPrefix(s, "github.com/")
	s = strings.TrimSuffix(strings.Trim(s, "/"), ".git")

	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return RepoRef{}, errors.Errorf("%q (expected owner/name): %w", raw, ErrInvalidRepoRef)
	}
	for _, p := range parts {
		if p == "." || p == ".." || strings.ContainsAny(p, " \t@:") {
			return RepoRef{}, errors.Errorf("%q: %w", raw, ErrInvalidRepoRef)
		}
	}

	return RepoRef{Owner: parts[0], Name: parts[1]}, nil
}

// Cloner performs a shallow, single-branch clone into destDir.
//
// Clone never returns an error: false means the repository could not be
// cloned and should be skipped. The failure is logged by the implementation.
type Cloner interface {
	Clone(ctx context.Context, repoRef string, token string, destDir string) bool
}

// OwnerKind selects how an owner's repositories are listed.
type OwnerKind string

const (
	OwnerOrg  OwnerKind = "org"
	OwnerUser OwnerKind = "user"
)

// Lister enumerates the repositories belonging to an owner.
type Lister interface {
	ListRepos(ctx context.Context, kind OwnerKind, owner string) ([]RepoRef, error)
}
