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

package metrics

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/skelbench/pkg/remote"
	"github.com/walteh/skelbench/pkg/table"
	"gitlab.com/tozd/go/errors"
)

var (
	ErrSourceNotFound = errors.Base("repository source not found")
	ErrInvalidSource  = errors.Base("invalid repository source")
)

const githubSourcePrefix = "github:"

// repoColumns are the accepted repository columns of a CSV source, by priority.
var repoColumns = []string{"repository", "repo_name"}

// 📥 LoadRepoRefs resolves a repository source into an ordered list of
// owner/name references. A source is a text file with one reference per line,
// a CSV file with a repository or repo_name column, or github:org/<org> or
// github:user/<user>. lister is only used for github: sources.
func LoadRepoRefs(ctx context.Context, source string, lister remote.Lister) ([]string, error) {
	logger := zerolog.Ctx(ctx)

	var (
		refs []string
		err  error
	)
	switch {
	case strings.HasPrefix(source, githubSourcePrefix):
		refs, err = listGitHub(ctx, strings.TrimPrefix(source, githubSourcePrefix), lister)
	case strings.EqualFold(filepath.Ext(source), ".csv"):
		refs, err = readCSVSource(source)
	default:
		refs, err = readTextSource(source)
	}
	if err != nil {
		return nil, err
	}

	logger.Debug().Str("source", source).Int("repositories", len(refs)).Msg("loaded repository list")
	return refs, nil
}

func listGitHub(ctx context.Context, source string, lister remote.Lister) ([]string, error) {
	kind, owner, ok := strings.Cut(source, "/")
	if !ok || owner == "" || strings.Contains(owner, "/") {
		return nil, errors.Errorf("%q (expected github:org/<org> or github:user/<user>): %w", source, ErrInvalidSource)
	}

	var ownerKind remote.OwnerKind
	switch kind {
	case string(remote.OwnerOrg):
		ownerKind = remote.OwnerOrg
	case string(remote.OwnerUser):
		ownerKind = remote.OwnerUser
	default:
		return nil, errors.Errorf("owner kind %q: %w", kind, ErrInvalidSource)
	}

	if lister == nil {
		return nil, errors.Errorf("no github lister configured: %w", ErrInvalidSource)
	}

	repos, err := lister.ListRepos(ctx, ownerKind, owner)
	if err != nil {
		return nil, errors.Errorf("expanding %s: %w", source, err)
	}

	refs := make([]string, len(repos))
	for i, r := range repos {
		refs[i] = r.String()
	}
	return refs, nil
}

func readCSVSource(path string) ([]string, error) {
	if err := checkExists(path); err != nil {
		return nil, err
	}

	tbl, err := table.ReadCSV(path)
	if err != nil {
		return nil, errors.Errorf("reading repository csv: %w", err)
	}

	col := -1
	for _, name := range repoColumns {
		if col = tbl.Index(name); col >= 0 {
			break
		}
	}
	if col < 0 {
		return nil, errors.Errorf("%s has no %s column: %w", path, strings.Join(repoColumns, " or "), ErrInvalidSource)
	}

	refs := make([]string, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		if ref := strings.TrimSpace(row[col]); ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

func readTextSource(path string) ([]string, error) {
	if err := checkExists(path); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Errorf("opening repository list: %w", err)
	}
	defer f.Close()

	var refs []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		refs = append(refs, line)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Errorf("reading repository list: %w", err)
	}
	return refs, nil
}

func checkExists(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return errors.Errorf("%s: %w", path, ErrSourceNotFound)
		}
		return errors.Errorf("checking %s: %w", path, err)
	}
	return nil
}
