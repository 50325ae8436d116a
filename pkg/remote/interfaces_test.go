package remote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func TestParseRepoRef(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    RepoRef
		wantErr bool
	}{
		{name: "owner_name", raw: "walteh/skelbench", want: RepoRef{Owner: "walteh", Name: "skelbench"}},
		{name: "surrounding_space", raw: "  walteh/skelbench\n", want: RepoRef{Owner: "walteh", Name: "skelbench"}},
		{name: "github_prefix", raw: "github.com/walteh/skelbench", want: RepoRef{Owner: "walteh", Name: "skelbench"}},
		{name: "https_url", raw: "https://github.com/walteh/skelbench", want: RepoRef{Owner: "walteh", Name: "skelbench"}},
		{name: "https_url_with_git_suffix", raw: "https://github.com/walteh/skelbench.git", want: RepoRef{Owner: "walteh", Name: "skelbench"}},
		{name: "trailing_slash", raw: "walteh/skelbench/", want: RepoRef{Owner: "walteh", Name: "skelbench"}},
		{name: "empty", raw: "", wantErr: true},
		{name: "no_slash", raw: "skelbench", wantErr: true},
		{name: "too_many_segments", raw: "a/b/c", wantErr: true},
		{name: "empty_owner", raw: "/skelbench", wantErr: true},
		{name: "dot_dot", raw: "../etc", wantErr: true},
		{name: "credentials_smuggled", raw: "user@evil/repo", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRepoRef(tt.raw)
			if tt.wantErr {
				require.Error(t, err, "parse should fail")
				assert.True(t, errors.Is(err, ErrInvalidRepoRef), "error should wrap ErrInvalidRepoRef")
				return
			}
			require.NoError(t, err, "parse should succeed")
			assert.Equal(t, tt.want, got, "ref should match")
			assert.Equal(t, tt.want.Owner+"/"+tt.want.Name, got.String(), "string form should match")
		})
	}
}
