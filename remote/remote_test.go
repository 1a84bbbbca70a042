package remote

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsLocator(t *testing.T) {
	tests := []struct {
		input  string
		remote bool
	}{
		{"github:lcanady/mu-format", true},
		{"github:lcanady/mu-format/lib/a.mu", true},
		{"GitHub:user/repo", true},
		{"gitlab:org/lib", true},
		{"  github:user/repo  ", true},

		{"installer.mu", false},
		{"lib/math.mu", false},
		{"C:/code/installer.mu", false},
		{"https://example.com/x", false},
		{"github:user", false},
		{"@pemit me=hi", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := IsLocator(tt.input)
			if got != tt.remote {
				t.Errorf("IsLocator(%q) = %v, want %v", tt.input, got, tt.remote)
			}
		})
	}
}

func TestParseLocator(t *testing.T) {
	tests := []struct {
		input string
		owner string
		repo  string
		path  string
	}{
		{"github:lcanady/mu-format", "lcanady", "mu-format", ""},
		{"github:lcanady/mu-format/lib/a.mu", "lcanady", "mu-format", "lib/a.mu"},
		{"github:user/repo/./x/../y.mu", "user", "repo", "y.mu"},
		{"GITHUB:user/repo", "user", "repo", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			l, err := ParseLocator(tt.input)
			require.NoError(t, err)
			assert.Equal(t, Scheme, l.Scheme)
			assert.Equal(t, tt.owner, l.Repo.Owner)
			assert.Equal(t, tt.repo, l.Repo.Name)
			assert.Equal(t, tt.path, l.Path)
		})
	}
}

func TestParseLocatorErrors(t *testing.T) {
	for _, input := range []string{"github:user", "github:", "gitlab:org/lib", "plain text"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseLocator(input)
			assert.Error(t, err)
		})
	}
}

func TestLocatorString(t *testing.T) {
	l := Locator{Scheme: Scheme, Repo: Repo{Owner: "u", Name: "r"}, Path: "a/b.mu"}
	assert.Equal(t, "github:u/r/a/b.mu", l.String())
	l.Path = ""
	assert.Equal(t, "github:u/r", l.String())
}

func TestJoinPath(t *testing.T) {
	tests := []struct {
		dir, ref, want string
	}{
		{".", "a.mu", "a.mu"},
		{"lib", "b.mu", "lib/b.mu"},
		{"lib/sub", "../c.mu", "lib/c.mu"},
		{"lib", "../../escape.mu", "escape.mu"},
		{"lib", "/root.mu", "root.mu"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, JoinPath(tt.dir, tt.ref), "JoinPath(%q, %q)", tt.dir, tt.ref)
	}
}

func TestContentsURL(t *testing.T) {
	c := &Client{APIRoot: "https://api.github.com/repos/"}
	got := c.ContentsURL(Repo{Owner: "lcanady", Name: "mu-format"}, "lib/ a.mu")
	assert.Equal(t, "https://api.github.com/repos/lcanady/mu-format/contents/lib/a.mu", got)
}

func contentsHandler(t *testing.T, files map[string]string, hits *atomic.Int32) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"type":     "file",
			"encoding": "base64",
			"content":  base64.StdEncoding.EncodeToString([]byte(body)),
		})
	}
}

func TestClientFetch(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(contentsHandler(t, map[string]string{
		"/repos/u/r/contents/installer.mu": "@pemit me=remote\n",
	}, &hits))
	defer srv.Close()

	c := &Client{APIRoot: srv.URL + "/repos", Timeout: time.Second}
	text, err := c.Fetch(context.Background(), c.ContentsURL(Repo{Owner: "u", Name: "r"}, "installer.mu"))
	require.NoError(t, err)
	assert.Equal(t, "@pemit me=remote\n", text)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClientFetchSendsCredentials(t *testing.T) {
	var user, pass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ = r.BasicAuth()
		w.Write([]byte(`{"type":"file","encoding":"base64","content":"aGk="}`))
	}))
	defer srv.Close()

	c := &Client{APIRoot: srv.URL, User: "jane", Token: "tok"}
	text, err := c.Fetch(context.Background(), srv.URL+"/x")
	require.NoError(t, err)
	assert.Equal(t, "hi", text)
	assert.Equal(t, "jane", user)
	assert.Equal(t, "tok", pass)
}

func TestClientFetchHTTPError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(contentsHandler(t, nil, &hits))
	defer srv.Close()

	c := &Client{APIRoot: srv.URL}
	_, err := c.Fetch(context.Background(), srv.URL+"/repos/u/r/contents/missing.mu")
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.Status)
	assert.Equal(t, int32(1), hits.Load(), "no retries")
}

func TestClientFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := &Client{APIRoot: srv.URL, Timeout: 50 * time.Millisecond}
	_, err := c.Fetch(context.Background(), srv.URL+"/slow")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDecodeContent(t *testing.T) {
	wrapped := "QHBlbWl0IG1lPWhp\nCg==\n"
	text, err := decodeContent("base64", wrapped)
	require.NoError(t, err)
	assert.Equal(t, "@pemit me=hi\n", text)

	_, err = decodeContent("base64", "!!!")
	assert.Error(t, err)

	_, err = decodeContent("gzip", "x")
	assert.Error(t, err)
}
