package gitlab

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "glpat-test-token"

func quietLogger() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

// newTestClient starts a fake GitLab and returns a Client pointed at it,
// plus a counter of requests the fake received.
func newTestClient(t *testing.T, tokenType TokenType, handler http.HandlerFunc) (*Client, *atomic.Int32) {
	t.Helper()
	var count atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	apiURL, err := NormalizeAPIURL(srv.URL)
	require.NoError(t, err)

	c, err := NewClient(SessionConfig{
		APIURL:    apiURL,
		Token:     testToken,
		TokenType: tokenType,
		Timeout:   5 * time.Second,
	}, quietLogger())
	require.NoError(t, err)
	return c, &count
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestClientGetMergeRequest(t *testing.T) {
	ref := mustRef(t, "team/sub/proj", 5)

	var gotPath, gotToken, gotUA, gotMethod string
	c, count := newTestClient(t, TokenTypePrivate, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.EscapedPath()
		gotToken = r.Header.Get("PRIVATE-TOKEN")
		gotUA = r.Header.Get("User-Agent")
		writeJSON(w, http.StatusOK, `{"id":101,"iid":5,"title":"Add cache","state":"opened","source_branch":"cache","target_branch":"main"}`)
	})

	mr, err := c.GetMergeRequest(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "Add cache", mr.Title)
	assert.Equal(t, "cache", mr.SourceBranch)

	assert.Equal(t, int32(1), count.Load())
	assert.Equal(t, http.MethodGet, gotMethod)
	assert.Equal(t, "/api/v4/projects/team%2Fsub%2Fproj/merge_requests/5", gotPath)
	assert.Equal(t, testToken, gotToken)
	assert.Equal(t, DefaultUserAgent, gotUA)
}

func TestClientDottedProjectPath(t *testing.T) {
	var gotPath string
	c, _ := newTestClient(t, TokenTypePrivate, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		writeJSON(w, http.StatusOK, `{"iid":2}`)
	})

	_, err := c.GetMergeRequest(context.Background(), mustRef(t, "docs/site.io", 2))
	require.NoError(t, err)
	assert.Equal(t, "/api/v4/projects/docs%2Fsite%2Eio/merge_requests/2", gotPath)
}

func TestClientTokenTypes(t *testing.T) {
	tests := []struct {
		name      string
		tokenType TokenType
		header    string
		want      string
	}{
		{name: "private", tokenType: TokenTypePrivate, header: "PRIVATE-TOKEN", want: testToken},
		{name: "default is private", tokenType: "", header: "PRIVATE-TOKEN", want: testToken},
		{name: "oauth", tokenType: TokenTypeOAuth, header: "Authorization", want: "Bearer " + testToken},
		{name: "job", tokenType: TokenTypeJob, header: "JOB-TOKEN", want: testToken},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			c, _ := newTestClient(t, tc.tokenType, func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get(tc.header)
				writeJSON(w, http.StatusOK, `[]`)
			})
			_, err := c.GetMergeRequestVersions(context.Background(), mustRef(t, 1.0, 1))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClientGetChangesAndVersions(t *testing.T) {
	ref := mustRef(t, 12.0, 3)
	c, _ := newTestClient(t, TokenTypePrivate, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.EscapedPath() {
		case "/api/v4/projects/12/merge_requests/3/changes":
			writeJSON(w, http.StatusOK, `{
				"iid": 3,
				"diff_refs": {"base_sha": "a", "head_sha": "b", "start_sha": "c"},
				"changes": [{"old_path": "a.go", "new_path": "a.go", "diff": "@@ -1 +1 @@", "new_file": false}]
			}`)
		case "/api/v4/projects/12/merge_requests/3/versions":
			writeJSON(w, http.StatusOK, `[
				{"id": 8, "head_commit_sha": "b", "base_commit_sha": "a", "start_commit_sha": "c", "state": "collected", "created_at": "2024-05-01T10:00:00.000Z"},
				{"id": 7, "head_commit_sha": "b0", "base_commit_sha": "a0", "start_commit_sha": "c0", "state": "collected"}
			]`)
		default:
			writeJSON(w, http.StatusNotFound, `{"message":"404 Not found"}`)
		}
	})

	changes, err := c.GetMergeRequestChanges(context.Background(), ref)
	require.NoError(t, err)
	require.Len(t, changes.Changes, 1)
	assert.Equal(t, "a.go", changes.Changes[0].NewPath)
	assert.Equal(t, int64(3), changes.IID)
	assert.Equal(t, "c", changes.DiffRefs.StartSha)

	versions, err := c.GetMergeRequestVersions(context.Background(), ref)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, int64(8), versions[0].ID)
	assert.Equal(t, "a", versions[0].BaseCommitSHA)
	require.NotNil(t, versions[0].CreatedAt)
}

func TestClientCreateDiscussion(t *testing.T) {
	ref := mustRef(t, "group/project", 7)

	var gotBody map[string]any
	var gotContentType, gotPath string
	c, count := newTestClient(t, TokenTypePrivate, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		writeJSON(w, http.StatusCreated, `{"id":"6a9c1750","individual_note":false,"notes":[{"id":1,"body":"Nit","type":"DiffNote"}]}`)
	})

	pos := validPosition()
	discussion, err := c.CreateMergeRequestDiscussion(context.Background(), ref, "Nit", &pos, boolPtr(true))
	require.NoError(t, err)
	assert.Equal(t, "6a9c1750", discussion.ID)

	assert.Equal(t, int32(1), count.Load())
	assert.Equal(t, "/api/v4/projects/group%2Fproject/merge_requests/7/discussions", gotPath)
	assert.Contains(t, gotContentType, "application/json")
	assert.Equal(t, "Nit", gotBody["body"])
	position, ok := gotBody["position"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "text", position["position_type"])
	assert.Equal(t, "a", position["base_sha"])
	assert.InDelta(t, 10, position["new_line"], 0)
	assert.Equal(t, true, gotBody["resolve"])
}

func TestClientCreateDiscussionInvalidSendsNothing(t *testing.T) {
	c, count := newTestClient(t, TokenTypePrivate, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusCreated, `{}`)
	})

	pos := validPosition()
	pos.NewLine = nil
	_, err := c.CreateMergeRequestDiscussion(context.Background(), mustRef(t, 1.0, 1), "x", &pos, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPositionLineMissing)
	assert.Equal(t, int32(0), count.Load())
}

func TestClientCreateNote(t *testing.T) {
	tests := []struct {
		name         string
		confidential *bool
		wantPresent  bool
	}{
		{name: "confidential omitted", confidential: nil},
		{name: "confidential true", confidential: boolPtr(true), wantPresent: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var gotBody map[string]any
			c, _ := newTestClient(t, TokenTypePrivate, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v4/projects/group%2Fproject/merge_requests/7/notes", r.URL.EscapedPath())
				_ = json.NewDecoder(r.Body).Decode(&gotBody)
				writeJSON(w, http.StatusCreated, `{"id":3,"body":"LGTM","system":false}`)
			})

			note, err := c.CreateMergeRequestNote(context.Background(), mustRef(t, "group/project", 7), "LGTM", tc.confidential)
			require.NoError(t, err)
			assert.Equal(t, "LGTM", note.Body)

			_, present := gotBody["confidential"]
			assert.Equal(t, tc.wantPresent, present)
		})
	}
}

func TestClientErrorClassification(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantKind      ErrorKind
		errorContains string
	}{
		{name: "unauthorized", status: 401, body: `{"message":"401 Unauthorized"}`, wantKind: KindUnauthorized, errorContains: "401 Unauthorized"},
		{name: "forbidden", status: 403, body: `{"message":"403 Forbidden"}`, wantKind: KindUnauthorized, errorContains: "403 Forbidden"},
		{name: "not found", status: 404, body: `{"message":"404 Not found"}`, wantKind: KindNotFound, errorContains: "NotFound (404): project or merge request not found"},
		{name: "bad request", status: 400, body: `{"message":"400 Bad request - line_code can't be blank"}`, wantKind: KindValidation, errorContains: "line_code can't be blank"},
		{name: "rate limited", status: 429, body: `Retry later`, wantKind: KindRateLimited, errorContains: "Retry later"},
		{name: "server error", status: 500, body: `{"message":"500 Internal Server Error"}`, wantKind: KindServer, errorContains: "500"},
		{name: "bad gateway", status: 502, body: ``, wantKind: KindServer, errorContains: "Bad Gateway"},
		{name: "conflict", status: 409, body: `{"message":"conflict"}`, wantKind: KindUnexpectedStatus, errorContains: "conflict"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, count := newTestClient(t, TokenTypePrivate, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Retry-After", "1")
				writeJSON(w, tc.status, tc.body)
			})

			_, err := c.GetMergeRequest(context.Background(), mustRef(t, "group/project", 1))
			require.Error(t, err)
			assert.Equal(t, tc.wantKind, KindOf(err))
			assert.Contains(t, err.Error(), tc.errorContains)
			assert.Equal(t, int32(1), count.Load(), "request must not be retried")
		})
	}
}

func TestClientNotFound(t *testing.T) {
	ref := mustRef(t, "group/project", 404)
	pos := validPosition()

	tests := []struct {
		name string
		call func(c *Client) error
	}{
		{name: "GET merge request", call: func(c *Client) error {
			_, err := c.GetMergeRequest(context.Background(), ref)
			return err
		}},
		{name: "GET versions", call: func(c *Client) error {
			_, err := c.GetMergeRequestVersions(context.Background(), ref)
			return err
		}},
		{name: "POST discussion", call: func(c *Client) error {
			_, err := c.CreateMergeRequestDiscussion(context.Background(), ref, "x", &pos, nil)
			return err
		}},
		{name: "POST note", call: func(c *Client) error {
			_, err := c.CreateMergeRequestNote(context.Background(), ref, "x", nil)
			return err
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, count := newTestClient(t, TokenTypePrivate, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.Copy(io.Discard, r.Body)
				writeJSON(w, http.StatusNotFound, `{"message":"404 Merge Request Not Found"}`)
			})

			err := tc.call(c)
			require.Error(t, err)
			assert.Equal(t, KindNotFound, KindOf(err))
			assert.NotContains(t, err.Error(), "may or may not")
			assert.Equal(t, int32(1), count.Load())
		})
	}
}

func TestClientOtherSuccessStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "non-authoritative", status: http.StatusNonAuthoritativeInfo},
		{name: "partial content", status: http.StatusPartialContent},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestClient(t, TokenTypePrivate, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, tc.status, `{"id": 1, "iid": 5, "title": "Refactor"}`)
			})

			mr, err := c.GetMergeRequest(context.Background(), mustRef(t, 1.0, 5))
			require.NoError(t, err)
			assert.Equal(t, int64(5), mr.IID)
			assert.Equal(t, "Refactor", mr.Title)
		})
	}
}

func TestClientWriteIsNotRetried(t *testing.T) {
	c, count := newTestClient(t, TokenTypePrivate, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusServiceUnavailable, `{"message":"503 Service Unavailable"}`)
	})

	_, err := c.CreateMergeRequestNote(context.Background(), mustRef(t, 1.0, 1), "LGTM", nil)
	require.Error(t, err)
	assert.Equal(t, KindServer, KindOf(err))
	assert.Equal(t, int32(1), count.Load())
}

func TestClientUndecodableBody(t *testing.T) {
	c, _ := newTestClient(t, TokenTypePrivate, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html>login</html>")
	})

	_, err := c.GetMergeRequest(context.Background(), mustRef(t, 1.0, 1))
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.Contains(t, err.Error(), "unexpected response body")
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	apiURL, err := NormalizeAPIURL(srv.URL)
	require.NoError(t, err)
	srv.Close()

	c, err := NewClient(SessionConfig{APIURL: apiURL, Token: testToken, Timeout: 2 * time.Second}, quietLogger())
	require.NoError(t, err)

	_, err = c.GetMergeRequest(context.Background(), mustRef(t, 1.0, 1))
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.Contains(t, err.Error(), "could not be reached")

	_, err = c.CreateMergeRequestNote(context.Background(), mustRef(t, 1.0, 1), "x", nil)
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.Contains(t, err.Error(), "may or may not have been applied")
}

func TestClientCancelledWrite(t *testing.T) {
	received := make(chan struct{})
	var once sync.Once
	c, count := newTestClient(t, TokenTypePrivate, func(_ http.ResponseWriter, r *http.Request) {
		// The server only notices the client going away once the body is read.
		_, _ = io.Copy(io.Discard, r.Body)
		once.Do(func() { close(received) })
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-received
		cancel()
	}()

	_, err := c.CreateMergeRequestNote(ctx, mustRef(t, 1.0, 1), "LGTM", nil)
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.Contains(t, err.Error(), "may or may not have applied the write")
	assert.Equal(t, int32(1), count.Load())
}

func TestClientCancelledBeforeSend(t *testing.T) {
	c, count := newTestClient(t, TokenTypePrivate, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetMergeRequest(ctx, mustRef(t, 1.0, 1))
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), count.Load())
}

func TestClientConcurrentCalls(t *testing.T) {
	c, count := newTestClient(t, TokenTypePrivate, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"iid":1,"title":"t"}`)
	})

	ref := mustRef(t, 1.0, 1)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetMergeRequest(context.Background(), ref)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(8), count.Load())
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(SessionConfig{APIURL: "https://gitlab.example.com/api/v4"}, nil)
	assert.ErrorContains(t, err, "token cannot be empty")

	_, err = NewClient(SessionConfig{Token: testToken}, nil)
	assert.ErrorContains(t, err, "API URL cannot be empty")

	_, err = NewClient(SessionConfig{APIURL: "https://gitlab.example.com/api/v4", Token: testToken, TokenType: "deploy"}, nil)
	assert.ErrorContains(t, err, `unknown token type "deploy"`)

	_, err = NewClient(SessionConfig{APIURL: "https://gitlab.example.com/api/v4", Token: testToken, CACertPath: filepath.Join(t.TempDir(), "missing.pem")}, nil)
	assert.ErrorContains(t, err, "failed to read CA certificate")

	badPEM := filepath.Join(t.TempDir(), "bad.pem")
	require.NoError(t, os.WriteFile(badPEM, []byte("not a certificate"), 0o600))
	_, err = NewClient(SessionConfig{APIURL: "https://gitlab.example.com/api/v4", Token: testToken, CACertPath: badPEM}, nil)
	assert.ErrorContains(t, err, "failed to parse CA certificate")

	c, err := NewClient(SessionConfig{APIURL: "https://gitlab.example.com/api/v4", Token: testToken, UserAgent: "review-bot/1.0"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "review-bot/1.0", c.api.UserAgent)
}

func TestNormalizeAPIURL(t *testing.T) {
	tests := []struct {
		input         string
		want          string
		errorContains string
	}{
		{input: "https://gitlab.com", want: "https://gitlab.com/api/v4"},
		{input: "https://gitlab.com/", want: "https://gitlab.com/api/v4"},
		{input: "https://gitlab.com/api/v4", want: "https://gitlab.com/api/v4"},
		{input: "https://gitlab.com/api/v4/", want: "https://gitlab.com/api/v4"},
		{input: "https://gitlab.com/api", want: "https://gitlab.com/api/v4"},
		{input: "http://git.internal:8080/gitlab", want: "http://git.internal:8080/gitlab/api/v4"},
		{input: " https://gitlab.com?x=1 ", want: "https://gitlab.com/api/v4"},
		{input: "", errorContains: "cannot be empty"},
		{input: "gitlab.com", errorContains: "must use http or https"},
		{input: "ftp://gitlab.com", errorContains: "must use http or https"},
		{input: "https://", errorContains: "has no host"},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := NormalizeAPIURL(tc.input)
			if tc.errorContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errorContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
