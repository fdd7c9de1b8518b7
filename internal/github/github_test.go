package github

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blog-sync/internal/auth"
)

func testPEM(t *testing.T) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}))
}

// fakeGitHub serves the three endpoints the App flow touches.
type fakeGitHub struct {
	installationStatus int
	installationBody   string

	lookups   atomic.Int32
	tokens    atomic.Int32
	mutations atomic.Int32

	lastAuth  atomic.Value
	lastInput atomic.Value
}

func (f *fakeGitHub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/blog/installation", func(w http.ResponseWriter, r *http.Request) {
		f.lookups.Add(1)
		f.lastAuth.Store(r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.github.v3+json", r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.WriteHeader(f.installationStatus)
		_, _ = w.Write([]byte(f.installationBody))
	})
	mux.HandleFunc("/app/installations/42/access_tokens", func(w http.ResponseWriter, r *http.Request) {
		f.tokens.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token":      "ghs_installation",
			"expires_at": time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		f.mutations.Add(1)
		assert.Equal(t, "token ghs_installation", r.Header.Get("Authorization"))

		var req struct {
			Query     string `json:"query"`
			Variables struct {
				Input map[string]any `json:"input"`
			} `json:"variables"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		assert.Contains(t, req.Query, "updateDiscussion(input: $input)")
		f.lastInput.Store(req.Variables.Input)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"updateDiscussion": map[string]any{
					"discussion": map[string]any{
						"id":    req.Variables.Input["discussionId"],
						"title": req.Variables.Input["title"],
						"body":  req.Variables.Input["body"],
					},
				},
			},
		})
	})
	return mux
}

func newTestApp(t *testing.T, f *fakeGitHub) (*App, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return &App{
		Credential:   auth.AppCredential{AppID: "1001", PrivateKey: strings.ReplaceAll(testPEM(t), "\n", `\n`)},
		Repo:         "owner/blog",
		WebsiteURL:   "https://x.test",
		Minter:       auth.NewMinter(),
		Resolver:     NewInstallationResolver(srv.URL, srv.Client()),
		Synchronizer: NewSynchronizer(srv.URL, srv.URL+"/graphql", nil),
	}, srv
}

func TestCanonicalTitle(t *testing.T) {
	for _, raw := range []string{"Hello World", "zh/Hello World", "", "z", "a zh/b", "zh", "zh/"} {
		once := CanonicalTitle(raw)
		assert.True(t, strings.HasPrefix(once, LocalePrefix), "title %q", raw)
		assert.Equal(t, once, CanonicalTitle(once), "title %q", raw)
	}
	assert.Equal(t, "zh/Hello World", CanonicalTitle("Hello World"))
	assert.Equal(t, "zh/Hello World", CanonicalTitle("zh/Hello World"))
	assert.Equal(t, "zh/a zh/b", CanonicalTitle("a zh/b"))
}

func TestCanonicalBody(t *testing.T) {
	body := CanonicalBody("Hello World", "https://x.test")
	assert.Equal(t, "\n**English**: https://x.test/Hello World\n**中文**: https://x.test/zh/Hello World\n", body)

	body = CanonicalBody("zh/Hello World", "https://x.test")
	assert.Equal(t, "\n**English**: https://x.test/Hello World\n**中文**: https://x.test/zh/Hello World\n", body)
}

func TestResolve_Success(t *testing.T) {
	f := &fakeGitHub{installationStatus: http.StatusOK, installationBody: `{"id": 42, "app_id": 1001}`}
	app, _ := newTestApp(t, f)

	inst, err := app.Installation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), inst.InstallationID)
	assert.Equal(t, "owner/blog", inst.Repo)
	assert.True(t, strings.HasPrefix(f.lastAuth.Load().(string), "Bearer "))
}

func TestResolve_StatusErrors(t *testing.T) {
	cases := []struct {
		status    int
		retryable bool
	}{
		{http.StatusNotFound, false},
		{http.StatusUnauthorized, false},
		{http.StatusBadGateway, true},
	}
	for _, tc := range cases {
		f := &fakeGitHub{installationStatus: tc.status, installationBody: `{"message":"nope"}`}
		app, _ := newTestApp(t, f)

		_, err := app.Installation(context.Background())
		var resErr *AuthResolutionError
		require.True(t, errors.As(err, &resErr), "status %d: %v", tc.status, err)
		assert.Equal(t, tc.status, resErr.Status)
		assert.Equal(t, `{"message":"nope"}`, resErr.Body)
		assert.Equal(t, tc.retryable, resErr.Retryable())
	}
}

func TestResolve_BadBody(t *testing.T) {
	f := &fakeGitHub{installationStatus: http.StatusOK, installationBody: `not json`}
	app, _ := newTestApp(t, f)

	_, err := app.Installation(context.Background())
	var resErr *AuthResolutionError
	require.ErrorAs(t, err, &resErr)
}

func TestResolve_InvalidRepo(t *testing.T) {
	r := NewInstallationResolver("http://127.0.0.1:1", nil)
	_, err := r.Resolve(context.Background(), "no-slash", auth.SignedAssertion{Token: "x"})
	require.Error(t, err)
}

func TestSyncDiscussion_UpdatesTitleAndBody(t *testing.T) {
	f := &fakeGitHub{installationStatus: http.StatusOK, installationBody: `{"id": 42}`}
	app, _ := newTestApp(t, f)

	rec, err := app.SyncDiscussion(context.Background(), "D_kwDO", "Hello World")
	require.NoError(t, err)
	assert.Equal(t, "D_kwDO", rec.ID)
	assert.Equal(t, "zh/Hello World", rec.Title)
	assert.Equal(t, CanonicalBody("Hello World", "https://x.test"), rec.Body)

	input := f.lastInput.Load().(map[string]any)
	assert.Equal(t, "zh/Hello World", input["title"])
	assert.Equal(t, int32(1), f.mutations.Load())
	assert.Equal(t, int32(1), f.tokens.Load())
}

func TestSyncDiscussion_ResolutionFailureSkipsMutation(t *testing.T) {
	f := &fakeGitHub{installationStatus: http.StatusNotFound, installationBody: `{"message":"Not Found"}`}
	app, _ := newTestApp(t, f)

	_, err := app.SyncDiscussion(context.Background(), "D_kwDO", "Hello World")
	var resErr *AuthResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, http.StatusNotFound, resErr.Status)
	assert.Equal(t, int32(0), f.mutations.Load())
	assert.Equal(t, int32(0), f.tokens.Load())
}

func TestSyncDiscussion_FreshAssertionPerCall(t *testing.T) {
	f := &fakeGitHub{installationStatus: http.StatusOK, installationBody: `{"id": 42}`}
	app, _ := newTestApp(t, f)

	for i := 0; i < 2; i++ {
		_, err := app.SyncDiscussion(context.Background(), "D_kwDO", "zh/post")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), f.lookups.Load())
	assert.Equal(t, int32(2), f.tokens.Load())
}

func TestUpdate_RemoteFailureIsSyncError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/access_tokens") {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"token":"t","expires_at":"2099-01-01T00:00:00Z"}`))
			return
		}
		_, _ = w.Write([]byte(`{"errors":[{"message":"Could not resolve to a node"}]}`))
	}))
	defer srv.Close()

	s := NewSynchronizer(srv.URL, srv.URL+"/graphql", nil)
	_, err := s.Update(context.Background(), "D_missing", "post", Auth{AppID: "1", PrivateKey: testPEM(t), InstallationID: 42, WebsiteURL: "https://x.test"})

	var syncErr *SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, "D_missing", syncErr.DiscussionID)
	assert.Equal(t, "zh/post", syncErr.Title)
}

func TestUpdate_BadCredentials(t *testing.T) {
	s := NewSynchronizer("http://127.0.0.1:1", "http://127.0.0.1:1/graphql", nil)

	_, err := s.Update(context.Background(), "D", "post", Auth{AppID: "abc", PrivateKey: testPEM(t), InstallationID: 1})
	assert.True(t, auth.IsCredentialError(err))

	_, err = s.Update(context.Background(), "D", "post", Auth{AppID: "1", PrivateKey: "garbage", InstallationID: 1})
	assert.True(t, auth.IsCredentialError(err))
}
