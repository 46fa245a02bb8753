package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/portfolio/internal/auth"
	"github.com/sakif/portfolio/internal/model"
	"github.com/sakif/portfolio/internal/realtime"
	"github.com/sakif/portfolio/internal/repository"
	"github.com/sakif/portfolio/internal/repository/memory"
	"github.com/sakif/portfolio/internal/repository/redisstore"
	"github.com/sakif/portfolio/internal/server"
	"github.com/sakif/portfolio/internal/service"
)

// =========================================================================
// FIXTURES
// =========================================================================

type fixture struct {
	handler http.Handler
	hub     *realtime.Hub
	store   *memory.Store
}

// newFixture wires the whole API over the seeded in-memory store with no
// artificial latency. views may be nil.
func newFixture(t *testing.T, views repository.ViewCounter) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	hub := realtime.NewHub(logger)
	store := memory.New(memory.WithPublisher(hub))
	passwords := auth.NewPasswordServiceForTest(4)
	require.NoError(t, store.Seed(context.Background(), passwords))

	tokens, err := auth.NewTokenService("test-secret-0123456789", time.Hour)
	require.NoError(t, err)

	svc := server.Services{
		Auth:     service.NewAuthService(store.Users(), tokens, passwords, nil, nil, logger),
		Users:    service.NewUserService(store.Users(), nil, logger),
		Projects: service.NewProjectService(store.Projects(), nil, logger),
		Blogs:    service.NewBlogService(store.Blogs(), nil, logger),
		Comments: service.NewCommentService(store.Comments(), store.Users(), nil, logger),
		Likes:    service.NewLikeService(store.Likes(), nil, logger),
		Views:    service.NewViewService(views, nil, logger),
		Tokens:   tokens,
		Live:     hub,
	}
	srv := server.New(server.Config{Port: 0}, svc, logger)
	return &fixture{handler: srv.Handler(), hub: hub, store: store}
}

func (f *fixture) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

// signIn returns the session token of a seeded account.
func (f *fixture) signIn(t *testing.T, email, password string) string {
	t.Helper()
	rr := f.do(t, http.MethodPost, "/api/auth/signin", "", `{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var s model.Session
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&s))
	require.NotEmpty(t, s.Token)
	return s.Token
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), rr.Body.String())
	return v
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

// =========================================================================
// TESTS
// =========================================================================

func TestHealthz(t *testing.T) {
	f := newFixture(t, nil)
	rr := f.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodGet, "/api/projects", "", "")

	rr := f.do(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "portfolio_")
}

func TestAuthFlow(t *testing.T) {
	f := newFixture(t, nil)

	t.Run("sign in sets the token cookie", func(t *testing.T) {
		rr := f.do(t, http.MethodPost, "/api/auth/signin", "", `{"email":"john@example.com","password":"user123"}`)
		require.Equal(t, http.StatusOK, rr.Code)

		var cookie *http.Cookie
		for _, c := range rr.Result().Cookies() {
			if c.Name == auth.TokenCookie {
				cookie = c
			}
		}
		require.NotNil(t, cookie)
		assert.True(t, cookie.HttpOnly)

		s := decode[model.Session](t, rr)
		assert.Equal(t, "user-2", s.User.ID)
		assert.Equal(t, cookie.Value, s.Token)
		assert.Empty(t, s.User.PasswordHash)
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		for _, body := range []string{
			`{"email":"john@example.com","password":"nope"}`,
			`{"email":"nobody@example.com","password":"user123"}`,
		} {
			rr := f.do(t, http.MethodPost, "/api/auth/signin", "", body)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			e := decode[errorBody](t, rr)
			assert.Equal(t, "invalid_credentials", e.Error)
			assert.Equal(t, "Invalid email or password", e.Message)
		}
	})

	t.Run("session then sign out revokes the token", func(t *testing.T) {
		token := f.signIn(t, "jane@example.com", "user123")

		rr := f.do(t, http.MethodGet, "/api/auth/session", token, "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "user-3", decode[model.Session](t, rr).User.ID)

		rr = f.do(t, http.MethodPost, "/api/auth/signout", token, "")
		require.Equal(t, http.StatusOK, rr.Code)

		rr = f.do(t, http.MethodGet, "/api/auth/session", token, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("session requires a token", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, "/api/auth/session", "", "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("sign up", func(t *testing.T) {
		rr := f.do(t, http.MethodPost, "/api/auth/signup", "", `{"email":"new@example.com","password":"pw","full_name":"New Person"}`)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		s := decode[model.Session](t, rr)
		assert.Equal(t, model.RoleUser, s.User.Role)
		assert.Equal(t, "New Person", s.User.DisplayName)

		rr = f.do(t, http.MethodPost, "/api/auth/signup", "", `{"email":"new@example.com","password":"pw"}`)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("no oauth providers in demo mode", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, "/api/auth/providers", "", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"providers":[]}`, rr.Body.String())

		rr = f.do(t, http.MethodGet, "/api/auth/oauth/github", "", "")
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}

func TestCommentFlow(t *testing.T) {
	f := newFixture(t, nil)
	john := f.signIn(t, "john@example.com", "user123")
	jane := f.signIn(t, "jane@example.com", "user123")
	admin := f.signIn(t, "admin@example.com", "admin123")

	rr := f.do(t, http.MethodPost, "/api/project/project-1/comments", "", `{"content":"hello"}`)
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "please log in to comment", decode[errorBody](t, rr).Message)

	rr = f.do(t, http.MethodPost, "/api/project/project-1/comments", john, `{"content":"  "}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "content", decode[errorBody](t, rr).Field)

	rr = f.do(t, http.MethodPost, "/api/project/project-1/comments", john, `{"content":"  Great project "}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[model.Comment](t, rr)
	assert.Equal(t, "Great project", created.Content)
	assert.Equal(t, "user-2", created.UserID)

	rr = f.do(t, http.MethodGet, "/api/project/project-1/comments", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	thread := decode[[]model.CommentView](t, rr)
	require.NotEmpty(t, thread)
	assert.Equal(t, created.ID, thread[0].ID)
	require.NotNil(t, thread[0].Author)
	assert.Equal(t, "user-2", thread[0].Author.ID)

	rr = f.do(t, http.MethodPatch, "/api/comments/"+created.ID, jane, `{"content":"hijacked"}`)
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "only the author can edit this comment", decode[errorBody](t, rr).Message)

	rr = f.do(t, http.MethodPatch, "/api/comments/"+created.ID, john, `{"content":"Great project!"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Great project!", decode[model.Comment](t, rr).Content)

	rr = f.do(t, http.MethodDelete, "/api/comments/"+created.ID, jane, "")
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = f.do(t, http.MethodDelete, "/api/comments/"+created.ID, admin, "")
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = f.do(t, http.MethodDelete, "/api/comments/"+created.ID, admin, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	t.Run("listing every comment is admin only", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/api/comments", john, "").Code)
		rr := f.do(t, http.MethodGet, "/api/comments", admin, "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Len(t, decode[[]model.CommentView](t, rr), 6)
	})
}

func TestLikeToggle(t *testing.T) {
	f := newFixture(t, nil)
	john := f.signIn(t, "john@example.com", "user123")

	rr := f.do(t, http.MethodPost, "/api/project/project-3/likes", "", "")
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "please log in to like", decode[errorBody](t, rr).Message)

	rr = f.do(t, http.MethodPost, "/api/project/project-3/likes", john, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, model.ToggleResult{Liked: true, Count: 1}, decode[model.ToggleResult](t, rr))

	rr = f.do(t, http.MethodGet, "/api/project/project-3/likes", john, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, model.LikeData{Count: 1, HasLiked: true}, decode[model.LikeData](t, rr))

	rr = f.do(t, http.MethodGet, "/api/project/project-3/likes", "", "")
	assert.Equal(t, model.LikeData{Count: 1, HasLiked: false}, decode[model.LikeData](t, rr))

	rr = f.do(t, http.MethodPost, "/api/project/project-3/likes", john, "")
	assert.Equal(t, model.ToggleResult{Liked: false, Count: 0}, decode[model.ToggleResult](t, rr))

	t.Run("own likes only", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, "/api/users/user-3/likes", john, "")
		require.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, "you can only view your own likes", decode[errorBody](t, rr).Message)

		rr = f.do(t, http.MethodGet, "/api/users/user-2/likes", john, "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Len(t, decode[[]model.Like](t, rr), 3)
	})
}

func TestViews(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		f := newFixture(t, nil)
		rr := f.do(t, http.MethodPost, "/api/project/ecommerce-platform/views", "", "")
		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Equal(t, "not_configured", decode[errorBody](t, rr).Error)
	})

	t.Run("redis counter", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })

		f := newFixture(t, redisstore.New(client))
		for range 2 {
			rr := f.do(t, http.MethodPost, "/api/blog/getting-started-with-react/views", "", "")
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		}
		rr := f.do(t, http.MethodGet, "/api/blog/getting-started-with-react/views", "", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, int64(2), decode[model.ViewCount](t, rr).Count)
	})
}

func TestAdminRoutes(t *testing.T) {
	f := newFixture(t, nil)
	john := f.signIn(t, "john@example.com", "user123")
	admin := f.signIn(t, "admin@example.com", "admin123")

	rr := f.do(t, http.MethodGet, "/api/users", john, "")
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "admin access required", decode[errorBody](t, rr).Message)

	rr = f.do(t, http.MethodGet, "/api/users", admin, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]model.User](t, rr), 3)

	project := `{"slug":"cli-tool","title":"CLI Tool","description":"A terminal app","category":"Backend"}`
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPost, "/api/projects", john, project).Code)

	rr = f.do(t, http.MethodPost, "/api/projects", admin, project)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "cli-tool", decode[model.Project](t, rr).Slug)

	rr = f.do(t, http.MethodPost, "/api/projects", admin, project)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = f.do(t, http.MethodDelete, "/api/users/user-1", admin, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestProfileRoutes(t *testing.T) {
	f := newFixture(t, nil)
	john := f.signIn(t, "john@example.com", "user123")

	rr := f.do(t, http.MethodPatch, "/api/users/user-3", john, `{"bio":"not mine"}`)
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "you can only edit your own profile", decode[errorBody](t, rr).Message)

	rr = f.do(t, http.MethodPatch, "/api/users/user-2", john, `{"bio":"Gopher"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Gopher", decode[model.User](t, rr).Bio)

	rr = f.do(t, http.MethodPatch, "/api/users/user-2", john, `{"bio":"x","unknown":1}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, http.MethodGet, "/api/users/username-available?username=zzz_unused", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"available":true}`, rr.Body.String())
}

func TestDeletedAccountTokenIsAnonymous(t *testing.T) {
	f := newFixture(t, nil)
	jane := f.signIn(t, "jane@example.com", "user123")
	require.NoError(t, f.store.Users().Remove(context.Background(), "user-3"))

	rr := f.do(t, http.MethodPost, "/api/project/project-1/likes", jane, "")
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "please log in to like", decode[errorBody](t, rr).Message)

	rr = f.do(t, http.MethodGet, "/api/projects", jane, "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestBlogDraftsHiddenFromReaders(t *testing.T) {
	f := newFixture(t, nil)
	admin := f.signIn(t, "admin@example.com", "admin123")

	draft := `{"slug":"draft-post","title":"Draft","content":"wip","author_id":"user-1","published":false}`
	rr := f.do(t, http.MethodPost, "/api/blogs", admin, draft)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/blogs/draft-post", "", "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/blogs/draft-post", admin, "").Code)
}

func TestLiveFeed(t *testing.T) {
	f := newFixture(t, nil)
	john := f.signIn(t, "john@example.com", "user123")

	rr := f.do(t, http.MethodGet, "/api/live", "", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/live?table=comments&entity_type=project&entity_id=project-2"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The subscription is registered right after the upgrade.
	require.Eventually(t, func() bool { return f.hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	// A comment elsewhere must not show up.
	rr = f.do(t, http.MethodPost, "/api/project/project-1/comments", john, `{"content":"other"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/project/project-2/comments", bytes.NewBufferString(`{"content":"live"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+john)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Type   string          `json:"type"`
		Change realtime.Change `json:"change"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "change", msg.Type)
	assert.Equal(t, realtime.OpInsert, msg.Change.Op)
	assert.Equal(t, "project-2", msg.Change.Topic.EntityID)
}
