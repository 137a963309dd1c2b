package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"townsquare/internal/config"
	"townsquare/internal/featureflags"
	"townsquare/internal/notifications"
	"townsquare/internal/service"
	"townsquare/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testSecret = "server-test-secret-0123456789abcdef"

type testEnv struct {
	server *Server
	app    *fiber.App
	users  *testutil.UserStore
	posts  *testutil.PostStore
	tokens *service.TokenService
}

// newTestEnv builds a Server over in-memory stores.
func newTestEnv(t *testing.T, flags string) *testEnv {
	t.Helper()

	users := testutil.NewUserStore()
	posts := testutil.NewPostStore(users)
	cfg := &config.Config{
		Port:                 "0",
		JWTSecret:            testSecret,
		JWTTTL:               time.Hour,
		FeatureFlags:         flags,
		UploadDir:            t.TempDir(),
		ImageMaxUploadSizeMB: 2,
		AllowedOrigins:       "http://localhost:5173",
	}
	tokens := service.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	featureFlags := featureflags.Parse(flags)
	hub := notifications.NewHub()
	images := service.NewImageStore(cfg)

	s := &Server{
		config:       cfg,
		tokens:       tokens,
		hub:          hub,
		notifier:     notifications.NewNotifier(nil),
		featureFlags: featureFlags,
		imageStore:   images,
		authService:  service.NewAuthService(users, tokens),
		postService: service.NewPostService(posts, images,
			notifications.NewFeedPublisher(nil, hub), featureFlags),
		userService: service.NewUserService(users, posts),
	}

	return &testEnv{server: s, app: s.NewApp(), users: users, posts: posts, tokens: tokens}
}

func (e *testEnv) token(t *testing.T, id uuid.UUID) string {
	t.Helper()
	tok, err := e.tokens.Issue(id)
	require.NoError(t, err)
	return tok
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any, token string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return do(t, app, req)
}

func doMultipart(t *testing.T, app *fiber.App, path, content string, image []byte, token string) (*http.Response, []byte) {
	t.Helper()

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	if content != "" {
		require.NoError(t, w.WriteField("content", content))
	}
	if image != nil {
		part, err := w.CreateFormFile("image", "photo.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return do(t, app, req)
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeError(t *testing.T, data []byte) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(data, &body), string(data))
	return body
}
