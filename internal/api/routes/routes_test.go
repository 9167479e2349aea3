package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/princeprakhar/travel-review-backend/internal/config"
	"github.com/princeprakhar/travel-review-backend/internal/database/testutil"
	"github.com/princeprakhar/travel-review-backend/internal/metrics"
	"github.com/princeprakhar/travel-review-backend/internal/services"
	"github.com/princeprakhar/travel-review-backend/internal/storage/memory"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	store  *memory.Storage
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		JWTSecret:          "test-secret",
		RateLimitRPS:       1000,
		CORSAllowedOrigins: []string{"*"},
	}
	db := testutil.NewTestDB(t)
	store := memory.New("reviews", "memory.local")
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	images := services.NewImageService(db, store, services.ImageConfig{
		AllowedExtensions: []string{"png", "jpg", "jpeg", "gif"},
		MaxUploadSize:     64,
		UploadTimeout:     5 * time.Second,
		ReaperCutoff:      time.Hour,
	}, m)

	router := gin.New()
	SetupRoutes(router, db, cfg, images, m, reg)
	return &testServer{t: t, router: router, store: store}
}

func (s *testServer) do(req *http.Request, token string) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (s *testServer) doJSON(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, token)
}

func (s *testServer) signup(email, nickname string) string {
	s.t.Helper()
	w, env := s.doJSON(http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"email": email, "password": "password123", "nickname": nickname,
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())

	var data struct {
		Token struct {
			AccessToken string `json:"access_token"`
		} `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &data))
	return data.Token.AccessToken
}

func (s *testServer) createRoute(token string) uint {
	s.t.Helper()
	w, env := s.doJSON(http.MethodPost, "/api/v1/travel-routes", token, map[string]string{"name": "Busan coast"})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())

	var route struct {
		ID uint `json:"id"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &route))
	return route.ID
}

func (s *testServer) uploadFile(token, name string, content []byte) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(s.t, err)
	_, err = part.Write(content)
	require.NoError(s.t, err)
	require.NoError(s.t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews/images", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return s.do(req, token)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(httptest.NewRequest(http.MethodGet, "/health", nil), "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "travel_review_reaper_sweeps_total")
}

func TestReviewFlow(t *testing.T) {
	s := newTestServer(t)
	alice := s.signup("alice@example.com", "alice")
	bob := s.signup("bob@example.com", "bob")
	routeID := s.createRoute(alice)

	w, env := s.uploadFile(alice, "beach.png", []byte("png-bytes"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var uploaded struct {
		URL        string `json:"url"`
		SourceType string `json:"source_type"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &uploaded))
	assert.Equal(t, "UPLOAD", uploaded.SourceType)

	w, env = s.doJSON(http.MethodPost, "/api/v1/reviews", alice, map[string]interface{}{
		"travelroute_id": routeID,
		"title":          "Sunny",
		"rating":         4.5,
		"content":        "Great beaches",
		"image_urls":     []string{uploaded.URL},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var review services.ReviewResponse
	require.NoError(t, json.Unmarshal(env.Data, &review))
	assert.Equal(t, []string{uploaded.URL}, review.Images)
	assert.Equal(t, "alice", review.Nickname)

	w, env = s.doJSON(http.MethodPost, fmt.Sprintf("/api/v1/reviews/%d/like", review.ID), bob, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = s.doJSON(http.MethodGet, fmt.Sprintf("/api/v1/reviews?page=1&size=5&travelroute_id=%d", routeID), bob, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var list services.ReviewListResponse
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Reviews, 1)
	assert.True(t, list.Reviews[0].LikedByUser)
	assert.Equal(t, 1, list.Reviews[0].LikeCount)
	assert.Equal(t, 1, list.TotalPages)

	// Anonymous viewers see the list without liked flags.
	w, env = s.doJSON(http.MethodGet, "/api/v1/reviews", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.False(t, list.Reviews[0].LikedByUser)

	w, _ = s.doJSON(http.MethodPatch, fmt.Sprintf("/api/v1/reviews/%d", review.ID), bob, map[string]string{"title": "mine now"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = s.doJSON(http.MethodPost, fmt.Sprintf("/api/v1/reviews/%d/comments", review.ID), bob, map[string]string{"content": "Looks fun"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var comment services.CommentResponse
	require.NoError(t, json.Unmarshal(env.Data, &comment))

	w, _ = s.doJSON(http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", comment.ID), alice, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = s.doJSON(http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", comment.ID), bob, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, _ = s.doJSON(http.MethodDelete, fmt.Sprintf("/api/v1/reviews/%d", review.ID), alice, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w, _ = s.doJSON(http.MethodGet, fmt.Sprintf("/api/v1/reviews/%d", review.ID), alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestImageEndpoints_StatusCodes(t *testing.T) {
	s := newTestServer(t)
	token := s.signup("alice@example.com", "alice")

	w, _ := s.uploadFile(token, "notes.txt", []byte("text"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.uploadFile(token, "huge.png", bytes.Repeat([]byte("x"), 65))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Zero(t, s.store.Len())

	w, _ = s.doJSON(http.MethodPost, "/api/v1/reviews/images", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.uploadFile("", "beach.png", []byte("png"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := s.uploadFile(token, "beach.png", []byte("png"))
	require.Equal(t, http.StatusCreated, w.Code)
	var uploaded struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &uploaded))

	w, _ = s.doJSON(http.MethodDelete, "/api/v1/reviews/images", token, map[string]string{"url": uploaded.URL})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, s.store.Len())

	w, _ = s.doJSON(http.MethodDelete, "/api/v1/reviews/images", token, map[string]string{"url": uploaded.URL})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListReviews_BadQuery(t *testing.T) {
	s := newTestServer(t)

	for _, query := range []string{"size=0", "size=abc", "page=0", "order_by=title", "order=up", "travelroute_id=x"} {
		w, _ := s.doJSON(http.MethodGet, "/api/v1/reviews?"+query, "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func TestAuth_Login(t *testing.T) {
	s := newTestServer(t)
	token := s.signup("alice@example.com", "alice")

	w, _ := s.doJSON(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "alice@example.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.doJSON(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "alice@example.com", "password": "password123"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.doJSON(http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.doJSON(http.MethodGet, "/api/v1/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_AccountEndpoints(t *testing.T) {
	s := newTestServer(t)
	token := s.signup("alice@example.com", "alice")

	w, env := s.doJSON(http.MethodPatch, "/api/v1/auth/me", token, map[string]string{
		"nickname": "wanderer", "birthday": "1990-04-12", "gender": "male",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var profile struct {
		Nickname string `json:"nickname"`
		Birthday string `json:"birthday"`
		Gender   string `json:"gender"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.Equal(t, "wanderer", profile.Nickname)
	assert.Equal(t, "1990-04-12", profile.Birthday)
	assert.Equal(t, "male", profile.Gender)

	w, _ = s.doJSON(http.MethodPatch, "/api/v1/auth/me", token, map[string]string{"gender": "robot"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.doJSON(http.MethodPost, "/api/v1/auth/password-check", token, map[string]string{"password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"authentication":true}`, string(env.Data))

	w, env = s.doJSON(http.MethodPost, "/api/v1/auth/password-check", token, map[string]string{"password": "wrong-one"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"authentication":false}`, string(env.Data))

	w, _ = s.doJSON(http.MethodDelete, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, _ = s.doJSON(http.MethodDelete, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.doJSON(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "alice@example.com", "password": "password123"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.doJSON(http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
