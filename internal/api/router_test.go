// Catalogd - Catalog Administration Backend
// Copyright 2026 TMOJ Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tmojlabs/catalogd

package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tmojlabs/catalogd/internal/auth"
	"github.com/tmojlabs/catalogd/internal/authz"
	"github.com/tmojlabs/catalogd/internal/catalog"
	"github.com/tmojlabs/catalogd/internal/config"
	"github.com/tmojlabs/catalogd/internal/store"
)

const testJWTSecret = "test-secret-key-of-at-least-32-chars!"

// testEnv is the assembled application under test: one in-memory store, one
// token per role.
type testEnv struct {
	handler http.Handler
	tokens  map[string]string
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	return setupEnvWithRateLimit(t, 1000)
}

func setupEnvWithRateLimit(t *testing.T, rateLimit int) *testEnv {
	t.Helper()

	s, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})

	security := config.SecurityConfig{
		JWTSecret:              testJWTSecret,
		TokenTTL:               time.Hour,
		RateLimitRequests:      rateLimit,
		LoginAttemptsPerMinute: 100,
	}

	identities := auth.NewIdentityStore(s.DB())
	jwtManager, err := auth.NewJWTManager(security)
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}

	tokens := make(map[string]string)
	for _, role := range []string{auth.RoleAdmin, auth.RoleEditor, auth.RoleViewer} {
		identity, err := identities.Create(context.Background(), role+"-user", "pw-"+role, role)
		if err != nil {
			t.Fatalf("Create(%s) error = %v", role, err)
		}
		token, err := jwtManager.Generate(identity.ID, identity.Role)
		if err != nil {
			t.Fatalf("Generate(%s) error = %v", role, err)
		}
		tokens[role] = token
	}

	enforcer, err := authz.NewEnforcer(authz.EnforcerConfig{})
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}

	services := make(map[catalog.Kind]*catalog.Service)
	for _, kind := range catalog.Kinds {
		schema, err := catalog.SchemaFor(kind)
		if err != nil {
			t.Fatalf("SchemaFor(%s) error = %v", kind, err)
		}
		services[kind] = catalog.NewService(schema, s.Collection(kind))
	}

	router := NewRouter(
		security,
		auth.NewResolver(jwtManager, identities),
		enforcer,
		services,
		NewAuthHandler(auth.NewAuthenticator(identities, jwtManager, security.LoginAttemptsPerMinute)),
		NewHealthHandler("test"),
	)

	return &testEnv{handler: router.Handler(), tokens: tokens}
}

// do performs a request as the given role ("" for anonymous) and decodes the
// envelope.
func (e *testEnv) do(t *testing.T, method, path, role string, body interface{}) (int, Envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if role != "" {
		token, ok := e.tokens[role]
		if !ok {
			t.Fatalf("no token for role %q", role)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)

	var envelope Envelope
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decode envelope from %q: %v", rr.Body.String(), err)
		}
	}
	return rr.Code, envelope
}

func movieBody() map[string]interface{} {
	return map[string]interface{}{
		"title":    "Dune",
		"image":    "https://img.example.com/dune.jpg",
		"url":      "https://stream.example.com/dune",
		"category": "latest",
		"profile":  "julio",
		"platform": "tmoj",
	}
}

// createMovie stores a movie as editor and returns its id.
func (e *testEnv) createMovie(t *testing.T) string {
	t.Helper()
	status, envelope := e.do(t, http.MethodPost, "/api/movies", auth.RoleEditor, movieBody())
	if status != http.StatusCreated {
		t.Fatalf("create movie status = %d, body = %+v", status, envelope)
	}
	data, ok := envelope.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("create movie data = %T", envelope.Data)
	}
	id, _ := data["id"].(string)
	if id == "" {
		t.Fatal("created movie has no id")
	}
	return id
}

func TestAPI_HealthIsPublic(t *testing.T) {
	env := setupEnv(t)

	status, envelope := env.do(t, http.MethodGet, "/api/health", "", nil)
	if status != http.StatusOK {
		t.Fatalf("health status = %d", status)
	}
	if !envelope.Success {
		t.Error("health should report success")
	}
}

func TestAPI_CatalogRequiresAuth(t *testing.T) {
	env := setupEnv(t)

	for _, tt := range []struct{ method, path string }{
		{http.MethodGet, "/api/movies"},
		{http.MethodGet, "/api/series/some-id"},
		{http.MethodPost, "/api/music"},
		{http.MethodPut, "/api/movies/some-id"},
		{http.MethodDelete, "/api/movies/some-id"},
	} {
		status, envelope := env.do(t, tt.method, tt.path, "", nil)
		if status != http.StatusUnauthorized {
			t.Errorf("%s %s status = %d, want 401", tt.method, tt.path, status)
		}
		if envelope.Success {
			t.Errorf("%s %s should not report success", tt.method, tt.path)
		}
	}
}

func TestAPI_CreateAndFetch(t *testing.T) {
	env := setupEnv(t)

	id := env.createMovie(t)

	status, envelope := env.do(t, http.MethodGet, "/api/movies/"+id, auth.RoleViewer, nil)
	if status != http.StatusOK {
		t.Fatalf("get status = %d", status)
	}
	data := envelope.Data.(map[string]interface{})
	if data["title"] != "Dune" {
		t.Errorf("title = %v", data["title"])
	}
	// A record without a badge carries an explicit null, not a missing key.
	badge, present := data["badge"]
	if !present {
		t.Error("badge key should be present")
	}
	if badge != nil {
		t.Errorf("badge = %v, want null", badge)
	}
}

func TestAPI_ListEnvelopeAndFilters(t *testing.T) {
	env := setupEnv(t)

	env.createMovie(t)
	other := movieBody()
	other["title"] = "Alien"
	other["profile"] = "irene"
	other["category"] = "classics"
	if status, _ := env.do(t, http.MethodPost, "/api/movies", auth.RoleEditor, other); status != http.StatusCreated {
		t.Fatalf("create second movie status = %d", status)
	}

	status, envelope := env.do(t, http.MethodGet, "/api/movies", auth.RoleViewer, nil)
	if status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	if envelope.Count == nil || *envelope.Count != 2 {
		t.Errorf("count = %v, want 2", envelope.Count)
	}

	status, envelope = env.do(t, http.MethodGet, "/api/movies?profile=irene&category=classics", auth.RoleViewer, nil)
	if status != http.StatusOK {
		t.Fatalf("filtered list status = %d", status)
	}
	if envelope.Count == nil || *envelope.Count != 1 {
		t.Errorf("filtered count = %v, want 1", envelope.Count)
	}

	// A filter matching nothing is an empty success.
	status, envelope = env.do(t, http.MethodGet, "/api/movies?profile=irene&category=latest", auth.RoleViewer, nil)
	if status != http.StatusOK {
		t.Fatalf("empty list status = %d", status)
	}
	if envelope.Count == nil || *envelope.Count != 0 {
		t.Errorf("empty count = %v, want 0", envelope.Count)
	}
	if !envelope.Success {
		t.Error("empty list should report success")
	}
}

func TestAPI_RoleEnforcement(t *testing.T) {
	env := setupEnv(t)
	id := env.createMovie(t)

	tests := []struct {
		name   string
		method string
		path   string
		role   string
		body   interface{}
		want   int
	}{
		{"viewer reads", http.MethodGet, "/api/movies", auth.RoleViewer, nil, http.StatusOK},
		{"viewer cannot create", http.MethodPost, "/api/movies", auth.RoleViewer, movieBody(), http.StatusForbidden},
		{"viewer cannot update", http.MethodPut, "/api/movies/" + id, auth.RoleViewer, movieBody(), http.StatusForbidden},
		{"viewer cannot delete", http.MethodDelete, "/api/movies/" + id, auth.RoleViewer, nil, http.StatusForbidden},
		{"editor creates", http.MethodPost, "/api/movies", auth.RoleEditor, movieBody(), http.StatusCreated},
		{"editor updates", http.MethodPut, "/api/movies/" + id, auth.RoleEditor, movieBody(), http.StatusOK},
		{"editor cannot delete", http.MethodDelete, "/api/movies/" + id, auth.RoleEditor, nil, http.StatusForbidden},
		{"admin deletes", http.MethodDelete, "/api/movies/" + id, auth.RoleAdmin, nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := env.do(t, tt.method, tt.path, tt.role, tt.body)
			if status != tt.want {
				t.Errorf("status = %d, want %d", status, tt.want)
			}
		})
	}
}

func TestAPI_ForbiddenWritePersistsNothing(t *testing.T) {
	env := setupEnv(t)

	if status, _ := env.do(t, http.MethodPost, "/api/movies", auth.RoleViewer, movieBody()); status != http.StatusForbidden {
		t.Fatal("viewer create should be forbidden")
	}

	_, envelope := env.do(t, http.MethodGet, "/api/movies", auth.RoleViewer, nil)
	if envelope.Count == nil || *envelope.Count != 0 {
		t.Errorf("count = %v, want 0 after rejected write", envelope.Count)
	}
}

func TestAPI_ValidationFailure(t *testing.T) {
	env := setupEnv(t)

	body := movieBody()
	body["title"] = ""
	body["category"] = "horror"

	status, envelope := env.do(t, http.MethodPost, "/api/movies", auth.RoleEditor, body)
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", status)
	}
	if envelope.Success {
		t.Error("validation failure should not report success")
	}
	if envelope.Fields == nil {
		t.Error("validation failure should name the failing fields")
	}
}

func TestAPI_MovieIgnoresArtist(t *testing.T) {
	env := setupEnv(t)

	body := movieBody()
	body["artist"] = "Hans Zimmer"

	status, envelope := env.do(t, http.MethodPost, "/api/movies", auth.RoleEditor, body)
	if status != http.StatusCreated {
		t.Fatalf("create status = %d", status)
	}
	data := envelope.Data.(map[string]interface{})
	if artist, present := data["artist"]; present {
		t.Errorf("movie record carries artist %v, want field dropped", artist)
	}
}

func TestAPI_MusicRequiresArtist(t *testing.T) {
	env := setupEnv(t)

	body := map[string]interface{}{
		"title":    "Discovery",
		"image":    "https://img.example.com/discovery.jpg",
		"url":      "https://stream.example.com/discovery",
		"category": "electronic",
		"profile":  "irene",
		"platform": "tmod",
	}

	if status, _ := env.do(t, http.MethodPost, "/api/music", auth.RoleEditor, body); status != http.StatusUnprocessableEntity {
		t.Errorf("music without artist status = %d, want 422", status)
	}

	body["artist"] = "Daft Punk"
	if status, _ := env.do(t, http.MethodPost, "/api/music", auth.RoleEditor, body); status != http.StatusCreated {
		t.Errorf("music with artist status = %d, want 201", status)
	}
}

func TestAPI_NotFound(t *testing.T) {
	env := setupEnv(t)

	// Missing ids are 404 even for the most privileged role.
	for _, tt := range []struct{ method, path string }{
		{http.MethodGet, "/api/movies/nope"},
		{http.MethodPut, "/api/movies/nope"},
		{http.MethodDelete, "/api/movies/nope"},
	} {
		var body interface{}
		if tt.method == http.MethodPut {
			body = movieBody()
		}
		status, _ := env.do(t, tt.method, tt.path, auth.RoleAdmin, body)
		if status != http.StatusNotFound {
			t.Errorf("%s %s status = %d, want 404", tt.method, tt.path, status)
		}
	}
}

func TestAPI_MalformedBody(t *testing.T) {
	env := setupEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/movies", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+env.tokens[auth.RoleEditor])
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestAPI_UpdatePreservesCreatedAt(t *testing.T) {
	env := setupEnv(t)
	id := env.createMovie(t)

	_, created := env.do(t, http.MethodGet, "/api/movies/"+id, auth.RoleViewer, nil)
	createdAt := created.Data.(map[string]interface{})["createdAt"]

	body := movieBody()
	body["title"] = "Dune Part Two"
	status, updated := env.do(t, http.MethodPut, "/api/movies/"+id, auth.RoleEditor, body)
	if status != http.StatusOK {
		t.Fatalf("update status = %d", status)
	}

	data := updated.Data.(map[string]interface{})
	if data["createdAt"] != createdAt {
		t.Errorf("createdAt changed from %v to %v", createdAt, data["createdAt"])
	}
	if data["title"] != "Dune Part Two" {
		t.Errorf("title = %v", data["title"])
	}
}

func TestAPI_LoginFlow(t *testing.T) {
	env := setupEnv(t)

	status, envelope := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "editor-user",
		"password": "pw-editor",
	})
	if status != http.StatusOK {
		t.Fatalf("login status = %d, body = %+v", status, envelope)
	}

	data := envelope.Data.(map[string]interface{})
	token, _ := data["token"].(string)
	if token == "" {
		t.Fatal("login should return a token")
	}
	user := data["user"].(map[string]interface{})
	if user["role"] != auth.RoleEditor {
		t.Errorf("user role = %v", user["role"])
	}

	// The issued token opens the catalog.
	req := httptest.NewRequest(http.MethodGet, "/api/movies", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("list with issued token status = %d", rr.Code)
	}
}

func TestAPI_LoginRejectsBadCredentials(t *testing.T) {
	env := setupEnv(t)

	status, _ := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "editor-user",
		"password": "wrong",
	})
	if status != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", status)
	}

	status, _ = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{})
	if status != http.StatusBadRequest {
		t.Errorf("empty login status = %d, want 400", status)
	}
}

func TestAPI_Me(t *testing.T) {
	env := setupEnv(t)

	status, envelope := env.do(t, http.MethodGet, "/api/auth/me", auth.RoleAdmin, nil)
	if status != http.StatusOK {
		t.Fatalf("me status = %d", status)
	}
	data := envelope.Data.(map[string]interface{})
	if data["username"] != "admin-user" || data["role"] != auth.RoleAdmin {
		t.Errorf("me = %+v", data)
	}

	if status, _ := env.do(t, http.MethodGet, "/api/auth/me", "", nil); status != http.StatusUnauthorized {
		t.Errorf("anonymous me status = %d, want 401", status)
	}
}

func TestAPI_KindsAreIndependent(t *testing.T) {
	env := setupEnv(t)
	env.createMovie(t)

	for _, path := range []string{"/api/series", "/api/music"} {
		_, envelope := env.do(t, http.MethodGet, path, auth.RoleViewer, nil)
		if envelope.Count == nil || *envelope.Count != 0 {
			t.Errorf("%s count = %v, want 0", path, envelope.Count)
		}
	}
}

func TestAPI_DeleteAcknowledgment(t *testing.T) {
	env := setupEnv(t)
	id := env.createMovie(t)

	status, envelope := env.do(t, http.MethodDelete, "/api/movies/"+id, auth.RoleAdmin, nil)
	if status != http.StatusOK {
		t.Fatalf("delete status = %d", status)
	}
	// The acknowledgment carries an empty data object, not the deleted
	// record and not a bare message.
	data, ok := envelope.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("delete data = %T, want empty object", envelope.Data)
	}
	if len(data) != 0 {
		t.Errorf("delete data = %v, want empty object", data)
	}
	if envelope.Message == "" {
		t.Error("delete should confirm with a message")
	}

	// Idempotence is not offered: the second delete is a 404.
	if status, _ := env.do(t, http.MethodDelete, "/api/movies/"+id, auth.RoleAdmin, nil); status != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", status)
	}
}

func TestAPI_RequestIDHeader(t *testing.T) {
	env := setupEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("responses should carry X-Request-ID")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "caller-chosen")
	rr = httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Request-ID"); got != "caller-chosen" {
		t.Errorf("X-Request-ID = %q, want caller value preserved", got)
	}
}

func TestAPI_RateLimitAnswersInEnvelope(t *testing.T) {
	env := setupEnvWithRateLimit(t, 1)

	// The first request spends the budget; the second is rejected.
	if status, _ := env.do(t, http.MethodGet, "/api/health", "", nil); status != http.StatusOK {
		t.Fatalf("first request status = %d", status)
	}

	status, envelope := env.do(t, http.MethodGet, "/api/health", "", nil)
	if status != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", status)
	}
	if envelope.Success {
		t.Error("rate-limit rejection should not report success")
	}
	if envelope.Error == "" {
		t.Error("rate-limit rejection should carry the envelope error field")
	}
}

func TestAPI_MetricsEndpoint(t *testing.T) {
	env := setupEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("metrics status = %d", rr.Code)
	}
}

func TestAPI_ExpiredToken(t *testing.T) {
	env := setupEnv(t)

	// A token signed with the right secret but already expired.
	expired, err := auth.NewJWTManager(config.SecurityConfig{JWTSecret: testJWTSecret, TokenTTL: -time.Minute})
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	token, err := expired.Generate("whoever", auth.RoleAdmin)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/movies", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expired token status = %d, want 401", rr.Code)
	}
}

func TestAPI_MethodMatrixPerKind(t *testing.T) {
	env := setupEnv(t)

	for _, kind := range catalog.Kinds {
		path := fmt.Sprintf("/api/%s", kind)
		if status, _ := env.do(t, http.MethodGet, path, auth.RoleViewer, nil); status != http.StatusOK {
			t.Errorf("GET %s status = %d", path, status)
		}
	}
}
