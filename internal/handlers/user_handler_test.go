package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/campusworks/user-service/internal/apperrors"
	"github.com/campusworks/user-service/internal/events"
	"github.com/campusworks/user-service/internal/models"
	"github.com/campusworks/user-service/internal/repositories"
	"github.com/campusworks/user-service/internal/services"
	"github.com/campusworks/user-service/internal/validator"
)

// ===== IN-MEMORY REPOSITORY =====

type memUserRepo struct {
	users  map[uint]*models.User
	nextID uint
}

func (m *memUserRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("get user by id: %w", gorm.ErrRecordNotFound)
	}
	copied := *user
	return &copied, nil
}

func (m *memUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("get user by email: %w", gorm.ErrRecordNotFound)
}

func (m *memUserRepo) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	var users []*models.User
	for _, user := range m.users {
		copied := *user
		users = append(users, &copied)
	}
	return users, int64(len(users)), nil
}

func (m *memUserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = m.nextID
	m.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *memUserRepo) Update(ctx context.Context, user *models.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return fmt.Errorf("update user: %w", gorm.ErrRecordNotFound)
	}
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *memUserRepo) Delete(ctx context.Context, id uint) error {
	if _, ok := m.users[id]; !ok {
		return fmt.Errorf("delete user: %w", gorm.ErrRecordNotFound)
	}
	delete(m.users, id)
	return nil
}

func (m *memUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	for _, user := range m.users {
		if user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

type memRepo struct {
	user *memUserRepo
}

func newMemRepo() *memRepo {
	return &memRepo{user: &memUserRepo{users: make(map[uint]*models.User), nextID: 1}}
}

func (m *memRepo) User() repositories.UserRepository { return m.user }
func (m *memRepo) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}
func (m *memRepo) Ping(ctx context.Context) error { return nil }
func (m *memRepo) Close() error                   { return nil }

// ===== TEST SERVER =====

func newTestServer(t *testing.T) (*gin.Engine, *memRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	slogLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1}))
	logger := testLogger()
	repo := newMemRepo()
	v := validator.New()
	publisher := events.NewMockEventPublisher(slogLogger)

	userService := services.NewUserService(repo, nil, slogLogger, v, publisher)
	exportService := services.NewExportService(repo, slogLogger)

	router := gin.New()
	router.Use(ErrorMiddleware(logger, "test", nil, DefaultDriverErrorMappings()))

	userHandler := NewUserHandler(userService, exportService, v, logger)
	healthHandler := NewHealthHandler(repo, logger)
	hm := &HandlerManager{userHandler: userHandler, healthHandler: healthHandler}
	hm.SetupRoutes(router)

	return router, repo
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var body envelope
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal envelope: %v (body: %s)", err, w.Body.String())
	}
	return body
}

// ===== CREATE =====

func TestUserHandler_Create(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/users",
		`{"nome":"Maria Silva","email":"Maria@Example.com","senha":"secret123"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body: %s)", w.Code, w.Body.String())
	}

	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Success {
		t.Error("success should be true")
	}

	raw := string(resp.Data)
	if !strings.Contains(raw, `"email":"maria@example.com"`) {
		t.Errorf("email not normalized: %s", raw)
	}
	if !strings.Contains(raw, `"role":"PROFESSOR"`) {
		t.Errorf("role not defaulted: %s", raw)
	}
	if strings.Contains(raw, "secret123") || strings.Contains(raw, `"senha"`) {
		t.Errorf("password leaked: %s", raw)
	}
}

func TestUserHandler_Create_ValidationEnvelope(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/users",
		`{"nome":"Jo","email":"invalido","senha":"123"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	body := decodeEnvelope(t, w)
	if body.Error.Code != apperrors.CodeValidation {
		t.Errorf("code = %q, want VALIDATION_ERROR", body.Error.Code)
	}

	var details []apperrors.FieldError
	if err := json.Unmarshal(body.Error.Details, &details); err != nil {
		t.Fatalf("unmarshal details: %v", err)
	}
	if len(details) != 3 {
		t.Errorf("got %d details, want 3: %v", len(details), details)
	}
}

func TestUserHandler_Create_Conflict(t *testing.T) {
	router, _ := newTestServer(t)

	payload := `{"nome":"Maria Silva","email":"maria@example.com","senha":"secret123"}`
	if w := doJSON(t, router, http.MethodPost, "/api/v1/users", payload); w.Code != http.StatusCreated {
		t.Fatalf("first create: %d", w.Code)
	}

	w := doJSON(t, router, http.MethodPost, "/api/v1/users", payload)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	body := decodeEnvelope(t, w)
	if body.Error.Code != apperrors.CodeConflict {
		t.Errorf("code = %q, want CONFLICT", body.Error.Code)
	}
}

func TestUserHandler_Create_MissingBody(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/users", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

// ===== GET =====

func TestUserHandler_Get(t *testing.T) {
	router, _ := newTestServer(t)
	doJSON(t, router, http.MethodPost, "/api/v1/users",
		`{"nome":"Maria Silva","email":"maria@example.com","senha":"secret123"}`)

	w := doJSON(t, router, http.MethodGet, "/api/v1/users/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"nome":"Maria Silva"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestUserHandler_Get_InvalidID(t *testing.T) {
	router, _ := newTestServer(t)

	for _, id := range []string{"abc", "-1", "0", "1.5"} {
		w := doJSON(t, router, http.MethodGet, "/api/v1/users/"+id, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("id %q: status = %d, want 400", id, w.Code)
		}
	}
}

func TestUserHandler_Get_NotFound(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/users/999", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	body := decodeEnvelope(t, w)
	if body.Error.Code != apperrors.CodeNotFound {
		t.Errorf("code = %q, want NOT_FOUND", body.Error.Code)
	}
}

// ===== UPDATE =====

func TestUserHandler_Update_Partial(t *testing.T) {
	router, _ := newTestServer(t)
	doJSON(t, router, http.MethodPost, "/api/v1/users",
		`{"nome":"Maria Silva","email":"maria@example.com","senha":"secret123"}`)

	w := doJSON(t, router, http.MethodPut, "/api/v1/users/1", `{"nome":"Maria Souza"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}
	raw := w.Body.String()
	if !strings.Contains(raw, `"nome":"Maria Souza"`) {
		t.Errorf("name not updated: %s", raw)
	}
	if !strings.Contains(raw, `"email":"maria@example.com"`) {
		t.Errorf("email should be untouched: %s", raw)
	}
}

func TestUserHandler_Update_UnknownFieldRejected(t *testing.T) {
	router, repo := newTestServer(t)
	doJSON(t, router, http.MethodPost, "/api/v1/users",
		`{"nome":"Maria Silva","email":"maria@example.com","senha":"secret123"}`)

	w := doJSON(t, router, http.MethodPut, "/api/v1/users/1", `{"nomee":"Maria Souza"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (body: %s)", w.Code, w.Body.String())
	}
	body := decodeEnvelope(t, w)
	if !strings.Contains(string(body.Error.Details), "nomee") {
		t.Errorf("details should name the unknown field: %s", body.Error.Details)
	}
	if repo.user.users[1].Name != "Maria Silva" {
		t.Error("record must stay untouched on rejected update")
	}
}

func TestUserHandler_Update_EmptyPayload(t *testing.T) {
	router, _ := newTestServer(t)
	doJSON(t, router, http.MethodPost, "/api/v1/users",
		`{"nome":"Maria Silva","email":"maria@example.com","senha":"secret123"}`)

	w := doJSON(t, router, http.MethodPut, "/api/v1/users/1", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	body := decodeEnvelope(t, w)
	if !strings.Contains(string(body.Error.Details), "at least one field") {
		t.Errorf("details = %s", body.Error.Details)
	}
}

func TestUserHandler_Update_ClearPhoto(t *testing.T) {
	router, repo := newTestServer(t)
	doJSON(t, router, http.MethodPost, "/api/v1/users",
		`{"nome":"Maria Silva","email":"maria@example.com","senha":"secret123","foto":"https://cdn.example.com/a.png"}`)

	w := doJSON(t, router, http.MethodPut, "/api/v1/users/1", `{"foto":null}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}
	if repo.user.users[1].Photo != nil {
		t.Error("photo should be cleared by explicit null")
	}
}

// ===== DELETE =====

func TestUserHandler_Delete(t *testing.T) {
	router, repo := newTestServer(t)
	doJSON(t, router, http.MethodPost, "/api/v1/users",
		`{"nome":"Maria Silva","email":"maria@example.com","senha":"secret123"}`)

	w := doJSON(t, router, http.MethodDelete, "/api/v1/users/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"email":"maria@example.com"`) {
		t.Errorf("deleted snapshot missing: %s", w.Body.String())
	}
	if len(repo.user.users) != 0 {
		t.Error("user should be removed")
	}

	w = doJSON(t, router, http.MethodDelete, "/api/v1/users/1", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

// ===== LIST / EXPORT / HEALTH / NOROUTE =====

func TestUserHandler_List(t *testing.T) {
	router, _ := newTestServer(t)
	doJSON(t, router, http.MethodPost, "/api/v1/users",
		`{"nome":"Maria Silva","email":"maria@example.com","senha":"secret123"}`)
	doJSON(t, router, http.MethodPost, "/api/v1/users",
		`{"nome":"Joao Souza","email":"joao@example.com","senha":"secret123"}`)

	w := doJSON(t, router, http.MethodGet, "/api/v1/users", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Success bool              `json:"success"`
		Data    []json.RawMessage `json:"data"`
		Total   int64             `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Total != 2 || len(resp.Data) != 2 {
		t.Errorf("total=%d len=%d, want 2/2", resp.Total, len(resp.Data))
	}
}

func TestUserHandler_Export(t *testing.T) {
	router, _ := newTestServer(t)
	doJSON(t, router, http.MethodPost, "/api/v1/users",
		`{"nome":"Maria Silva","email":"maria@example.com","senha":"secret123"}`)

	w := doJSON(t, router, http.MethodGet, "/api/v1/users/export", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheet") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, ".xlsx") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if w.Body.Len() == 0 {
		t.Error("body should carry the workbook")
	}
}

func TestHealthHandler(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"healthy"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestNoRouteEnvelope(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodGet, "/nope", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	body := decodeEnvelope(t, w)
	if body.Error.Code != apperrors.CodeNotFound || body.Path != "/nope" {
		t.Errorf("envelope = %+v", body)
	}
}
