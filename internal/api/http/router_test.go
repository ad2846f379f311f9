package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

const testSecret = "router-test-secret-with-enough-bytes"

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type ticketBody struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	OwnerID     string    `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	store := repository.NewMemoryStore()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	service.NewAuditService(dispatcher, zap.NewNop(), metrics).RegisterHandlers()

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:   store.Users(),
		Tokens:     auth.NewTokenManager(testSecret, time.Hour),
		Dispatcher: dispatcher,
		Metrics:    metrics,
		BcryptCost: bcrypt.MinCost,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: store.Tickets(),
		Dispatcher: dispatcher,
	})
	validate := handlers.NewValidator()

	return httptransport.NewApp(httptransport.AppConfig{
		Name:           "helpdesk-test",
		RequestTimeout: 5 * time.Second,
		Routes: httptransport.RouteConfig{
			Health:         handlers.NewHealthHandler("helpdesk-service", "test", nil),
			Auth:           handlers.NewAuthHandler(authService, validate),
			Tickets:        handlers.NewTicketsHandler(ticketService, validate),
			AuthMiddleware: auth.NewAuthMiddleware(authService),
			Metrics:        metrics,
		},
	})
}

func do(t *testing.T, app *fiber.App, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			b, err := json.Marshal(body)
			require.NoError(t, err)
			raw = string(b)
		}
		reader = strings.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func registerAndLogin(t *testing.T, app *fiber.App, email string) (token, userID string) {
	t.Helper()
	status, _ := do(t, app, fiber.MethodPost, "/api/auth/register", "", fiber.Map{"email": email, "password": "pw123456"})
	require.Equal(t, fiber.StatusCreated, status)

	status, body := do(t, app, fiber.MethodPost, "/api/auth/login", "", fiber.Map{"email": email, "password": "pw123456"})
	require.Equal(t, fiber.StatusOK, status, string(body))
	login := decode[struct {
		Token  string `json:"token"`
		UserID string `json:"userId"`
	}](t, body)
	require.NotEmpty(t, login.Token)
	return login.Token, login.UserID
}

func TestTicketLifecycleScenario(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, fiber.MethodPost, "/api/auth/register", "", fiber.Map{"email": "a@x.com", "password": "pw123456"})
	require.Equal(t, fiber.StatusCreated, status, string(body))
	reg := decode[struct {
		Message string `json:"message"`
		User    struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}](t, body)
	assert.NotEmpty(t, reg.Message)
	assert.Equal(t, "a@x.com", reg.User.Email)
	assert.NotContains(t, string(body), "password")

	status, body = do(t, app, fiber.MethodPost, "/api/auth/login", "", fiber.Map{"email": "a@x.com", "password": "pw123456"})
	require.Equal(t, fiber.StatusOK, status, string(body))
	login := decode[struct {
		Token     string    `json:"token"`
		UserID    string    `json:"userId"`
		ExpiresAt time.Time `json:"expiresAt"`
	}](t, body)
	assert.Equal(t, reg.User.ID, login.UserID)
	assert.True(t, login.ExpiresAt.After(time.Now()))

	status, body = do(t, app, fiber.MethodPost, "/api/tickets", login.Token, fiber.Map{
		"title":       "Printer down",
		"description": "Floor 3",
		"priority":    "High",
		"status":      "Completed",
	})
	require.Equal(t, fiber.StatusCreated, status, string(body))
	created := decode[ticketBody](t, body)
	assert.Equal(t, "New", created.Status)
	assert.Equal(t, "High", created.Priority)
	assert.Equal(t, login.UserID, created.OwnerID)

	status, body = do(t, app, fiber.MethodPut, "/api/tickets/"+created.ID, login.Token, fiber.Map{"status": "In Progress"})
	require.Equal(t, fiber.StatusOK, status, string(body))
	assert.Equal(t, "In Progress", decode[ticketBody](t, body).Status)

	status, body = do(t, app, fiber.MethodDelete, "/api/tickets/"+created.ID, login.Token, nil)
	require.Equal(t, fiber.StatusOK, status, string(body))
	assert.NotEmpty(t, decode[map[string]string](t, body)["message"])

	status, body = do(t, app, fiber.MethodGet, "/api/tickets", login.Token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))
}

func TestBearerFailures(t *testing.T) {
	app := newTestApp(t)

	expiredIssuer := auth.NewTokenManager(testSecret, time.Hour).
		WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })
	expired, _, err := expiredIssuer.GenerateToken("owner-1")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", "INVALID_TOKEN"},
		{"wrong scheme", "Basic abc", "INVALID_TOKEN"},
		{"garbage token", "Bearer not-a-jwt", "INVALID_TOKEN"},
		{"expired token", "Bearer " + expired, "EXPIRED_TOKEN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, "/api/tickets", nil)
			if tt.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			defer resp.Body.Close()
			data, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, tt.code, decode[errorEnvelope](t, data).Error.Code)
		})
	}
}

func TestRegisterErrors(t *testing.T) {
	app := newTestApp(t)
	registerAndLogin(t, app, "a@x.io")

	status, body := do(t, app, fiber.MethodPost, "/api/auth/register", "", fiber.Map{"email": "a@x.io", "password": "pw123456"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "DUPLICATE_EMAIL", decode[errorEnvelope](t, body).Error.Code)

	status, body = do(t, app, fiber.MethodPost, "/api/auth/register", "", fiber.Map{"email": "not-an-email", "password": "pw"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	env := decode[errorEnvelope](t, body)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Details, "email")
	assert.Contains(t, env.Error.Details, "password")

	status, body = do(t, app, fiber.MethodPost, "/api/auth/register", "", `{"email":`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", decode[errorEnvelope](t, body).Error.Code)
}

func TestLoginFailuresLookIdentical(t *testing.T) {
	app := newTestApp(t)
	registerAndLogin(t, app, "a@x.io")

	wrongStatus, wrongBody := do(t, app, fiber.MethodPost, "/api/auth/login", "", fiber.Map{"email": "a@x.io", "password": "nope"})
	ghostStatus, ghostBody := do(t, app, fiber.MethodPost, "/api/auth/login", "", fiber.Map{"email": "ghost@x.io", "password": "nope"})

	assert.Equal(t, fiber.StatusBadRequest, wrongStatus)
	assert.Equal(t, wrongStatus, ghostStatus)
	assert.JSONEq(t, string(wrongBody), string(ghostBody))
	assert.Equal(t, "INVALID_CREDENTIALS", decode[errorEnvelope](t, wrongBody).Error.Code)
}

func TestTicketErrors(t *testing.T) {
	app := newTestApp(t)
	alice, _ := registerAndLogin(t, app, "alice@x.io")
	bob, _ := registerAndLogin(t, app, "bob@x.io")

	status, body := do(t, app, fiber.MethodPost, "/api/tickets", alice, fiber.Map{"title": "t", "description": "d"})
	require.Equal(t, fiber.StatusCreated, status)
	ticket := decode[ticketBody](t, body)
	assert.Equal(t, "Medium", ticket.Priority)

	t.Run("validation", func(t *testing.T) {
		status, body := do(t, app, fiber.MethodPost, "/api/tickets", alice, fiber.Map{"title": "", "description": "d"})
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, "VALIDATION_ERROR", decode[errorEnvelope](t, body).Error.Code)

		status, body = do(t, app, fiber.MethodPost, "/api/tickets", alice, fiber.Map{"title": "t", "description": "d", "priority": "Urgent"})
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Contains(t, decode[errorEnvelope](t, body).Error.Details, "priority")

		status, _ = do(t, app, fiber.MethodPut, "/api/tickets/"+ticket.ID, alice, fiber.Map{"status": "Closed"})
		assert.Equal(t, fiber.StatusBadRequest, status)
	})

	t.Run("illegal transition", func(t *testing.T) {
		status, body := do(t, app, fiber.MethodPut, "/api/tickets/"+ticket.ID, alice, fiber.Map{"status": "Completed"})
		assert.Equal(t, fiber.StatusConflict, status)
		env := decode[errorEnvelope](t, body)
		assert.Equal(t, "ILLEGAL_TRANSITION", env.Error.Code)
		assert.Equal(t, "New", env.Error.Details["from"])
	})

	t.Run("same status is idempotent", func(t *testing.T) {
		status, body := do(t, app, fiber.MethodPut, "/api/tickets/"+ticket.ID, alice, fiber.Map{"status": "New"})
		require.Equal(t, fiber.StatusOK, status)
		again := decode[ticketBody](t, body)
		assert.Equal(t, "New", again.Status)
		assert.False(t, again.UpdatedAt.Before(ticket.UpdatedAt))
	})

	t.Run("other owner sees not found", func(t *testing.T) {
		status, body := do(t, app, fiber.MethodPut, "/api/tickets/"+ticket.ID, bob, fiber.Map{"status": "In Progress"})
		assert.Equal(t, fiber.StatusNotFound, status)
		assert.Equal(t, "NOT_FOUND", decode[errorEnvelope](t, body).Error.Code)

		status, _ = do(t, app, fiber.MethodDelete, "/api/tickets/"+ticket.ID, bob, nil)
		assert.Equal(t, fiber.StatusNotFound, status)

		_, body = do(t, app, fiber.MethodGet, "/api/tickets", bob, nil)
		assert.JSONEq(t, `[]`, string(body))
	})

	t.Run("double delete", func(t *testing.T) {
		status, _ := do(t, app, fiber.MethodDelete, "/api/tickets/"+ticket.ID, alice, nil)
		assert.Equal(t, fiber.StatusOK, status)
		status, body := do(t, app, fiber.MethodDelete, "/api/tickets/"+ticket.ID, alice, nil)
		assert.Equal(t, fiber.StatusNotFound, status)
		assert.Equal(t, "NOT_FOUND", decode[errorEnvelope](t, body).Error.Code)
	})
}

func TestSearchAndStatsEndpoints(t *testing.T) {
	app := newTestApp(t)
	token, _ := registerAndLogin(t, app, "a@x.io")

	for _, in := range []fiber.Map{
		{"title": "Login bug", "description": "locked out", "priority": "High"},
		{"title": "Printer jam", "description": "tray 2", "priority": "Low"},
		{"title": "Slow page", "description": "a BUG in reports", "priority": "Medium"},
	} {
		status, body := do(t, app, fiber.MethodPost, "/api/tickets", token, in)
		require.Equal(t, fiber.StatusCreated, status, string(body))
	}

	_, body := do(t, app, fiber.MethodGet, "/api/tickets", token, nil)
	all := decode[[]ticketBody](t, body)
	require.Len(t, all, 3)
	assert.Equal(t, "Slow page", all[0].Title)
	assert.Equal(t, "Login bug", all[2].Title)

	status, _ := do(t, app, fiber.MethodPut, "/api/tickets/"+all[0].ID, token, fiber.Map{"status": "In Progress"})
	require.Equal(t, fiber.StatusOK, status)

	q := url.Values{"q": {"BUG"}, "status": {"All"}}
	_, body = do(t, app, fiber.MethodGet, "/api/tickets?"+q.Encode(), token, nil)
	found := decode[[]ticketBody](t, body)
	require.Len(t, found, 2)
	for _, tk := range found {
		assert.NotEqual(t, "Printer jam", tk.Title)
	}

	q = url.Values{"status": {"In Progress"}}
	_, body = do(t, app, fiber.MethodGet, "/api/tickets?"+q.Encode(), token, nil)
	inProgress := decode[[]ticketBody](t, body)
	require.Len(t, inProgress, 1)
	assert.Equal(t, "Slow page", inProgress[0].Title)

	q = url.Values{"q": {"bug"}}
	status, body = do(t, app, fiber.MethodGet, "/api/tickets/stats?"+q.Encode(), token, nil)
	require.Equal(t, fiber.StatusOK, status, string(body))
	assert.JSONEq(t, `{"total":2,"highCount":1,"mediumCount":1,"lowCount":0,"completedCount":0,"completionPercent":0}`, string(body))

	q = url.Values{"status": {"Closed"}}
	status, body = do(t, app, fiber.MethodGet, "/api/tickets/stats?"+q.Encode(), token, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", decode[errorEnvelope](t, body).Error.Code)
}

func TestHealthMetricsAndUnknownRoutes(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, fiber.MethodGet, "/health/live", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(body), "alive")

	status, _ = do(t, app, fiber.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, body = do(t, app, fiber.MethodGet, "/nope", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", decode[errorEnvelope](t, body).Error.Code)

	status, body = do(t, app, fiber.MethodGet, "/metrics", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, bytes.Contains(body, []byte("helpdesk_http_requests_total")))
	assert.True(t, bytes.Contains(body, []byte("helpdesk_http_errors_total")))
}
