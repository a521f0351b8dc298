package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dealflow/internal/services"

	"github.com/gofiber/fiber/v2"
)

// testAuth stands in for the JWT middleware: identity comes from headers
func testAuth(c *fiber.Ctx) error {
	user := c.Get("X-Test-User")
	if user == "" {
		user = "seller-1"
	}
	role := c.Get("X-Test-Role")
	if role == "" {
		role = "seller"
	}
	c.Locals("user_id", user)
	c.Locals("user_role", role)
	return c.Next()
}

func newTestApp() (*fiber.App, *services.TaskService) {
	taskStore := services.NewMemoryTaskStore()
	profileStore := services.NewMemoryProfileStore()

	taskService := services.NewTaskService(taskStore)
	collectionService := services.NewTaskCollectionService(taskStore)
	contextService := services.NewSellerContextService(profileStore, nil, nil, time.Minute)

	taskHandler := NewTaskHandler(taskService, collectionService, contextService)
	profileHandler := NewProfileHandler(contextService)

	app := fiber.New()
	api := app.Group("/api/v1", testAuth)
	api.Post("/tasks", taskHandler.CreateTask)
	api.Get("/tasks/daily", taskHandler.DailyView)
	api.Get("/tasks/archived", taskHandler.ArchivedView)
	api.Get("/tasks/:id", taskHandler.GetTask)
	api.Post("/tasks/:id/start", taskHandler.StartTask)
	api.Post("/tasks/:id/complete", taskHandler.CompleteTask)
	api.Post("/tasks/:id/skip", taskHandler.SkipTask)
	api.Post("/tasks/:id/dismiss", taskHandler.DismissTask)
	api.Post("/tasks/:id/snooze", taskHandler.SnoozeTask)
	api.Post("/tasks/:id/restore", taskHandler.RestoreTask)
	api.Get("/profile", profileHandler.GetProfile)
	api.Get("/profile/prompt-context", profileHandler.GetPromptContext)
	api.Put("/profile/context", profileHandler.UpdateCustomContext)

	return app, taskService
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	var parsed map[string]any
	if len(raw) > 0 && resp.Header.Get("Content-Type") != fiber.MIMETextPlainCharsetUTF8 {
		if err := json.Unmarshal(raw, &parsed); err != nil {
			t.Fatalf("Unmarshal failed: %v (body: %s)", err, raw)
		}
	}
	return resp, parsed
}

func createTaskViaAPI(t *testing.T, app *fiber.App, scheduledAt time.Time) string {
	t.Helper()
	resp, body := doJSON(t, app, "POST", "/api/v1/tasks", map[string]any{
		"title":        "Call Acme",
		"kind":         "call",
		"scheduled_at": scheduledAt.Format(time.RFC3339),
	}, nil)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("Expected 201, got %d: %v", resp.StatusCode, body)
	}
	id, _ := body["id"].(string)
	if id == "" {
		t.Fatalf("Expected task id in response, got: %v", body)
	}
	return id
}

func TestCompleteEndToEnd(t *testing.T) {
	app, _ := newTestApp()
	now := time.Now().UTC()

	id := createTaskViaAPI(t, app, now)

	resp, _ := doJSON(t, app, "POST", "/api/v1/tasks/"+id+"/start", nil, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200 on start, got %d", resp.StatusCode)
	}

	resp, body := doJSON(t, app, "POST", "/api/v1/tasks/"+id+"/complete", map[string]any{
		"notes":           "they signed",
		"outcome":         "success",
		"actual_duration": 25,
	}, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200 on complete, got %d: %v", resp.StatusCode, body)
	}
	if body["profile_updated"] != true {
		t.Errorf("Expected profile_updated true, got: %v", body["profile_updated"])
	}
	task, _ := body["task"].(map[string]any)
	if task == nil || task["status"] != "completed" {
		t.Errorf("Expected completed task in response, got: %v", body)
	}

	// the completion shows up in the profile
	resp, body = doJSON(t, app, "GET", "/api/v1/profile", nil, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200 on profile, got %d", resp.StatusCode)
	}
	stats, _ := body["stats"].(map[string]any)
	if stats == nil || stats["total_completed"] != float64(1) {
		t.Errorf("Expected total_completed 1, got: %v", body["stats"])
	}

	// retried complete maps to 409
	resp, body = doJSON(t, app, "POST", "/api/v1/tasks/"+id+"/complete", map[string]any{
		"notes":   "they signed",
		"outcome": "success",
	}, nil)
	if resp.StatusCode != fiber.StatusConflict {
		t.Errorf("Expected 409 on retried complete, got %d", resp.StatusCode)
	}
	if body["kind"] != "invalid_transition" {
		t.Errorf("Expected invalid_transition kind, got: %v", body["kind"])
	}
}

func TestErrorStatusMapping(t *testing.T) {
	app, _ := newTestApp()
	now := time.Now().UTC()
	id := createTaskViaAPI(t, app, now)

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantKind   string
	}{
		{
			name:   "validation failure on complete",
			method: "POST", path: "/api/v1/tasks/" + id + "/start",
			wantStatus: fiber.StatusOK,
		},
		{
			name:   "missing notes",
			method: "POST", path: "/api/v1/tasks/" + id + "/complete",
			body:       map[string]any{"outcome": "success"},
			wantStatus: fiber.StatusBadRequest,
			wantKind:   "validation_failed",
		},
		{
			name:   "restore of in_progress task",
			method: "POST", path: "/api/v1/tasks/" + id + "/restore",
			wantStatus: fiber.StatusConflict,
			wantKind:   "invalid_transition",
		},
		{
			name:   "unknown task",
			method: "POST", path: "/api/v1/tasks/64f000000000000000000000/start",
			wantStatus: fiber.StatusNotFound,
			wantKind:   "not_found",
		},
		{
			name:   "malformed task id",
			method: "GET", path: "/api/v1/tasks/not-an-id",
			wantStatus: fiber.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doJSON(t, app, tt.method, tt.path, tt.body, nil)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("Expected %d, got %d: %v", tt.wantStatus, resp.StatusCode, body)
			}
			if tt.wantKind != "" && body["kind"] != tt.wantKind {
				t.Errorf("Expected kind %q, got: %v", tt.wantKind, body["kind"])
			}
		})
	}
}

func TestDailyAndArchivedViews(t *testing.T) {
	app, _ := newTestApp()

	today := time.Now().UTC().Truncate(24 * time.Hour).Add(10 * time.Hour)
	todayStr := today.Format("2006-01-02")

	id := createTaskViaAPI(t, app, today)
	snoozeTarget := today.AddDate(0, 0, 7)
	resp, _ := doJSON(t, app, "POST", "/api/v1/tasks/"+id+"/snooze", map[string]any{
		"until":  snoozeTarget.Format(time.RFC3339),
		"reason": "prospect on vacation",
	}, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200 on snooze, got %d", resp.StatusCode)
	}

	// snoozed task left the daily view
	resp, body := doJSON(t, app, "GET", fmt.Sprintf("/api/v1/tasks/daily?today=%s", todayStr), nil, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200 on daily, got %d", resp.StatusCode)
	}
	todayBucket, _ := body["today"].([]any)
	if len(todayBucket) != 0 {
		t.Errorf("Expected empty today bucket after snooze, got %d tasks", len(todayBucket))
	}
	if body["today_completion_percent"] != float64(0) {
		t.Errorf("Expected 0 completion percent, got: %v", body["today_completion_percent"])
	}

	// it shows up in the archive instead
	resp, body = doJSON(t, app, "GET", "/api/v1/tasks/archived", nil, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200 on archived, got %d", resp.StatusCode)
	}
	snoozed, _ := body["snoozed"].([]any)
	if len(snoozed) != 1 {
		t.Fatalf("Expected 1 snoozed task, got %d", len(snoozed))
	}

	// restore brings it back under its snoozed-to day
	resp, _ = doJSON(t, app, "POST", "/api/v1/tasks/"+id+"/restore", nil, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200 on restore, got %d", resp.StatusCode)
	}
	resp, body = doJSON(t, app, "GET", fmt.Sprintf("/api/v1/tasks/daily?today=%s", snoozeTarget.Format("2006-01-02")), nil, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200 on daily, got %d", resp.StatusCode)
	}
	todayBucket, _ = body["today"].([]any)
	if len(todayBucket) != 1 {
		t.Errorf("Expected restored task under its snooze target day, got %d tasks", len(todayBucket))
	}
}

func TestProfileAccessControl(t *testing.T) {
	app, _ := newTestApp()

	// sellers cannot read other sellers' profiles
	resp, _ := doJSON(t, app, "GET", "/api/v1/profile?seller_id=seller-2", nil, nil)
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("Expected 403 for cross-seller read, got %d", resp.StatusCode)
	}

	// admins can
	resp, body := doJSON(t, app, "GET", "/api/v1/profile?seller_id=seller-2", nil, map[string]string{
		"X-Test-User": "admin-1",
		"X-Test-Role": "admin",
	})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200 for admin read, got %d", resp.StatusCode)
	}
	if body["seller_id"] != "seller-2" {
		t.Errorf("Expected seller-2 profile, got: %v", body["seller_id"])
	}

	// context edits are admin-only
	resp, _ = doJSON(t, app, "PUT", "/api/v1/profile/context", map[string]any{
		"seller_id": "seller-1",
		"context":   map[string]any{"instructions": "be concise"},
	}, nil)
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("Expected 403 for non-admin context edit, got %d", resp.StatusCode)
	}

	resp, body = doJSON(t, app, "PUT", "/api/v1/profile/context", map[string]any{
		"seller_id": "seller-1",
		"name":      "Jordan",
		"context":   map[string]any{"instructions": "be concise"},
	}, map[string]string{"X-Test-Role": "admin"})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200 for admin context edit, got %d", resp.StatusCode)
	}
	custom, _ := body["custom"].(map[string]any)
	if custom == nil || custom["instructions"] != "be concise" {
		t.Errorf("Expected instructions persisted, got: %v", body["custom"])
	}
}

func TestPromptContextEndpoint(t *testing.T) {
	app, _ := newTestApp()

	req := httptest.NewRequest("GET", "/api/v1/profile/prompt-context", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if !bytes.HasPrefix(raw, []byte("SELLER PROFILE: seller-1")) {
		t.Errorf("Expected plain-text profile document, got: %q", raw)
	}
}
