package api

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/chorushq/chorus/pkg/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(authenticated bool) *fiber.App {
	app := fiber.New()
	if authenticated {
		app.Use(func(c *fiber.Ctx) error {
			c.Locals("user", models.Account{BaseModel: models.BaseModel{ID: 1}, Name: "tester"})
			return c.Next()
		})
	}
	MapAPIs(app, "/api")
	return app
}

func TestRoutesRequireAuthentication(t *testing.T) {
	app := newTestApp(false)

	cases := []struct {
		method string
		path   string
	}{
		{"GET", "/api/users/me"},
		{"GET", "/api/whats-new"},
		{"GET", "/api/conversations/"},
		{"GET", "/api/channels/1/messages"},
		{"POST", "/api/messages/1/forward"},
		{"GET", "/api/messages/saved"},
		{"GET", "/api/links/unfurl?url=http://example.com"},
	}

	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestListMessageRejectsBadCursor(t *testing.T) {
	app := newTestApp(true)

	req := httptest.NewRequest("GET", "/api/channels/1/messages?cursor=garbage", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestNewMessageRejectsMalformedBody(t *testing.T) {
	app := newTestApp(true)

	req := httptest.NewRequest("POST", "/api/channels/1/messages", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestForwardNeedsExactlyOneTarget(t *testing.T) {
	app := newTestApp(true)

	for _, body := range []string{`{}`, `{"channel_id": 1, "conversation_id": 2}`} {
		req := httptest.NewRequest("POST", "/api/messages/1/forward", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "body %s", body)
	}
}

func TestQuickReplyTokenGate(t *testing.T) {
	app := newTestApp(false)

	req := httptest.NewRequest("POST", "/api/quick/1/reply/2", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	req = httptest.NewRequest("POST", "/api/quick/1/reply/2?replyToken=bogus", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAttachmentIdValidation(t *testing.T) {
	app := newTestApp(true)

	req := httptest.NewRequest("GET", "/api/attachments/o/not-a-uuid", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	req = httptest.NewRequest("DELETE", "/api/attachments/not-a-uuid", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Storage is not configured in tests, valid ids stop at the blob store.
	req = httptest.NewRequest("DELETE", "/api/attachments/0b541c38-aa8e-4a9e-b8f0-13d1da55f20a", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	req = httptest.NewRequest("POST", "/api/attachments/", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestUnfurlEndpoint(t *testing.T) {
	app := newTestApp(true)

	req := httptest.NewRequest("GET", "/api/links/unfurl", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Loopback targets are refused before any connection, yielding null.
	req = httptest.NewRequest("GET", "/api/links/unfurl?url=http://127.0.0.1/x", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "null", strings.TrimSpace(string(body)))
}
