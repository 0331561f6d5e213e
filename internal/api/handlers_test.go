package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/mandrill-gateway/internal/config"
	"github.com/ignite/mandrill-gateway/internal/deliverylog"
	"github.com/ignite/mandrill-gateway/internal/gateway"
	"github.com/ignite/mandrill-gateway/internal/sendtemplate"
)

type stubLister struct {
	entries []deliverylog.Entry
	err     error
	limit   int
}

func (s *stubLister) Recent(_ context.Context, limit int) ([]deliverylog.Entry, error) {
	s.limit = limit
	return s.entries, s.err
}

// setupTestServer wires the router to a fake Mandrill that answers with respond.
func setupTestServer(t *testing.T, respond http.HandlerFunc, sends deliverylog.Lister) (http.Handler, *gateway.Registry) {
	t.Helper()
	return setupTestServerWithConfig(t, respond, sends, config.ServerConfig{
		AllowedOrigins: []string{"http://localhost:5173"},
	})
}

func setupTestServerWithConfig(t *testing.T, respond http.HandlerFunc, sends deliverylog.Lister, srv config.ServerConfig) (http.Handler, *gateway.Registry) {
	t.Helper()
	mandrillServer := httptest.NewServer(respond)
	t.Cleanup(mandrillServer.Close)

	cfg := config.MandrillConfig{
		Name:           "mandrill",
		Environment:    "live",
		BaseURL:        mandrillServer.URL,
		TimeoutSeconds: 5,
		Environments: map[string]config.MandrillEnvironment{
			"live": {Endpoints: map[string]config.MandrillEndpoint{
				"default": {Token: "live-token"},
				"empty":   {Token: ""},
			}},
			"sandbox": {Endpoints: map[string]config.MandrillEndpoint{
				"default": {Token: "sandbox-token"},
			}},
		},
	}
	reg, err := gateway.NewRegistry(cfg)
	require.NoError(t, err)

	h := NewHandlers(sendtemplate.NewSender(reg), sends)
	return SetupRoutes(h, srv), reg
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

const sendBody = `{
	"slug": "welcome",
	"merge_language": "handlebars",
	"subject": "Welcome!",
	"from": {"email": "noreply@example.com", "name": "Example"},
	"to": [
		{"email": "a@example.com", "name": "A", "merge_tags": {"zip": "12345", "city": "Springfield"}},
		{"email": "b@example.com"}
	],
	"tags": ["onboarding"],
	"content": {"z": "1", "a": "2"},
	"global_merge_tags": {"count": 3, "company": "Acme"}
}`

func TestHealthCheck(t *testing.T) {
	handler, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {}, nil)

	rec := doRequest(t, handler, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "mandrill", body["gateway"])
	assert.Equal(t, "live", body["environment"])
}

func TestSendTemplate_Success(t *testing.T) {
	var sent map[string]json.RawMessage
	handler, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		w.Write([]byte(`[{"email":"a@example.com","status":"sent","_id":"a1"},{"email":"b@example.com","status":"queued","_id":"b1"}]`))
	}, nil)

	rec := doRequest(t, handler, http.MethodPost, "/api/send-template", sendBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["successful"])
	assert.Equal(t, "a1:b1", body["reference_id"])
	assert.NotContains(t, body, "message")
	assert.Len(t, body["data"], 2)

	// object key order from the request survives into the vendor payload
	assert.Equal(t, `[{"name":"z","content":"1"},{"name":"a","content":"2"}]`, string(sent["template_content"]))

	var msg struct {
		GlobalMergeVars json.RawMessage `json:"global_merge_vars"`
		MergeVars       json.RawMessage `json:"merge_vars"`
	}
	require.NoError(t, json.Unmarshal(sent["message"], &msg))
	assert.Equal(t, `[{"name":"count","content":3},{"name":"company","content":"Acme"}]`, string(msg.GlobalMergeVars))
	assert.Equal(t,
		`[{"rcpt":"a@example.com","vars":[{"name":"zip","content":"12345"},{"name":"city","content":"Springfield"}]},{"rcpt":"b@example.com","vars":[]}]`,
		string(msg.MergeVars))
}

func TestSendTemplate_Rejected(t *testing.T) {
	handler, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"email":"a@example.com","status":"rejected","reject_reason":"spam"},{"email":"b@example.com","status":"sent"}]`))
	}, nil)

	rec := doRequest(t, handler, http.MethodPost, "/api/send-template", sendBody)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, false, body["successful"])
	assert.Equal(t, "spam", body["message"])
	assert.NotContains(t, body, "reference_id")
}

func TestSendTemplate_ValidationErrors(t *testing.T) {
	handler, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("mandrill should not be called")
	}, nil)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"slug":`},
		{"unknown field", `{"slug":"x","bogus":1}`},
		{"missing sender", `{"slug":"x","from":{"email":""},"to":[{"email":"a@example.com"}]}`},
		{"blank recipient", `{"slug":"x","from":{"email":"f@example.com"},"to":[{"email":" "}]}`},
		{"missing slug", `{"slug":"","from":{"email":"f@example.com"},"to":[{"email":"a@example.com"}]}`},
		{"no recipients", `{"slug":"x","from":{"email":"f@example.com"},"to":[]}`},
		{"merge tags not an object", `{"slug":"x","from":{"email":"f@example.com"},"to":[{"email":"a@example.com","merge_tags":["a"]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, handler, http.MethodPost, "/api/send-template", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestSendTemplate_VendorError(t *testing.T) {
	handler, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"status":"error","code":5,"name":"Unknown_Template","message":"No such template \"welcome\""}`))
	}, nil)

	rec := doRequest(t, handler, http.MethodPost, "/api/send-template", sendBody)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "Unknown_Template", body["code"])
	assert.Equal(t, `No such template "welcome"`, body["error"])
}

func TestSendTemplate_ConfigurationErrors(t *testing.T) {
	handler, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("mandrill should not be called")
	}, nil)

	for _, endpoint := range []string{"missing", "empty"} {
		body := `{"endpoint":"` + endpoint + `","slug":"x","from":{"email":"f@example.com"},"to":[{"email":"a@example.com"}]}`
		rec := doRequest(t, handler, http.MethodPost, "/api/send-template", body)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "configuration_error", decodeBody(t, rec)["code"])
	}
}

func TestPing(t *testing.T) {
	handler, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/ping.json", r.URL.Path)
		w.Write([]byte(`"PONG!"`))
	}, nil)

	rec := doRequest(t, handler, http.MethodGet, "/api/gateway/ping", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "PONG!", body["status"])
	assert.Equal(t, "default", body["endpoint"])

	rec = doRequest(t, handler, http.MethodGet, "/api/gateway/ping?endpoint=nope", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestEnvironmentSwitch(t *testing.T) {
	handler, reg := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {}, nil)

	rec := doRequest(t, handler, http.MethodGet, "/api/gateway/environment", "")
	assert.Equal(t, "live", decodeBody(t, rec)["environment"])

	rec = doRequest(t, handler, http.MethodPost, "/api/gateway/environment", `{"environment":"sandbox"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sandbox", decodeBody(t, rec)["environment"])
	assert.Equal(t, gateway.Sandbox, reg.Environment())

	rec = doRequest(t, handler, http.MethodPost, "/api/gateway/environment", `{"environment":"staging"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, gateway.Sandbox, reg.Environment())
}

func TestEnvironmentSwitch_RequiresAdminToken(t *testing.T) {
	handler, reg := setupTestServerWithConfig(t, func(w http.ResponseWriter, r *http.Request) {}, nil,
		config.ServerConfig{AdminToken: "s3cret"})

	post := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/gateway/environment", bytes.NewBufferString(`{"environment":"sandbox"}`))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("X-Admin-Token", token)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	rec := post("")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, gateway.Live, reg.Environment())

	rec = post("wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, gateway.Live, reg.Environment())

	rec = post("s3cret")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, gateway.Sandbox, reg.Environment())

	// Reads stay open.
	rec = doRequest(t, handler, http.MethodGet, "/api/gateway/environment", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecentSends(t *testing.T) {
	lister := &stubLister{entries: []deliverylog.Entry{{Slug: "welcome", Successful: true}}}
	handler, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {}, lister)

	rec := doRequest(t, handler, http.MethodGet, "/api/sends?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["count"])
	assert.Equal(t, 10, lister.limit)

	rec = doRequest(t, handler, http.MethodGet, "/api/sends?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	lister.err = errors.New("db gone")
	rec = doRequest(t, handler, http.MethodGet, "/api/sends", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 50, lister.limit)
}

func TestRecentSends_NotConfigured(t *testing.T) {
	handler, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {}, nil)

	rec := doRequest(t, handler, http.MethodGet, "/api/sends", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	handler, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/send-template", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
