package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"NEAR-Swarm/internal/agent"
	"NEAR-Swarm/internal/auth"
	xerrors "NEAR-Swarm/internal/errors"
	"NEAR-Swarm/internal/storage/mysql"
	"NEAR-Swarm/internal/web3/near"
)

type stubAgent struct {
	status    agent.Status
	balance   near.Balance
	balErr    error
	result    json.RawMessage
	execErr   error
	executed  []agent.Action
	history   []mysql.ActionRecord
	histErr   error
	lastLimit int
}

func (s *stubAgent) Status() agent.Status { return s.status }

func (s *stubAgent) Balance(context.Context) (near.Balance, error) { return s.balance, s.balErr }

func (s *stubAgent) ExecuteAction(_ context.Context, action agent.Action) (json.RawMessage, error) {
	s.executed = append(s.executed, action)
	return s.result, s.execErr
}

func (s *stubAgent) History(_ context.Context, limit int) ([]mysql.ActionRecord, error) {
	s.lastLimit = limit
	return s.history, s.histErr
}

func serve(t *testing.T, stub *stubAgent, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	srv := NewServer(":0", stub, WithMetrics(false))
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var payload map[string]errorBody
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return payload["error"]
}

func TestStatusEndpoint(t *testing.T) {
	t.Parallel()

	stub := &stubAgent{status: agent.Status{Running: true, Network: "testnet", AccountID: "agent.testnet", NodeURL: "http://node"}}
	rec := serve(t, stub, http.MethodGet, "/api/v1/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status code %d", rec.Code)
	}
	var got agent.Status
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != stub.status {
		t.Fatalf("unexpected status %+v", got)
	}
}

func TestBalanceEndpoint(t *testing.T) {
	t.Parallel()

	stub := &stubAgent{balance: near.Balance{Total: "300", Staked: "100", Available: "200"}}
	rec := serve(t, stub, http.MethodGet, "/api/v1/balance", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status code %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"available":"200"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}

	stub.balErr = xerrors.Wrap(xerrors.CodeRPCFailure, errors.New("503"), "查询账户余额失败")
	rec = serve(t, stub, http.MethodGet, "/api/v1/balance", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestExecuteActionEndpoint(t *testing.T) {
	t.Parallel()

	stub := &stubAgent{result: json.RawMessage(`{"status":{"SuccessValue":""}}`)}
	body := `{"type":"transaction","params":{"receiver_id":"bob.testnet","actions":[{"type":"transfer","deposit":"1"}]}}`
	rec := serve(t, stub, http.MethodPost, "/api/v1/actions", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status code %d: %s", rec.Code, rec.Body.String())
	}
	if len(stub.executed) != 1 || stub.executed[0].Type != "transaction" || stub.executed[0].Params["receiver_id"] != "bob.testnet" {
		t.Fatalf("unexpected dispatched action %+v", stub.executed)
	}
	if _, ok := stub.executed[0].Params["actions"].([]any); !ok {
		t.Fatalf("actions should decode as a list")
	}
	if !strings.Contains(rec.Body.String(), `"result":{"status"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestExecuteActionErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err    error
		status int
	}{
		{xerrors.New(xerrors.CodeActionValidation, "交易缺少 receiver_id"), http.StatusBadRequest},
		{xerrors.New(xerrors.CodeUnsupportedAction, "不支持的动作类型: swap"), http.StatusBadRequest},
		{xerrors.New(xerrors.CodeNotRunning, "智能体未运行"), http.StatusConflict},
		{xerrors.New(xerrors.CodeRPCFailure, ""), http.StatusBadGateway},
		{xerrors.Wrap(xerrors.CodeRPCFailure, fmt.Errorf("请求 NEAR 节点失败: %w", context.DeadlineExceeded), "查询访问密钥失败"), http.StatusGatewayTimeout},
		{xerrors.New(xerrors.CodeTimeout, ""), http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		stub := &stubAgent{execErr: tc.err}
		rec := serve(t, stub, http.MethodPost, "/api/v1/actions", `{"type":"transaction","params":{"x":1}}`)
		if rec.Code != tc.status {
			t.Fatalf("error %v: expected %d, got %d", tc.err, tc.status, rec.Code)
		}
		body := decodeError(t, rec)
		if body.Code != string(xerrors.CodeOf(tc.err)) {
			t.Fatalf("unexpected error code %q", body.Code)
		}
	}
}

func TestExecuteActionRejectsMalformedBody(t *testing.T) {
	t.Parallel()

	stub := &stubAgent{}
	rec := serve(t, stub, http.MethodPost, "/api/v1/actions", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(stub.executed) != 0 {
		t.Fatalf("agent must not be called")
	}
}

func TestListActionsEndpoint(t *testing.T) {
	t.Parallel()

	stub := &stubAgent{history: []mysql.ActionRecord{{ID: 1, ActionType: "transaction", Status: mysql.StatusSucceeded}}}
	rec := serve(t, stub, http.MethodGet, "/api/v1/actions?limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status code %d", rec.Code)
	}
	if stub.lastLimit != 5 {
		t.Fatalf("expected limit 5, got %d", stub.lastLimit)
	}

	serve(t, stub, http.MethodGet, "/api/v1/actions?limit=abc", "")
	if stub.lastLimit != defaultHistoryLimit {
		t.Fatalf("invalid limit should fall back to default, got %d", stub.lastLimit)
	}

	stub.histErr = xerrors.New(xerrors.CodeNotFound, "未配置动作日志")
	rec = serve(t, stub, http.MethodGet, "/api/v1/actions", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()

	rec := serve(t, &stubAgent{}, http.MethodDelete, "/api/v1/actions", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	srv := NewServer(":0", &stubAgent{})
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz returned %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "near_agent_http_requests_total") {
		t.Fatalf("metrics endpoint missing http counters")
	}
}

func TestMetricsCanBeDisabled(t *testing.T) {
	t.Parallel()

	rec := serve(t, &stubAgent{}, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when metrics are disabled, got %d", rec.Code)
	}
}

func TestAuthProtectsAPIRoutes(t *testing.T) {
	t.Parallel()

	svc, err := auth.NewService(auth.Config{Mode: auth.ModeToken, Tokens: []auth.TokenConfig{
		{Name: "viewer", Token: "viewer-token", Permissions: []string{auth.PermissionRead}},
	}}, nil)
	if err != nil {
		t.Fatalf("auth.NewService returned error: %v", err)
	}
	stub := &stubAgent{}
	handler := NewServer(":0", stub, WithMetrics(false), WithAuth(svc)).Handler()

	request := func(method, target, token string) int {
		req := httptest.NewRequest(method, target, strings.NewReader(`{"type":"transaction","params":{"x":1}}`))
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := request(http.MethodGet, "/api/v1/status", ""); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", code)
	}
	if code := request(http.MethodGet, "/api/v1/status", "viewer-token"); code != http.StatusOK {
		t.Fatalf("expected 200 for reader, got %d", code)
	}
	if code := request(http.MethodPost, "/api/v1/actions", "viewer-token"); code != http.StatusForbidden {
		t.Fatalf("expected 403 for reader posting actions, got %d", code)
	}
	if len(stub.executed) != 0 {
		t.Fatalf("forbidden request must not reach the agent")
	}
	if code := request(http.MethodGet, "/healthz", ""); code != http.StatusOK {
		t.Fatalf("healthz must stay public, got %d", code)
	}
}
