// Package neartest provides an in-process fake NEAR JSON-RPC node for tests.
package neartest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Handler 应答单个 JSON-RPC 方法，返回非空 *Error 时作为 JSON-RPC 错误对象下发。
type Handler func(params json.RawMessage) (any, *Error)

// Error 对应 NEAR 节点返回的结构化错误对象。
type Error struct {
	Code      int
	Message   string
	Name      string
	CauseName string
}

// Node 是通过 HTTP 提供服务的假 NEAR 节点。
type Node struct {
	*httptest.Server

	mu         sync.Mutex
	handlers   map[string]Handler
	queries    map[string]Handler
	calls      map[string]int
	failures   map[string]int
	statusCode int
	bodies     []json.RawMessage
}

// NewNode 启动一个节点，默认对任意账户应答 status 与 view_account。
func NewNode(t testing.TB) *Node {
	t.Helper()
	n := &Node{
		handlers: make(map[string]Handler),
		queries:  make(map[string]Handler),
		calls:    make(map[string]int),
		failures: make(map[string]int),
	}
	n.Handle("status", func(json.RawMessage) (any, *Error) { return Status(), nil })
	n.HandleQuery("view_account", func(json.RawMessage) (any, *Error) {
		return Account("100000000000000000000000000", "0"), nil
	})
	n.Server = httptest.NewServer(http.HandlerFunc(n.serve))
	t.Cleanup(n.Close)
	return n
}

// Handle 为 method 注册处理函数。
func (n *Node) Handle(method string, h Handler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[method] = h
}

// HandleQuery 为指定 request_type 的 query 方法注册处理函数。
func (n *Node) HandleQuery(requestType string, h Handler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.queries[requestType] = h
}

// FailWith 让之后的所有请求都返回该 HTTP 状态码。
func (n *Node) FailWith(statusCode int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statusCode = statusCode
}

// FailMethod 让 method（或 "query:<request_type>"）返回该 HTTP 状态码，其余方法照常应答。
func (n *Node) FailMethod(method string, statusCode int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures[method] = statusCode
}

// Calls 返回 method（或 "query:<request_type>"）被调用的次数。
func (n *Node) Calls(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

// TotalCalls 返回收到的 JSON-RPC 请求总数。
func (n *Node) TotalCalls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.bodies)
}

// Bodies 按到达顺序返回原始请求体。
func (n *Node) Bodies() []json.RawMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]json.RawMessage(nil), n.bodies...)
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

func (n *Node) serve(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	raw, _ := json.Marshal(req)
	n.bodies = append(n.bodies, raw)
	statusCode := n.statusCode
	handler, key := n.lookup(req)
	n.calls[key]++
	if code, ok := n.failures[key]; ok {
		statusCode = code
	}
	n.mu.Unlock()

	if statusCode != 0 {
		http.Error(w, http.StatusText(statusCode), statusCode)
		return
	}

	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if handler == nil {
		resp["error"] = (&Error{Code: -32601, Message: "Method not found", Name: "REQUEST_VALIDATION_ERROR", CauseName: "METHOD_NOT_FOUND"}).payload()
	} else if result, rpcErr := handler(req.Params); rpcErr != nil {
		resp["error"] = rpcErr.payload()
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// 调用 lookup 时必须持有 n.mu。
func (n *Node) lookup(req rpcRequest) (Handler, string) {
	if req.Method != "query" {
		return n.handlers[req.Method], req.Method
	}
	var params struct {
		RequestType string `json:"request_type"`
	}
	_ = json.Unmarshal(req.Params, &params)
	key := "query:" + params.RequestType
	if h, ok := n.queries[params.RequestType]; ok {
		return h, key
	}
	return n.handlers["query"], key
}

func (e *Error) payload() map[string]any {
	out := map[string]any{"code": e.Code, "message": e.Message, "name": e.Name}
	if e.CauseName != "" {
		out["cause"] = map[string]any{"name": e.CauseName, "info": map[string]any{}}
	}
	return out
}

// Status 返回最小的 status 应答。
func Status() map[string]any {
	return map[string]any{
		"chain_id": "testnet",
		"version":  map[string]any{"version": "2.0.0", "build": "test"},
		"sync_info": map[string]any{
			"latest_block_hash":   "EfpVqEiLa6Xgc5YGvNRCVBVyS9TBb9sezTqMbLHb1LMh",
			"latest_block_height": 100,
			"syncing":             false,
		},
	}
}

// Account 返回 view_account 应答。
func Account(amount, locked string) map[string]any {
	return map[string]any{
		"amount":          amount,
		"locked":          locked,
		"code_hash":       "11111111111111111111111111111111",
		"storage_usage":   182,
		"storage_paid_at": 0,
		"block_height":    100,
		"block_hash":      "EfpVqEiLa6Xgc5YGvNRCVBVyS9TBb9sezTqMbLHb1LMh",
	}
}

// UnknownAccount 返回账户不存在时节点给出的错误。
func UnknownAccount() *Error {
	return &Error{Code: -32000, Message: "Server error", Name: "HANDLER_ERROR", CauseName: "UNKNOWN_ACCOUNT"}
}
