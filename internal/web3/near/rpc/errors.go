package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

// HTTPError 表示节点返回了非 2xx 状态码。
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("节点返回错误状态 %d", e.StatusCode)
	}
	return fmt.Sprintf("节点返回错误状态 %d: %s", e.StatusCode, e.Body)
}

// Error 是 JSON-RPC 错误对象，附带 NEAR 的结构化错误名称。
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Name    string          `json:"name,omitempty"`
	Cause   *ErrorCause     `json:"cause,omitempty"`
}

// ErrorCause 描述 NEAR 错误的具体原因，例如 UNKNOWN_ACCOUNT。
type ErrorCause struct {
	Name string          `json:"name"`
	Info json.RawMessage `json:"info,omitempty"`
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
	if e.Cause != nil && e.Cause.Name != "" {
		msg += " (" + e.Cause.Name + ")"
	}
	if len(e.Data) > 0 && string(e.Data) != "null" {
		msg += ": " + string(e.Data)
	}
	return msg
}

// CauseName 返回错误原因名称，没有时返回错误名称。
func (e *Error) CauseName() string {
	if e.Cause != nil && e.Cause.Name != "" {
		return e.Cause.Name
	}
	return e.Name
}

// IsUnknownAccount 判断错误是否表示账户不存在。
func IsUnknownAccount(err error) bool {
	var rpcErr *Error
	if !errors.As(err, &rpcErr) {
		return false
	}
	return rpcErr.CauseName() == "UNKNOWN_ACCOUNT"
}
