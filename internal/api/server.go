package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"NEAR-Swarm/internal/agent"
	"NEAR-Swarm/internal/auth"
	xerrors "NEAR-Swarm/internal/errors"
	"NEAR-Swarm/internal/observability/metrics"
	"NEAR-Swarm/internal/storage/mysql"
	"NEAR-Swarm/internal/web3/near"
	xlog "NEAR-Swarm/pkg/logger"
)

const defaultHistoryLimit = 20

// AgentService 是 API 层依赖的智能体能力，由 *agent.Agent 实现。
type AgentService interface {
	Status() agent.Status
	Balance(ctx context.Context) (near.Balance, error)
	ExecuteAction(ctx context.Context, action agent.Action) (json.RawMessage, error)
	History(ctx context.Context, limit int) ([]mysql.ActionRecord, error)
}

// Server 负责暴露 REST 接口，供外部驱动智能体执行。
type Server struct {
	addr           string
	agent          AgentService
	logger         *slog.Logger
	metrics        bool
	requestTimeout time.Duration
	auth           *auth.Service
}

// Option 定义可选的服务配置。
type Option func(*Server)

// WithLogger 设置访问日志。
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics 控制是否暴露 /metrics 并记录请求指标。
func WithMetrics(enabled bool) Option {
	return func(s *Server) { s.metrics = enabled }
}

// WithRequestTimeout 为每个请求设置超时时间。
func WithRequestTimeout(timeout time.Duration) Option {
	return func(s *Server) { s.requestTimeout = timeout }
}

// WithAuth 为 /api/v1 路由启用令牌认证。
func WithAuth(svc *auth.Service) Option {
	return func(s *Server) { s.auth = svc }
}

// NewServer 构造 API 服务实例。
func NewServer(addr string, svc AgentService, opts ...Option) *Server {
	s := &Server{addr: addr, agent: svc, logger: xlog.Discard(), metrics: true}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Handler 返回完整的路由，便于测试直接挂载。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	readOnly := map[string][]string{"*": {auth.PermissionRead}}
	mux.Handle("/api/v1/status", s.route("status", readOnly, s.handleStatus))
	mux.Handle("/api/v1/balance", s.route("balance", readOnly, s.handleBalance))
	mux.Handle("/api/v1/actions", s.route("actions", map[string][]string{
		http.MethodGet:  {auth.PermissionRead},
		http.MethodPost: {auth.PermissionExecute},
	}, s.handleActions))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics {
		mux.Handle("/metrics", metrics.Handler())
	}
	return mux
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.logger.Info("HTTP API 开始监听", "address", s.addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, xerrors.New(xerrors.CodeInvalidArgument, "仅支持 GET"))
		return
	}
	writeJSON(w, http.StatusOK, s.agent.Status())
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, xerrors.New(xerrors.CodeInvalidArgument, "仅支持 GET"))
		return
	}
	balance, err := s.agent.Balance(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleExecuteAction(w, r)
	case http.MethodGet:
		s.handleListActions(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, xerrors.New(xerrors.CodeInvalidArgument, "仅支持 GET/POST"))
	}
}

func (s *Server) handleExecuteAction(w http.ResponseWriter, r *http.Request) {
	var action agent.Action
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := decoder.Decode(&action); err != nil {
		writeError(w, http.StatusBadRequest, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "请求体解析失败"))
		return
	}

	result, err := s.agent.ExecuteAction(r.Context(), action)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]json.RawMessage{"result": result})
}

func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	records, err := s.agent.History(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if records == nil {
		records = []mysql.ActionRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("请求处理失败", "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("请求被拒绝", "path", r.URL.Path, "error", err)
	}
	writeError(w, status, err)
}

// statusFor 将统一错误码映射为 HTTP 状态码。
func statusFor(err error) int {
	// 请求超时可能被包装成 RPC_FAILURE 等错误码，优先识别。
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	switch xerrors.CodeOf(err) {
	case xerrors.CodeActionValidation, xerrors.CodeUnsupportedAction, xerrors.CodeInvalidArgument, xerrors.CodeConfigValidation:
		return http.StatusBadRequest
	case xerrors.CodeNotRunning:
		return http.StatusConflict
	case xerrors.CodeNotFound:
		return http.StatusNotFound
	case xerrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case xerrors.CodeRPCFailure, xerrors.CodeConnectionFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	body := errorBody{Code: string(xerrors.CodeOf(err)), Message: err.Error()}
	if e, ok := xerrors.From(err); ok {
		body.Message = e.Message()
		body.Metadata = e.Metadata()
	}
	writeJSON(w, status, map[string]errorBody{"error": body})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "服务已关闭", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
