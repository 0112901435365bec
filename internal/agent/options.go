package agent

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"NEAR-Swarm/internal/storage/mysql"
	"NEAR-Swarm/internal/web3"
	"NEAR-Swarm/internal/web3/near"
	"NEAR-Swarm/internal/web3/near/rpc"
)

// ConnectionFactory 根据连接参数构造 Connection，便于测试替换。
type ConnectionFactory func(ctx context.Context, opts near.Options) (Connection, error)

// ActionObserver 接收每次动作执行的结果，通常由 metrics 包实现。
type ActionObserver interface {
	ObserveAction(actionType string, err error)
}

// Option 定义可选的 Agent 配置。
type Option func(*Agent)

// WithLogger 设置运行日志。
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithAuditLogger 设置审计日志，提交的交易会写入其中。
func WithAuditLogger(logger *slog.Logger) Option {
	return func(a *Agent) { a.audit = logger }
}

// WithJournal 配置动作日志仓库。为 nil 时不记录。
func WithJournal(repo mysql.ActionRepository) Option {
	return func(a *Agent) { a.journal = repo }
}

// WithConnectionFactory 替换默认的 near.NewConnection。
func WithConnectionFactory(factory ConnectionFactory) Option {
	return func(a *Agent) {
		if factory != nil {
			a.factory = factory
		}
	}
}

// WithHTTPClient 指定访问 RPC 节点使用的 HTTP 客户端。
func WithHTTPClient(client *http.Client) Option {
	return func(a *Agent) { a.httpClient = client }
}

// WithRPCObserver 设置 RPC 调用观察者。
func WithRPCObserver(observer rpc.Observer) Option {
	return func(a *Agent) { a.rpcObserver = observer }
}

// WithActionObserver 设置动作执行观察者。
func WithActionObserver(observer ActionObserver) Option {
	return func(a *Agent) { a.actionObserver = observer }
}

// WithNetworks 使用自定义的网络定义解析节点地址。
func WithNetworks(networks *web3.NetworkDefinitions) Option {
	return func(a *Agent) { a.networks = networks }
}

// WithClock 替换时间来源，仅用于测试。
func WithClock(now func() time.Time) Option {
	return func(a *Agent) {
		if now != nil {
			a.now = now
		}
	}
}

func defaultConnectionFactory(ctx context.Context, opts near.Options) (Connection, error) {
	conn, err := near.NewConnection(ctx, opts)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
