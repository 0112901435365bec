package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"NEAR-Swarm/internal/config"
	xerrors "NEAR-Swarm/internal/errors"
	"NEAR-Swarm/internal/storage/mysql"
	"NEAR-Swarm/internal/web3"
	"NEAR-Swarm/internal/web3/near"
	"NEAR-Swarm/internal/web3/near/rpc"
	xlog "NEAR-Swarm/pkg/logger"
)

// ActionTransaction 是唯一被识别的动作类型。
const ActionTransaction = "transaction"

// Connection 是 Agent 依赖的连接能力，由 *near.Connection 实现。
type Connection interface {
	CheckAccount(ctx context.Context, accountID string) bool
	GetAccountBalance(ctx context.Context) (near.Balance, error)
	SendTransaction(ctx context.Context, tx near.Transaction) (json.RawMessage, error)
	NodeURL() string
	Close()
}

// Action 描述一次待执行的动作。
type Action struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params"`
}

// Status 是 Agent 当前状态的快照。
type Status struct {
	Running   bool   `json:"running"`
	Network   string `json:"network"`
	AccountID string `json:"account_id"`
	NodeURL   string `json:"node_url"`
}

// Agent 持有一个 NEAR 连接，并根据运行状态分发动作。
type Agent struct {
	cfg       config.AgentConfig
	conn      Connection
	running   atomic.Bool
	closeOnce sync.Once

	logger         *slog.Logger
	audit          *slog.Logger
	journal        mysql.ActionRepository
	actionObserver ActionObserver
	factory        ConnectionFactory
	httpClient     *http.Client
	rpcObserver    rpc.Observer
	networks       *web3.NetworkDefinitions
	now            func() time.Time
}

// New 校验配置并立即建立连接。任一步失败都不会返回 Agent。
func New(ctx context.Context, cfg config.AgentConfig, opts ...Option) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ag := &Agent{
		cfg:     cfg,
		logger:  xlog.Discard(),
		factory: defaultConnectionFactory,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(ag)
		}
	}
	connLogger := ag.logger
	ag.logger = ag.logger.With("account_id", cfg.AccountID)

	conn, err := ag.factory(ctx, near.Options{
		Network:    cfg.NearNetwork,
		AccountID:  cfg.AccountID,
		PrivateKey: cfg.PrivateKey,
		NodeURL:    cfg.NodeURL,
		Networks:   ag.networks,
		HTTPClient: ag.httpClient,
		Observer:   ag.rpcObserver,
		Logger:     connLogger,
		Audit:      ag.audit,
	})
	if err != nil {
		if xerrors.CodeOf(err) != xerrors.CodeConnectionFailure {
			err = xerrors.Wrap(xerrors.CodeConnectionFailure, err, "NEAR 连接失败")
		}
		return nil, err
	}
	if conn == nil {
		return nil, xerrors.New(xerrors.CodeConnectionFailure, "NEAR 连接失败")
	}
	ag.conn = conn
	return ag, nil
}

// Start 检查账户是否存在后进入运行状态。账户检查返回 false 时仍会启动，只记录告警。
func (a *Agent) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		a.logger.Error("启动智能体失败", "error", err)
		return xerrors.Wrap(xerrors.CodeTimeout, err, "启动智能体被取消")
	}
	if !a.conn.CheckAccount(ctx, a.cfg.AccountID) {
		a.logger.Warn("账户不存在或无法访问，仍然启动")
	}
	a.running.Store(true)
	a.logger.Info("智能体已启动")
	return nil
}

// Stop 进入停止状态，可重复调用，不产生任何远程调用。
func (a *Agent) Stop() {
	a.running.Store(false)
	a.logger.Info("智能体已停止")
}

// Close 停止 Agent 并释放连接持有的空闲 HTTP 连接。
func (a *Agent) Close() error {
	a.Stop()
	a.closeOnce.Do(a.conn.Close)
	return nil
}

// IsRunning 返回当前运行状态。
func (a *Agent) IsRunning() bool { return a.running.Load() }

// Config 返回 Agent 的配置副本。
func (a *Agent) Config() config.AgentConfig { return a.cfg }

// Status 返回状态快照。
func (a *Agent) Status() Status {
	return Status{
		Running:   a.IsRunning(),
		Network:   a.cfg.NearNetwork,
		AccountID: a.cfg.AccountID,
		NodeURL:   a.conn.NodeURL(),
	}
}

// ExecuteAction 分发动作。未运行时在任何网络调用之前返回 NOT_RUNNING。
func (a *Agent) ExecuteAction(ctx context.Context, action Action) (json.RawMessage, error) {
	result, err := a.executeAction(ctx, action)
	if a.actionObserver != nil {
		a.actionObserver.ObserveAction(actionLabel(action.Type), err)
	}
	if err != nil {
		a.logger.Error("执行动作失败", "type", action.Type, "error", err)
		return nil, err
	}
	return result, nil
}

func (a *Agent) executeAction(ctx context.Context, action Action) (json.RawMessage, error) {
	if !a.IsRunning() {
		return nil, xerrors.New(xerrors.CodeNotRunning, "智能体未运行")
	}
	if strings.TrimSpace(action.Type) == "" {
		return nil, xerrors.New(xerrors.CodeActionValidation, "缺少动作类型", xerrors.WithMetadata("field", "type"))
	}
	if len(action.Params) == 0 {
		return nil, xerrors.New(xerrors.CodeActionValidation, "缺少动作参数", xerrors.WithMetadata("field", "params"))
	}

	switch action.Type {
	case ActionTransaction:
		tx := transactionFromParams(action.Params)
		result, err := a.conn.SendTransaction(ctx, tx)
		a.record(ctx, action.Type, tx.ReceiverID, result, err)
		return result, err
	default:
		return nil, xerrors.Newf(xerrors.CodeUnsupportedAction, "不支持的动作类型: %s", action.Type)
	}
}

// CheckAccount 查询任意账户是否存在，错误同样折叠为 false。
func (a *Agent) CheckAccount(ctx context.Context, accountID string) bool {
	return a.conn.CheckAccount(ctx, accountID)
}

// Balance 返回 Agent 账户的余额。
func (a *Agent) Balance(ctx context.Context) (near.Balance, error) {
	return a.conn.GetAccountBalance(ctx)
}

// History 返回最近记录的动作。
func (a *Agent) History(ctx context.Context, limit int) ([]mysql.ActionRecord, error) {
	if a.journal == nil {
		return nil, xerrors.New(xerrors.CodeNotFound, "未配置动作日志")
	}
	records, err := a.journal.ListLatest(ctx, limit)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询动作记录失败")
	}
	return records, nil
}

// record 写入动作日志，写入失败只记录日志，不影响动作结果。
func (a *Agent) record(ctx context.Context, actionType, receiverID string, result json.RawMessage, execErr error) {
	if a.journal == nil {
		return
	}
	entry := &mysql.ActionRecord{
		AccountID:  a.cfg.AccountID,
		Network:    a.cfg.NearNetwork,
		ActionType: actionType,
		ReceiverID: receiverID,
		Status:     mysql.StatusSucceeded,
		TxHash:     near.TransactionHash(result),
		CreatedAt:  a.now().Unix(),
	}
	if execErr != nil {
		entry.Status = mysql.StatusFailed
		entry.ErrorCode = string(xerrors.CodeOf(execErr))
		entry.ErrorMessage = execErr.Error()
	}
	if err := a.journal.Save(ctx, entry); err != nil {
		a.logger.Warn("记录动作失败", "type", actionType, "error", err)
	}
}

// transactionFromParams 只做类型转换，字段是否缺失由连接负责校验。
func transactionFromParams(params map[string]any) near.Transaction {
	var tx near.Transaction
	if receiver, ok := params["receiver_id"].(string); ok {
		tx.ReceiverID = receiver
	}
	switch actions := params["actions"].(type) {
	case []any:
		tx.Actions = actions
	case []map[string]any:
		tx.Actions = make([]any, 0, len(actions))
		for _, action := range actions {
			tx.Actions = append(tx.Actions, action)
		}
	}
	return tx
}

func actionLabel(actionType string) string {
	switch actionType {
	case ActionTransaction:
		return actionType
	case "":
		return "none"
	default:
		return "unsupported"
	}
}
