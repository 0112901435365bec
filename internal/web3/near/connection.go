package near

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	xerrors "NEAR-Swarm/internal/errors"
	"NEAR-Swarm/internal/web3"
	"NEAR-Swarm/internal/web3/near/keys"
	"NEAR-Swarm/internal/web3/near/rpc"
	"NEAR-Swarm/internal/web3/near/yocto"
	xlog "NEAR-Swarm/pkg/logger"
)

// Options 描述建立 NEAR 连接所需的参数。
type Options struct {
	Network    string
	AccountID  string
	PrivateKey string
	NodeURL    string
	Networks   *web3.NetworkDefinitions

	HTTPClient *http.Client
	Observer   rpc.Observer
	Logger     *slog.Logger
	Audit      *slog.Logger
}

// Balance 是账户余额，单位 yoctoNEAR。
type Balance struct {
	Total     string `json:"total"`
	Staked    string `json:"staked"`
	Available string `json:"available"`
}

// Transaction 是调用方提交的交易请求，仅校验字段是否存在。
type Transaction struct {
	ReceiverID string `json:"receiver_id"`
	Actions    []any  `json:"actions"`
}

type transactionSender interface {
	SignAndSendTransaction(ctx context.Context, receiverID string, actions []any) (json.RawMessage, error)
}

// Connection 持有 provider、signer 与 account 三者，构造成功后三者均非空且
// 使用同一账户与密钥对。
type Connection struct {
	network   string
	accountID string
	nodeURL   string

	provider *rpc.Client
	signer   *keys.Signer
	account  transactionSender

	logger *slog.Logger
	audit  *slog.Logger
}

// NewConnection 解析节点地址，先后执行 status 与 view_account 探测，再构造
// signer 与 account。任何一步失败都会以 CONNECTION_FAILURE 返回。
func NewConnection(ctx context.Context, opts Options) (*Connection, error) {
	logger := opts.Logger
	if logger == nil {
		logger = xlog.Discard()
	}
	audit := opts.Audit
	if audit == nil {
		audit = logger
	}

	conn, err := newConnection(ctx, opts, logger)
	if err != nil {
		logger.Error("初始化 NEAR 连接失败", "account_id", opts.AccountID, "error", err)
		return nil, xerrors.Wrap(xerrors.CodeConnectionFailure, err, "NEAR 连接失败")
	}
	conn.audit = audit
	logger.Info("NEAR 连接已建立", "account_id", conn.accountID, "network", conn.network, "node_url", conn.nodeURL)
	return conn, nil
}

func newConnection(ctx context.Context, opts Options, logger *slog.Logger) (*Connection, error) {
	networks := opts.Networks
	if networks == nil {
		defaults := web3.DefaultNetworks()
		networks = &defaults
	}
	nodeURL := networks.ResolveNodeURL(opts.Network, opts.NodeURL)
	if strings.TrimSpace(opts.NodeURL) != "" {
		logger.Info("使用自定义 RPC 节点", "node_url", nodeURL)
	}

	rpcOpts := []rpc.Option{rpc.WithLogger(logger), rpc.WithHTTPClient(opts.HTTPClient)}
	if opts.Observer != nil {
		rpcOpts = append(rpcOpts, rpc.WithObserver(opts.Observer))
	}
	provider, err := rpc.NewClient(nodeURL, rpcOpts...)
	if err != nil {
		return nil, err
	}

	if _, err := provider.Post(ctx, "status", []any{}); err != nil {
		logger.Error("RPC 连通性检测失败", "node_url", nodeURL, "error", err)
		return nil, err
	}
	logger.Info("RPC 连通性检测成功", "node_url", nodeURL)

	keyPair, err := keys.NewKeyPair(keys.StripPrefix(opts.PrivateKey))
	if err != nil {
		return nil, err
	}
	signer, err := keys.NewSigner(opts.AccountID, keyPair)
	if err != nil {
		return nil, err
	}

	// 仅用于日志：结果被丢弃，但传输失败仍视为连接失败。
	accountResp, err := provider.Post(ctx, "query", rpc.ViewAccountParams(opts.AccountID, rpc.FinalityFinal))
	if err != nil {
		logger.Error("获取账户数据失败", "account_id", opts.AccountID, "error", err)
		return nil, err
	}
	logger.Info("已获取账户数据", "account_id", opts.AccountID, "response", accountData(accountResp))

	account, err := NewAccount(provider, signer, opts.AccountID, logger)
	if err != nil {
		return nil, err
	}

	return &Connection{
		network:   opts.Network,
		accountID: opts.AccountID,
		nodeURL:   nodeURL,
		provider:  provider,
		signer:    signer,
		account:   account,
		logger:    logger,
	}, nil
}

func accountData(resp *rpc.Response) string {
	if resp == nil {
		return ""
	}
	encoded, err := json.Marshal(resp)
	if err != nil {
		return ""
	}
	return string(encoded)
}

// Network 返回网络名称。
func (c *Connection) Network() string { return c.network }

// AccountID 返回连接绑定的账户。
func (c *Connection) AccountID() string { return c.accountID }

// NodeURL 返回实际使用的节点地址。
func (c *Connection) NodeURL() string { return c.nodeURL }

// Provider 返回底层 RPC 客户端。
func (c *Connection) Provider() *rpc.Client { return c.provider }

// Signer 返回签名者。
func (c *Connection) Signer() *keys.Signer { return c.signer }

// Close 释放空闲的 HTTP 连接，不会产生任何链上副作用。
func (c *Connection) Close() {
	if c != nil && c.provider != nil {
		c.provider.Close()
	}
}

// CheckAccount 判断账户是否存在。任何错误（包括网络错误）都会被折叠为 false，
// 因此 false 既可能表示账户不存在，也可能表示无法确定。
func (c *Connection) CheckAccount(ctx context.Context, accountID string) bool {
	account, err := c.provider.ViewAccount(ctx, accountID, rpc.FinalityFinal)
	if err != nil {
		c.logger.Debug("账户检查失败", "account_id", accountID, "unknown_account", rpc.IsUnknownAccount(err), "error", err)
		return false
	}
	return account != (rpc.AccountView{})
}

// GetAccountBalance 返回账户余额，available = total - staked，使用任意精度整数计算。
func (c *Connection) GetAccountBalance(ctx context.Context) (Balance, error) {
	account, err := c.provider.ViewAccount(ctx, c.accountID, rpc.FinalityFinal)
	if err != nil {
		c.logger.Error("查询账户余额失败", "account_id", c.accountID, "error", err)
		return Balance{}, xerrors.Wrap(xerrors.CodeRPCFailure, err, "查询账户余额失败")
	}
	available, err := yocto.Sub(account.Amount, account.Locked)
	if err != nil {
		c.logger.Error("查询账户余额失败", "account_id", c.accountID, "error", err)
		return Balance{}, xerrors.Wrap(xerrors.CodeRPCFailure, err, "账户余额格式无效")
	}
	return Balance{Total: account.Amount, Staked: account.Locked, Available: available}, nil
}

// SendTransaction 校验 receiver_id 与 actions 是否存在，然后交给账户签名并提交。
// 提交失败不会重试。
func (c *Connection) SendTransaction(ctx context.Context, tx Transaction) (json.RawMessage, error) {
	if strings.TrimSpace(tx.ReceiverID) == "" {
		err := xerrors.New(xerrors.CodeActionValidation, "交易缺少 receiver_id")
		c.logger.Error("发送交易失败", "error", err)
		return nil, err
	}
	if len(tx.Actions) == 0 {
		err := xerrors.New(xerrors.CodeActionValidation, "交易缺少 actions")
		c.logger.Error("发送交易失败", "error", err)
		return nil, err
	}

	result, err := c.account.SignAndSendTransaction(ctx, tx.ReceiverID, tx.Actions)
	if err != nil {
		c.logger.Error("发送交易失败", "receiver_id", tx.ReceiverID, "error", err)
		return nil, err
	}

	c.audit.Info("交易已提交",
		"signer_id", c.accountID,
		"receiver_id", tx.ReceiverID,
		"actions", len(tx.Actions),
		"tx_hash", TransactionHash(result),
	)
	return result, nil
}

// TransactionHash 从 broadcast_tx_commit 结果中提取交易哈希。
func TransactionHash(result json.RawMessage) string {
	var outcome struct {
		Transaction struct {
			Hash string `json:"hash"`
		} `json:"transaction"`
	}
	if err := json.Unmarshal(result, &outcome); err != nil {
		return ""
	}
	return outcome.Transaction.Hash
}

// String 便于日志输出。
func (c *Connection) String() string {
	return fmt.Sprintf("near(%s@%s)", c.accountID, c.network)
}
