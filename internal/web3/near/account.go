package near

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	xerrors "NEAR-Swarm/internal/errors"
	"NEAR-Swarm/internal/web3/near/keys"
	"NEAR-Swarm/internal/web3/near/rpc"
	"NEAR-Swarm/internal/web3/near/transaction"
	xlog "NEAR-Swarm/pkg/logger"
)

// Provider 是 Account 访问节点所需的 RPC 能力。
type Provider interface {
	ViewAccount(ctx context.Context, accountID, finality string) (rpc.AccountView, error)
	ViewAccessKey(ctx context.Context, accountID, publicKey, finality string) (rpc.AccessKeyView, error)
	Block(ctx context.Context, finality string) (rpc.BlockView, error)
	BroadcastTxCommit(ctx context.Context, signedTxBase64 string) (json.RawMessage, error)
}

// Account 把 provider、signer 与账户绑定在一起，负责签名并提交交易。
// 并发提交时 nonce 在本地单调递增，不会因为节点尚未确认而重复。
type Account struct {
	provider  Provider
	signer    *keys.Signer
	accountID string
	logger    *slog.Logger

	mu        sync.Mutex
	lastNonce uint64
}

// NewAccount 创建账户代理，signer 必须属于 accountID。
func NewAccount(provider Provider, signer *keys.Signer, accountID string, logger *slog.Logger) (*Account, error) {
	if provider == nil {
		return nil, errors.New("账户缺少 RPC provider")
	}
	if signer == nil {
		return nil, errors.New("账户缺少签名者")
	}
	if signer.AccountID() != accountID {
		return nil, fmt.Errorf("签名者账户 %s 与账户 %s 不一致", signer.AccountID(), accountID)
	}
	if logger == nil {
		logger = xlog.Discard()
	}
	return &Account{provider: provider, signer: signer, accountID: accountID, logger: logger}, nil
}

// AccountID 返回账户名。
func (a *Account) AccountID() string { return a.accountID }

// nextNonce 取节点 nonce 与本地已分配 nonce 中较大者加一。
func (a *Account) nextNonce(fetched uint64) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	nonce := max(fetched, a.lastNonce) + 1
	a.lastNonce = nonce
	return nonce
}

// SignAndSendTransaction 读取访问密钥 nonce 与最新区块哈希，构造、签名并以
// broadcast_tx_commit 提交交易，返回节点的原始执行结果。
func (a *Account) SignAndSendTransaction(ctx context.Context, receiverID string, actions []any) (json.RawMessage, error) {
	parsed, err := transaction.ParseActions(actions)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeActionValidation, err, "交易动作无效")
	}

	publicKey := a.signer.PublicKey()
	accessKey, err := a.provider.ViewAccessKey(ctx, a.accountID, publicKey.String(), rpc.FinalityFinal)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeRPCFailure, err, "查询访问密钥失败")
	}

	block, err := a.provider.Block(ctx, rpc.FinalityFinal)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeRPCFailure, err, "查询最新区块失败")
	}
	blockHash, err := transaction.DecodeBlockHash(block.Header.Hash)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeRPCFailure, err, "区块哈希无效")
	}

	tx := &transaction.Transaction{
		SignerID:   a.accountID,
		PublicKey:  publicKey,
		Nonce:      a.nextNonce(accessKey.Nonce),
		ReceiverID: receiverID,
		BlockHash:  blockHash,
		Actions:    parsed,
	}
	signed, err := tx.Sign(a.signer)
	if err != nil {
		return nil, fmt.Errorf("签名交易失败: %w", err)
	}
	payload, err := signed.Base64()
	if err != nil {
		return nil, fmt.Errorf("序列化交易失败: %w", err)
	}

	a.logger.Debug("广播交易",
		"tx_hash", signed.HashString(),
		"receiver_id", receiverID,
		"nonce", tx.Nonce,
		"actions", len(parsed),
	)
	result, err := a.provider.BroadcastTxCommit(ctx, payload)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeRPCFailure, err, fmt.Sprintf("广播交易 %s 失败", signed.HashString()),
			xerrors.WithMetadata("tx_hash", signed.HashString()),
			xerrors.WithRetryable(false))
	}
	return result, nil
}
