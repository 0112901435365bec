package rpc

import (
	"context"
	"encoding/json"
)

// FinalityFinal 请求已经不可逆的区块状态。
const FinalityFinal = "final"

// AccountView 对应 view_account 查询结果。金额均为十进制字符串（yoctoNEAR）。
type AccountView struct {
	Amount        string `json:"amount"`
	Locked        string `json:"locked"`
	CodeHash      string `json:"code_hash"`
	StorageUsage  uint64 `json:"storage_usage"`
	StoragePaidAt uint64 `json:"storage_paid_at"`
	BlockHeight   uint64 `json:"block_height"`
	BlockHash     string `json:"block_hash"`
}

// AccessKeyView 对应 view_access_key 查询结果。
type AccessKeyView struct {
	Nonce       uint64          `json:"nonce"`
	Permission  json.RawMessage `json:"permission"`
	BlockHeight uint64          `json:"block_height"`
	BlockHash   string          `json:"block_hash"`
}

// BlockView 是 block 方法返回内容的子集。
type BlockView struct {
	Author string `json:"author"`
	Header struct {
		Height    uint64 `json:"height"`
		Hash      string `json:"hash"`
		Timestamp uint64 `json:"timestamp"`
	} `json:"header"`
}

// ViewAccountParams 构造 view_account 查询参数。
func ViewAccountParams(accountID, finality string) map[string]any {
	return map[string]any{
		"request_type": "view_account",
		"finality":     finality,
		"account_id":   accountID,
	}
}

// ViewAccount 查询账户状态。
func (c *Client) ViewAccount(ctx context.Context, accountID, finality string) (AccountView, error) {
	var out AccountView
	err := c.Call(ctx, "query", ViewAccountParams(accountID, finality), &out)
	return out, err
}

// ViewAccessKey 查询账户下某个公钥的访问密钥，主要用于获取 nonce。
func (c *Client) ViewAccessKey(ctx context.Context, accountID, publicKey, finality string) (AccessKeyView, error) {
	var out AccessKeyView
	err := c.Call(ctx, "query", map[string]any{
		"request_type": "view_access_key",
		"finality":     finality,
		"account_id":   accountID,
		"public_key":   publicKey,
	}, &out)
	return out, err
}

// Block 查询指定最终性的最新区块。
func (c *Client) Block(ctx context.Context, finality string) (BlockView, error) {
	var out BlockView
	err := c.Call(ctx, "block", map[string]any{"finality": finality}, &out)
	return out, err
}

// BroadcastTxCommit 广播已签名交易并等待执行完成，返回原始结果。
func (c *Client) BroadcastTxCommit(ctx context.Context, signedTxBase64 string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.Call(ctx, "broadcast_tx_commit", []any{signedTxBase64}, &out)
	return out, err
}
