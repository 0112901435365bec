// Package transaction builds, serializes and signs NEAR transactions.
package transaction

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"NEAR-Swarm/internal/web3/near/keys"

	"github.com/mr-tron/base58"
)

// Transaction 是待签名的 NEAR 交易。
type Transaction struct {
	SignerID   string
	PublicKey  keys.PublicKey
	Nonce      uint64
	ReceiverID string
	BlockHash  [32]byte
	Actions    []Action
}

// SignedTransaction 是附带 ed25519 签名的交易。
type SignedTransaction struct {
	Transaction Transaction
	Signature   [64]byte
}

// DecodeBlockHash 解析 base58 编码的区块哈希。
func DecodeBlockHash(s string) ([32]byte, error) {
	var out [32]byte
	raw, err := base58.Decode(s)
	if err != nil {
		return out, fmt.Errorf("解码区块哈希失败: %w", err)
	}
	if len(raw) != len(out) {
		return out, fmt.Errorf("区块哈希长度应为 32 字节，实际 %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

// Serialize 返回交易的 borsh 编码。
func (t *Transaction) Serialize() ([]byte, error) {
	if t.SignerID == "" || t.ReceiverID == "" {
		return nil, errors.New("交易缺少 signer_id 或 receiver_id")
	}
	e := &encoder{}
	e.string(t.SignerID)
	e.u8(uint8(t.PublicKey.Type))
	e.fixed(t.PublicKey.Data[:])
	e.u64(t.Nonce)
	e.string(t.ReceiverID)
	e.fixed(t.BlockHash[:])
	e.u32(uint32(len(t.Actions)))
	for _, action := range t.Actions {
		if err := action.encode(e); err != nil {
			return nil, fmt.Errorf("编码动作 %s 失败: %w", action.Kind(), err)
		}
	}
	return e.Bytes(), nil
}

// Hash 返回交易哈希，即 borsh 编码的 sha256。
func (t *Transaction) Hash() ([32]byte, error) {
	encoded, err := t.Serialize()
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(encoded), nil
}

// Sign 对交易哈希签名。
func (t *Transaction) Sign(signer *keys.Signer) (*SignedTransaction, error) {
	if signer == nil {
		return nil, errors.New("缺少签名者")
	}
	hash, err := t.Hash()
	if err != nil {
		return nil, err
	}
	signed := &SignedTransaction{Transaction: *t}
	copy(signed.Signature[:], signer.Sign(hash[:]))
	return signed, nil
}

// HashString 返回 base58 编码的交易哈希，与浏览器中显示的一致。
func (s *SignedTransaction) HashString() string {
	hash, err := s.Transaction.Hash()
	if err != nil {
		return ""
	}
	return base58.Encode(hash[:])
}

// Serialize 返回已签名交易的 borsh 编码。
func (s *SignedTransaction) Serialize() ([]byte, error) {
	body, err := s.Transaction.Serialize()
	if err != nil {
		return nil, err
	}
	e := &encoder{}
	e.fixed(body)
	e.u8(uint8(keys.KeyTypeED25519))
	e.fixed(s.Signature[:])
	return e.Bytes(), nil
}

// Base64 返回 broadcast_tx_* 方法所需的 base64 编码。
func (s *SignedTransaction) Base64() (string, error) {
	encoded, err := s.Serialize()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(encoded), nil
}
