// Package keys handles NEAR ed25519 key material in its "ed25519:<base58>"
// textual form.
package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// KeyType 是 borsh 编码中公钥与签名的类型标记。
type KeyType uint8

const (
	// KeyTypeED25519 是目前唯一支持的密钥类型。
	KeyTypeED25519 KeyType = 0

	ed25519Prefix = "ed25519:"
)

// PublicKey 是 32 字节的 ed25519 公钥。
type PublicKey struct {
	Type KeyType
	Data [ed25519.PublicKeySize]byte
}

// String 返回 "ed25519:<base58>" 形式的公钥。
func (p PublicKey) String() string {
	return ed25519Prefix + base58.Encode(p.Data[:])
}

// ParsePublicKey 解析带或不带前缀的 base58 公钥。
func ParsePublicKey(s string) (PublicKey, error) {
	raw, err := base58.Decode(StripPrefix(s))
	if err != nil {
		return PublicKey{}, fmt.Errorf("解码公钥失败: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return PublicKey{}, fmt.Errorf("公钥长度应为 %d 字节，实际 %d", ed25519.PublicKeySize, len(raw))
	}
	var pk PublicKey
	copy(pk.Data[:], raw)
	return pk, nil
}

// KeyPair 持有 ed25519 私钥。
type KeyPair struct {
	private ed25519.PrivateKey
	public  PublicKey
}

// StripPrefix 去掉 "ed25519:" 前缀。
func StripPrefix(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), ed25519Prefix)
}

// NewKeyPair 从 base58 编码的私钥构造密钥对。接受 64 字节的完整私钥或 32 字节的种子。
func NewKeyPair(encoded string) (*KeyPair, error) {
	encoded = StripPrefix(encoded)
	if encoded == "" {
		return nil, errors.New("私钥不能为空")
	}
	raw, err := base58.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("解码私钥失败: %w", err)
	}

	var priv ed25519.PrivateKey
	switch len(raw) {
	case ed25519.PrivateKeySize:
		priv = ed25519.PrivateKey(raw)
		derived := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
		if !priv.Equal(derived) {
			return nil, errors.New("私钥中的公钥部分与种子不匹配")
		}
	case ed25519.SeedSize:
		priv = ed25519.NewKeyFromSeed(raw)
	default:
		return nil, fmt.Errorf("私钥长度应为 %d 或 %d 字节，实际 %d", ed25519.PrivateKeySize, ed25519.SeedSize, len(raw))
	}
	return fromPrivate(priv), nil
}

// GenerateKeyPair 随机生成密钥对。
func GenerateKeyPair() (*KeyPair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("生成密钥失败: %w", err)
	}
	return fromPrivate(priv), nil
}

func fromPrivate(priv ed25519.PrivateKey) *KeyPair {
	kp := &KeyPair{private: priv}
	copy(kp.public.Data[:], priv.Public().(ed25519.PublicKey))
	return kp
}

// PublicKey 返回公钥。
func (k *KeyPair) PublicKey() PublicKey { return k.public }

// Sign 对消息签名。
func (k *KeyPair) Sign(message []byte) []byte {
	return ed25519.Sign(k.private, message)
}

// Verify 校验签名。
func (k *KeyPair) Verify(message, signature []byte) bool {
	return ed25519.Verify(k.public.Data[:], message, signature)
}

// SecretKey 返回 "ed25519:<base58>" 形式的完整私钥。
func (k *KeyPair) SecretKey() string {
	return ed25519Prefix + base58.Encode(k.private)
}

// String 只输出公钥，避免私钥出现在日志中。
func (k *KeyPair) String() string {
	return k.public.String()
}

// Signer 把账户与密钥对绑定在一起。
type Signer struct {
	accountID string
	keyPair   *KeyPair
}

// NewSigner 创建签名者。
func NewSigner(accountID string, kp *KeyPair) (*Signer, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, errors.New("签名者账户不能为空")
	}
	if kp == nil {
		return nil, errors.New("签名者缺少密钥对")
	}
	return &Signer{accountID: accountID, keyPair: kp}, nil
}

// AccountID 返回签名账户。
func (s *Signer) AccountID() string { return s.accountID }

// PublicKey 返回签名公钥。
func (s *Signer) PublicKey() PublicKey { return s.keyPair.PublicKey() }

// Sign 对消息签名。
func (s *Signer) Sign(message []byte) []byte { return s.keyPair.Sign(message) }
