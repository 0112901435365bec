package transaction

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"math/big"
	"testing"

	"NEAR-Swarm/internal/web3/near/keys"
)

func newSigner(t *testing.T) *keys.Signer {
	t.Helper()
	kp, err := keys.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer, err := keys.NewSigner("alice.testnet", kp)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	return signer
}

func TestSerializeTransferLayout(t *testing.T) {
	t.Parallel()

	signer := newSigner(t)
	tx := &Transaction{
		SignerID:   "alice.testnet",
		PublicKey:  signer.PublicKey(),
		Nonce:      7,
		ReceiverID: "bob.testnet",
		Actions:    []Action{Transfer{Deposit: big.NewInt(1)}},
	}
	got, err := tx.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	var want bytes.Buffer
	writeString := func(s string) {
		_ = binary.Write(&want, binary.LittleEndian, uint32(len(s)))
		want.WriteString(s)
	}
	writeString("alice.testnet")
	want.WriteByte(0)
	pk := signer.PublicKey()
	want.Write(pk.Data[:])
	_ = binary.Write(&want, binary.LittleEndian, uint64(7))
	writeString("bob.testnet")
	want.Write(make([]byte, 32))
	_ = binary.Write(&want, binary.LittleEndian, uint32(1))
	want.WriteByte(3)
	deposit := make([]byte, 16)
	deposit[0] = 1
	want.Write(deposit)

	if !bytes.Equal(got, want.Bytes()) {
		t.Fatalf("unexpected encoding\n got %x\nwant %x", got, want.Bytes())
	}
}

func TestSignProducesVerifiableSignature(t *testing.T) {
	t.Parallel()

	signer := newSigner(t)
	tx := &Transaction{
		SignerID:   signer.AccountID(),
		PublicKey:  signer.PublicKey(),
		Nonce:      1,
		ReceiverID: "bob.testnet",
		Actions: []Action{FunctionCall{
			MethodName: "ft_transfer",
			Args:       []byte(`{"receiver_id":"bob.testnet","amount":"1"}`),
			Gas:        DefaultFunctionCallGas,
			Deposit:    big.NewInt(1),
		}},
	}
	signed, err := tx.Sign(signer)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	body, _ := tx.Serialize()
	hash := sha256.Sum256(body)
	pk := signer.PublicKey()
	if !ed25519.Verify(pk.Data[:], hash[:], signed.Signature[:]) {
		t.Fatalf("signature does not verify against transaction hash")
	}

	encoded, err := signed.Base64()
	if err != nil {
		t.Fatalf("base64: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	if len(raw) != len(body)+1+64 || !bytes.Equal(raw[:len(body)], body) {
		t.Fatalf("signed transaction layout mismatch")
	}
	if signed.HashString() == "" {
		t.Fatalf("expected transaction hash")
	}
}

func TestU128Overflow(t *testing.T) {
	t.Parallel()

	tooBig := new(big.Int).Lsh(big.NewInt(1), 128)
	tx := &Transaction{SignerID: "a", ReceiverID: "b", Actions: []Action{Transfer{Deposit: tooBig}}}
	if _, err := tx.Serialize(); err == nil {
		t.Fatalf("expected overflow error")
	}
}

func TestParseActions(t *testing.T) {
	t.Parallel()

	actions, err := ParseActions([]any{
		map[string]any{"type": "transfer", "deposit": "1000000000000000000000000"},
		map[string]any{"type": "function_call", "method_name": "set_greeting", "args": map[string]any{"message": "hi"}},
		map[string]any{"type": "create_account"},
		map[string]any{"type": "delete_account", "beneficiary_id": "bob.testnet"},
		map[string]any{"type": "deploy_contract", "code": base64.StdEncoding.EncodeToString([]byte{0, 97, 115, 109})},
		Transfer{Deposit: big.NewInt(2)},
	})
	if err != nil {
		t.Fatalf("parse actions: %v", err)
	}
	kinds := []string{"transfer", "function_call", "create_account", "delete_account", "deploy_contract", "transfer"}
	for i, a := range actions {
		if a.Kind() != kinds[i] {
			t.Fatalf("action %d: got %s want %s", i, a.Kind(), kinds[i])
		}
	}
	call := actions[1].(FunctionCall)
	if call.Gas != DefaultFunctionCallGas || call.Deposit.Sign() != 0 || string(call.Args) != `{"message":"hi"}` {
		t.Fatalf("unexpected function call defaults %+v", call)
	}
}

func TestParseActionsRejectsMalformed(t *testing.T) {
	t.Parallel()

	bad := [][]any{
		{map[string]any{"deposit": "1"}},
		{map[string]any{"type": "stake"}},
		{map[string]any{"type": "transfer"}},
		{map[string]any{"type": "transfer", "deposit": 1.5}},
		{map[string]any{"type": "function_call"}},
		{map[string]any{"type": "function_call", "method_name": "m", "gas": "-1"}},
		{map[string]any{"type": "delete_account"}},
		{"transfer"},
	}
	for _, actions := range bad {
		if _, err := ParseActions(actions); err == nil {
			t.Fatalf("expected error for %v", actions)
		}
	}
}

func TestDecodeBlockHash(t *testing.T) {
	t.Parallel()

	if _, err := DecodeBlockHash("EfpVqEiLa6Xgc5YGvNRCVBVyS9TBb9sezTqMbLHb1LMh"); err != nil {
		t.Fatalf("decode valid hash: %v", err)
	}
	if _, err := DecodeBlockHash("abc"); err == nil {
		t.Fatalf("expected error for short hash")
	}
}
