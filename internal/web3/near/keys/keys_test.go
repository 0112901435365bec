package keys

import (
	"strings"
	"testing"
)

func TestKeyPairRoundTrip(t *testing.T) {
	t.Parallel()

	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	secret := kp.SecretKey()
	if !strings.HasPrefix(secret, "ed25519:") {
		t.Fatalf("secret key should carry prefix: %s", secret)
	}

	withPrefix, err := NewKeyPair(secret)
	if err != nil {
		t.Fatalf("parse with prefix: %v", err)
	}
	withoutPrefix, err := NewKeyPair(StripPrefix(secret))
	if err != nil {
		t.Fatalf("parse without prefix: %v", err)
	}
	if withPrefix.PublicKey() != kp.PublicKey() || withoutPrefix.PublicKey() != kp.PublicKey() {
		t.Fatalf("public keys differ after parsing")
	}

	msg := []byte("near transaction hash")
	if !withPrefix.Verify(msg, kp.Sign(msg)) {
		t.Fatalf("signature did not verify")
	}
}

func TestNewKeyPairRejectsGarbage(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "ed25519:", "ed25519:0OIl", "ed25519:3yZe7d"} {
		if _, err := NewKeyPair(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestPublicKeyParse(t *testing.T) {
	t.Parallel()

	kp, _ := GenerateKeyPair()
	parsed, err := ParsePublicKey(kp.PublicKey().String())
	if err != nil {
		t.Fatalf("parse public key: %v", err)
	}
	if parsed != kp.PublicKey() {
		t.Fatalf("parsed key mismatch")
	}
	if kp.String() != kp.PublicKey().String() {
		t.Fatalf("String must not expose the secret key")
	}
}

func TestSignerValidation(t *testing.T) {
	t.Parallel()

	kp, _ := GenerateKeyPair()
	if _, err := NewSigner("", kp); err == nil {
		t.Fatalf("expected error for empty account")
	}
	if _, err := NewSigner("alice.testnet", nil); err == nil {
		t.Fatalf("expected error for nil key pair")
	}
	s, err := NewSigner("alice.testnet", kp)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	if s.AccountID() != "alice.testnet" || s.PublicKey() != kp.PublicKey() {
		t.Fatalf("unexpected signer state")
	}
}
