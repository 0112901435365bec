package web3

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveNodeURLPrecedence(t *testing.T) {
	t.Parallel()

	cases := []struct {
		network, override, want string
	}{
		{"mainnet", "", MainnetRPCURL},
		{"testnet", "", TestnetRPCURL},
		{"testnet", "http://localhost:3030", "http://localhost:3030"},
		{"mainnet", " https://custom.example ", "https://custom.example"},
		{"other", "", TestnetRPCURL},
	}
	defs := DefaultNetworks()
	for _, tc := range cases {
		if got := defs.ResolveNodeURL(tc.network, tc.override); got != tc.want {
			t.Fatalf("ResolveNodeURL(%q,%q) = %q, want %q", tc.network, tc.override, got, tc.want)
		}
	}
}

func TestLoadNetworkDefinitionsOverrides(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "networks.yaml")
	content := `
networks:
  testnet:
    rpc_url: https://test.rpc.fastnear.com
  localnet:
    rpc_url: http://127.0.0.1:3030
    description: sandbox
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write networks: %v", err)
	}

	defs, err := LoadNetworkDefinitions(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := defs.ResolveNodeURL("testnet", ""); got != "https://test.rpc.fastnear.com" {
		t.Fatalf("testnet override not applied: %s", got)
	}
	if got := defs.ResolveNodeURL("mainnet", ""); got != MainnetRPCURL {
		t.Fatalf("mainnet should keep default: %s", got)
	}
	if defs.Networks["testnet"].ExplorerURL == "" {
		t.Fatalf("unset fields should keep defaults")
	}
	if local, ok := defs.Networks["localnet"]; !ok || local.RPCURL != "http://127.0.0.1:3030" {
		t.Fatalf("extra network not loaded: %+v", defs.Networks)
	}
}

func TestLoadNetworkDefinitionsEmptyPath(t *testing.T) {
	t.Parallel()

	defs, err := LoadNetworkDefinitions("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(defs.Networks) != 2 {
		t.Fatalf("expected builtin networks, got %v", defs.Networks)
	}
}
