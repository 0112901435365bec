package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"NEAR-Swarm/internal/web3/near/keys"
	"NEAR-Swarm/internal/web3/near/neartest"
)

func writeConfig(t *testing.T, nodeURL string) string {
	t.Helper()
	kp, err := keys.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	dir := t.TempDir()
	content := strings.Join([]string{
		"agent:",
		"  near_network: testnet",
		"  account_id: agent.testnet",
		"  private_key: " + kp.SecretKey(),
		"  llm_provider: openai",
		"  llm_api_key: sk-test",
		"  node_url: " + nodeURL,
		"log:",
		"  level: error",
		"journal:",
		"  driver: memory",
		"runtime:",
		"  data_dir: data",
	}, "\n")
	path := filepath.Join(dir, "agent.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBalanceCommand(t *testing.T) {
	node := neartest.NewNode(t)
	node.HandleQuery("view_account", func(json.RawMessage) (any, *neartest.Error) {
		return neartest.Account("1000", "250"), nil
	})

	out, err := execute(t, "--config", writeConfig(t, node.URL), "balance")
	if err != nil {
		t.Fatalf("balance returned error: %v (%s)", err, out)
	}
	var balance map[string]string
	if err := json.Unmarshal([]byte(out), &balance); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if balance["available"] != "750" {
		t.Fatalf("unexpected balance %v", balance)
	}
}

func TestCheckCommandReportsMissingAccount(t *testing.T) {
	node := neartest.NewNode(t)
	path := writeConfig(t, node.URL)
	node.HandleQuery("view_account", func(params json.RawMessage) (any, *neartest.Error) {
		if strings.Contains(string(params), "ghost.testnet") {
			return nil, neartest.UnknownAccount()
		}
		return neartest.Account("1", "0"), nil
	})

	out, err := execute(t, "--config", path, "check", "ghost.testnet")
	if err != nil {
		t.Fatalf("check returned error: %v", err)
	}
	if !strings.Contains(out, `"exists": false`) {
		t.Fatalf("unexpected output %s", out)
	}
}

func TestCheckCommandDefaultsToAgentAccount(t *testing.T) {
	node := neartest.NewNode(t)
	path := writeConfig(t, node.URL)

	out, err := execute(t, "--config", path, "check")
	if err != nil {
		t.Fatalf("check returned error: %v", err)
	}
	if !strings.Contains(out, `"account_id": "agent.testnet"`) || !strings.Contains(out, `"exists": true`) {
		t.Fatalf("unexpected output %s", out)
	}
}

func TestSendCommandRejectsMalformedActions(t *testing.T) {
	node := neartest.NewNode(t)
	path := writeConfig(t, node.URL)

	if _, err := execute(t, "--config", path, "send", "--receiver", "bob.testnet", "--actions", "{not json"); err == nil {
		t.Fatalf("expected error for malformed actions")
	}
	if node.TotalCalls() != 0 {
		t.Fatalf("no RPC call expected, got %d", node.TotalCalls())
	}
}

func TestSendCommandRequiresReceiver(t *testing.T) {
	node := neartest.NewNode(t)
	path := writeConfig(t, node.URL)

	_, err := execute(t, "--config", path, "send", "--actions", `[{"type":"transfer","deposit":"1"}]`)
	if err == nil || !strings.Contains(err.Error(), "缺少 receiver_id") {
		t.Fatalf("expected missing receiver error, got %v", err)
	}
	if node.Calls("broadcast_tx_commit") != 0 {
		t.Fatalf("nothing should be broadcast")
	}
}

func TestMissingConfigFails(t *testing.T) {
	if _, err := execute(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "balance"); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
