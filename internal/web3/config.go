package web3

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// 内置的 NEAR 公共 RPC 节点。
const (
	MainnetRPCURL = "https://rpc.mainnet.near.org"
	TestnetRPCURL = "https://rpc.testnet.near.org"
)

// NetworkDefinitions 对应 networks.yaml 的结构。
type NetworkDefinitions struct {
	Networks map[string]NetworkDefinition `yaml:"networks"`
}

// NetworkDefinition 描述单个网络的节点信息。
type NetworkDefinition struct {
	RPCURL      string `yaml:"rpc_url"`
	ExplorerURL string `yaml:"explorer_url"`
	Description string `yaml:"description"`
}

// DefaultNetworks 返回内置的 mainnet 与 testnet 定义。
func DefaultNetworks() NetworkDefinitions {
	return NetworkDefinitions{Networks: map[string]NetworkDefinition{
		"mainnet": {RPCURL: MainnetRPCURL, ExplorerURL: "https://nearblocks.io", Description: "NEAR mainnet"},
		"testnet": {RPCURL: TestnetRPCURL, ExplorerURL: "https://testnet.nearblocks.io", Description: "NEAR testnet"},
	}}
}

// LoadNetworkDefinitions 读取 YAML 文件并覆盖内置定义中的同名网络。
// path 为空时直接返回内置定义。
func LoadNetworkDefinitions(path string) (NetworkDefinitions, error) {
	defs := DefaultNetworks()
	if strings.TrimSpace(path) == "" {
		return defs, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return NetworkDefinitions{}, fmt.Errorf("读取网络配置失败: %w", err)
	}
	var loaded NetworkDefinitions
	if err := yaml.Unmarshal(content, &loaded); err != nil {
		return NetworkDefinitions{}, fmt.Errorf("解析网络配置失败: %w", err)
	}
	for name, def := range loaded.Networks {
		name = strings.ToLower(strings.TrimSpace(name))
		base := defs.Networks[name]
		if def.RPCURL != "" {
			base.RPCURL = def.RPCURL
		}
		if def.ExplorerURL != "" {
			base.ExplorerURL = def.ExplorerURL
		}
		if def.Description != "" {
			base.Description = def.Description
		}
		defs.Networks[name] = base
	}
	return defs, nil
}

// ResolveNodeURL 按优先级选择节点：显式地址 > 网络定义；未知网络回落到 testnet。
func (d NetworkDefinitions) ResolveNodeURL(network, override string) string {
	if url := strings.TrimSpace(override); url != "" {
		return url
	}
	if def, ok := d.Networks[network]; ok && def.RPCURL != "" {
		return def.RPCURL
	}
	if network == "mainnet" {
		return MainnetRPCURL
	}
	return TestnetRPCURL
}
