package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"NEAR-Swarm/internal/auth"
	"NEAR-Swarm/pkg/logger"

	"gopkg.in/yaml.v3"
)

// Config 描述了智能体进程在启动阶段需要加载的全部配置。
type Config struct {
	Agent        AgentConfig   `json:"agent" yaml:"agent"`
	NetworksFile string        `json:"networks_file" yaml:"networks_file"`
	Server       ServerConfig  `json:"server" yaml:"server"`
	Log          logger.Config `json:"log" yaml:"log"`
	Journal      JournalConfig `json:"journal" yaml:"journal"`
	Runtime      RuntimeConfig `json:"runtime" yaml:"runtime"`
}

// ServerConfig 控制 API 服务的监听地址等参数。
type ServerConfig struct {
	Address        string      `json:"address" yaml:"address"`
	MetricsEnabled *bool       `json:"metrics_enabled,omitempty" yaml:"metrics_enabled,omitempty"`
	RequestTimeout Duration    `json:"request_timeout" yaml:"request_timeout"`
	Auth           auth.Config `json:"auth" yaml:"auth"`
}

// JournalConfig 描述动作日志的存储方式，Driver 为空表示不记录。
type JournalConfig struct {
	Driver          string   `json:"driver" yaml:"driver"`
	DSN             string   `json:"dsn" yaml:"dsn"`
	MaxOpenConns    int      `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int      `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

// RuntimeConfig 用于放置运行时的通用参数。
type RuntimeConfig struct {
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// 环境变量覆盖项，与 .env 中的变量名保持一致。
const (
	EnvNetwork     = "NEAR_NETWORK"
	EnvAccountID   = "NEAR_ACCOUNT_ID"
	EnvPrivateKey  = "NEAR_PRIVATE_KEY"
	EnvNodeURL     = "NEAR_RPC_URL"
	EnvLLMProvider = "LLM_PROVIDER"
	EnvLLMAPIKey   = "LLM_API_KEY"
)

// Load 解析指定路径的配置文件，按扩展名选择 YAML 或 JSON。
// path 为空时只使用默认值与环境变量。重试参数在解码前预置默认值，
// 文件中显式写出的 0 会保留下来并在 Validate 中被拒绝。
func Load(path string) (*Config, error) {
	cfg := Config{Agent: AgentConfig{
		MaxRetries: DefaultMaxRetries,
		RetryDelay: Duration(DefaultRetryDelay),
	}}
	baseDir := "."

	if strings.TrimSpace(path) != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := decode(path, content, &cfg); err != nil {
			return nil, fmt.Errorf("解析配置失败: %w", err)
		}
		baseDir = filepath.Dir(path)
	}

	cfg.applyEnv(os.LookupEnv)
	cfg.applyDefaults(baseDir)
	return &cfg, nil
}

func decode(path string, content []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(content, cfg)
	case ".json", "":
		return json.Unmarshal(content, cfg)
	default:
		return errors.New("不支持的配置文件格式: " + filepath.Ext(path))
	}
}

// applyEnv 使用环境变量覆盖文件中的凭据字段。
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	overrides := []struct {
		key    string
		target *string
	}{
		{EnvNetwork, &c.Agent.NearNetwork},
		{EnvAccountID, &c.Agent.AccountID},
		{EnvPrivateKey, &c.Agent.PrivateKey},
		{EnvNodeURL, &c.Agent.NodeURL},
		{EnvLLMProvider, &c.Agent.LLMProvider},
		{EnvLLMAPIKey, &c.Agent.LLMAPIKey},
	}
	for _, o := range overrides {
		if v, ok := lookup(o.key); ok && strings.TrimSpace(v) != "" {
			*o.target = strings.TrimSpace(v)
		}
	}
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.MetricsEnabled == nil {
		enabled := true
		c.Server.MetricsEnabled = &enabled
	}

	if c.Runtime.DataDir == "" {
		c.Runtime.DataDir = filepath.Join(baseDir, "data")
	} else if !filepath.IsAbs(c.Runtime.DataDir) {
		c.Runtime.DataDir = filepath.Join(baseDir, c.Runtime.DataDir)
	}

	if c.NetworksFile != "" && !filepath.IsAbs(c.NetworksFile) {
		c.NetworksFile = filepath.Join(baseDir, c.NetworksFile)
	}

	c.Journal.Driver = strings.ToLower(strings.TrimSpace(c.Journal.Driver))
}
