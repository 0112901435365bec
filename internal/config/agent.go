package config

import (
	"encoding/json"
	"strings"
	"time"

	xerrors "NEAR-Swarm/internal/errors"
)

// 支持的 NEAR 网络。
const (
	NetworkMainnet = "mainnet"
	NetworkTestnet = "testnet"
)

// 重试参数的默认值，目前只做校验，并未被任何网络调用消费。
const (
	DefaultMaxRetries = 5
	DefaultRetryDelay = 2 * time.Second
)

// AgentConfig 描述单个 NEAR 智能体的身份与连接参数。
type AgentConfig struct {
	NearNetwork string   `json:"near_network" yaml:"near_network"`
	AccountID   string   `json:"account_id" yaml:"account_id"`
	PrivateKey  string   `json:"private_key" yaml:"private_key"`
	LLMProvider string   `json:"llm_provider" yaml:"llm_provider"`
	LLMAPIKey   string   `json:"llm_api_key" yaml:"llm_api_key"`
	NodeURL     string   `json:"node_url,omitempty" yaml:"node_url,omitempty"`
	MaxRetries  int      `json:"max_retries" yaml:"max_retries"`
	RetryDelay  Duration `json:"retry_delay" yaml:"retry_delay"`
}

// NewAgentConfig 构造并校验配置，校验失败时不返回任何部分有效的实例。
func NewAgentConfig(network, accountID, privateKey, llmProvider, llmAPIKey string, opts ...AgentOption) (AgentConfig, error) {
	cfg := AgentConfig{
		NearNetwork: network,
		AccountID:   accountID,
		PrivateKey:  privateKey,
		LLMProvider: llmProvider,
		LLMAPIKey:   llmAPIKey,
		MaxRetries:  DefaultMaxRetries,
		RetryDelay:  Duration(DefaultRetryDelay),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if err := cfg.Validate(); err != nil {
		return AgentConfig{}, err
	}
	return cfg, nil
}

// AgentOption 调整 NewAgentConfig 的可选字段。
type AgentOption func(*AgentConfig)

// WithNodeURL 指定自定义 RPC 节点。
func WithNodeURL(url string) AgentOption {
	return func(c *AgentConfig) { c.NodeURL = url }
}

// WithRetryPolicy 设置重试次数与间隔。
func WithRetryPolicy(maxRetries int, delay time.Duration) AgentOption {
	return func(c *AgentConfig) {
		c.MaxRetries = maxRetries
		c.RetryDelay = Duration(delay)
	}
}

// Validate 按固定顺序校验配置，返回遇到的第一个错误。
func (c AgentConfig) Validate() error {
	switch {
	case c.NearNetwork == "":
		return invalid("near_network", "near_network 不能为空")
	case c.NearNetwork != NetworkMainnet && c.NearNetwork != NetworkTestnet:
		return invalid("near_network", "near_network 只能是 mainnet 或 testnet")
	case c.AccountID == "":
		return invalid("account_id", "account_id 不能为空")
	case strings.Contains(c.AccountID, "@"):
		return invalid("account_id", "account_id 格式无效")
	case c.PrivateKey == "":
		return invalid("private_key", "private_key 不能为空")
	case c.LLMProvider == "":
		return invalid("llm_provider", "llm_provider 不能为空")
	case c.LLMAPIKey == "":
		return invalid("llm_api_key", "llm_api_key 不能为空")
	case c.MaxRetries < 1:
		return invalid("max_retries", "max_retries 至少为 1")
	case c.RetryDelay <= 0:
		return invalid("retry_delay", "retry_delay 必须为正数")
	}
	return nil
}

func invalid(field, message string) error {
	return xerrors.New(xerrors.CodeConfigValidation, message, xerrors.WithMetadata("field", field))
}

// Duration 支持以 "2s" 形式或秒数书写的时间间隔。
type Duration time.Duration

// Std 返回标准库的 time.Duration。
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalJSON 以字符串形式输出。
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON 同时接受字符串与数字（秒）。
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := parseDuration(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalYAML 同时接受字符串与数字（秒）。
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := parseDuration(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func parseDuration(raw any) (Duration, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case float64:
		return Duration(v * float64(time.Second)), nil
	case int:
		return Duration(time.Duration(v) * time.Second), nil
	case string:
		parsed, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return 0, xerrors.Wrap(xerrors.CodeConfigValidation, err, "时间间隔无效: "+v)
		}
		return Duration(parsed), nil
	default:
		return 0, xerrors.Newf(xerrors.CodeConfigValidation, "不支持的时间间隔: %v", raw)
	}
}
