package mysql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// 动作执行结果。
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// ActionRecord 记录一次智能体动作的执行结果，不包含动作参数本身。
type ActionRecord struct {
	ID           int64  `json:"id"`
	AccountID    string `json:"account_id"`
	Network      string `json:"network"`
	ActionType   string `json:"action_type"`
	ReceiverID   string `json:"receiver_id,omitempty"`
	Status       string `json:"status"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	TxHash       string `json:"tx_hash,omitempty"`
	CreatedAt    int64  `json:"created_at"`
}

// ActionRepository 抽象动作日志的持久化接口。
type ActionRepository interface {
	Save(ctx context.Context, record *ActionRecord) error
	ListLatest(ctx context.Context, limit int) ([]ActionRecord, error)
	Close() error
}

// Config 描述 MySQL 连接池参数。
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// ErrUnsupportedDriver 表示配置了未知的存储驱动。
var ErrUnsupportedDriver = errors.New("暂不支持的存储驱动")

// Open 根据驱动名称创建动作日志仓库。driver 为空或 "none" 时返回 nil，表示不记录。
func Open(ctx context.Context, driver, dataDir string, cfg Config) (ActionRepository, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryActionRepository(dataDir)
	case "mysql":
		return NewSQLActionRepository(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}
}

func normalizeLimit(limit, max int) int {
	if limit <= 0 || limit > max {
		return max
	}
	return limit
}
