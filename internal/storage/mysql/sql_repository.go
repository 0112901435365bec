package mysql

import (
	"context"
	"database/sql"
	"fmt"
)

const sqlListCap = 500

// SQLActionRepository 将动作日志写入 MySQL 的 near_actions 表。
type SQLActionRepository struct {
	db *sql.DB
}

// NewSQLActionRepository 建立连接并执行迁移。
func NewSQLActionRepository(ctx context.Context, cfg Config) (*SQLActionRepository, error) {
	db, err := openDatabase(ctx, driverName, cfg)
	if err != nil {
		return nil, err
	}
	repo, err := newSQLActionRepository(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func newSQLActionRepository(ctx context.Context, db *sql.DB) (*SQLActionRepository, error) {
	if err := migrate(ctx, db, nil); err != nil {
		return nil, err
	}
	return &SQLActionRepository{db: db}, nil
}

// Save 插入一条动作记录，并回填自增 ID。
func (s *SQLActionRepository) Save(ctx context.Context, record *ActionRecord) error {
	if record == nil {
		return fmt.Errorf("动作记录不能为空")
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO near_actions
        (account_id, network, action_type, receiver_id, status, error_code, error_message, tx_hash, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.AccountID, record.Network, record.ActionType, record.ReceiverID, record.Status,
		record.ErrorCode, record.ErrorMessage, record.TxHash, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("写入动作记录失败: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		record.ID = id
	}
	return nil
}

// ListLatest 按创建时间倒序返回最近的动作记录。
func (s *SQLActionRepository) ListLatest(ctx context.Context, limit int) ([]ActionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, account_id, network, action_type, receiver_id, status,
        error_code, COALESCE(error_message, ''), tx_hash, created_at
        FROM near_actions ORDER BY created_at DESC, id DESC LIMIT ?`, normalizeLimit(limit, sqlListCap))
	if err != nil {
		return nil, fmt.Errorf("查询动作记录失败: %w", err)
	}
	defer rows.Close()

	var records []ActionRecord
	for rows.Next() {
		var r ActionRecord
		if err := rows.Scan(&r.ID, &r.AccountID, &r.Network, &r.ActionType, &r.ReceiverID, &r.Status,
			&r.ErrorCode, &r.ErrorMessage, &r.TxHash, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("解析动作记录失败: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历动作记录失败: %w", err)
	}
	return records, nil
}

// Close 关闭底层连接池。
func (s *SQLActionRepository) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
