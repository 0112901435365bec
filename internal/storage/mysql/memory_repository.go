package mysql

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const memoryRetention = 512

// MemoryActionRepository 把动作日志追加写入本地 JSON lines 文件，并在内存中保留最近的记录。
type MemoryActionRepository struct {
	mu       sync.RWMutex
	dataFile string
	records  []ActionRecord
	nextID   int64
}

// NewMemoryActionRepository 创建基于文件的动作日志仓库，并恢复已有记录。
func NewMemoryActionRepository(dataDir string) (*MemoryActionRepository, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}
	repo := &MemoryActionRepository{dataFile: filepath.Join(dataDir, "actions.log")}
	if err := repo.loadFromDisk(); err != nil {
		return nil, err
	}
	return repo, nil
}

// Save 追加一条记录并分配 ID。只有写入成功后 ID 才会被占用并回填到 record。
func (m *MemoryActionRepository) Save(_ context.Context, record *ActionRecord) error {
	if record == nil {
		return fmt.Errorf("动作记录不能为空")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := *record
	entry.ID = m.nextID + 1

	encoded, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("序列化动作记录失败: %w", err)
	}
	file, err := os.OpenFile(m.dataFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("打开动作日志失败: %w", err)
	}
	defer file.Close()
	if _, err := file.Write(append(encoded, '\n')); err != nil {
		return fmt.Errorf("写入动作日志失败: %w", err)
	}

	m.nextID = entry.ID
	record.ID = entry.ID
	m.records = append([]ActionRecord{entry}, m.records...)
	if len(m.records) > memoryRetention {
		m.records = m.records[:memoryRetention]
	}
	return nil
}

// ListLatest 返回最近的记录，按时间倒序排列。
func (m *MemoryActionRepository) ListLatest(_ context.Context, limit int) ([]ActionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit = normalizeLimit(limit, len(m.records))
	out := make([]ActionRecord, limit)
	copy(out, m.records[:limit])
	return out, nil
}

// Close 无需释放资源。
func (m *MemoryActionRepository) Close() error { return nil }

func (m *MemoryActionRepository) loadFromDisk() error {
	file, err := os.OpenFile(m.dataFile, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("读取动作日志失败: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var restored []ActionRecord
	for scanner.Scan() {
		var record ActionRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			continue
		}
		if record.ID > m.nextID {
			m.nextID = record.ID
		}
		restored = append([]ActionRecord{record}, restored...)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("解析动作日志失败: %w", err)
	}
	if len(restored) > memoryRetention {
		restored = restored[:memoryRetention]
	}
	m.records = restored
	return nil
}
