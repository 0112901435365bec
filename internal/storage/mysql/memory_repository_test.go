package mysql

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryActionRepositoryPersistsAcrossRestarts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	repo, err := NewMemoryActionRepository(dir)
	if err != nil {
		t.Fatalf("NewMemoryActionRepository returned error: %v", err)
	}

	ctx := context.Background()
	for i, receiver := range []string{"alice.testnet", "bob.testnet", "carol.testnet"} {
		record := &ActionRecord{
			AccountID:  "agent.testnet",
			Network:    "testnet",
			ActionType: "transaction",
			ReceiverID: receiver,
			Status:     StatusSucceeded,
			CreatedAt:  int64(100 + i),
		}
		if err := repo.Save(ctx, record); err != nil {
			t.Fatalf("Save returned error: %v", err)
		}
		if record.ID != int64(i+1) {
			t.Fatalf("expected id %d, got %d", i+1, record.ID)
		}
	}

	reopened, err := NewMemoryActionRepository(dir)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	latest, err := reopened.ListLatest(ctx, 2)
	if err != nil {
		t.Fatalf("ListLatest returned error: %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("expected 2 records, got %d", len(latest))
	}
	if latest[0].ReceiverID != "carol.testnet" || latest[1].ReceiverID != "bob.testnet" {
		t.Fatalf("records not in reverse order: %+v", latest)
	}

	next := &ActionRecord{ActionType: "transaction", Status: StatusFailed}
	if err := reopened.Save(ctx, next); err != nil {
		t.Fatalf("Save after reopen returned error: %v", err)
	}
	if next.ID != 4 {
		t.Fatalf("expected id sequence to continue at 4, got %d", next.ID)
	}
}

func TestMemoryActionRepositoryFailedWriteKeepsSequence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	repo, err := NewMemoryActionRepository(dir)
	if err != nil {
		t.Fatalf("NewMemoryActionRepository returned error: %v", err)
	}

	// 用同名目录占住日志文件，使追加写入失败。
	logPath := filepath.Join(dir, "actions.log")
	if err := os.Remove(logPath); err != nil {
		t.Fatalf("remove log: %v", err)
	}
	if err := os.Mkdir(logPath, 0o755); err != nil {
		t.Fatalf("block log path: %v", err)
	}

	ctx := context.Background()
	failed := &ActionRecord{ActionType: "transaction", Status: StatusSucceeded}
	if err := repo.Save(ctx, failed); err == nil {
		t.Fatalf("expected Save to fail when the log cannot be opened")
	}
	if failed.ID != 0 {
		t.Fatalf("failed record should not get an id, got %d", failed.ID)
	}
	if latest, _ := repo.ListLatest(ctx, 10); len(latest) != 0 {
		t.Fatalf("failed record should not be kept: %+v", latest)
	}

	if err := os.Remove(logPath); err != nil {
		t.Fatalf("unblock log path: %v", err)
	}
	record := &ActionRecord{ActionType: "transaction", Status: StatusSucceeded}
	if err := repo.Save(ctx, record); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if record.ID != 1 {
		t.Fatalf("expected id 1 after a failed write, got %d", record.ID)
	}
}

func TestMemoryActionRepositoryRejectsNil(t *testing.T) {
	t.Parallel()

	repo, err := NewMemoryActionRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewMemoryActionRepository returned error: %v", err)
	}
	if err := repo.Save(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil record")
	}
}

func TestOpenSelectsDriver(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo, err := Open(ctx, "", t.TempDir(), Config{})
	if err != nil || repo != nil {
		t.Fatalf("empty driver should disable the journal, got %v %v", repo, err)
	}

	repo, err = Open(ctx, "Memory", t.TempDir(), Config{})
	if err != nil {
		t.Fatalf("memory driver returned error: %v", err)
	}
	if _, ok := repo.(*MemoryActionRepository); !ok {
		t.Fatalf("expected memory repository, got %T", repo)
	}

	if _, err := Open(ctx, "postgres", t.TempDir(), Config{}); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
	if _, err := Open(ctx, "mysql", t.TempDir(), Config{}); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
}
