package backup

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestService(t *testing.T) (*BackupService, string, *time.Time) {
	t.Helper()
	tmpDir := t.TempDir()
	storage, err := NewFileStorage(tmpDir)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	service := NewBackupService(storage, "1.0.0")
	service.now = func() time.Time { return now }
	return service, tmpDir, &now
}

func TestBackupService_CreateBackup(t *testing.T) {
	service, tmpDir, _ := newTestService(t)

	data := &BackupData{
		Entitlements: []EntitlementRecord{
			{UserID: 42, ExpireAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
		},
	}

	backupName, err := service.CreateBackup(context.Background(), data)
	if err != nil {
		t.Fatalf("failed to create backup: %v", err)
	}

	if backupName != "backup-20260102-030405.json" {
		t.Errorf("unexpected backup name %q", backupName)
	}

	filePath := filepath.Join(tmpDir, backupName)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		t.Errorf("backup file does not exist: %s", filePath)
	}
}

func TestBackupService_RestoreBackup(t *testing.T) {
	service, _, _ := newTestService(t)

	expire := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	backupName, err := service.CreateBackup(context.Background(), &BackupData{
		Entitlements: []EntitlementRecord{{UserID: 42, ExpireAt: expire}},
	})
	if err != nil {
		t.Fatalf("failed to create backup: %v", err)
	}

	restored, err := service.RestoreBackup(context.Background(), backupName)
	if err != nil {
		t.Fatalf("failed to restore backup: %v", err)
	}

	if restored.Version != "1.0.0" {
		t.Errorf("expected version '1.0.0', got '%s'", restored.Version)
	}

	if len(restored.Entitlements) != 1 {
		t.Fatalf("expected 1 entitlement, got %d", len(restored.Entitlements))
	}
	if !restored.Entitlements[0].ExpireAt.Equal(expire) {
		t.Errorf("expected expiry %v, got %v", expire, restored.Entitlements[0].ExpireAt)
	}
}

func TestBackupService_LatestAndPrune(t *testing.T) {
	service, _, now := newTestService(t)
	ctx := context.Background()

	if _, err := service.LatestBackup(ctx); err != ErrNoBackups {
		t.Fatalf("expected ErrNoBackups, got %v", err)
	}

	var names []string
	for i := 0; i < 4; i++ {
		name, err := service.CreateBackup(ctx, &BackupData{})
		if err != nil {
			t.Fatalf("failed to create backup: %v", err)
		}
		names = append(names, name)
		*now = now.Add(time.Minute)
	}

	latest, err := service.LatestBackup(ctx)
	if err != nil {
		t.Fatalf("failed to get latest backup: %v", err)
	}
	if latest != names[3] {
		t.Errorf("expected latest %s, got %s", names[3], latest)
	}

	deleted, err := service.Prune(ctx, 2)
	if err != nil {
		t.Fatalf("failed to prune: %v", err)
	}
	if len(deleted) != 2 || deleted[0] != names[0] || deleted[1] != names[1] {
		t.Errorf("unexpected pruned backups: %v", deleted)
	}

	backups, err := service.ListBackups(ctx)
	if err != nil {
		t.Fatalf("failed to list backups: %v", err)
	}
	if len(backups) != 2 {
		t.Errorf("expected 2 backups, got %d", len(backups))
	}
}

func TestBackupService_RejectsUnversionedBackup(t *testing.T) {
	tmpDir := t.TempDir()
	storage, err := NewFileStorage(tmpDir)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	if err := storage.Save(context.Background(), "backup-x.json", bytes.NewReader([]byte(`{"entitlements":[]}`))); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	service := NewBackupService(storage, "1.0.0")
	if _, err := service.RestoreBackup(context.Background(), "backup-x.json"); err == nil {
		t.Error("expected error for backup without version")
	}
}

func TestFileStorage(t *testing.T) {
	tmpDir := t.TempDir()
	storage, err := NewFileStorage(tmpDir)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	err = storage.Save(context.Background(), "test.txt", bytes.NewReader([]byte("test data")))
	if err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	loaded, err := storage.Load(context.Background(), "test.txt")
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	content, err := io.ReadAll(loaded)
	loaded.Close()
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if string(content) != "test data" {
		t.Errorf("unexpected content %q", content)
	}

	files, err := storage.List(context.Background(), "test")
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}

	if len(files) != 1 {
		t.Errorf("expected 1 file, got %d", len(files))
	}

	err = storage.Delete(context.Background(), "test.txt")
	if err != nil {
		t.Fatalf("failed to delete: %v", err)
	}
}
