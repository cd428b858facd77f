package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"
)

const (
	namePrefix = "backup-"
	nameLayout = "20060102-150405"
)

// ErrNoBackups is returned when the storage holds no backup.
var ErrNoBackups = errors.New("no backups found")

// EntitlementRecord is one premium user in a backup.
type EntitlementRecord struct {
	UserID   int64     `json:"user_id"`
	ExpireAt time.Time `json:"expire_at"`
}

// BackupData represents backup data structure
type BackupData struct {
	Version      string                 `json:"version"`
	Timestamp    time.Time              `json:"timestamp"`
	Entitlements []EntitlementRecord    `json:"entitlements"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// Storage defines interface for backup storage
type Storage interface {
	Save(ctx context.Context, name string, data io.Reader) error
	Load(ctx context.Context, name string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// BackupService handles backup operations
type BackupService struct {
	storage Storage
	version string
	now     func() time.Time
}

// NewBackupService creates a new backup service
func NewBackupService(storage Storage, version string) *BackupService {
	return &BackupService{
		storage: storage,
		version: version,
		now:     time.Now,
	}
}

// CreateBackup creates a backup of the provided data
func (bs *BackupService) CreateBackup(ctx context.Context, data *BackupData) (string, error) {
	data.Version = bs.version
	data.Timestamp = bs.now().UTC()

	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal backup data: %w", err)
	}

	backupName := namePrefix + data.Timestamp.Format(nameLayout) + ".json"

	if err := bs.storage.Save(ctx, backupName, bytes.NewReader(jsonData)); err != nil {
		return "", fmt.Errorf("failed to save backup: %w", err)
	}

	return backupName, nil
}

// RestoreBackup loads a backup by name
func (bs *BackupService) RestoreBackup(ctx context.Context, name string) (*BackupData, error) {
	reader, err := bs.storage.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load backup: %w", err)
	}
	defer reader.Close()

	var backupData BackupData
	if err := json.NewDecoder(reader).Decode(&backupData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal backup data: %w", err)
	}
	if backupData.Version == "" {
		return nil, fmt.Errorf("invalid backup %s: missing version", name)
	}

	return &backupData, nil
}

// ListBackups lists all available backups, oldest first.
func (bs *BackupService) ListBackups(ctx context.Context) ([]string, error) {
	names, err := bs.storage.List(ctx, namePrefix)
	if err != nil {
		return nil, err
	}
	// Names embed a sortable timestamp.
	sort.Strings(names)
	return names, nil
}

// LatestBackup returns the name of the newest backup or ErrNoBackups.
func (bs *BackupService) LatestBackup(ctx context.Context) (string, error) {
	names, err := bs.ListBackups(ctx)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", ErrNoBackups
	}
	return names[len(names)-1], nil
}

// DeleteBackup deletes a backup
func (bs *BackupService) DeleteBackup(ctx context.Context, name string) error {
	return bs.storage.Delete(ctx, name)
}

// Prune keeps the newest keep backups and deletes the rest.
func (bs *BackupService) Prune(ctx context.Context, keep int) ([]string, error) {
	names, err := bs.ListBackups(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	if keep < 1 || len(names) <= keep {
		return nil, nil
	}

	var (
		deleted []string
		errs    []error
	)
	for _, name := range names[:len(names)-keep] {
		if err := bs.storage.Delete(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		deleted = append(deleted, name)
	}
	return deleted, errors.Join(errs...)
}
