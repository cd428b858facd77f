package backup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mirrorbot/internal/core/domain"
	"mirrorbot/internal/core/ports"
	"mirrorbot/pkg/backup"
	"mirrorbot/pkg/utils"

	"go.uber.org/zap"
)

// RestoreOptions contains restore options
type RestoreOptions struct {
	OverwriteExisting bool
}

// RestoreResult summarises a restore.
type RestoreResult struct {
	Backup   string
	Restored int
	Existing int
	Expired  int
}

// RestoreService loads backups into the premium store
type RestoreService struct {
	backupService *backup.BackupService
	repo          ports.EntitlementRepository
	now           func() time.Time
	logger        *zap.SugaredLogger
}

// NewRestoreService creates a new restore service
func NewRestoreService(
	backupService *backup.BackupService,
	repo ports.EntitlementRepository,
	logger *zap.SugaredLogger,
) *RestoreService {
	return &RestoreService{
		backupService: backupService,
		repo:          repo,
		now:           utils.Now,
		logger:        logger,
	}
}

// RestoreLatest restores the newest backup. Having no backup at all is not
// an error.
func (rs *RestoreService) RestoreLatest(ctx context.Context, options RestoreOptions) (*RestoreResult, error) {
	name, err := rs.backupService.LatestBackup(ctx)
	if errors.Is(err, backup.ErrNoBackups) {
		return &RestoreResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest backup: %w", err)
	}
	return rs.RestoreFromBackup(ctx, name, options)
}

// RestoreFromBackup restores premium users from a specific backup. Records
// that expired since the backup was taken are not restored.
func (rs *RestoreService) RestoreFromBackup(ctx context.Context, backupName string, options RestoreOptions) (*RestoreResult, error) {
	rs.logger.Infow("starting restore", "backup_name", backupName, "overwrite", options.OverwriteExisting)

	data, err := rs.backupService.RestoreBackup(ctx, backupName)
	if err != nil {
		return nil, fmt.Errorf("failed to load backup: %w", err)
	}

	result := &RestoreResult{Backup: backupName}
	now := rs.now()

	for _, record := range data.Entitlements {
		if !record.ExpireAt.After(now) {
			result.Expired++
			continue
		}

		userID := domain.UserID(record.UserID)
		if !options.OverwriteExisting {
			_, err := rs.repo.Get(ctx, userID)
			if err == nil {
				result.Existing++
				continue
			}
			if !errors.Is(err, domain.ErrNotEntitled) {
				return result, fmt.Errorf("failed to check premium user %d: %w", userID, err)
			}
		}

		if err := rs.repo.Upsert(ctx, userID, record.ExpireAt); err != nil {
			return result, fmt.Errorf("failed to restore premium user %d: %w", userID, err)
		}
		result.Restored++
	}

	rs.logger.Infow("restore completed",
		"backup_name", backupName,
		"restored", result.Restored,
		"existing", result.Existing,
		"expired", result.Expired,
	)
	return result, nil
}
