package backup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mirrorbot/internal/core/domain"
	"mirrorbot/internal/core/ports"
	"mirrorbot/pkg/backup"

	"go.uber.org/zap"
)

// Config contains snapshot configuration
type Config struct {
	Interval time.Duration
	Retain   int
}

// Snapshotter periodically writes the premium store to backup storage.
type Snapshotter struct {
	backupService *backup.BackupService
	repo          ports.EntitlementRepository
	config        Config
	logger        *zap.SugaredLogger
}

// NewSnapshotter creates a new premium store snapshotter
func NewSnapshotter(
	backupService *backup.BackupService,
	repo ports.EntitlementRepository,
	cfg Config,
	logger *zap.SugaredLogger,
) *Snapshotter {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	return &Snapshotter{
		backupService: backupService,
		repo:          repo,
		config:        cfg,
		logger:        logger,
	}
}

// Start snapshots every interval until ctx is done, then takes a final
// snapshot.
func (s *Snapshotter) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.run(ctx)
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			s.run(final)
			cancel()
			return nil
		}
	}
}

func (s *Snapshotter) run(ctx context.Context) {
	name, err := s.Snapshot(ctx)
	if err != nil {
		s.logger.Errorw("failed to snapshot premium store", "error", err)
		return
	}

	deleted, err := s.backupService.Prune(ctx, s.config.Retain)
	if err != nil {
		s.logger.Warnw("failed to prune old backups", "error", err)
	}
	s.logger.Infow("premium store snapshot written", "backup_name", name, "pruned", len(deleted))
}

// Snapshot writes one backup of every entitled user.
func (s *Snapshotter) Snapshot(ctx context.Context) (string, error) {
	data, err := s.collect(ctx)
	if err != nil {
		return "", err
	}
	return s.backupService.CreateBackup(ctx, data)
}

func (s *Snapshotter) collect(ctx context.Context) (*backup.BackupData, error) {
	ids, err := s.repo.ListUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list premium users: %w", err)
	}

	data := &backup.BackupData{
		Entitlements: make([]backup.EntitlementRecord, 0, len(ids)),
		Metadata:     map[string]interface{}{"backup_type": "scheduled"},
	}

	for _, id := range ids {
		record, err := s.repo.Get(ctx, id)
		if errors.Is(err, domain.ErrNotEntitled) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read premium user %d: %w", id, err)
		}
		data.Entitlements = append(data.Entitlements, backup.EntitlementRecord{
			UserID:   int64(record.UserID),
			ExpireAt: *record.ExpireAt,
		})
	}

	data.Metadata["user_count"] = len(data.Entitlements)
	return data, nil
}
