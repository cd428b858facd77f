package memory

import (
	"context"
	"fmt"
	"sync"

	"mirrorbot/internal/core/domain"
	"mirrorbot/internal/core/ports"
)

type MemorySettingsRepository struct {
	settings map[domain.UserID]*domain.UserSettings
	mu       sync.RWMutex
}

func NewMemorySettingsRepository() ports.SettingsRepository {
	return &MemorySettingsRepository{
		settings: make(map[domain.UserID]*domain.UserSettings),
	}
}

func cloneSettings(s *domain.UserSettings) *domain.UserSettings {
	c := *s
	c.CleanWords = append([]string(nil), s.CleanWords...)
	return &c
}

func (r *MemorySettingsRepository) Get(ctx context.Context, userID domain.UserID) (*domain.UserSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.settings[userID]
	if !exists {
		return nil, domain.ErrSettingsNotFound
	}
	return cloneSettings(s), nil
}

// entry returns the stored settings, creating them if needed. Caller holds mu.
func (r *MemorySettingsRepository) entry(userID domain.UserID) *domain.UserSettings {
	s, exists := r.settings[userID]
	if !exists {
		s = &domain.UserSettings{UserID: userID}
		r.settings[userID] = s
	}
	return s
}

func (r *MemorySettingsRepository) Set(ctx context.Context, userID domain.UserID, field domain.SettingsField, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.entry(userID).SetValue(field, value) {
		return fmt.Errorf("unsupported settings field %q", field)
	}
	return nil
}

func (r *MemorySettingsRepository) AddCleanWords(ctx context.Context, userID domain.UserID, words []string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.entry(userID)
	s.CleanWords = domain.MergeWords(s.CleanWords, words)
	return append([]string(nil), s.CleanWords...), nil
}

func (r *MemorySettingsRepository) Unset(ctx context.Context, userID domain.UserID, fields ...domain.SettingsField) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.settings[userID]
	if !exists {
		return false, nil
	}
	changed := false
	for _, f := range fields {
		if s.Clear(f) {
			changed = true
		}
	}
	return changed, nil
}

func (r *MemorySettingsRepository) FindByChatID(ctx context.Context, chatID string) (*domain.UserSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.settings {
		if s.ChatID != "" && s.ChatID == chatID {
			return cloneSettings(s), nil
		}
	}
	return nil, domain.ErrSettingsNotFound
}
