package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"mirrorbot/internal/core/domain"
	"mirrorbot/internal/core/ports"
	apperrors "mirrorbot/pkg/errors"
	"mirrorbot/pkg/utils"
	"mirrorbot/pkg/validation"

	"go.uber.org/zap"
)

// replacementPattern matches 'WORD(s)' 'REPLACEWORD'.
var replacementPattern = regexp.MustCompile(`^'(.+)' '(.+)'`)

type settingsService struct {
	repo     ports.SettingsRepository
	resolver ports.ChatResolver
	logger   *zap.SugaredLogger
}

func NewSettingsService(
	repo ports.SettingsRepository,
	resolver ports.ChatResolver,
	logger *zap.SugaredLogger,
) ports.SettingsService {
	return &settingsService{
		repo:     repo,
		resolver: resolver,
		logger:   logger,
	}
}

// Get returns the user's settings, or empty settings for a new user.
func (s *settingsService) Get(ctx context.Context, userID domain.UserID) (*domain.UserSettings, error) {
	settings, err := s.repo.Get(ctx, userID)
	if errors.Is(err, domain.ErrSettingsNotFound) {
		return &domain.UserSettings{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return settings, nil
}

// SetChat resolves the chat reference and stores the numeric id. The bot
// must administer the chat. A topic suffix is accepted but not stored.
func (s *settingsService) SetChat(ctx context.Context, userID domain.UserID, input string) (string, error) {
	ref, err := domain.ParseChatRef(input)
	if err != nil {
		return "", err
	}

	chatID, err := s.resolver.ResolveAdminChat(ctx, ref)
	if err != nil {
		return "", err
	}

	value := strconv.FormatInt(chatID, 10)
	if err := s.repo.Set(ctx, userID, domain.FieldChatID, value); err != nil {
		return "", fmt.Errorf("failed to save chat id: %w", err)
	}

	s.logger.Infow("target chat set", "user_id", userID, "chat_id", value, "input", ref.String())
	return value, nil
}

func (s *settingsService) SetRenameTag(ctx context.Context, userID domain.UserID, tag string) (string, error) {
	tag = utils.SanitizeString(tag)
	if err := validation.ValidateRenameTag(tag); err != nil {
		return "", apperrors.NewInvalidInputError(err.Error())
	}
	if err := s.repo.Set(ctx, userID, domain.FieldRenameTag, tag); err != nil {
		return "", fmt.Errorf("failed to save rename tag: %w", err)
	}
	return tag, nil
}

func (s *settingsService) SetCaption(ctx context.Context, userID domain.UserID, caption string) error {
	if err := validation.ValidateCaption(caption); err != nil {
		return apperrors.NewInvalidInputError(err.Error())
	}
	if err := s.repo.Set(ctx, userID, domain.FieldCaption, caption); err != nil {
		return fmt.Errorf("failed to save caption: %w", err)
	}
	return nil
}

// SetReplacement parses "'WORD(s)' 'REPLACEWORD'". Words already on the
// delete list cannot be replaced.
func (s *settingsService) SetReplacement(ctx context.Context, userID domain.UserID, input string) (string, string, error) {
	m := replacementPattern.FindStringSubmatch(strings.TrimSpace(input))
	if m == nil {
		return "", "", domain.ErrInvalidReplacement
	}
	word, replacement := m[1], m[2]

	settings, err := s.Get(ctx, userID)
	if err != nil {
		return "", "", err
	}
	if settings.HasDeleteWord(word) {
		return "", "", &domain.DeleteListConflictError{Word: word}
	}

	if err := s.repo.Set(ctx, userID, domain.FieldReplaceTxt, word); err != nil {
		return "", "", fmt.Errorf("failed to save replacement: %w", err)
	}
	if err := s.repo.Set(ctx, userID, domain.FieldToReplace, replacement); err != nil {
		return "", "", fmt.Errorf("failed to save replacement: %w", err)
	}

	s.logger.Debugw("replacement set",
		"user_id", userID,
		"word", utils.TruncateString(word, 32),
		"replacement", utils.TruncateString(replacement, 32),
	)
	return word, replacement, nil
}

// AddDeleteWords merges the space separated words into the delete list and
// returns the words that were sent.
func (s *settingsService) AddDeleteWords(ctx context.Context, userID domain.UserID, input string) ([]string, error) {
	words := domain.MergeWords(nil, strings.Fields(input))
	if err := validation.ValidateDeleteWords(words); err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}

	merged, err := s.repo.AddCleanWords(ctx, userID, words)
	if err != nil {
		return nil, fmt.Errorf("failed to save delete words: %w", err)
	}

	s.logger.Debugw("delete words updated", "user_id", userID, "count", len(merged))
	return words, nil
}

func (s *settingsService) SetSession(ctx context.Context, userID domain.UserID, session string) error {
	session = strings.TrimSpace(session)
	if err := validation.ValidateSessionString(session); err != nil {
		return apperrors.NewInvalidInputError(err.Error())
	}
	if err := s.repo.Set(ctx, userID, domain.FieldSession, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	s.logger.Infow("session saved", "user_id", userID, "session", utils.MaskSensitive(session, 4))
	return nil
}

func (s *settingsService) SetThumbnail(ctx context.Context, userID domain.UserID, fileID string) error {
	if strings.TrimSpace(fileID) == "" {
		return domain.ErrPhotoRequired
	}
	if err := s.repo.Set(ctx, userID, domain.FieldThumbnail, fileID); err != nil {
		return fmt.Errorf("failed to save thumbnail: %w", err)
	}
	return nil
}

func (s *settingsService) Logout(ctx context.Context, userID domain.UserID) (bool, error) {
	removed, err := s.repo.Unset(ctx, userID, domain.FieldSession)
	if err != nil {
		return false, fmt.Errorf("failed to remove session: %w", err)
	}
	return removed, nil
}

func (s *settingsService) Reset(ctx context.Context, userID domain.UserID) error {
	if _, err := s.repo.Unset(ctx, userID, domain.ResetFields...); err != nil {
		return fmt.Errorf("failed to reset settings: %w", err)
	}
	s.logger.Infow("settings reset", "user_id", userID)
	return nil
}

func (s *settingsService) RemoveThumbnail(ctx context.Context, userID domain.UserID) (bool, error) {
	removed, err := s.repo.Unset(ctx, userID, domain.FieldThumbnail)
	if err != nil {
		return false, fmt.Errorf("failed to remove thumbnail: %w", err)
	}
	return removed, nil
}

func (s *settingsService) RenameFile(ctx context.Context, userID domain.UserID, fileName string) (string, error) {
	settings, err := s.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return Rename(fileName, settings), nil
}

func (s *settingsService) RenderCaption(ctx context.Context, userID domain.UserID, original string) (string, error) {
	settings, err := s.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return RenderCaption(original, settings), nil
}
