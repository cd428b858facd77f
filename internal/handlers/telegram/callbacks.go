package telegram

import (
	"context"
	"fmt"

	"mirrorbot/internal/core/domain"
	"mirrorbot/pkg/logger"
	"mirrorbot/pkg/tracing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleCallback serves the settings menu buttons. The callback is always
// answered so the client stops its spinner.
func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	action, err := domain.ParseAction(q.Data)

	ctx, span := tracing.TraceCallback(ctx, q.Data, q.From.ID)
	defer span.End()
	ctx = logger.WithUserID(ctx, q.From.ID)
	ctx = logger.WithCommand(ctx, action.String())

	answer := ""
	var follow reply
	if err == nil {
		answer, follow, err = h.runAction(ctx, action, domain.UserID(q.From.ID))
	}
	if err != nil {
		tracing.RecordError(ctx, err)
		h.ctxLogger.LogError(ctx, err, "callback failed")
		answer = errorText(err)
		follow = reply{}
	}

	if _, err := h.api.Request(tgbotapi.NewCallback(q.ID, answer)); err != nil {
		h.ctxLogger.LogWarn(ctx, fmt.Sprintf("failed to answer callback: %v", err))
	}
	if q.Message != nil {
		h.reply(ctx, q.Message.Chat.ID, 0, follow)
	}
}

// runAction returns the callback answer and an optional follow-up message.
func (h *Handler) runAction(ctx context.Context, action domain.Action, userID domain.UserID) (string, reply, error) {
	switch action {
	case domain.ActionSetChat, domain.ActionSetRename, domain.ActionSetCaption,
		domain.ActionSetReplacement, domain.ActionAddSession, domain.ActionDeleteWords,
		domain.ActionSetThumbnail:
		if _, err := h.conversations.Begin(ctx, userID, action); err != nil {
			return "", reply{}, err
		}
		return "", textReply(prompt(action)), nil

	case domain.ActionLogout:
		removed, err := h.settings.Logout(ctx, userID)
		if err != nil {
			return "", reply{}, err
		}
		if !removed {
			return "No session found", reply{}, nil
		}
		return "Logged out successfully", reply{}, nil

	case domain.ActionReset:
		if err := h.settings.Reset(ctx, userID); err != nil {
			return "", reply{}, err
		}
		return "", textReply("✅ All settings reset successfully"), nil

	case domain.ActionRemoveThumbnail:
		removed, err := h.settings.RemoveThumbnail(ctx, userID)
		if err != nil {
			return "", reply{}, err
		}
		if !removed {
			return "No thumbnail found", reply{}, nil
		}
		return "Thumbnail removed successfully!", reply{}, nil

	case domain.ActionUnknown:
		return "", reply{}, domain.ErrUnknownAction
	}
	return "", reply{}, fmt.Errorf("%w: %d", domain.ErrUnknownAction, action)
}
