package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mirrorbot/internal/core/domain"
	"mirrorbot/pkg/logger"
	"mirrorbot/pkg/utils"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleConversationInput consumes the reply to a settings prompt. Outside a
// conversation, files are renamed and anything else is ignored.
func (h *Handler) handleConversationInput(ctx context.Context, msg *tgbotapi.Message) {
	userID := domain.UserID(msg.From.ID)
	session, err := h.conversations.Take(ctx, userID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		h.handleFile(ctx, msg)
		return
	}

	ctx = logger.WithUserID(ctx, msg.From.ID)
	ctx = logger.WithChatID(ctx, msg.Chat.ID)

	var r reply
	if err == nil {
		ctx = logger.WithCommand(ctx, session.Action.String())
		r, err = h.applyAction(ctx, session.Action, msg)
	}
	if err != nil {
		h.ctxLogger.LogWarn(ctx, "settings input rejected")
		r = textReply(settingsErrorText(err))
	}
	h.reply(ctx, msg.Chat.ID, msg.MessageID, r)
}

func (h *Handler) applyAction(ctx context.Context, action domain.Action, msg *tgbotapi.Message) (reply, error) {
	userID := domain.UserID(msg.From.ID)
	text := msg.Text

	switch action {
	case domain.ActionSetChat:
		if _, err := h.settings.SetChat(ctx, userID, text); err != nil {
			return reply{}, err
		}
		return textReply("✅ Chat ID set successfully!"), nil

	case domain.ActionSetRename:
		tag, err := h.settings.SetRenameTag(ctx, userID, text)
		if err != nil {
			return reply{}, err
		}
		return textReply(fmt.Sprintf("✅ Rename tag set to: %s", utils.EscapeHTML(tag))), nil

	case domain.ActionSetCaption:
		if err := h.settings.SetCaption(ctx, userID, text); err != nil {
			return reply{}, err
		}
		return textReply("✅ Caption set successfully!"), nil

	case domain.ActionSetReplacement:
		word, replacement, err := h.settings.SetReplacement(ctx, userID, text)
		if err != nil {
			return reply{}, err
		}
		return textReply(fmt.Sprintf("✅ Replacement saved: '%s' will be replaced with '%s'",
			utils.EscapeHTML(word), utils.EscapeHTML(replacement))), nil

	case domain.ActionAddSession:
		if err := h.settings.SetSession(ctx, userID, text); err != nil {
			return reply{}, err
		}
		return textReply("✅ Session string added successfully!"), nil

	case domain.ActionDeleteWords:
		words, err := h.settings.AddDeleteWords(ctx, userID, text)
		if err != nil {
			return reply{}, err
		}
		return textReply(fmt.Sprintf("✅ Words added to delete list: %s",
			utils.EscapeHTML(strings.Join(words, ", ")))), nil

	case domain.ActionSetThumbnail:
		if err := h.settings.SetThumbnail(ctx, userID, largestPhoto(msg)); err != nil {
			return reply{}, err
		}
		return textReply("✅ Thumbnail saved successfully!"), nil

	case domain.ActionLogout, domain.ActionReset, domain.ActionRemoveThumbnail, domain.ActionUnknown:
		return reply{}, fmt.Errorf("%w: %s has no input step", domain.ErrUnknownAction, action)
	}
	return reply{}, fmt.Errorf("%w: %d", domain.ErrUnknownAction, action)
}

// settingsErrorText renders the delete-list conflict with the offending
// word; everything else goes through errorText.
func settingsErrorText(err error) string {
	var conflict *domain.DeleteListConflictError
	if errors.As(err, &conflict) {
		return fmt.Sprintf("❌ The word '%s' is in the delete list and cannot be replaced.", utils.EscapeHTML(conflict.Word))
	}
	return errorText(err)
}

// largestPhoto returns the file id of the biggest photo size, or "".
func largestPhoto(msg *tgbotapi.Message) string {
	if len(msg.Photo) == 0 {
		return ""
	}
	return msg.Photo[len(msg.Photo)-1].FileID
}
