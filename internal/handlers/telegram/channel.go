package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleChannelPost mirrors a post in a registered target chat. Media is
// copied, plain text is re-sent.
func (h *Handler) handleChannelPost(ctx context.Context, post *tgbotapi.Message) {
	chatID := post.Chat.ID
	target, err := h.mirror.Target(ctx, chatID, post.MessageID)
	if err != nil {
		h.logger.Warnw("failed to check mirror target", "chat_id", chatID, "error", err)
		return
	}
	if !target {
		return
	}

	kind := "copy"
	var out tgbotapi.Chattable
	if post.Text != "" {
		kind = "text"
		out = tgbotapi.NewMessage(chatID, post.Text)
	} else {
		out = tgbotapi.NewCopyMessage(chatID, chatID, post.MessageID)
	}

	sent, err := h.api.Send(out)
	h.metrics.RecordMirror(kind, err)
	if err != nil {
		h.logger.Warnw("failed to mirror post", "chat_id", chatID, "message_id", post.MessageID, "kind", kind, "error", err)
		return
	}
	h.mirror.RememberCopy(chatID, sent.MessageID)
	h.logger.Debugw("post mirrored", "chat_id", chatID, "message_id", post.MessageID, "copy_id", sent.MessageID)
}
