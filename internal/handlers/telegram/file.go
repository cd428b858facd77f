package telegram

import (
	"context"
	"fmt"
	"time"

	"mirrorbot/internal/core/domain"
	apperrors "mirrorbot/pkg/errors"
	"mirrorbot/pkg/logger"
	"mirrorbot/pkg/tracing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// maxDownloadSize is the largest file the Bot API lets a bot download.
const maxDownloadSize = 20 << 20

type attachment struct {
	fileID string
	name   string
	size   int
}

func attachmentOf(msg *tgbotapi.Message) (attachment, bool) {
	switch {
	case msg.Document != nil:
		return attachment{msg.Document.FileID, msg.Document.FileName, msg.Document.FileSize}, true
	case msg.Video != nil:
		name := msg.Video.FileName
		if name == "" {
			name = msg.Video.FileUniqueID + ".mp4"
		}
		return attachment{msg.Video.FileID, name, msg.Video.FileSize}, true
	case msg.Audio != nil:
		name := msg.Audio.FileName
		if name == "" {
			name = msg.Audio.FileUniqueID + ".mp3"
		}
		return attachment{msg.Audio.FileID, name, msg.Audio.FileSize}, true
	}
	return attachment{}, false
}

// handleFile sends a file back as a document named by the user's rename
// rules, captioned with the rendered caption. The upload itself is the reply;
// only failures get a text answer.
func (h *Handler) handleFile(ctx context.Context, msg *tgbotapi.Message) {
	file, ok := attachmentOf(msg)
	if !ok {
		return
	}

	ctx, span := tracing.TraceCommand(ctx, "rename", msg.From.ID, msg.Chat.ID)
	defer span.End()
	ctx = logger.WithUserID(ctx, msg.From.ID)
	ctx = logger.WithChatID(ctx, msg.Chat.ID)
	ctx = logger.WithCommand(ctx, "rename")

	start := time.Now()
	err := h.renameFile(ctx, msg, file)
	h.metrics.RecordCommand("rename", time.Since(start), err)
	if err != nil {
		tracing.RecordError(ctx, err)
		h.ctxLogger.LogError(ctx, err, "file rename failed")
		h.reply(ctx, msg.Chat.ID, msg.MessageID, textReply(errorText(err)))
	}
}

func (h *Handler) renameFile(ctx context.Context, msg *tgbotapi.Message, file attachment) error {
	userID := domain.UserID(msg.From.ID)
	if !h.cfg.IsOwner(msg.From.ID) && !h.limiter.Allow(userID) {
		return apperrors.NewRateLimitError()
	}
	if file.size > maxDownloadSize {
		return domain.ErrFileTooLarge
	}

	name, err := h.settings.RenameFile(ctx, userID, file.name)
	if err != nil {
		return err
	}
	caption, err := h.settings.RenderCaption(ctx, userID, msg.Caption)
	if err != nil {
		return err
	}

	body, err := h.gateway.OpenFile(ctx, file.fileID)
	if err != nil {
		return err
	}
	defer body.Close()

	doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FileReader{Name: name, Reader: body})
	doc.Caption = caption
	doc.ReplyToMessageID = msg.MessageID
	if _, err := h.api.Send(doc); err != nil {
		return fmt.Errorf("failed to upload renamed file: %w", err)
	}

	h.ctxLogger.LogInfo(ctx, "file renamed", zap.String("from", file.name), zap.String("to", name))
	return nil
}
