package telegram

import (
	"context"
	"time"

	"mirrorbot/internal/core/domain"
	"mirrorbot/internal/core/ports"
	"mirrorbot/internal/infrastructure/middleware"
	"mirrorbot/pkg/config"
	apperrors "mirrorbot/pkg/errors"
	"mirrorbot/pkg/logger"
	"mirrorbot/pkg/tracing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Dependencies groups everything the update handler needs.
type Dependencies struct {
	API           BotAPI
	Gateway       *Gateway
	Entitlements  ports.EntitlementService
	Sweeper       ports.SweepService
	Settings      ports.SettingsService
	Conversations ports.ConversationService
	Mirror        ports.MirrorService
	Limiter       *middleware.CommandLimiter
	Metrics       ports.MetricsRecorder
	Config        *config.Config
	Logger        *zap.Logger
}

// reply is the single terminal answer to a command or conversation step.
type reply struct {
	text     string
	keyboard *tgbotapi.InlineKeyboardMarkup
}

func textReply(text string) reply {
	return reply{text: text}
}

type commandFunc func(ctx context.Context, msg *tgbotapi.Message) (reply, error)

type command struct {
	run         commandFunc
	ownerOnly   bool
	privateOnly bool
}

type Handler struct {
	api           BotAPI
	gateway       *Gateway
	entitlements  ports.EntitlementService
	sweeper       ports.SweepService
	settings      ports.SettingsService
	conversations ports.ConversationService
	mirror        ports.MirrorService
	limiter       *middleware.CommandLimiter
	metrics       ports.MetricsRecorder
	cfg           *config.Config
	logger        *zap.SugaredLogger
	ctxLogger     *logger.ContextLogger
	commands      map[string]command
}

var _ ports.UpdateHandler = (*Handler)(nil)

func NewHandler(deps Dependencies) *Handler {
	h := &Handler{
		api:           deps.API,
		gateway:       deps.Gateway,
		entitlements:  deps.Entitlements,
		sweeper:       deps.Sweeper,
		settings:      deps.Settings,
		conversations: deps.Conversations,
		mirror:        deps.Mirror,
		limiter:       deps.Limiter,
		metrics:       deps.Metrics,
		cfg:           deps.Config,
		logger:        deps.Logger.Sugar(),
		ctxLogger:     logger.NewContextLogger(deps.Logger),
	}

	h.commands = map[string]command{
		"start":    {run: h.cmdHelp},
		"help":     {run: h.cmdHelp},
		"add":      {run: h.cmdAdd, ownerOnly: true},
		"rem":      {run: h.cmdRemove, ownerOnly: true},
		"check":    {run: h.cmdCheck, ownerOnly: true},
		"freez":    {run: h.cmdFreeze, ownerOnly: true},
		"myplan":   {run: h.cmdMyPlan},
		"transfer": {run: h.cmdTransfer},
		"settings": {run: h.cmdSettings, privateOnly: true},
		"cancel":   {run: h.cmdCancel, privateOnly: true},
	}
	return h
}

// HandleUpdate routes one update. Errors never escape; every failure is
// logged and, where a user is waiting, answered.
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.ChannelPost != nil:
		h.handleChannelPost(ctx, update.ChannelPost)
	case update.CallbackQuery != nil:
		h.gateway.Remember(update.CallbackQuery.From)
		h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		msg := update.Message
		if msg.From == nil {
			return
		}
		h.gateway.Remember(msg.From)
		if msg.IsCommand() {
			h.handleCommand(ctx, msg)
			return
		}
		if msg.Chat.IsPrivate() {
			h.handleConversationInput(ctx, msg)
		}
	}
}

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	name := msg.Command()
	cmd, ok := h.commands[name]
	if !ok {
		return
	}

	userID := msg.From.ID
	ctx, span := tracing.TraceCommand(ctx, name, userID, msg.Chat.ID)
	defer span.End()
	ctx = logger.WithUserID(ctx, userID)
	ctx = logger.WithChatID(ctx, msg.Chat.ID)
	ctx = logger.WithCommand(ctx, name)
	ctx = logger.WithTraceID(ctx, tracing.TraceID(ctx))

	r, err := h.runCommand(ctx, name, cmd, msg)
	if err != nil {
		tracing.RecordError(ctx, err)
		h.ctxLogger.LogError(ctx, err, "command failed")
		r = textReply(errorText(err))
	}
	h.reply(ctx, msg.Chat.ID, msg.MessageID, r)
}

func (h *Handler) runCommand(ctx context.Context, name string, cmd command, msg *tgbotapi.Message) (reply, error) {
	userID := domain.UserID(msg.From.ID)
	switch {
	case cmd.ownerOnly && !h.cfg.IsOwner(msg.From.ID):
		return textReply(msgOwnerOnly), nil
	case cmd.privateOnly && !msg.Chat.IsPrivate():
		return textReply(msgPrivateOnly), nil
	case !h.cfg.IsOwner(msg.From.ID) && !h.limiter.Allow(userID):
		return reply{}, apperrors.NewRateLimitError()
	}

	start := time.Now()
	r, err := cmd.run(ctx, msg)
	h.metrics.RecordCommand(name, time.Since(start), err)
	return r, err
}

func (h *Handler) reply(ctx context.Context, chatID int64, replyTo int, r reply) {
	if r.text == "" {
		return
	}
	out := tgbotapi.NewMessage(chatID, r.text)
	out.ParseMode = tgbotapi.ModeHTML
	out.DisableWebPagePreview = true
	out.ReplyToMessageID = replyTo
	if r.keyboard != nil {
		out.ReplyMarkup = *r.keyboard
	}
	if _, err := h.api.Send(out); err != nil {
		h.ctxLogger.LogError(ctx, err, "failed to send reply")
	}
}

// notify delivers a side message to another user. Failures are logged and
// counted, never surfaced to the command issuer.
func (h *Handler) notify(ctx context.Context, kind string, userID domain.UserID, text string) {
	err := h.gateway.Notify(ctx, userID, text)
	h.metrics.RecordNotification(kind, err)
	if err != nil {
		h.logger.Warnw("failed to notify user", "kind", kind, "user_id", userID, "error", err)
	}
}

// lookupUser resolves a display user, falling back to the bare id.
func (h *Handler) lookupUser(ctx context.Context, id domain.UserID) *domain.User {
	u, err := h.gateway.Lookup(ctx, id)
	if err != nil {
		h.logger.Debugw("user lookup failed", "user_id", id, "error", err)
		return &domain.User{ID: id}
	}
	return u
}
