package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"mirrorbot/internal/core/domain"
	"mirrorbot/internal/core/ports"
	"mirrorbot/pkg/cache"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// fileTransferTimeout bounds one file download.
const fileTransferTimeout = 5 * time.Minute

// Gateway talks to Telegram on behalf of the core services: it delivers
// notices, publishes sweep reports, resolves user names and checks chats.
type Gateway struct {
	api          BotAPI
	files        *http.Client
	botID        int64
	owners       []int64
	logChannelID int64
	users        *cache.Cache[domain.UserID, *domain.User]
	logger       *zap.SugaredLogger
}

var (
	_ ports.ExpiryNotifier = (*Gateway)(nil)
	_ ports.SweepReporter  = (*Gateway)(nil)
	_ ports.UserDirectory  = (*Gateway)(nil)
	_ ports.ChatResolver   = (*Gateway)(nil)
)

// NewGateway creates a Gateway. User lookups are cached for userTTL.
func NewGateway(
	api BotAPI,
	botID int64,
	owners []int64,
	logChannelID int64,
	userTTL time.Duration,
	logger *zap.SugaredLogger,
) *Gateway {
	return &Gateway{
		api:          api,
		files:        &http.Client{Timeout: fileTransferTimeout},
		botID:        botID,
		owners:       owners,
		logChannelID: logChannelID,
		users:        cache.New[domain.UserID, *domain.User](userTTL),
		logger:       logger,
	}
}

// Close stops the user cache janitor.
func (g *Gateway) Close() {
	g.users.Stop()
}

// withContext runs a blocking Bot API call and gives up when ctx is done.
// The call itself keeps running until the HTTP client times out; its result
// is discarded.
func withContext[T any](ctx context.Context, call func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := call()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (g *Gateway) sendHTML(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := withContext(ctx, func() (tgbotapi.Message, error) {
		return g.api.Send(msg)
	})
	return err
}

func (g *Gateway) getChat(ctx context.Context, config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error) {
	return withContext(ctx, func() (tgbotapi.Chat, error) {
		return g.api.GetChat(config)
	})
}

func (g *Gateway) NotifyExpired(ctx context.Context, userID domain.UserID, name string) error {
	if err := g.sendHTML(ctx, int64(userID), expiredNotice(name)); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrNotificationFailed, err)
	}
	return nil
}

// Notify sends a free-form HTML message to a user.
func (g *Gateway) Notify(ctx context.Context, userID domain.UserID, text string) error {
	if err := g.sendHTML(ctx, int64(userID), text); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrNotificationFailed, err)
	}
	return nil
}

// ReportSweep sends the sweep summary to every owner and the log channel.
// Delivery continues past failing recipients.
func (g *Gateway) ReportSweep(ctx context.Context, report *domain.SweepReport) error {
	text := sweepSummary(report)

	recipients := append([]int64(nil), g.owners...)
	if g.logChannelID != 0 {
		recipients = append(recipients, g.logChannelID)
	}

	var errs []error
	for _, chatID := range recipients {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := g.sendHTML(ctx, chatID, text); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

func (g *Gateway) Lookup(ctx context.Context, userID domain.UserID) (*domain.User, error) {
	return g.users.GetOrLoad(ctx, userID, func(ctx context.Context) (*domain.User, error) {
		chat, err := g.getChat(ctx, tgbotapi.ChatInfoConfig{
			ChatConfig: tgbotapi.ChatConfig{ChatID: int64(userID)},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
		}
		return &domain.User{
			ID:        userID,
			FirstName: chat.FirstName,
			LastName:  chat.LastName,
			Username:  chat.UserName,
		}, nil
	})
}

// Remember caches a user seen in an update so later lookups skip the API.
func (g *Gateway) Remember(u *tgbotapi.User) {
	if u == nil {
		return
	}
	g.users.Set(domain.UserID(u.ID), userFromTelegram(u))
}

// ResolveAdminChat resolves ref to a chat id and verifies the bot is an
// administrator there.
func (g *Gateway) ResolveAdminChat(ctx context.Context, ref domain.ChatRef) (int64, error) {
	chat, err := g.getChat(ctx, tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: ref.ID, SuperGroupUsername: ref.Username},
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrInvalidChat, ref, err)
	}

	member, err := withContext(ctx, func() (tgbotapi.ChatMember, error) {
		return g.api.GetChatMember(tgbotapi.GetChatMemberConfig{
			ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chat.ID, UserID: g.botID},
		})
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrBotNotAdmin, ref, err)
	}
	if !member.IsAdministrator() && !member.IsCreator() {
		return 0, fmt.Errorf("%w: %s", domain.ErrBotNotAdmin, ref)
	}
	return chat.ID, nil
}

// OpenFile starts downloading a file through the Bot API file endpoint. The
// caller closes the body.
func (g *Gateway) OpenFile(ctx context.Context, fileID string) (io.ReadCloser, error) {
	link, err := withContext(ctx, func() (string, error) {
		return g.api.GetFileDirectURL(fileID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file %s: %w", fileID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}
	resp, err := g.files.Do(req)
	if err != nil {
		// the link embeds the bot token
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("failed to download file %s: %w", fileID, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to download file %s: %s", fileID, resp.Status)
	}
	return resp.Body, nil
}

func userFromTelegram(u *tgbotapi.User) *domain.User {
	return &domain.User{
		ID:        domain.UserID(u.ID),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.UserName,
	}
}
