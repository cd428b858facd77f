package telegram

import (
	"context"

	"mirrorbot/internal/core/ports"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Bot polls Telegram for updates and hands them to the handler on a bounded
// number of goroutines.
type Bot struct {
	api     BotAPI
	handler ports.UpdateHandler
	workers int
	timeout int
	logger  *zap.SugaredLogger
}

func NewBot(api BotAPI, handler ports.UpdateHandler, workers, updateTimeout int, logger *zap.SugaredLogger) *Bot {
	if workers <= 0 {
		workers = 1
	}
	return &Bot{
		api:     api,
		handler: handler,
		workers: workers,
		timeout: updateTimeout,
		logger:  logger,
	}
}

// Run processes updates until ctx is done, then waits for in-flight
// handlers.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.timeout
	u.AllowedUpdates = []string{"message", "channel_post", "callback_query"}

	updates := b.api.GetUpdatesChan(u)
	b.logger.Infow("bot started", "workers", b.workers)

	var g errgroup.Group
	g.SetLimit(b.workers)

	defer func() {
		_ = g.Wait()
		b.logger.Info("bot stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			g.Go(func() error {
				defer func() {
					if r := recover(); r != nil {
						b.logger.Errorw("panic while handling update", "update_id", update.UpdateID, "panic", r)
					}
				}()
				b.handler.HandleUpdate(ctx, update)
				return nil
			})
		}
	}
}
