package telegram

import (
	"context"
	"strings"
	"testing"
	"time"

	"mirrorbot/internal/core/domain"
	"mirrorbot/internal/core/ports"
	"mirrorbot/internal/core/services"
	"mirrorbot/internal/infrastructure/middleware"
	"mirrorbot/internal/infrastructure/repositories/memory"
	"mirrorbot/pkg/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	ownerID int64 = 1
	botID   int64 = 99
)

type fixture struct {
	api          *fakeAPI
	handler      *Handler
	entitlements ports.EntitlementRepository
	settings     ports.SettingsRepository
	metrics      *services.MetricsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	api := newFakeAPI()
	for _, id := range []int64{ownerID, 5, 6, 42} {
		api.addUser(id, "User"+domain.UserID(id).String())
	}

	cfg := config.DefaultConfig()
	cfg.Telegram.OwnerIDs = []int64{ownerID}
	cfg.RateLimiting.Commands.PerSecond = 0.001
	cfg.RateLimiting.Commands.Burst = 20

	log := zap.NewNop()
	sugar := log.Sugar()

	entRepo := memory.NewMemoryEntitlementRepository()
	setRepo := memory.NewMemorySettingsRepository()
	sessions := memory.NewMemorySessionStore(time.Minute)
	metrics := services.NewMetricsService()

	gateway := NewGateway(api, botID, cfg.Telegram.OwnerIDs, 0, time.Minute, sugar)
	t.Cleanup(gateway.Close)
	mirror := services.NewMirrorService(setRepo, time.Minute, time.Minute, sugar)
	t.Cleanup(mirror.Close)

	h := NewHandler(Dependencies{
		API:           api,
		Gateway:       gateway,
		Entitlements:  services.NewEntitlementService(entRepo, metrics, sugar),
		Sweeper:       services.NewSweepService(entRepo, gateway, gateway, metrics, services.DefaultSweepConfig(), sugar),
		Settings:      services.NewSettingsService(setRepo, gateway, sugar),
		Conversations: services.NewConversationService(sessions, time.Minute, sugar),
		Mirror:        mirror,
		Limiter:       middleware.NewCommandLimiter(cfg),
		Metrics:       metrics,
		Config:        cfg,
		Logger:        log,
	})

	return &fixture{api: api, handler: h, entitlements: entRepo, settings: setRepo, metrics: metrics}
}

func privateMessage(from int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: from, FirstName: "User" + domain.UserID(from).String()},
		Chat:      &tgbotapi.Chat{ID: from, Type: "private"},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		name, _, _ := strings.Cut(text, " ")
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}}
	}
	return tgbotapi.Update{Message: msg}
}

func callback(from int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-" + data,
		From:    &tgbotapi.User{ID: from},
		Message: &tgbotapi.Message{MessageID: 2, Chat: &tgbotapi.Chat{ID: from, Type: "private"}},
		Data:    data,
	}}
}

func (f *fixture) send(u tgbotapi.Update) {
	f.handler.HandleUpdate(context.Background(), u)
}

func (f *fixture) grant(t *testing.T, id domain.UserID, d time.Duration) {
	t.Helper()
	require.NoError(t, f.entitlements.Upsert(context.Background(), id, time.Now().Add(d)))
}

func TestAdd_GrantsAndNotifies(t *testing.T) {
	f := newFixture(t)

	f.send(privateMessage(ownerID, "/add 42 1 day"))

	assert.Contains(t, f.api.lastTo(ownerID), "Premium added successfully")
	assert.Contains(t, f.api.lastTo(ownerID), "<code>1 day</code>")
	assert.Contains(t, f.api.lastTo(42), "Thank you for purchasing premium")

	ent, err := f.entitlements.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), *ent.ExpireAt, 5*time.Second)
}

func TestAdd_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		from  int64
		text  string
		reply string
	}{
		{"not owner", 5, "/add 42 1 day", msgOwnerOnly},
		{"zero quantity", ownerID, "/add 42 0 day", msgInvalidTime},
		{"unknown unit", ownerID, "/add 42 3 weeks", msgInvalidTime},
		{"missing args", ownerID, "/add 42", usageAdd},
		{"bad user id", ownerID, "/add bob 1 day", usageAdd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.send(privateMessage(tt.from, tt.text))

			assert.Equal(t, tt.reply, f.api.lastTo(tt.from))
			assert.Empty(t, f.api.sentTo(42))
			ids, err := f.entitlements.ListUserIDs(context.Background())
			require.NoError(t, err)
			assert.Empty(t, ids)
		})
	}
}

func TestRemove(t *testing.T) {
	f := newFixture(t)

	f.send(privateMessage(ownerID, "/rem 42"))
	assert.Equal(t, msgRemoveNone, f.api.lastTo(ownerID))

	f.grant(t, 42, time.Hour)
	f.send(privateMessage(ownerID, "/rem 42"))
	assert.Equal(t, msgRemoved, f.api.lastTo(ownerID))
	assert.Contains(t, f.api.lastTo(42), "Your premium access has been removed")

	_, err := f.entitlements.Get(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNotEntitled)
}

func TestCheckAndMyPlan(t *testing.T) {
	f := newFixture(t)

	f.send(privateMessage(ownerID, "/check 42"))
	assert.Equal(t, msgCheckNone, f.api.lastTo(ownerID))

	f.send(privateMessage(42, "/myplan"))
	assert.Contains(t, f.api.lastTo(42), "You do not have any active premium plans")

	f.grant(t, 42, 50*time.Hour)

	f.send(privateMessage(ownerID, "/check 42"))
	assert.Contains(t, f.api.lastTo(ownerID), "Premium User Data")
	assert.Contains(t, f.api.lastTo(ownerID), "<code>42</code>")

	f.send(privateMessage(42, "/myplan"))
	assert.Contains(t, f.api.lastTo(42), "Time Left: 2 days, 1 hours")
}

func TestMyPlan_ExpiredIsRemovedLazily(t *testing.T) {
	f := newFixture(t)
	f.grant(t, 42, -time.Minute)

	f.send(privateMessage(42, "/myplan"))
	assert.Contains(t, f.api.lastTo(42), "You do not have any active premium plans")

	ids, err := f.entitlements.ListUserIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestTransfer(t *testing.T) {
	f := newFixture(t)

	f.send(privateMessage(5, "/transfer 6"))
	assert.Equal(t, msgNotPremium, f.api.lastTo(5))

	f.grant(t, 5, time.Hour)
	f.send(privateMessage(5, "/transfer 5"))
	assert.Equal(t, msgSelfTrans, f.api.lastTo(5))

	f.send(privateMessage(5, "/transfer 6"))
	assert.Contains(t, f.api.lastTo(5), "Premium Plan Transferred Successfully")
	assert.Contains(t, f.api.lastTo(6), "Your Premium Plan has been Transferred")

	_, err := f.entitlements.Get(context.Background(), 5)
	assert.ErrorIs(t, err, domain.ErrNotEntitled)
	_, err = f.entitlements.Get(context.Background(), 6)
	assert.NoError(t, err)

	f.send(privateMessage(5, "/transfer"))
	assert.Equal(t, usageTransfer, f.api.lastTo(5))
}

func TestFreeze_SweepsAndSummarises(t *testing.T) {
	f := newFixture(t)
	f.grant(t, 5, -time.Second)
	f.grant(t, 6, time.Hour)

	f.send(privateMessage(ownerID, "/freez"))

	summary := f.api.lastTo(ownerID)
	assert.Contains(t, summary, "Premium Users Cleanup Summary")
	assert.Contains(t, summary, "User5 (5)")
	assert.Contains(t, summary, "User6 (6)")
	assert.Equal(t, []string{"Hello User5, your premium subscription has expired."}, f.api.sentTo(5))
	assert.Empty(t, f.api.sentTo(6))

	// A second run finds nothing to remove and sends no second notice.
	f.send(privateMessage(ownerID, "/freez"))
	assert.Contains(t, f.api.lastTo(ownerID), "<b>Removed Users:</b>\nNone")
	assert.Len(t, f.api.sentTo(5), 1)
}

func TestSettingsMenu(t *testing.T) {
	f := newFixture(t)

	f.send(privateMessage(5, "/settings"))
	msgs := f.api.messages()
	require.NotEmpty(t, msgs)
	last := msgs[len(msgs)-1]
	assert.Equal(t, msgSettings, last.text)
	kb, ok := last.markup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Len(t, kb.InlineKeyboard, 5)
	for _, row := range kb.InlineKeyboard {
		assert.Len(t, row, 2)
		for _, b := range row {
			_, err := domain.ParseAction(*b.CallbackData)
			assert.NoError(t, err)
		}
	}
}

func TestSettingsMenu_GroupRejected(t *testing.T) {
	f := newFixture(t)
	u := privateMessage(5, "/settings")
	u.Message.Chat = &tgbotapi.Chat{ID: -100, Type: "supergroup"}

	f.send(u)
	assert.Equal(t, msgPrivateOnly, f.api.lastTo(-100))
}

func TestConversation_RenameTag(t *testing.T) {
	f := newFixture(t)

	f.send(callback(5, "setrename"))
	assert.Equal(t, "", f.api.lastCallbackText())
	assert.Contains(t, f.api.lastTo(5), "Send me the rename tag")
	assert.Contains(t, f.api.lastTo(5), "/cancel")

	f.send(privateMessage(5, "@mychannel"))
	assert.Equal(t, "✅ Rename tag set to: @mychannel", f.api.lastTo(5))

	s, err := f.settings.Get(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "@mychannel", s.RenameTag)

	// The session was consumed; plain text is ignored now.
	before := len(f.api.sentTo(5))
	f.send(privateMessage(5, "hello"))
	assert.Len(t, f.api.sentTo(5), before)
}

func TestConversation_Cancel(t *testing.T) {
	f := newFixture(t)

	f.send(privateMessage(5, "/cancel"))
	assert.Equal(t, msgNothing, f.api.lastTo(5))

	f.send(callback(5, "setcaption"))
	f.send(privateMessage(5, "/cancel"))
	assert.Equal(t, msgCancelled, f.api.lastTo(5))

	before := len(f.api.sentTo(5))
	f.send(privateMessage(5, "my caption"))
	assert.Len(t, f.api.sentTo(5), before)
}

func TestConversation_ReplacementRejectsDeleteWord(t *testing.T) {
	f := newFixture(t)

	f.send(callback(5, "delete"))
	f.send(privateMessage(5, "spam promo"))
	assert.Contains(t, f.api.lastTo(5), "spam, promo")

	f.send(callback(5, "setreplacement"))
	f.send(privateMessage(5, "'spam' 'ham'"))
	assert.Equal(t, "❌ The word 'spam' is in the delete list and cannot be replaced.", f.api.lastTo(5))

	f.send(callback(5, "setreplacement"))
	f.send(privateMessage(5, "no quotes here"))
	assert.Contains(t, f.api.lastTo(5), "'WORD(s)' 'REPLACEWORD'")
}

func TestConversation_SetChat(t *testing.T) {
	f := newFixture(t)
	f.api.addChannel(-1001, "", "administrator")
	f.api.addChannel(-1002, "public", "member")

	f.send(callback(5, "setchat"))
	f.send(privateMessage(5, "-1002"))
	assert.Contains(t, f.api.lastTo(5), "not an administrator")

	f.send(callback(5, "setchat"))
	f.send(privateMessage(5, "-1001/12"))
	assert.Equal(t, "✅ Chat ID set successfully!", f.api.lastTo(5))

	s, err := f.settings.Get(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "-1001", s.ChatID)
}

func TestConversation_ThumbnailRequiresPhoto(t *testing.T) {
	f := newFixture(t)

	f.send(callback(5, "setthumb"))
	f.send(privateMessage(5, "not a photo"))
	assert.Contains(t, f.api.lastTo(5), "Please send a photo")

	f.send(callback(5, "setthumb"))
	u := privateMessage(5, "")
	u.Message.Photo = []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}}
	f.send(u)
	assert.Equal(t, "✅ Thumbnail saved successfully!", f.api.lastTo(5))

	f.send(callback(5, "remthumb"))
	assert.Equal(t, "Thumbnail removed successfully!", f.api.lastCallbackText())
	f.send(callback(5, "remthumb"))
	assert.Equal(t, "No thumbnail found", f.api.lastCallbackText())
}

func TestCallbacks_LogoutAndReset(t *testing.T) {
	f := newFixture(t)

	f.send(callback(5, "logout"))
	assert.Equal(t, "No session found", f.api.lastCallbackText())

	require.NoError(t, f.settings.Set(context.Background(), 5, domain.FieldSession, "session-string"))
	require.NoError(t, f.settings.Set(context.Background(), 5, domain.FieldCaption, "caption"))

	f.send(callback(5, "reset"))
	assert.Equal(t, "✅ All settings reset successfully", f.api.lastTo(5))

	f.send(callback(5, "logout"))
	assert.Equal(t, "Logged out successfully", f.api.lastCallbackText())

	f.send(callback(5, "bogus"))
	assert.Equal(t, "Unknown action", f.api.lastCallbackText())
}

func TestChannelPost_Mirrors(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.settings.Set(context.Background(), 5, domain.FieldChatID, "-1001"))

	post := func(id int, text string) tgbotapi.Update {
		return tgbotapi.Update{ChannelPost: &tgbotapi.Message{
			MessageID: id,
			Chat:      &tgbotapi.Chat{ID: -1001, Type: "channel"},
			Text:      text,
		}}
	}

	f.send(post(10, "hello"))
	assert.Equal(t, []string{"hello"}, f.api.sentTo(-1001))

	// The bot's own copy comes back as a channel post and is not mirrored.
	msgs := f.api.messages()
	copyID := 1000 + len(msgs)
	f.send(post(copyID, "hello"))
	assert.Len(t, f.api.sentTo(-1001), 1)

	f.send(post(11, ""))
	msgs = f.api.messages()
	assert.True(t, msgs[len(msgs)-1].copy)

	// Unregistered chats are ignored.
	f.send(tgbotapi.Update{ChannelPost: &tgbotapi.Message{MessageID: 1, Chat: &tgbotapi.Chat{ID: -2002, Type: "channel"}, Text: "x"}})
	assert.Empty(t, f.api.sentTo(-2002))
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t)
	f.handler.limiter = middleware.NewCommandLimiter(func() *config.Config {
		cfg := config.DefaultConfig()
		cfg.RateLimiting.Commands.PerSecond = 0.001
		cfg.RateLimiting.Commands.Burst = 1
		return cfg
	}())

	f.send(privateMessage(5, "/myplan"))
	assert.Contains(t, f.api.lastTo(5), "active premium plans")

	f.send(privateMessage(5, "/myplan"))
	assert.Contains(t, f.api.lastTo(5), "too many requests")

	// Owners are not throttled.
	f.send(privateMessage(ownerID, "/myplan"))
	f.send(privateMessage(ownerID, "/myplan"))
	assert.Contains(t, f.api.lastTo(ownerID), "active premium plans")
}

func TestNotifyFailureDoesNotFailCommand(t *testing.T) {
	f := newFixture(t)
	f.api.failSend[42] = true

	f.send(privateMessage(ownerID, "/add 42 1 hour"))
	assert.Contains(t, f.api.lastTo(ownerID), "Premium added successfully")
	assert.Equal(t, 1, f.metrics.Snapshot().NotificationsLost)
}
