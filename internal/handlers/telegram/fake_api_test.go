package telegram

import (
	"errors"
	"fmt"
	"io"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type sentMessage struct {
	chatID int64
	text   string
	copy   bool
	markup interface{}

	// set for uploaded documents; text holds the caption
	fileName string
	fileData string
	replyTo  int
}

type fakeAPI struct {
	mu        sync.Mutex
	nextID    int
	sent      []sentMessage
	callbacks []tgbotapi.CallbackConfig
	chats     map[string]tgbotapi.Chat
	members   map[int64]string
	failSend  map[int64]bool
	updates   chan tgbotapi.Update
	stopped   bool

	// fileBase is the URL prefix GetFileDirectURL hands out.
	fileBase string

	// block, when set, holds every Send until it is closed.
	block chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		nextID:   1000,
		chats:    make(map[string]tgbotapi.Chat),
		members:  make(map[int64]string),
		failSend: make(map[int64]bool),
		updates:  make(chan tgbotapi.Update, 16),
	}
}

func (f *fakeAPI) addUser(id int64, firstName string) {
	f.chats[fmt.Sprint(id)] = tgbotapi.Chat{ID: id, Type: "private", FirstName: firstName}
}

func (f *fakeAPI) addChannel(id int64, username, memberStatus string) {
	ch := tgbotapi.Chat{ID: id, Type: "channel", UserName: username}
	f.chats[fmt.Sprint(id)] = ch
	if username != "" {
		f.chats["@"+username] = ch
	}
	f.members[id] = memberStatus
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.block != nil {
		<-f.block
	}

	var m sentMessage
	switch v := c.(type) {
	case tgbotapi.MessageConfig:
		m = sentMessage{chatID: v.ChatID, text: v.Text, markup: v.ReplyMarkup}
	case tgbotapi.CopyMessageConfig:
		m = sentMessage{chatID: v.ChatID, copy: true}
	case tgbotapi.DocumentConfig:
		fr, ok := v.File.(tgbotapi.FileReader)
		if !ok {
			return tgbotapi.Message{}, fmt.Errorf("unexpected document file %T", v.File)
		}
		data, err := io.ReadAll(fr.Reader)
		if err != nil {
			return tgbotapi.Message{}, err
		}
		m = sentMessage{chatID: v.ChatID, text: v.Caption, fileName: fr.Name, fileData: string(data), replyTo: v.ReplyToMessageID}
	default:
		return tgbotapi.Message{}, fmt.Errorf("unexpected chattable %T", c)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend[m.chatID] {
		return tgbotapi.Message{}, errors.New("Forbidden: bot was blocked by the user")
	}

	f.nextID++
	f.sent = append(f.sent, m)
	return tgbotapi.Message{MessageID: f.nextID, Chat: &tgbotapi.Chat{ID: m.chatID}}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		f.callbacks = append(f.callbacks, cb)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error) {
	key := config.SuperGroupUsername
	if key == "" {
		key = fmt.Sprint(config.ChatID)
	}
	if ch, ok := f.chats[key]; ok {
		return ch, nil
	}
	return tgbotapi.Chat{}, errors.New("Bad Request: chat not found")
}

func (f *fakeAPI) GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	status, ok := f.members[config.ChatID]
	if !ok {
		return tgbotapi.ChatMember{}, errors.New("Bad Request: member not found")
	}
	return tgbotapi.ChatMember{User: &tgbotapi.User{ID: config.UserID}, Status: status}, nil
}

func (f *fakeAPI) GetFileDirectURL(fileID string) (string, error) {
	if f.fileBase == "" {
		return "", errors.New("Bad Request: invalid file_id")
	}
	return f.fileBase + "/" + fileID, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

// documents returns the documents uploaded to chatID.
func (f *fakeAPI) documents(chatID int64) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, m := range f.sent {
		if m.chatID == chatID && m.fileName != "" {
			out = append(out, m)
		}
	}
	return out
}

// sentTo returns the texts delivered to chatID.
func (f *fakeAPI) sentTo(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.sent {
		if m.chatID == chatID && !m.copy && m.fileName == "" {
			out = append(out, m.text)
		}
	}
	return out
}

func (f *fakeAPI) lastTo(chatID int64) string {
	texts := f.sentTo(chatID)
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

func (f *fakeAPI) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func (f *fakeAPI) lastCallbackText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.callbacks) == 0 {
		return ""
	}
	return f.callbacks[len(f.callbacks)-1].Text
}
