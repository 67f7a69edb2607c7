package bot

import (
	"bytes"
	"context"
	"strconv"
	"strings"

	"food-picker/config"
	"food-picker/models"
	"food-picker/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// sender is the part of *tgbotapi.BotAPI the handlers use.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Bot struct {
	client *tgbotapi.BotAPI
	api    sender
	store  *services.RestaurantStore
	owner  int64
	log    zerolog.Logger

	sess *session
}

func New(cfg *config.Config, store *services.RestaurantStore, log zerolog.Logger) (*Bot, error) {
	client, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}
	b := newBot(client, store, cfg.Telegram.OwnerID, log)
	b.client = client
	return b, nil
}

func newBot(api sender, store *services.RestaurantStore, owner int64, log zerolog.Logger) *Bot {
	return &Bot{
		api:   api,
		store: store,
		owner: owner,
		log:   log,
		sess:  newSession(),
	}
}

func (b *Bot) setBotCommands() error {
	cfg := tgbotapi.SetMyCommandsConfig{
		Commands: []tgbotapi.BotCommand{
			{Command: "start", Description: "Show the picker"},
			{Command: "export", Description: "Download the list as a spreadsheet"},
		},
	}
	_, err := b.api.Request(cfg)
	return err
}

// Start polls for updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	if err := b.setBotCommands(); err != nil {
		b.log.Warn().Err(err).Msg("set bot commands")
	}
	if b.owner == 0 {
		b.log.Warn().Msg("OWNER_ID not set, every user shares the same list")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.client.GetUpdatesChan(u)
	b.log.Info().Str("username", b.client.Self.UserName).Msg("bot started")

	for {
		select {
		case <-ctx.Done():
			b.client.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) allowed(userID int64) bool {
	return b.owner == 0 || userID == b.owner
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		cq := update.CallbackQuery
		if cq.From == nil || cq.Message == nil || cq.Message.Chat == nil {
			return
		}
		if !b.allowed(cq.From.ID) {
			b.answer(cq.ID, "This picker belongs to someone else.")
			return
		}
		b.answer(cq.ID, "")
		b.handleCallback(ctx, cq.Message.Chat.ID, cq.Message.MessageID, cq.Data)
		return
	}
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}
	if !b.allowed(msg.From.ID) {
		b.log.Info().Int64("user_id", msg.From.ID).Msg("ignoring message from non-owner")
		b.send(msg.Chat.ID, "This picker belongs to someone else.")
		return
	}
	text := strings.TrimSpace(msg.Text)

	switch {
	case text == "/start":
		b.sess.panelMsgID = 0
		b.refreshPanel(msg.Chat.ID)
	case text == "/export":
		b.handleExport(msg.Chat.ID)
	case strings.HasPrefix(text, "/"):
		b.send(msg.Chat.ID, "Unknown command. Use /start or /export.")
	case text != "":
		b.sess.draft.Name = text
		b.sess.panelMsgID = 0
		b.refreshPanel(msg.Chat.ID)
	}
}

func (b *Bot) handleCallback(ctx context.Context, chatID int64, messageID int, data string) {
	// the pressed message becomes the panel that gets edited
	b.sess.panelChatID = chatID
	b.sess.panelMsgID = messageID

	switch {
	case data == cbRecommendAny:
		b.recommend("")
	case data == cbRecommendLight:
		b.recommend(models.CategoryLight)
	case data == cbRecommendHeavy:
		b.recommend(models.CategoryHeavy)
	case data == cbDraftLight:
		b.sess.draft.Category = models.CategoryLight
	case data == cbDraftHeavy:
		b.sess.draft.Category = models.CategoryHeavy
	case data == cbToggleList:
		b.sess.showList = !b.sess.showList
	case data == cbSave:
		_, editing := b.store.EditingIndex()
		applied, err := b.store.Save(ctx, b.sess.draft)
		if err != nil {
			b.log.Error().Err(err).Msg("save restaurant")
			b.send(chatID, "Saved for this session, but writing to storage failed.")
		}
		if applied {
			b.sess.resetDraft()
			if !editing {
				// show the page holding the new entry
				b.sess.listPage = pageCount(len(b.store.List())) - 1
			}
		}
	case strings.HasPrefix(data, cbPagePrefix):
		page, err := strconv.Atoi(strings.TrimPrefix(data, cbPagePrefix))
		if err != nil {
			return
		}
		b.sess.listPage = page
	case strings.HasPrefix(data, cbEditPrefix):
		idx, err := strconv.Atoi(strings.TrimPrefix(data, cbEditPrefix))
		if err != nil {
			return
		}
		if r, ok := b.store.BeginEdit(idx); ok {
			b.sess.draft = r
		}
	default:
		return
	}
	b.refreshPanel(chatID)
}

// recommend leaves the previous recommendation in place when the pool is empty.
func (b *Bot) recommend(category models.Category) {
	if r, ok := b.store.Recommend(category); ok {
		b.sess.recommendation = r.Name
	}
}

// refreshPanel edits the current panel message, or sends a new one if there is none or the edit fails.
func (b *Bot) refreshPanel(chatID int64) {
	_, editing := b.store.EditingIndex()
	text, kb := renderPanel(b.sess, b.store.List(), editing)

	if b.sess.panelMsgID != 0 && b.sess.panelChatID == chatID {
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, b.sess.panelMsgID, text, kb)
		_, err := b.api.Send(edit)
		if err == nil {
			return
		}
		if strings.Contains(err.Error(), "not modified") {
			return
		}
		b.log.Debug().Err(err).Int("message_id", b.sess.panelMsgID).Msg("edit panel, sending new one")
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	sent, err := b.api.Send(msg)
	if err != nil {
		b.log.Error().Err(err).Msg("send panel")
		return
	}
	b.sess.panelChatID = chatID
	b.sess.panelMsgID = sent.MessageID
}

func (b *Bot) handleExport(chatID int64) {
	var buf bytes.Buffer
	if err := services.WriteRestaurantsXLSX(&buf, b.store.List()); err != nil {
		b.log.Error().Err(err).Msg("export restaurants")
		b.send(chatID, "Export failed.")
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: "restaurants.xlsx", Bytes: buf.Bytes()})
	if _, err := b.api.Send(doc); err != nil {
		b.log.Error().Err(err).Msg("send export")
	}
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error().Err(err).Msg("send")
	}
}

// answer acknowledges a callback, optionally with a short toast.
func (b *Bot) answer(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.log.Debug().Err(err).Msg("answer callback")
	}
}
