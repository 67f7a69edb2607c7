package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"food-picker/models"
	"food-picker/services"
	"food-picker/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ownerID = int64(1001)
	chatID  = int64(5005)
)

type fakeSender struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	editErr  error
	nextID   int
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	if _, ok := c.(tgbotapi.EditMessageTextConfig); ok && f.editErr != nil {
		return tgbotapi.Message{}, f.editErr
	}
	f.nextID++
	return tgbotapi.Message{MessageID: 100 + f.nextID}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) lastText(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.sent)
	switch c := f.sent[len(f.sent)-1].(type) {
	case tgbotapi.MessageConfig:
		return c.Text
	case tgbotapi.EditMessageTextConfig:
		return c.Text
	}
	t.Fatalf("last sent is %T", f.sent[len(f.sent)-1])
	return ""
}

func newTestBot(t *testing.T, opts ...services.StoreOption) (*Bot, *fakeSender, *services.RestaurantStore) {
	t.Helper()
	store := services.NewRestaurantStore(storage.NewMemory(), "restaurants", opts...)
	store.Load(context.Background())
	fs := &fakeSender{}
	return newBot(fs, store, ownerID, zerolog.Nop()), fs, store
}

func textUpdate(from int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: from},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
	}}
}

func callbackUpdate(from int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: from},
		Message: &tgbotapi.Message{MessageID: 77, Chat: &tgbotapi.Chat{ID: chatID}},
		Data:    data,
	}}
}

func TestStartSendsPanel(t *testing.T) {
	b, fs, _ := newTestBot(t)
	b.handleUpdate(context.Background(), textUpdate(ownerID, "/start"))

	require.Len(t, fs.sent, 1)
	msg, ok := fs.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Contains(t, msg.Text, "Tap a button")
	assert.Contains(t, msg.Text, "1. 留湘 (Heavy Meal)")
	assert.Equal(t, 101, b.sess.panelMsgID)
}

func TestNonOwnerIsRefused(t *testing.T) {
	b, fs, store := newTestBot(t)
	ctx := context.Background()

	b.handleUpdate(ctx, textUpdate(42, "Intruder Diner"))
	b.handleUpdate(ctx, callbackUpdate(42, cbSave))

	assert.Equal(t, "", b.sess.draft.Name)
	assert.Len(t, store.List(), 8)
	assert.Contains(t, fs.lastText(t), "belongs to someone else")
	require.Len(t, fs.requests, 1)
	cb, ok := fs.requests[0].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.Contains(t, cb.Text, "belongs to someone else")
}

func TestAddFlow(t *testing.T) {
	b, fs, store := newTestBot(t)
	ctx := context.Background()

	b.handleUpdate(ctx, textUpdate(ownerID, "  Pho 24 "))
	assert.Equal(t, "Pho 24", b.sess.draft.Name)
	assert.Contains(t, fs.lastText(t), "New: Pho 24 — Light Meal")

	b.handleUpdate(ctx, callbackUpdate(ownerID, cbDraftHeavy))
	b.handleUpdate(ctx, callbackUpdate(ownerID, cbSave))

	list := store.List()
	require.Len(t, list, 9)
	assert.Equal(t, models.Restaurant{Name: "Pho 24", Category: models.CategoryHeavy}, list[8])
	assert.Equal(t, models.Restaurant{Category: models.CategoryLight}, b.sess.draft)
	assert.Contains(t, fs.lastText(t), "9. Pho 24 (Heavy Meal)")
}

func TestDuplicateIsSilentlyRejected(t *testing.T) {
	b, _, store := newTestBot(t)
	ctx := context.Background()

	b.handleUpdate(ctx, textUpdate(ownerID, "金城拉面"))
	b.handleUpdate(ctx, callbackUpdate(ownerID, cbSave))

	assert.Len(t, store.List(), 8)
	assert.Equal(t, "金城拉面", b.sess.draft.Name, "draft kept after rejection")
}

func TestEditFlow(t *testing.T) {
	b, fs, store := newTestBot(t)
	ctx := context.Background()

	b.handleUpdate(ctx, callbackUpdate(ownerID, "edit:3"))
	assert.Equal(t, "汉家宴", b.sess.draft.Name)
	assert.Contains(t, fs.lastText(t), "Editing: 汉家宴")

	edit, ok := fs.sent[len(fs.sent)-1].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Equal(t, 77, edit.MessageID)
	require.NotNil(t, edit.ReplyMarkup)
	assert.Equal(t, "💾 Update", edit.ReplyMarkup.InlineKeyboard[2][0].Text)

	b.handleUpdate(ctx, textUpdate(ownerID, "汉家宴 (new)"))
	b.handleUpdate(ctx, callbackUpdate(ownerID, cbSave))

	list := store.List()
	require.Len(t, list, 8)
	assert.Equal(t, "汉家宴 (new)", list[3].Name)
	_, editing := store.EditingIndex()
	assert.False(t, editing)
}

func TestBadEditIndexIgnored(t *testing.T) {
	b, fs, _ := newTestBot(t)
	b.handleUpdate(context.Background(), callbackUpdate(ownerID, "edit:abc"))
	b.handleUpdate(context.Background(), callbackUpdate(ownerID, "edit:99"))

	assert.Equal(t, "", b.sess.draft.Name)
	assert.Len(t, fs.sent, 1, "only the valid-but-out-of-range callback refreshes")
}

func TestRecommendationKeepsPreviousOnEmptyPool(t *testing.T) {
	kv := storage.NewMemory()
	require.NoError(t, kv.Set(context.Background(), "restaurants", `[{"name":"Steak House","category":"Heavy Meal"}]`))
	store := services.NewRestaurantStore(kv, "restaurants")
	store.Load(context.Background())
	fs := &fakeSender{}
	b := newBot(fs, store, ownerID, zerolog.Nop())
	ctx := context.Background()

	b.handleUpdate(ctx, callbackUpdate(ownerID, cbRecommendHeavy))
	assert.Equal(t, "Steak House", b.sess.recommendation)

	b.handleUpdate(ctx, callbackUpdate(ownerID, cbRecommendLight))
	assert.Equal(t, "Steak House", b.sess.recommendation)
	assert.Contains(t, fs.lastText(t), "🐷🧚 🍽️ Steak House")
}

func TestRecommendUsesStoreRandom(t *testing.T) {
	b, _, _ := newTestBot(t, services.WithRandom(func(n int) int { return 0 }))
	ctx := context.Background()

	b.handleUpdate(ctx, callbackUpdate(ownerID, cbRecommendLight))
	assert.Equal(t, "四季面馆", b.sess.recommendation)
	b.handleUpdate(ctx, callbackUpdate(ownerID, cbRecommendAny))
	assert.Equal(t, "留湘", b.sess.recommendation)
}

func TestToggleList(t *testing.T) {
	b, fs, _ := newTestBot(t)
	ctx := context.Background()

	b.handleUpdate(ctx, callbackUpdate(ownerID, cbToggleList))
	assert.False(t, b.sess.showList)
	assert.NotContains(t, fs.lastText(t), "Restaurants:")

	b.handleUpdate(ctx, callbackUpdate(ownerID, cbToggleList))
	assert.True(t, b.sess.showList)
	assert.Contains(t, fs.lastText(t), "Restaurants:")
}

func TestPanelFallsBackToNewMessage(t *testing.T) {
	b, fs, _ := newTestBot(t)
	fs.editErr = errors.New("Bad Request: message to edit not found")

	b.handleUpdate(context.Background(), callbackUpdate(ownerID, cbToggleList))

	require.Len(t, fs.sent, 2)
	_, ok := fs.sent[1].(tgbotapi.MessageConfig)
	assert.True(t, ok)
	assert.Equal(t, 101, b.sess.panelMsgID)
}

func TestPanelNotModifiedIsIgnored(t *testing.T) {
	b, fs, _ := newTestBot(t)
	fs.editErr = errors.New("Bad Request: message is not modified")

	b.handleUpdate(context.Background(), callbackUpdate(ownerID, cbDraftLight))
	assert.Len(t, fs.sent, 1)
}

func TestExportSendsDocument(t *testing.T) {
	b, fs, _ := newTestBot(t)
	b.handleUpdate(context.Background(), textUpdate(ownerID, "/export"))

	require.Len(t, fs.sent, 1)
	doc, ok := fs.sent[0].(tgbotapi.DocumentConfig)
	require.True(t, ok)
	file, ok := doc.File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.Equal(t, "restaurants.xlsx", file.Name)
	assert.NotEmpty(t, file.Bytes)
}

func TestRenderPanelLabels(t *testing.T) {
	s := newSession()
	list := models.SeedRestaurants()

	_, kb := renderPanel(s, list, false)
	assert.Equal(t, "➕ Add", kb.InlineKeyboard[2][0].Text)
	assert.Equal(t, "Hide Restaurant List", kb.InlineKeyboard[2][1].Text)
	assert.Equal(t, "✅ Light Meal", kb.InlineKeyboard[1][0].Text)
	assert.Equal(t, "Heavy Meal", kb.InlineKeyboard[1][1].Text)
	require.Len(t, kb.InlineKeyboard, 3+len(list))
	require.NotNil(t, kb.InlineKeyboard[3][0].CallbackData)
	assert.Equal(t, "edit:0", *kb.InlineKeyboard[3][0].CallbackData)

	s.showList = false
	text, kb := renderPanel(s, list, true)
	assert.Equal(t, "💾 Update", kb.InlineKeyboard[2][0].Text)
	assert.Equal(t, "Show Restaurant List", kb.InlineKeyboard[2][1].Text)
	assert.Len(t, kb.InlineKeyboard, 3)
	assert.NotContains(t, text, "留湘")
}

// Telegram rejects messages over 4096 characters and keyboards over 100 buttons.
const (
	telegramTextLimit    = 4096
	telegramButtonsLimit = 100
)

func bigList(n int) []models.Restaurant {
	list := models.SeedRestaurants()
	for i := 0; i < n; i++ {
		cat := models.CategoryLight
		if i%2 == 0 {
			cat = models.CategoryHeavy
		}
		list = append(list, models.Restaurant{Name: fmt.Sprintf("Restaurant number %03d", i), Category: cat})
	}
	return list
}

func countButtons(kb tgbotapi.InlineKeyboardMarkup) int {
	n := 0
	for _, row := range kb.InlineKeyboard {
		n += len(row)
	}
	return n
}

func buttonData(kb tgbotapi.InlineKeyboardMarkup) []string {
	var out []string
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			if btn.CallbackData != nil {
				out = append(out, *btn.CallbackData)
			}
		}
	}
	return out
}

func TestRenderPanelLargeListFitsTelegramLimits(t *testing.T) {
	list := bigList(200)
	s := newSession()
	s.recommendation = strings.Repeat("很长的名字", 500)
	s.draft.Name = strings.Repeat("x", 4000)

	for page := 0; page < pageCount(len(list)); page++ {
		s.listPage = page
		text, kb := renderPanel(s, list, false)
		assert.Less(t, utf8.RuneCountInString(text), telegramTextLimit, "page %d text", page)
		assert.LessOrEqual(t, countButtons(kb), telegramButtonsLimit, "page %d buttons", page)
		for _, data := range buttonData(kb) {
			assert.LessOrEqual(t, len(data), 64, "callback data %q", data)
		}
	}
}

func TestRenderPanelPaging(t *testing.T) {
	list := bigList(42) // 50 entries, 3 pages
	s := newSession()

	text, kb := renderPanel(s, list, false)
	assert.Contains(t, text, "1. 留湘 (Heavy Meal)")
	assert.Contains(t, text, "20. ")
	assert.NotContains(t, text, "21. ")
	assert.Contains(t, text, "Page 1/3 (50 restaurants)")
	data := buttonData(kb)
	assert.Contains(t, data, "edit:19")
	assert.NotContains(t, data, "edit:20")
	assert.Contains(t, data, "list:page:1")
	assert.NotContains(t, data, "list:page:-1")

	s.listPage = 2
	text, kb = renderPanel(s, list, false)
	assert.Contains(t, text, "41. ")
	assert.Contains(t, text, "50. ")
	assert.Contains(t, text, "Page 3/3")
	data = buttonData(kb)
	assert.Contains(t, data, "edit:49")
	assert.Contains(t, data, "list:page:1")
	assert.NotContains(t, data, "list:page:3")

	s.listPage = 9
	_, _ = renderPanel(s, list, false)
	assert.Equal(t, 2, s.listPage, "page clamped to the last one")

	s.listPage = -4
	_, _ = renderPanel(s, list, false)
	assert.Equal(t, 0, s.listPage)
}

func TestRenderPanelShortensLongNames(t *testing.T) {
	long := strings.Repeat("名", 300)
	list := []models.Restaurant{{Name: long, Category: models.CategoryLight}}
	s := newSession()

	text, kb := renderPanel(s, list, false)
	assert.NotContains(t, text, long)
	assert.Contains(t, text, strings.Repeat("名", maxNameRunes-1)+"…")
	assert.LessOrEqual(t, utf8.RuneCountInString(kb.InlineKeyboard[3][0].Text), maxButtonRunes+8)
}

func TestPageCallbacksAndEditOnLaterPage(t *testing.T) {
	kv := storage.NewMemory()
	data, err := services.EncodeRestaurants(bigList(42))
	require.NoError(t, err)
	require.NoError(t, kv.Set(context.Background(), "restaurants", string(data)))
	store := services.NewRestaurantStore(kv, "restaurants")
	store.Load(context.Background())
	fs := &fakeSender{}
	b := newBot(fs, store, ownerID, zerolog.Nop())
	ctx := context.Background()

	b.handleUpdate(ctx, callbackUpdate(ownerID, "list:page:1"))
	assert.Equal(t, 1, b.sess.listPage)
	assert.Contains(t, fs.lastText(t), "Page 2/3")
	assert.Contains(t, fs.lastText(t), "21. Restaurant number 012")

	b.handleUpdate(ctx, callbackUpdate(ownerID, "list:page:x"))
	assert.Equal(t, 1, b.sess.listPage)

	b.handleUpdate(ctx, callbackUpdate(ownerID, "edit:25"))
	assert.Equal(t, "Restaurant number 017", b.sess.draft.Name)
	assert.Equal(t, 1, b.sess.listPage, "editing keeps the page")
}

func TestAddJumpsToLastPage(t *testing.T) {
	kv := storage.NewMemory()
	data, err := services.EncodeRestaurants(bigList(32)) // 40 entries, 2 full pages
	require.NoError(t, err)
	require.NoError(t, kv.Set(context.Background(), "restaurants", string(data)))
	store := services.NewRestaurantStore(kv, "restaurants")
	store.Load(context.Background())
	fs := &fakeSender{}
	b := newBot(fs, store, ownerID, zerolog.Nop())
	ctx := context.Background()

	b.handleUpdate(ctx, textUpdate(ownerID, "Brand New Place"))
	b.handleUpdate(ctx, callbackUpdate(ownerID, cbSave))

	require.Len(t, store.List(), 41)
	assert.Equal(t, 2, b.sess.listPage)
	assert.Contains(t, fs.lastText(t), "41. Brand New Place (Light Meal)")
	assert.Contains(t, fs.lastText(t), "Page 3/3")
}
