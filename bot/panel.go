package bot

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"food-picker/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data carried by the panel buttons.
const (
	cbRecommendAny   = "rec:any"
	cbRecommendLight = "rec:light"
	cbRecommendHeavy = "rec:heavy"
	cbDraftLight     = "draft:light"
	cbDraftHeavy     = "draft:heavy"
	cbSave           = "save"
	cbToggleList     = "list:toggle"
	cbEditPrefix     = "edit:"
	cbPagePrefix     = "list:page:"
)

const (
	listPageSize   = 20
	maxNameRunes   = 64
	maxButtonRunes = 32
)

// session is the transient UI state of the owner's chat. It is lost on restart.
type session struct {
	showList       bool
	draft          models.Restaurant
	recommendation string
	listPage       int
	panelChatID    int64
	panelMsgID     int
}

func newSession() *session {
	return &session{
		showList: true,
		draft:    models.Restaurant{Category: models.CategoryLight},
	}
}

func (s *session) resetDraft() {
	s.draft = models.Restaurant{Category: models.CategoryLight}
}

func categoryLabel(c models.Category) string {
	switch c {
	case models.CategoryLight:
		return "🥗 Light Meal"
	case models.CategoryHeavy:
		return "🍖 Heavy Meal"
	}
	return string(c)
}

// shorten cuts s to at most limit runes for display, marking the cut with an ellipsis.
func shorten(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit-1]) + "…"
}

// pageCount is the number of list pages, at least one.
func pageCount(n int) int {
	if n <= listPageSize {
		return 1
	}
	return (n + listPageSize - 1) / listPageSize
}

// renderPanel builds the panel text and keyboard for the current state.
// Only one page of the list is rendered so the message stays within Telegram's limits
// however long the list grows. s.listPage is clamped to the available pages.
func renderPanel(s *session, list []models.Restaurant, editing bool) (string, tgbotapi.InlineKeyboardMarkup) {
	pages := pageCount(len(list))
	if s.listPage >= pages {
		s.listPage = pages - 1
	}
	if s.listPage < 0 {
		s.listPage = 0
	}
	from := s.listPage * listPageSize
	to := min(from+listPageSize, len(list))

	var sb strings.Builder
	sb.WriteString("Restaurant Picker\n\n")
	if s.recommendation != "" {
		sb.WriteString("🐷🧚 🍽️ " + shorten(s.recommendation, maxNameRunes) + "\n")
	} else {
		sb.WriteString("Tap a button to get a restaurant recommendation.\n")
	}

	sb.WriteString("\n")
	name := shorten(s.draft.Name, maxNameRunes)
	if name == "" {
		name = "(send a message with the restaurant name)"
	}
	if editing {
		sb.WriteString("Editing: ")
	} else {
		sb.WriteString("New: ")
	}
	fmt.Fprintf(&sb, "%s — %s\n", name, s.draft.Category)

	if s.showList {
		sb.WriteString("\nRestaurants:\n")
		for i := from; i < to; i++ {
			fmt.Fprintf(&sb, "%d. %s (%s)\n", i+1, shorten(list[i].Name, maxNameRunes), list[i].Category)
		}
		if pages > 1 {
			fmt.Fprintf(&sb, "\nPage %d/%d (%d restaurants)\n", s.listPage+1, pages, len(list))
		}
	}

	selected := func(c models.Category) string {
		if s.draft.Category == c {
			return "✅ " + string(c)
		}
		return string(c)
	}
	submit := "➕ Add"
	if editing {
		submit = "💾 Update"
	}
	toggle := "Show Restaurant List"
	if s.showList {
		toggle = "Hide Restaurant List"
	}

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔀 Random", cbRecommendAny),
			tgbotapi.NewInlineKeyboardButtonData(categoryLabel(models.CategoryLight), cbRecommendLight),
			tgbotapi.NewInlineKeyboardButtonData(categoryLabel(models.CategoryHeavy), cbRecommendHeavy),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(selected(models.CategoryLight), cbDraftLight),
			tgbotapi.NewInlineKeyboardButtonData(selected(models.CategoryHeavy), cbDraftHeavy),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(submit, cbSave),
			tgbotapi.NewInlineKeyboardButtonData(toggle, cbToggleList),
		),
	}
	if s.showList {
		for i := from; i < to; i++ {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(
					fmt.Sprintf("✏️ %d. %s", i+1, shorten(list[i].Name, maxButtonRunes)),
					fmt.Sprintf("%s%d", cbEditPrefix, i),
				),
			))
		}
		if pages > 1 {
			var nav []tgbotapi.InlineKeyboardButton
			if s.listPage > 0 {
				nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("◀ Prev", fmt.Sprintf("%s%d", cbPagePrefix, s.listPage-1)))
			}
			if s.listPage < pages-1 {
				nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Next ▶", fmt.Sprintf("%s%d", cbPagePrefix, s.listPage+1)))
			}
			rows = append(rows, nav)
		}
	}
	return sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...)
}
