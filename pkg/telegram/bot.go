package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const apiBaseURL = "https://api.telegram.org/bot"

type Bot struct {
	token   string
	baseURL string
	client  *http.Client
}

// Message is the sendMessage payload.
type Message struct {
	ChatID      int64        `json:"chat_id"`
	Text        string       `json:"text"`
	ParseMode   string       `json:"parse_mode,omitempty"`
	ReplyMarkup *ReplyMarkup `json:"reply_markup,omitempty"`
}

type ReplyMarkup struct {
	InlineKeyboard [][]InlineButton `json:"inline_keyboard"`
}

type InlineButton struct {
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func NewBot(token string) *Bot {
	return NewBotWithURL(token, apiBaseURL+token)
}

// NewBotWithURL overrides the API base URL, used in tests.
func NewBotWithURL(token, baseURL string) *Bot {
	return &Bot{
		token:   token,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Send delivers a message through the sendMessage endpoint. A nil
// receiver reports an error instead of dereferencing, so callers
// holding a Bot through an interface stay safe when it was never
// configured.
func (b *Bot) Send(ctx context.Context, msg *Message) error {
	if b == nil {
		return fmt.Errorf("telegram bot is not configured")
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/sendMessage", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("failed to decode telegram response: %w", err)
	}
	if !apiResp.OK {
		return fmt.Errorf("telegram API error: %s", apiResp.Description)
	}

	return nil
}

// SendMessage sends a plain text message without markup.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	return b.Send(ctx, &Message{ChatID: chatID, Text: text})
}

func (b *Bot) NotifyGatheringCreated(ctx context.Context, chatID int64, title string, date time.Time, maxSlots int, gatheringURL string) error {
	text := fmt.Sprintf(
		"🎮 <b>Новий збір: \"%s\"</b>\n\n📅 %s\n👥 Місць: 0/%d\n\nПоспішай зайняти своє місце!",
		title, date.Format("02.01.2006 15:04"), maxSlots)

	return b.Send(ctx, &Message{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   "HTML",
		ReplyMarkup: linkKeyboard("🔥 Зайняти місце", gatheringURL),
	})
}

func (b *Bot) NotifyGatheringAlmostFull(ctx context.Context, chatID int64, title string, currentSlots, maxSlots int, gatheringURL string) error {
	remaining := maxSlots - currentSlots
	text := fmt.Sprintf(
		"🔥 <b>Збір \"%s\" майже заповнений!</b>\n\n👥 %d/%d місць зайнято\n⚡ Залишилось: %d\n\nВстигни зайняти!",
		title, currentSlots, maxSlots, remaining)

	return b.Send(ctx, &Message{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   "HTML",
		ReplyMarkup: linkKeyboard("⚡ Зайняти останнє місце", gatheringURL),
	})
}

func (b *Bot) NotifyGatheringFull(ctx context.Context, chatID int64, title string, participants []string, gatheringURL string) error {
	var list strings.Builder
	for i, name := range participants {
		fmt.Fprintf(&list, "%d. %s\n", i+1, name)
	}

	text := fmt.Sprintf(
		"✅ <b>Збір \"%s\" укомплектований!</b>\n\n👥 Учасники:\n%s\nБажаєш приєднатися? Встань в чергу очікування!",
		title, list.String())

	return b.Send(ctx, &Message{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   "HTML",
		ReplyMarkup: linkKeyboard("📋 Встати в чергу", gatheringURL),
	})
}

func (b *Bot) NotifySlotAvailable(ctx context.Context, chatID int64, title string, slotNumber int, gatheringURL string) error {
	text := fmt.Sprintf(
		"🎉 <b>Місце звільнилось!</b>\n\nЗбір: \"%s\"\nТвоє місце: №%d\n\nТи був у черзі й автоматично отримав місце!",
		title, slotNumber)

	return b.Send(ctx, &Message{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   "HTML",
		ReplyMarkup: linkKeyboard("👀 Подивитись збір", gatheringURL),
	})
}

func (b *Bot) NotifyGatheringReminder(ctx context.Context, chatID int64, title string, date time.Time, gatheringURL string) error {
	text := fmt.Sprintf(
		"🔔 <b>Нагадування про збір</b>\n\nЗбір: \"%s\"\n📅 %s\n\nНе запізнюйся!",
		title, date.Format("02.01.2006 15:04"))

	return b.Send(ctx, &Message{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   "HTML",
		ReplyMarkup: linkKeyboard("👀 Подивитись збір", gatheringURL),
	})
}

func linkKeyboard(text, url string) *ReplyMarkup {
	return &ReplyMarkup{
		InlineKeyboard: [][]InlineButton{{{Text: text, URL: url}}},
	}
}
