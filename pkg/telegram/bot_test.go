package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBot(t *testing.T, handler func(msg *Message)) (*Bot, *httptest.Server) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sendMessage", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var msg Message
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		handler(&msg)

		json.NewEncoder(w).Encode(map[string]interface{}{"ok": true})
	}))
	t.Cleanup(srv.Close)

	return NewBotWithURL("test-token", srv.URL), srv
}

func TestNotifySlotAvailable(t *testing.T) {
	var got *Message
	bot, _ := newTestBot(t, func(msg *Message) { got = msg })

	err := bot.NotifySlotAvailable(context.Background(), 42, "Футбол у неділю", 3, "https://example.com/?gathering=abc")
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, int64(42), got.ChatID)
	assert.Equal(t, "HTML", got.ParseMode)
	assert.Contains(t, got.Text, "Футбол у неділю")
	assert.Contains(t, got.Text, "№3")
	require.NotNil(t, got.ReplyMarkup)
	assert.Equal(t, "https://example.com/?gathering=abc", got.ReplyMarkup.InlineKeyboard[0][0].URL)
}

func TestNotifyGatheringFull_ListsParticipants(t *testing.T) {
	var got *Message
	bot, _ := newTestBot(t, func(msg *Message) { got = msg })

	err := bot.NotifyGatheringFull(context.Background(), 7, "Настолки", []string{"Оля", "Тарас"}, "https://example.com")
	require.NoError(t, err)

	assert.Contains(t, got.Text, "1. Оля")
	assert.Contains(t, got.Text, "2. Тарас")
}

func TestNotifyGatheringCreated_FormatsDate(t *testing.T) {
	var got *Message
	bot, _ := newTestBot(t, func(msg *Message) { got = msg })

	date := time.Date(2026, 9, 13, 18, 30, 0, 0, time.UTC)
	err := bot.NotifyGatheringCreated(context.Background(), 7, "Футбол", date, 10, "https://example.com")
	require.NoError(t, err)

	assert.Contains(t, got.Text, "13.09.2026 18:30")
	assert.Contains(t, got.Text, "0/10")
}

func TestSend_NilBot(t *testing.T) {
	var bot *Bot
	err := bot.SendMessage(context.Background(), 1, "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestSend_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "description": "chat not found"})
	}))
	defer srv.Close()

	bot := NewBotWithURL("test-token", srv.URL)
	err := bot.SendMessage(context.Background(), 1, "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}
