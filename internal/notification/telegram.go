package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const telegramAPI = "https://api.telegram.org"

// TelegramNotifier posts alerts to a chat through the Bot API sendMessage
// method, formatted as MarkdownV2.
type TelegramNotifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

// NewTelegramNotifier creates a notifier for the bot token and chat id.
func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  telegramAPI,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// sendMessageResponse is the Bot API envelope. ok is false on API errors,
// which may still come back with a 2xx status behind some proxies.
type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *TelegramNotifier) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:                t.chatID,
		Text:                  telegramText(alert),
		ParseMode:             "MarkdownV2",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("telegram: marshal: %w", err)
	}

	url := t.apiBase + "/bot" + t.botToken + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: send: %w", alert.Symbol, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var out sendMessageResponse
	if jsonErr := json.Unmarshal(raw, &out); jsonErr != nil || !out.OK {
		if out.Description != "" {
			return fmt.Errorf("telegram %s: status %d: %s", alert.Symbol, resp.StatusCode, out.Description)
		}
		return fmt.Errorf("telegram %s: unexpected status %d", alert.Symbol, resp.StatusCode)
	}

	slog.Debug("[telegram] alert delivered", "symbol", alert.Symbol, "level", string(alert.Level))
	return nil
}

// telegramText renders an alert as a MarkdownV2 message: a headline with the
// level marker, then price and target lines when a symbol is set.
func telegramText(a Alert) string {
	marker := "⚠️"
	if a.Level == AlertCritical {
		marker = "🚨"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s*\n", marker, escapeMarkdown(a.Title))
	if a.Symbol != "" {
		fmt.Fprintf(&b, "\nPrice: `%s`\nTarget: `%s`\n",
			decimal.NewFromFloat(a.Price).StringFixed(2),
			decimal.NewFromFloat(a.Target).StringFixed(2))
	}
	if a.Message != "" {
		fmt.Fprintf(&b, "\n%s", escapeMarkdown(a.Message))
	}
	if !a.Timestamp.IsZero() {
		fmt.Fprintf(&b, "\n_%s_", escapeMarkdown(a.Timestamp.UTC().Format("2006-01-02 15:04:05 MST")))
	}
	return b.String()
}

var markdownV2 = strings.NewReplacer(
	`\`, `\\`, "_", `\_`, "*", `\*`, "[", `\[`, "]", `\]`, "(", `\(`, ")", `\)`,
	"~", `\~`, "`", "\\`", ">", `\>`, "#", `\#`, "+", `\+`, "-", `\-`,
	"=", `\=`, "|", `\|`, "{", `\{`, "}", `\}`, ".", `\.`, "!", `\!`,
)

// escapeMarkdown escapes the characters MarkdownV2 reserves outside entities.
func escapeMarkdown(s string) string { return markdownV2.Replace(s) }
