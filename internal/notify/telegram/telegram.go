// Package telegram sends messages through the Telegram Bot API.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/and161185/kesef/internal/errs"
)

// DefaultAPIURL is the public Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

// ParseModeHTML formats message text as Telegram HTML.
const ParseModeHTML = "HTML"

// Sender delivers one message to a chat.
type Sender interface {
	SendMessage(ctx context.Context, token, chatID, text string) error
}

// Client is a Bot API client with retries on 429 and 5xx.
type Client struct {
	http    *retryablehttp.Client
	baseURL string
	logger  *zap.Logger
}

// New constructs a client for baseURL (DefaultAPIURL when empty).
func New(baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.HTTPClient.Timeout = 15 * time.Second
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	// Request URLs embed the bot token; keep them out of the logs.
	rc.Logger = nil
	return &Client{http: rc, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// SendMessage posts an HTML message to chatID.
func (c *Client) SendMessage(ctx context.Context, token, chatID, text string) error {
	if token == "" || chatID == "" {
		return fmt.Errorf("%w: telegram token and chat id are required", errs.ErrValidation)
	}
	body, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text, ParseMode: ParseModeHTML, DisableWebPagePreview: true})
	if err != nil {
		return err
	}
	url := c.baseURL + "/bot" + token + "/sendMessage"
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		// The error text carries the URL, and with it the token.
		return fmt.Errorf("%w: telegram: %s", errs.ErrExternalService, strings.ReplaceAll(err.Error(), token, "***"))
	}
	defer resp.Body.Close()

	var out apiResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &out)

	c.logger.Debug("telegram sendMessage",
		zap.Int("status", resp.StatusCode),
		zap.Bool("ok", out.OK),
		zap.Duration("took", time.Since(started)),
	)
	if resp.StatusCode != http.StatusOK || !out.OK {
		desc := out.Description
		if desc == "" {
			desc = resp.Status
		}
		return fmt.Errorf("%w: telegram: %s", errs.ErrExternalService, desc)
	}
	return nil
}
