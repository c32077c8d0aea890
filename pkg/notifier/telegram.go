// pkg/notifier/telegram.go
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/DrawzeoBarrela/pix-pocket-brasil/config"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/domain"

	"go.uber.org/zap"
)

type TelegramChannel struct {
	baseURL    string
	botToken   string
	chatID     string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewTelegramChannel(cfg config.TelegramConfig, logger *zap.Logger) *TelegramChannel {
	return &TelegramChannel{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

func (c *TelegramChannel) Name() string {
	return "telegram"
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

func (c *TelegramChannel) Send(ctx context.Context, job *domain.NotificationJob) error {
	payload, err := json.Marshal(telegramMessage{
		ChatID:    c.chatID,
		Text:      job.Message,
		ParseMode: "Markdown",
	})
	if err != nil {
		return Permanent(fmt.Errorf("failed to marshal telegram message: %w", err))
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var result telegramResponse
	_ = json.Unmarshal(body, &result)

	if resp.StatusCode != http.StatusOK || !result.OK {
		err := fmt.Errorf("telegram returned status %d: %s", resp.StatusCode, result.Description)
		switch resp.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return Permanent(err)
		}
		return err
	}

	c.logger.Debug("telegram message sent",
		zap.String("operation_id", job.OperationID.String()),
		zap.Int64("message_id", result.Result.MessageID))

	return nil
}
