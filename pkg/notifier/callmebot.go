// pkg/notifier/callmebot.go
package notifier

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DrawzeoBarrela/pix-pocket-brasil/config"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/domain"
)

const callMeBotInvalidKey = "APIKey is invalid"

// WhatsAppChannel sends through CallMeBot to a single phone; every phone has its own API key.
type WhatsAppChannel struct {
	baseURL    string
	target     config.WhatsAppTarget
	httpClient *http.Client
}

func NewWhatsAppChannel(baseURL string, target config.WhatsAppTarget) *WhatsAppChannel {
	return &WhatsAppChannel{
		baseURL: strings.TrimRight(baseURL, "/"),
		target:  target,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// NewWhatsAppChannels builds one channel per configured phone.
func NewWhatsAppChannels(cfg config.WhatsAppConfig) []Channel {
	channels := make([]Channel, 0, len(cfg.Targets))
	for _, target := range cfg.Targets {
		channels = append(channels, NewWhatsAppChannel(cfg.BaseURL, target))
	}
	return channels
}

func (c *WhatsAppChannel) Name() string {
	return "whatsapp:" + c.target.Phone
}

func (c *WhatsAppChannel) Send(ctx context.Context, job *domain.NotificationJob) error {
	q := url.Values{}
	q.Set("phone", c.target.Phone)
	q.Set("text", job.Message)
	q.Set("apikey", c.target.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/whatsapp.php?"+q.Encode(), nil)
	if err != nil {
		return Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call callmebot: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if strings.Contains(string(body), callMeBotInvalidKey) {
		return Permanent(fmt.Errorf("callmebot rejected the api key for %s", c.target.Phone))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("callmebot returned status %d for %s", resp.StatusCode, c.target.Phone)
	}
	return nil
}
