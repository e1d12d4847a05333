// Package notifier предоставляет клиент доставки событий во внешнюю систему уведомлений.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// Имена событий, которые публикует сервис.
const (
	EventActivityCompleted = "activity_completed"
	EventLevelUp           = "level_up"
)

// Client инкапсулирует HTTP-доставку событий в систему уведомлений.
// Доставка best-effort: ошибка логируется и не влияет на исход запроса,
// вызвавшего событие.
type Client struct {
	baseURL    string
	httpClient *retryablehttp.Client
	logger     *zap.Logger
}

type event struct {
	UserID  int64           `json:"user_id"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// NewClient создаёт клиента для отправки событий по указанному адресу.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.HTTPClient.Timeout = 5 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: rc,
		logger:     logger,
	}
}

// Notify отправляет событие для указанного пользователя. Payload должен
// сериализоваться в JSON.
func (c *Client) Notify(ctx context.Context, userID int64, name string, payload any) error {
	if c == nil || c.baseURL == "" {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	body, err := json.Marshal(event{
		UserID:  userID,
		Event:   name,
		Payload: raw,
	})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, base+"/api/events", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("notification delivery failed",
			zap.String("event", name),
			zap.Int64("userID", userID),
			zap.Error(err),
		)
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		c.logger.Warn("notification rejected",
			zap.String("event", name),
			zap.Int64("userID", userID),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return nil
}
