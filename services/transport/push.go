package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

type pushPayload struct {
	DeviceToken string `json:"deviceToken"`
	Title       string `json:"title"`
	Body        string `json:"body"`
}

// PushSender posts notifications to a push gateway webhook.
type PushSender struct {
	client *resty.Client
	url    string
}

func NewPushSender(url string) *PushSender {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Content-Type", "application/json")
	return &PushSender{client: client, url: url}
}

func (s *PushSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("device token is empty")
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(pushPayload{DeviceToken: msg.To, Title: msg.Subject, Body: msg.Body}).
		Post(s.url)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("push gateway returned %s", resp.Status())
	}
	return nil
}

// LogPush accepts every push and only logs it; used when no gateway is configured.
func LogPush(logger *zap.Logger) Sender {
	return SenderFunc(func(_ context.Context, msg Message) error {
		logger.Info("push notification (no gateway configured)",
			zap.String("to", msg.To),
			zap.String("title", msg.Subject))
		return nil
	})
}
