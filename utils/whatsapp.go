package utils

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// MessageSenderInterface is the outbound transport contract. Real BSP
// integrations (Twilio, Meta Cloud API) implement it; the pipeline never
// sees anything but this.
type MessageSenderInterface interface {
	Send(ctx context.Context, phone, content string) (providerID string, err error)
}

// MockWhatsAppSender logs the message and fabricates a provider id. Used in
// development and tests where no BSP is reachable.
type MockWhatsAppSender struct {
	Logger *log.Logger
}

func NewMockWhatsAppSender(logger *log.Logger) *MockWhatsAppSender {
	return &MockWhatsAppSender{Logger: logger}
}

func (s *MockWhatsAppSender) Send(ctx context.Context, phone, content string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	providerID := "wamid." + uuid.NewString()
	if s.Logger != nil {
		s.Logger.Printf("[BSP] Sending to %s (message_id=%s)", phone, providerID)
	}
	return providerID, nil
}

// TimeoutSender wraps another sender with a bounded per-call timeout. A
// timeout counts as a send failure, not a campaign failure.
type TimeoutSender struct {
	Inner   MessageSenderInterface
	Timeout time.Duration
}

func NewTimeoutSender(inner MessageSenderInterface, timeout time.Duration) *TimeoutSender {
	return &TimeoutSender{Inner: inner, Timeout: timeout}
}

func (s *TimeoutSender) Send(ctx context.Context, phone, content string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	providerID, err := s.Inner.Send(ctx, phone, content)
	if err != nil {
		return "", fmt.Errorf("transport send failed: %w", err)
	}
	return providerID, nil
}
