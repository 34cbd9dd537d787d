package identity

import (
	"context"
	"fmt"

	"github.com/angelmondragon/quickdelivery-backend/pkg/logger"
)

// SMSSender delivers one-time codes to a phone.
type SMSSender interface {
	Send(ctx context.Context, phone, message string) error
}

// LogSender writes codes to the service log instead of an SMS provider.
type LogSender struct {
	logg *logger.Logger
}

func NewLogSender(logg *logger.Logger) *LogSender {
	return &LogSender{logg: logg}
}

func (s *LogSender) Send(ctx context.Context, phone, message string) error {
	if s.logg == nil {
		return fmt.Errorf("logger required")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"phone":   maskPhone(phone),
		"message": message,
	})
	s.logg.Info(ctx, "otp.sms_sent")
	return nil
}

func maskPhone(phone string) string {
	if len(phone) < 4 {
		return "****"
	}
	return "******" + phone[len(phone)-4:]
}
