package notify

import (
	"context"
	"log/slog"

	"github.com/safar/storefront/internal/logging"
)

type Mailer interface {
	SendWelcome(ctx context.Context, email string) error
}

// LogMailer records the welcome mail instead of delivering it.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer() *LogMailer {
	return &LogMailer{logger: logging.New("mailer")}
}

func (m *LogMailer) SendWelcome(ctx context.Context, email string) error {
	m.logger.InfoContext(ctx, "welcome mail", "to", email)
	return nil
}

// AccountCreatedHandler hands account events to the mailer.
type AccountCreatedHandler struct {
	mailer Mailer
}

func NewAccountCreatedHandler(m Mailer) *AccountCreatedHandler {
	return &AccountCreatedHandler{mailer: m}
}

func (h *AccountCreatedHandler) HandleAccountCreated(ctx context.Context, msg AccountCreatedMsg) error {
	logging.FromCtx(ctx).Info("account created", "message_id", msg.MessageID)
	return h.mailer.SendWelcome(ctx, msg.Email)
}
