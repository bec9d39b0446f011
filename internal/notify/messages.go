package notify

import "time"

const (
	exchangeKind          = "topic"
	AccountCreatedRouting = "account.created"
)

type AccountCreatedMsg struct {
	MessageID  string    `json:"message_id"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurred_at"`
}
