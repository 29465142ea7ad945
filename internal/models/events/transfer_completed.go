package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferCompleted is published after both legs of a transfer are durable.
type TransferCompleted struct {
	TransferID string          `json:"transfer_id"`
	Sender     string          `json:"sender"`
	Recipient  string          `json:"recipient"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt time.Time       `json:"occurred_at"`
}
