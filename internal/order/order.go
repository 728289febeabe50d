package order

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusPaid       Status = "paid"
	StatusFailed     Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusPaid, StatusFailed:
		return true
	}
	return false
}

// Source identifies who is asking to write a settlement status.
type Source int

const (
	// SourceClient is the storefront's optimistic view; never authoritative.
	SourceClient Source = iota
	// SourceProcessor is a verified processor notification or a processor
	// re-fetch by the reconciliation job.
	SourceProcessor
)

func (s Source) String() string {
	if s == SourceProcessor {
		return "processor"
	}
	return "client"
}

// Order is the persisted record of a checkout. UserID is nil for guest
// orders. PaymentRef holds the processor's payment intent id once known.
type Order struct {
	ID         int64     `json:"id"`
	UserID     *string   `json:"user_id"`
	TotalCents int64     `json:"total_cents"`
	Currency   string    `json:"currency"`
	Status     Status    `json:"status"`
	PaymentRef string    `json:"payment_ref,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	Status     *Status
	PaymentRef *string
}

func (p Patch) empty() bool {
	return p.Status == nil && p.PaymentRef == nil
}
