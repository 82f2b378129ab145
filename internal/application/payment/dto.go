package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/thirdhand/marketplace/internal/domain/payment"
	"github.com/thirdhand/marketplace/internal/domain/shared"
)

// Checkout metadata keys, read back from webhook events
const (
	MetaType               = "type"
	MetaArtworkID          = "artworkId"
	MetaUserID             = "userId"
	MetaBuyerID            = "buyerId"
	MetaSellerID           = "sellerId"
	MetaPlatformCommission = "platformCommission"
	MetaArtistAmount       = "artistAmount"
)

// CheckoutResponse is returned when a checkout session is opened
type CheckoutResponse struct {
	SessionID       string    `json:"sessionId"`
	SessionURL      string    `json:"sessionUrl"`
	PaymentIntentID string    `json:"paymentIntentId,omitempty"`
	TransactionID   uuid.UUID `json:"transactionId"`
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
}

// HistoryQuery filters the payment history of a user
type HistoryQuery struct {
	Type   string
	Status string
	Page   int
	Limit  int
	Sort   string
}

// Filter validates the query and converts it to a repository filter.
// Sort defaults to newest first.
func (q HistoryQuery) Filter(defaultLimit int) (payment.TransactionFilter, error) {
	opts := shared.ListOptions{
		Page:  q.Page,
		Limit: q.Limit,
		Sort:  shared.ParseSort(q.Sort, historySort),
	}
	filter := payment.TransactionFilter{ListOptions: opts.Normalize(defaultLimit)}

	if q.Type != "" {
		t := payment.TransactionType(q.Type)
		if !t.IsValid() {
			return filter, shared.NewDomainErrorf("INVALID_TYPE", "Unknown transaction type %q", q.Type)
		}
		filter.Type = &t
	}
	if q.Status != "" {
		st := payment.TransactionStatus(q.Status)
		if !st.IsValid() {
			return filter, shared.NewDomainErrorf("INVALID_STATUS", "Unknown transaction status %q", q.Status)
		}
		filter.Status = &st
	}
	return filter, nil
}

// TransactionResponse is the API view of a transaction. Amounts are cents.
type TransactionResponse struct {
	ID                 uuid.UUID                 `json:"id"`
	BuyerID            *uuid.UUID                `json:"buyerId,omitempty"`
	SellerID           uuid.UUID                 `json:"sellerId"`
	ArtworkID          uuid.UUID                 `json:"artworkId"`
	Amount             int64                     `json:"amount"`
	AmountEuros        decimal.Decimal           `json:"amountEuros"`
	Currency           string                    `json:"currency"`
	CheckoutSessionID  string                    `json:"checkoutSessionId"`
	PaymentIntentID    string                    `json:"paymentIntentId,omitempty"`
	Status             payment.TransactionStatus `json:"status"`
	Type               payment.TransactionType   `json:"type"`
	PlatformCommission int64                     `json:"platformCommission"`
	ArtistAmount       int64                     `json:"artistAmount"`
	Timestamp          time.Time                 `json:"timestamp"`
	CompletedAt        *time.Time                `json:"completedAt,omitempty"`
	FailedAt           *time.Time                `json:"failedAt,omitempty"`
	FailureReason      string                    `json:"failureReason,omitempty"`
	ReceiptURL         string                    `json:"receiptUrl,omitempty"`
	PaymentMethod      string                    `json:"paymentMethod,omitempty"`
}

// TransactionPage is a page of transactions
type TransactionPage = shared.Paginated[TransactionResponse]

// ToTransactionResponse converts a domain transaction
func ToTransactionResponse(t *payment.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:                 t.ID,
		BuyerID:            t.BuyerID,
		SellerID:           t.SellerID,
		ArtworkID:          t.ArtworkID,
		Amount:             t.Amount,
		AmountEuros:        t.AmountEuros(),
		Currency:           t.Currency,
		CheckoutSessionID:  t.CheckoutSessionID,
		PaymentIntentID:    t.PaymentIntentID,
		Status:             t.Status,
		Type:               t.Type,
		PlatformCommission: t.PlatformCommission,
		ArtistAmount:       t.ArtistAmount,
		Timestamp:          t.Timestamp,
		CompletedAt:        t.CompletedAt,
		FailedAt:           t.FailedAt,
		FailureReason:      t.FailureReason,
		ReceiptURL:         t.ReceiptURL,
		PaymentMethod:      t.PaymentMethod,
	}
}

// ToTransactionResponses converts a slice of domain transactions
func ToTransactionResponses(ts []*payment.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, len(ts))
	for i, t := range ts {
		out[i] = ToTransactionResponse(t)
	}
	return out
}

// WebhookResult reports how a webhook delivery was handled
type WebhookResult struct {
	EventID   string `json:"eventId"`
	EventType string `json:"eventType"`
	Outcome   string `json:"outcome"`
	Message   string `json:"message,omitempty"`
}
