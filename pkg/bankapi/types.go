package bankapi

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// IndicatorDebit marks an outgoing transaction. The backend also knows "CR"
// but the frontend never sends credits.
const IndicatorDebit = "DB"

// Account is the sender account as returned by GET /users/{id}/accounts.
type Account struct {
	ID            int64  `json:"id"`
	AccountNumber string `json:"accountNumber"`
}

// Balance is the payload of GET /accounts/{id}/balances.
type Balance struct {
	Amount decimal.Decimal `json:"amount"`
}

// TransactionRequest is the body of POST /transactions.
type TransactionRequest struct {
	Account               Account         `json:"account"`
	ReceiverAccountNumber string          `json:"receiverAccountNumber"`
	Description           string          `json:"description"`
	Amount                decimal.Decimal `json:"amount"`
	Indicator             string          `json:"indicator"`
	Date                  time.Time       `json:"date"`
}

// MarshalJSON writes the amount as a JSON number; decimal defaults to a
// quoted string which the backend rejects.
func (t TransactionRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Account               Account     `json:"account"`
		ReceiverAccountNumber string      `json:"receiverAccountNumber"`
		Description           string      `json:"description"`
		Amount                json.Number `json:"amount"`
		Indicator             string      `json:"indicator"`
		Date                  string      `json:"date"`
	}{
		Account:               t.Account,
		ReceiverAccountNumber: t.ReceiverAccountNumber,
		Description:           t.Description,
		Amount:                json.Number(t.Amount.String()),
		Indicator:             t.Indicator,
		Date:                  t.Date.UTC().Format("2006-01-02T15:04:05.000Z"),
	})
}
