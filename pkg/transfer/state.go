package transfer

import "github.com/shopspring/decimal"

// Phase is where a view is in its submission state machine.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseValidating Phase = "validating"
	PhaseSubmitting Phase = "submitting"
)

// Outcome is the result of the most recent submission attempt.
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeRejected  Outcome = "rejected"
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// State is a snapshot of everything the page shows.
type State struct {
	ReceiverAccountNumber string `json:"receiverAccountNumber"`
	Description           string `json:"description"`
	Amount                string `json:"amount"`

	// CurrentBalance is the shadow balance; nil while it has not loaded.
	CurrentBalance *decimal.Decimal `json:"currentBalance"`

	AccountNumberError string `json:"accountNumberError,omitempty"`
	AmountError        string `json:"amountError,omitempty"`
	Error              string `json:"error,omitempty"`
	Success            string `json:"success,omitempty"`

	Phase       Phase   `json:"phase"`
	LastOutcome Outcome `json:"lastOutcome,omitempty"`
}

// BalanceText renders the balance the way the page shows it.
func (s State) BalanceText() string {
	if s.CurrentBalance == nil {
		return "Loading..."
	}
	return s.CurrentBalance.StringFixed(2)
}

func (s *State) setError(msg string) {
	s.Error = msg
	s.Success = ""
}

func (s *State) setSuccess(msg string) {
	s.Success = msg
	s.Error = ""
}

func (s State) clone() State {
	if s.CurrentBalance != nil {
		b := *s.CurrentBalance
		s.CurrentBalance = &b
	}
	return s
}
