// Package transfer implements the send-money form: balance loading, field
// validation, transfer submission and the state the page renders.
package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"sendmoney/pkg/bankapi"
	"sendmoney/pkg/guard"

	"github.com/shopspring/decimal"
)

type UserID int64

var (
	// ErrNoSession means the session carries no user id.
	ErrNoSession = errors.New("user ID not found")
	// ErrAccountNotFound means the user has no account.
	ErrAccountNotFound = errors.New("account not found for the current user")
	// ErrSubmitInProgress is returned when Submit is called while a submission is in flight.
	ErrSubmitInProgress = errors.New("submission already in progress")
)

// Session resolves the signed-in user. Implementations must read their backing
// record on every call.
type Session interface {
	CurrentUserID(ctx context.Context) (UserID, bool)
}

// AccountResolver looks up the account owned by a user.
type AccountResolver interface {
	AccountForUser(ctx context.Context, userID int64) (bankapi.Account, error)
}

// Backend is everything the view needs from the ledger. *bankapi.Client implements it.
type Backend interface {
	AccountResolver
	Balance(ctx context.Context, accountID int64) (bankapi.Balance, error)
	CreateTransaction(ctx context.Context, tx bankapi.TransactionRequest) (json.RawMessage, error)
}

// Guard serialises submissions of one user across views.
type Guard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// View is one page session of the send-money form. It is safe for concurrent use.
type View struct {
	backend Backend
	guard   Guard
	now     func() time.Time

	mu    sync.Mutex
	state State

	activateOnce sync.Once
	loaded       chan struct{}
}

type ViewOption func(*View)

func WithGuard(g Guard) ViewOption {
	return func(v *View) { v.guard = g }
}

// WithClock overrides the clock used to date transactions.
func WithClock(now func() time.Time) ViewOption {
	return func(v *View) { v.now = now }
}

func NewView(backend Backend, opts ...ViewOption) *View {
	v := &View{
		backend: backend,
		now:     time.Now,
		state:   State{Phase: PhaseIdle},
		loaded:  make(chan struct{}),
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// State returns a snapshot of the view.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state.clone()
}

// Activate starts the balance loader. Only the first call has an effect; every
// call returns a channel closed when that load has finished.
func (v *View) Activate(ctx context.Context, sess Session) <-chan struct{} {
	v.activateOnce.Do(func() {
		go func() {
			defer close(v.loaded)
			v.loadBalance(ctx, sess)
		}()
	})
	return v.loaded
}

func (v *View) loadBalance(ctx context.Context, sess Session) {
	acc, err := resolveAccount(ctx, sess, v.backend)
	if err == nil {
		var bal bankapi.Balance
		bal, err = v.backend.Balance(ctx, acc.ID)
		if err == nil {
			amount := bal.Amount
			v.mu.Lock()
			v.state.CurrentBalance = &amount
			v.mu.Unlock()
			return
		}
	}
	log.Printf("transfer: balance load failed: %v", err)
	v.mu.Lock()
	v.state.setError(MsgBalanceFetchFailed)
	v.mu.Unlock()
}

func (v *View) SetReceiverAccountNumber(value string) State {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.setReceiverLocked(value)
	return v.state.clone()
}

func (v *View) SetDescription(value string) State {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.Description = value
	return v.state.clone()
}

// SetAmount stores value if it looks like a decimal number in progress. The
// bool is false when the input was rejected and the stored amount kept.
func (v *View) SetAmount(value string) (State, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	ok := v.setAmountLocked(value)
	return v.state.clone(), ok
}

func (v *View) setReceiverLocked(value string) {
	v.state.ReceiverAccountNumber = value
	v.state.AccountNumberError = ValidateReceiver(value)
}

func (v *View) setAmountLocked(value string) bool {
	if !AcceptAmountInput(value) {
		return false
	}
	v.state.Amount = value
	v.state.AmountError = ValidateAmount(value)
	return true
}

// Form carries field values sent along with a submission. Nil fields keep
// what the view already holds.
type Form struct {
	ReceiverAccountNumber *string
	Description           *string
	Amount                *string
}

// Submit validates the form and, if it passes, sends the transfer. Failures are
// reported through the returned State; the error is only ErrSubmitInProgress.
func (v *View) Submit(ctx context.Context, sess Session) (State, error) {
	return v.SubmitForm(ctx, sess, Form{})
}

// SubmitForm applies f and submits in one step. While another submission is
// in flight it returns ErrSubmitInProgress and leaves every field untouched.
func (v *View) SubmitForm(ctx context.Context, sess Session, f Form) (State, error) {
	v.mu.Lock()
	if v.state.Phase != PhaseIdle {
		st := v.state.clone()
		v.mu.Unlock()
		return st, ErrSubmitInProgress
	}
	if f.ReceiverAccountNumber != nil {
		v.setReceiverLocked(*f.ReceiverAccountNumber)
	}
	if f.Description != nil {
		v.state.Description = *f.Description
	}
	if f.Amount != nil {
		v.setAmountLocked(*f.Amount)
	}
	v.state.Phase = PhaseValidating
	amount, ok := v.validateLocked()
	if !ok {
		v.state.Phase = PhaseIdle
		v.state.LastOutcome = OutcomeRejected
		st := v.state.clone()
		v.mu.Unlock()
		return st, nil
	}
	v.state.Phase = PhaseSubmitting
	receiver, description := v.state.ReceiverAccountNumber, v.state.Description
	v.mu.Unlock()

	_, err := v.send(ctx, sess, bankapi.TransactionRequest{
		ReceiverAccountNumber: receiver,
		Description:           description,
		Amount:                amount,
		Indicator:             bankapi.IndicatorDebit,
		Date:                  v.now(),
	})

	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.Phase = PhaseIdle
	if err != nil {
		log.Printf("transfer: submit failed: %v", err)
		v.state.setError(failureMessage(err))
		v.state.LastOutcome = OutcomeFailed
		return v.state.clone(), nil
	}
	v.state.setSuccess(MsgSubmitSucceeded)
	v.state.ReceiverAccountNumber = ""
	v.state.Description = ""
	v.state.Amount = ""
	if v.state.CurrentBalance != nil {
		b := v.state.CurrentBalance.Sub(amount)
		v.state.CurrentBalance = &b
	}
	v.state.LastOutcome = OutcomeSucceeded
	return v.state.clone(), nil
}

// validateLocked runs the pre-submit checks in order and stops at the first failure.
func (v *View) validateLocked() (decimal.Decimal, bool) {
	s := &v.state
	if msg := ValidateReceiver(s.ReceiverAccountNumber); msg != "" {
		s.AccountNumberError = msg
		return decimal.Decimal{}, false
	}
	if s.ReceiverAccountNumber == "" || s.Description == "" || s.Amount == "" {
		s.setError(MsgFillAllFields)
		return decimal.Decimal{}, false
	}
	amount, parsed := ParseAmount(s.Amount)
	if !parsed || !amount.IsPositive() {
		s.AmountError = MsgAmountPositive
		return decimal.Decimal{}, false
	}
	// an unloaded balance cannot cover anything
	if s.CurrentBalance == nil || amount.GreaterThan(*s.CurrentBalance) {
		s.setError(MsgInsufficient)
		return decimal.Decimal{}, false
	}
	return amount, true
}

func (v *View) send(ctx context.Context, sess Session, tx bankapi.TransactionRequest) (json.RawMessage, error) {
	userID, ok := sess.CurrentUserID(ctx)
	if !ok {
		return nil, ErrNoSession
	}
	if v.guard != nil {
		release, err := v.guard.Acquire(ctx, strconv.FormatInt(int64(userID), 10))
		if err != nil {
			return nil, fmt.Errorf("submit guard: %w", err)
		}
		defer release()
	}
	acc, err := accountForUser(ctx, v.backend, userID)
	if err != nil {
		return nil, err
	}
	tx.Account = acc
	return v.backend.CreateTransaction(ctx, tx)
}

func resolveAccount(ctx context.Context, sess Session, r AccountResolver) (bankapi.Account, error) {
	userID, ok := sess.CurrentUserID(ctx)
	if !ok {
		return bankapi.Account{}, ErrNoSession
	}
	return accountForUser(ctx, r, userID)
}

func accountForUser(ctx context.Context, r AccountResolver, userID UserID) (bankapi.Account, error) {
	acc, err := r.AccountForUser(ctx, int64(userID))
	if errors.Is(err, bankapi.ErrNoAccount) {
		return bankapi.Account{}, ErrAccountNotFound
	}
	if err != nil {
		return bankapi.Account{}, fmt.Errorf("resolve account of user %d: %w", userID, err)
	}
	return acc, nil
}

// failureMessage prefers the backend's own explanation.
func failureMessage(err error) string {
	if errors.Is(err, guard.ErrHeld) {
		return MsgSubmitBusy
	}
	var apiErr *bankapi.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return MsgSubmitFailed
}
