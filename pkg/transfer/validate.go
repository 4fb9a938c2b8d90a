package transfer

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// ReceiverLength is the exact length of a receiver account number.
const ReceiverLength = 10

const (
	MsgReceiverLength     = "Receiver account number must be exactly 10 digits long."
	MsgAmountPositive     = "Amount must be greater than zero."
	MsgFillAllFields      = "Please fill in all fields."
	MsgInsufficient       = "Insufficient balance."
	MsgBalanceFetchFailed = "Error fetching account balance."
	MsgSubmitFailed       = "Error processing transaction."
	MsgSubmitSucceeded    = "Transaction successful!"
	MsgSubmitBusy         = "A transaction is already being processed."
)

var amountInputRE = regexp.MustCompile(`^[0-9]*\.?[0-9]*$`)

// ValidateReceiver returns the field error for a receiver account number, or
// "" when it is valid. Only the length counts; content is not inspected.
func ValidateReceiver(v string) string {
	if utf8.RuneCountInString(v) != ReceiverLength {
		return MsgReceiverLength
	}
	return ""
}

// AcceptAmountInput reports whether v may replace the stored amount.
func AcceptAmountInput(v string) bool {
	return amountInputRE.MatchString(v)
}

// ParseAmount parses an accepted amount input. "5." and ".5" are numbers;
// "" and "." are not.
func ParseAmount(v string) (decimal.Decimal, bool) {
	if v == "" || v == "." || !AcceptAmountInput(v) {
		return decimal.Decimal{}, false
	}
	if strings.HasPrefix(v, ".") {
		v = "0" + v
	}
	v = strings.TrimSuffix(v, ".")
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// ValidateAmount returns the field error for an accepted amount input. Input
// that does not parse yet (empty, ".") is tolerated while editing.
func ValidateAmount(v string) string {
	d, ok := ParseAmount(v)
	if ok && !d.IsPositive() {
		return MsgAmountPositive
	}
	return ""
}
