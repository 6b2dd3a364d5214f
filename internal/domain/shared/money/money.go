package money

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// INR is the only currency hostels are priced in.
const INR = "INR"

var (
	ErrInvalidCurrency  = errors.New("money: invalid currency code")
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
)

// Money is a whole-unit amount. Rupee prices never carry paise.
type Money struct {
	Amount   int64  `json:"amount" bson:"amount"`
	Currency string `json:"currency" bson:"currency"`
}

func New(amount int64, currency string) (Money, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if len(code) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	return Money{Amount: amount, Currency: code}, nil
}

func Rupees(amount int64) Money { return Money{Amount: amount, Currency: INR} }

// Sum adds parts that share one currency. An empty call is zero rupees.
func Sum(parts ...Money) (Money, error) {
	if len(parts) == 0 {
		return Rupees(0), nil
	}
	total := parts[0]
	if total.Currency == "" {
		return Money{}, ErrInvalidCurrency
	}
	for _, p := range parts[1:] {
		switch {
		case p.Currency == "":
			return Money{}, ErrInvalidCurrency
		case p.Currency != total.Currency:
			return Money{}, fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, total.Currency, p.Currency)
		}
		total.Amount += p.Amount
	}
	return total, nil
}

func (m Money) Times(n int64) Money { return Money{Amount: m.Amount * n, Currency: m.Currency} }

func (m Money) IsZero() bool { return m.Amount == 0 }

// String renders rupees with Indian digit grouping, e.g. ₹1,23,456.
func (m Money) String() string {
	if m.Currency != INR {
		return strconv.FormatInt(m.Amount, 10) + " " + m.Currency
	}
	sign := ""
	amount := m.Amount
	if amount < 0 {
		sign, amount = "-", -amount
	}
	return sign + "₹" + groupIndian(strconv.FormatInt(amount, 10))
}

// groupIndian puts a comma before the last three digits and then every two.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	groups := make([]string, 0, len(head)/2+2)
	if len(head)%2 == 1 {
		groups = append(groups, head[:1])
		head = head[1:]
	}
	for ; head != ""; head = head[2:] {
		groups = append(groups, head[:2])
	}
	return strings.Join(append(groups, tail), ",")
}
