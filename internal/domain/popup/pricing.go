package popup

import (
	"errors"
	"strings"
)

var ErrInvalidPriceMode = errors.New("popup: price mode must be daily or monthly")

// PriceMode is the denomination used to show and compute rent.
type PriceMode string

const (
	PriceModeDaily   PriceMode = "daily"
	PriceModeMonthly PriceMode = "monthly"

	daysPerMonth = 30
)

// ParsePriceMode accepts the two modes case-insensitively.
func ParsePriceMode(raw string) (PriceMode, error) {
	switch PriceMode(strings.ToLower(strings.TrimSpace(raw))) {
	case PriceModeDaily:
		return PriceModeDaily, nil
	case PriceModeMonthly:
		return PriceModeMonthly, nil
	default:
		return "", ErrInvalidPriceMode
	}
}

// UnitPrice converts a monthly price into the displayed price for mode.
// Daily prices are monthly/30 rounded to the nearest rupee, halves rounding up.
func UnitPrice(monthly int64, mode PriceMode) int64 {
	if mode == PriceModeDaily {
		return (monthly + daysPerMonth/2) / daysPerMonth
	}
	return monthly
}

// Totals is the payment summary shown next to the calendar.
type Totals struct {
	Rent    int64 `json:"rent"`
	Deposit int64 `json:"deposit"`
	Total   int64 `json:"total"`
}

func computeTotals(tier *Tier, mode PriceMode, duration int, deposit int64) Totals {
	var rent int64
	if tier != nil {
		unit := UnitPrice(tier.MonthlyPrice, mode)
		if mode == PriceModeDaily {
			rent = unit * int64(duration)
		} else {
			rent = unit
		}
	}
	if rent < 0 {
		rent = 0
	}
	return Totals{Rent: rent, Deposit: deposit, Total: rent + deposit}
}
