package dto

import (
	"time"

	domainbooking "hlopg/internal/domain/booking"
	domainhostels "hlopg/internal/domain/hostels"
	"hlopg/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type BookingHostelSnapshot struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
}

type BookingSummary struct {
	ID        string                `json:"id"`
	Hostel    BookingHostelSnapshot `json:"hostel"`
	Tier      string                `json:"tier"`
	PriceMode string                `json:"price_mode"`
	UnitPrice MoneyDTO              `json:"unit_price"`
	MoveIn    string                `json:"move_in"`
	Duration  int                   `json:"duration,omitempty"`
	Rent      MoneyDTO              `json:"rent"`
	Deposit   MoneyDTO              `json:"deposit"`
	Total     MoneyDTO              `json:"total"`
	Status    string                `json:"status"`
	CreatedAt time.Time             `json:"created_at"`
}

type BookingCollection struct {
	Items []BookingSummary `json:"items"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{
		Amount:   value.Amount,
		Currency: value.Currency,
	}
}

// MapBookingSummary tolerates a nil hostel when the listing was removed after booking.
func MapBookingSummary(b *domainbooking.Booking, hostel *domainhostels.Hostel) BookingSummary {
	snapshot := BookingHostelSnapshot{ID: string(b.HostelID)}
	if hostel != nil {
		snapshot.Name = hostel.Name
		snapshot.Address = hostel.Address
		snapshot.City = hostel.City
	}
	return BookingSummary{
		ID:        string(b.ID),
		Hostel:    snapshot,
		Tier:      b.Tier,
		PriceMode: string(b.PriceMode),
		UnitPrice: MapMoney(b.UnitPrice),
		MoveIn:    b.MoveIn.Format(dateLayout),
		Duration:  b.Duration,
		Rent:      MapMoney(b.Rent),
		Deposit:   MapMoney(b.Deposit),
		Total:     MapMoney(b.Total),
		Status:    string(b.State),
		CreatedAt: b.CreatedAt,
	}
}
