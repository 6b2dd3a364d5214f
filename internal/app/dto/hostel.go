package dto

import (
	"time"

	domainfoodmenu "hlopg/internal/domain/foodmenu"
	domainhostels "hlopg/internal/domain/hostels"
	domainreviews "hlopg/internal/domain/reviews"
)

type HostelCard struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Area      string          `json:"area"`
	Gender    string          `json:"gender"`
	Price     int64           `json:"price"`
	Rating    float64         `json:"rating"`
	Image     string          `json:"image,omitempty"`
	Amenities map[string]bool `json:"amenities"`
}

type CityFilters struct {
	Areas   []string `json:"areas"`
	Genders []string `json:"genders"`
}

type CityHostels struct {
	City    string       `json:"city"`
	Items   []HostelCard `json:"items"`
	Filters CityFilters  `json:"filters"`
}

type HostelDetail struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Address   string           `json:"address"`
	City      string           `json:"city"`
	Area      string           `json:"area"`
	PGType    string           `json:"pg_type"`
	Sharing   map[string]int64 `json:"sharing"`
	Amenities map[string]bool  `json:"amenities"`
	Rules     []string         `json:"rules"`
	Deposit   int64            `json:"deposit"`
	Images    []string         `json:"images"`
	Rating    float64          `json:"rating"`
	Price     int64            `json:"price"`
}

type Review struct {
	ID        string    `json:"id"`
	HostelID  string    `json:"hostel_id"`
	Author    string    `json:"author"`
	Rating    int       `json:"rating"`
	Text      string    `json:"review_text,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ReviewCollection struct {
	Items []Review `json:"items"`
}

type FoodMenuDay struct {
	Day       string `json:"day"`
	Breakfast string `json:"breakfast"`
	Lunch     string `json:"lunch"`
	Dinner    string `json:"dinner"`
}

type FoodMenu struct {
	HostelID string        `json:"hostel_id"`
	Days     []FoodMenuDay `json:"days"`
}

func MapHostelCard(h *domainhostels.Hostel) HostelCard {
	card := HostelCard{
		ID:        string(h.ID),
		Name:      h.Name,
		Area:      h.Area,
		Gender:    h.PGType.Label(),
		Price:     h.StartingPrice(),
		Rating:    h.Rating,
		Amenities: h.Amenities,
	}
	if len(h.Images) > 0 {
		card.Image = h.Images[0]
	}
	return card
}

func MapCityHostels(city string, all, filtered []*domainhostels.Hostel) CityHostels {
	items := make([]HostelCard, 0, len(filtered))
	for _, h := range filtered {
		items = append(items, MapHostelCard(h))
	}
	return CityHostels{
		City:  city,
		Items: items,
		Filters: CityFilters{
			Areas:   domainhostels.AreaOptions(all),
			Genders: domainhostels.GenderOptions(),
		},
	}
}

func MapHostelDetail(h *domainhostels.Hostel) HostelDetail {
	return HostelDetail{
		ID:        string(h.ID),
		Name:      h.Name,
		Address:   h.Address,
		City:      h.City,
		Area:      h.Area,
		PGType:    h.PGType.Label(),
		Sharing:   h.Sharing,
		Amenities: h.Amenities,
		Rules:     h.Rules,
		Deposit:   h.Deposit,
		Images:    h.Images,
		Rating:    h.Rating,
		Price:     h.StartingPrice(),
	}
}

func MapReview(r *domainreviews.Review) Review {
	return Review{
		ID:        string(r.ID),
		HostelID:  string(r.HostelID),
		Author:    r.Author,
		Rating:    r.Rating,
		Text:      r.Text,
		CreatedAt: r.CreatedAt,
	}
}

func MapFoodMenu(m *domainfoodmenu.Menu) FoodMenu {
	days := m.Days()
	out := FoodMenu{HostelID: string(m.HostelID), Days: make([]FoodMenuDay, 0, len(days))}
	for _, d := range days {
		out.Days = append(out.Days, FoodMenuDay{Day: d.Day, Breakfast: d.Breakfast, Lunch: d.Lunch, Dinner: d.Dinner})
	}
	return out
}
