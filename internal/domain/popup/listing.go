package popup

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrTierLabelRequired = errors.New("popup: tier label is required")
	ErrTierPrice         = errors.New("popup: tier monthly price must be positive")
	ErrNegativeDeposit   = errors.New("popup: deposit must be non-negative")
)

// DefaultImages is shown when a hostel has no photos of its own.
var DefaultImages = []string{"pg1.jpg", "pg2.jpg", "pg3.jpg", "pg4.jpg", "pg5.png"}

// DefaultRules apply when a hostel does not publish house rules.
var DefaultRules = []string{"No Alcohol", "No Smoking"}

// Tier is one sharing option offered by a hostel.
type Tier struct {
	Label        string `json:"label"`
	MonthlyPrice int64  `json:"monthly_price"`
}

// Listing is the already-fetched hostel data the popup renders.
type Listing struct {
	HostelID  string           `json:"hostel_id"`
	Name      string           `json:"name"`
	Address   string           `json:"address"`
	Images    []string         `json:"images"`
	Sharing   map[string]int64 `json:"sharing"`
	Amenities map[string]bool  `json:"amenities"`
	Rules     []string         `json:"rules"`
	Deposit   int64            `json:"deposit"`
}

type ListingParams struct {
	HostelID  string
	Name      string
	Address   string
	Images    []string
	Sharing   map[string]int64
	Amenities map[string]bool
	Rules     []string
	Deposit   int64
}

// NewListing validates tiers and deposit and applies the image and rule fallbacks.
func NewListing(params ListingParams) (Listing, error) {
	if params.Deposit < 0 {
		return Listing{}, ErrNegativeDeposit
	}
	sharing := make(map[string]int64, len(params.Sharing))
	for label, price := range params.Sharing {
		if strings.TrimSpace(label) == "" {
			return Listing{}, ErrTierLabelRequired
		}
		if price <= 0 {
			return Listing{}, ErrTierPrice
		}
		sharing[label] = price
	}
	images := make([]string, 0, len(params.Images))
	for _, img := range params.Images {
		if img = strings.TrimSpace(img); img != "" {
			images = append(images, img)
		}
	}
	if len(images) == 0 {
		images = append(images, DefaultImages...)
	}
	rules := append([]string(nil), params.Rules...)
	if len(rules) == 0 {
		rules = append(rules, DefaultRules...)
	}
	amenities := make(map[string]bool, len(params.Amenities))
	for name, on := range params.Amenities {
		amenities[name] = on
	}
	return Listing{
		HostelID:  params.HostelID,
		Name:      strings.TrimSpace(params.Name),
		Address:   strings.TrimSpace(params.Address),
		Images:    images,
		Sharing:   sharing,
		Amenities: amenities,
		Rules:     rules,
		Deposit:   params.Deposit,
	}, nil
}

// Tiers returns the sharing options ordered by label.
func (l Listing) Tiers() []Tier {
	out := make([]Tier, 0, len(l.Sharing))
	for label, price := range l.Sharing {
		out = append(out, Tier{Label: label, MonthlyPrice: price})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// HasSharing reports whether any tier can be selected at all.
func (l Listing) HasSharing() bool {
	return len(l.Sharing) > 0
}

// EnabledAmenities lists amenity flags that are switched on, sorted by name.
func (l Listing) EnabledAmenities() []string {
	out := make([]string, 0, len(l.Amenities))
	for name, on := range l.Amenities {
		if on {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (l Listing) tier(label string) (Tier, bool) {
	price, ok := l.Sharing[label]
	if !ok {
		return Tier{}, false
	}
	return Tier{Label: label, MonthlyPrice: price}, true
}
