package hostels

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"hlopg/internal/domain/popup"
)

var (
	ErrIDRequired      = errors.New("hostels: id is required")
	ErrNameRequired    = errors.New("hostels: name is required")
	ErrUnknownCity     = errors.New("hostels: city is not served")
	ErrInvalidPGType   = errors.New("hostels: pg type must be men, women or co-living")
	ErrInvalidRating   = errors.New("hostels: rating must be between 0 and 5")
	ErrNegativeDeposit = errors.New("hostels: deposit must be non-negative")
	ErrNotFound        = errors.New("hostels: not found")
)

type HostelID string
type OwnerID string

// PGType says who a hostel admits.
type PGType string

const (
	PGTypeMen      PGType = "men"
	PGTypeWomen    PGType = "women"
	PGTypeCoLiving PGType = "co-living"
)

// Cities the storefront has pages for.
var SupportedCities = []string{"hyderabad", "chennai", "bangalore", "mumbai"}

const defaultRating = 4.5

// ParsePGType understands the loose labels owners type in ("Women's", "co living", "Boys").
func ParsePGType(raw string) (PGType, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case v == "":
		return "", ErrInvalidPGType
	case strings.Contains(v, "women"), strings.Contains(v, "female"), strings.Contains(v, "girl"):
		return PGTypeWomen, nil
	case strings.Contains(v, "co"):
		return PGTypeCoLiving, nil
	case strings.Contains(v, "men"), strings.Contains(v, "male"), strings.Contains(v, "boy"):
		return PGTypeMen, nil
	default:
		return "", ErrInvalidPGType
	}
}

// Label is the text shown on listing cards.
func (t PGType) Label() string {
	switch t {
	case PGTypeWomen:
		return "Women's PG"
	case PGTypeCoLiving:
		return "Co-Living"
	default:
		return "Men's PG"
	}
}

func NormalizeCity(city string) (string, error) {
	city = strings.ToLower(strings.TrimSpace(city))
	for _, c := range SupportedCities {
		if c == city {
			return c, nil
		}
	}
	return "", ErrUnknownCity
}

type Hostel struct {
	ID        HostelID
	Owner     OwnerID
	Name      string
	Address   string
	City      string
	Area      string
	PGType    PGType
	Sharing   map[string]int64
	Amenities map[string]bool
	Rules     []string
	Deposit   int64
	Images    []string
	Rating    float64
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Repository interface {
	ByID(ctx context.Context, id HostelID) (*Hostel, error)
	Save(ctx context.Context, hostel *Hostel) error
	Search(ctx context.Context, params SearchParams) ([]*Hostel, error)
}

type CreateParams struct {
	ID        HostelID
	Owner     OwnerID
	Name      string
	Address   string
	City      string
	Area      string
	PGType    string
	Sharing   map[string]int64
	Amenities map[string]bool
	Rules     []string
	Deposit   int64
	Images    []string
	Rating    float64
	Now       time.Time
}

func NewHostel(params CreateParams) (*Hostel, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	city, err := NormalizeCity(params.City)
	if err != nil {
		return nil, err
	}
	pgType, err := ParsePGType(params.PGType)
	if err != nil {
		return nil, err
	}
	if params.Deposit < 0 {
		return nil, ErrNegativeDeposit
	}
	rating := params.Rating
	if rating == 0 {
		rating = defaultRating
	}
	if rating < 0 || rating > 5 {
		return nil, ErrInvalidRating
	}
	// Reuse the popup's tier validation so a stored hostel can always be opened.
	listing, err := popup.NewListing(popup.ListingParams{
		HostelID: string(params.ID),
		Sharing:  params.Sharing,
	})
	if err != nil {
		return nil, err
	}
	now := params.Now.UTC()
	return &Hostel{
		ID:        HostelID(strings.TrimSpace(string(params.ID))),
		Owner:     params.Owner,
		Name:      name,
		Address:   strings.TrimSpace(params.Address),
		City:      city,
		Area:      strings.TrimSpace(params.Area),
		PGType:    pgType,
		Sharing:   listing.Sharing,
		Amenities: copyAmenities(params.Amenities),
		Rules:     append([]string(nil), params.Rules...),
		Deposit:   params.Deposit,
		Images:    append([]string(nil), params.Images...),
		Rating:    rating,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// StartingPrice is the cheapest monthly tier, zero when no tiers are published.
func (h *Hostel) StartingPrice() int64 {
	var min int64
	for _, price := range h.Sharing {
		if min == 0 || price < min {
			min = price
		}
	}
	return min
}

// SharingLabels returns tier labels in display order.
func (h *Hostel) SharingLabels() []string {
	out := make([]string, 0, len(h.Sharing))
	for label := range h.Sharing {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

// PopupListing is the snapshot a booking popup is opened over.
func (h *Hostel) PopupListing() (popup.Listing, error) {
	return popup.NewListing(popup.ListingParams{
		HostelID:  string(h.ID),
		Name:      h.Name,
		Address:   h.Address,
		Images:    h.Images,
		Sharing:   h.Sharing,
		Amenities: h.Amenities,
		Rules:     h.Rules,
		Deposit:   h.Deposit,
	})
}

func copyAmenities(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
