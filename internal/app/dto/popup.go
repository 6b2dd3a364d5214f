package dto

import (
	"time"

	"hlopg/internal/domain/popup"
)

const dateLayout = "2006-01-02"

type TierOption struct {
	Label          string `json:"label"`
	MonthlyPrice   int64  `json:"monthly_price"`
	DisplayedPrice int64  `json:"displayed_price"`
	Selected       bool   `json:"selected"`
}

type PopupSelection struct {
	Tier               string `json:"tier,omitempty"`
	PriceMode          string `json:"price_mode"`
	DisplayedUnitPrice int64  `json:"displayed_unit_price,omitempty"`
	MoveIn             string `json:"move_in,omitempty"`
	Duration           int    `json:"duration,omitempty"`
	AcceptedTerms      bool   `json:"accepted_terms"`
}

type MoveInWindow struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

type PopupTotals struct {
	Rent    int64 `json:"rent"`
	Deposit int64 `json:"deposit"`
	Total   int64 `json:"total"`
}

// DraftView is everything the popup needs to render one frame.
type DraftView struct {
	DraftID       string         `json:"draft_id"`
	HostelID      string         `json:"hostel_id"`
	Name          string         `json:"name"`
	Address       string         `json:"address"`
	Images        []string       `json:"images"`
	ActiveImage   int            `json:"active_image_index"`
	Tiers         []TierOption   `json:"tiers"`
	NoSharingData bool           `json:"no_sharing_data"`
	Amenities     []string       `json:"amenities"`
	Rules         []string       `json:"rules"`
	Selection     PopupSelection `json:"selection"`
	Window        MoveInWindow   `json:"window"`
	Totals        PopupTotals    `json:"totals"`
	CanProceed    bool           `json:"can_proceed"`
	ExpiresAt     time.Time      `json:"expires_at"`
}

func MapDraftView(draft *popup.Draft, sel *popup.Selection) DraftView {
	listing := sel.Listing()
	mode := sel.PriceMode()
	selected, hasTier := sel.SelectedTier()

	tiers := make([]TierOption, 0, len(listing.Sharing))
	for _, tier := range listing.Tiers() {
		tiers = append(tiers, TierOption{
			Label:          tier.Label,
			MonthlyPrice:   tier.MonthlyPrice,
			DisplayedPrice: popup.UnitPrice(tier.MonthlyPrice, mode),
			Selected:       hasTier && tier.Label == selected.Label,
		})
	}

	view := PopupSelection{
		PriceMode:     string(mode),
		AcceptedTerms: sel.TermsAccepted(),
	}
	if hasTier {
		view.Tier = selected.Label
		view.DisplayedUnitPrice, _ = sel.DisplayedUnitPrice()
	}
	if moveIn, ok := sel.MoveInDate(); ok {
		view.MoveIn = moveIn.Format(dateLayout)
	}
	if d, ok := sel.Duration(); ok {
		view.Duration = d
	}

	w := sel.Window()
	totals := sel.ComputeTotal()
	return DraftView{
		DraftID:       string(draft.ID),
		HostelID:      listing.HostelID,
		Name:          listing.Name,
		Address:       listing.Address,
		Images:        append([]string(nil), listing.Images...),
		ActiveImage:   sel.ImageIndex(),
		Tiers:         tiers,
		NoSharingData: !listing.HasSharing(),
		Amenities:     listing.EnabledAmenities(),
		Rules:         append([]string(nil), listing.Rules...),
		Selection:     view,
		Window:        MoveInWindow{Min: w.Min.Format(dateLayout), Max: w.Max.Format(dateLayout)},
		Totals:        PopupTotals{Rent: totals.Rent, Deposit: totals.Deposit, Total: totals.Total},
		CanProceed:    sel.CanProceed(),
		ExpiresAt:     draft.ExpiresAt,
	}
}

// ParseDate reads a move-in date in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dateLayout, raw, loc)
}
