package popup

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrUnknownTier        = errors.New("popup: tier is not offered by this hostel")
	ErrImageIndex         = errors.New("popup: image index out of range")
	ErrNotReady           = errors.New("popup: tier, move-in date and terms acceptance are required")
	ErrStateListingDrift  = errors.New("popup: stored selection does not match listing")
	ErrContinueHookNeeded = errors.New("popup: continue hook is required")
)

const (
	MinDuration = 1
	MaxDuration = 60
)

// State is the serializable form of a popup session.
type State struct {
	Tier          *Tier      `json:"tier,omitempty"`
	PriceMode     PriceMode  `json:"price_mode"`
	MoveIn        *time.Time `json:"move_in,omitempty"`
	Duration      int        `json:"duration,omitempty"`
	AcceptedTerms bool       `json:"accepted_terms"`
	ImageIndex    int        `json:"image_index"`
	WindowMin     time.Time  `json:"window_min"`
	WindowMax     time.Time  `json:"window_max"`
}

// Selection is the state of one open booking popup over a fixed listing.
type Selection struct {
	listing Listing
	state   State
}

// Open starts a fresh session; now fixes the move-in window for the popup's lifetime.
func Open(listing Listing, now time.Time) *Selection {
	w := WindowFrom(now)
	return &Selection{
		listing: listing,
		state: State{
			PriceMode: PriceModeMonthly,
			WindowMin: w.Min,
			WindowMax: w.Max,
		},
	}
}

// Restore rebuilds a session from stored state, rejecting state that breaks the invariants.
func Restore(listing Listing, st State) (*Selection, error) {
	if st.Tier != nil {
		price, ok := listing.Sharing[st.Tier.Label]
		if !ok || price != st.Tier.MonthlyPrice {
			return nil, ErrStateListingDrift
		}
	}
	if _, err := ParsePriceMode(string(st.PriceMode)); err != nil {
		return nil, err
	}
	if st.ImageIndex < 0 || st.ImageIndex >= len(listing.Images) {
		return nil, ErrImageIndex
	}
	if st.MoveIn != nil && !(Window{Min: st.WindowMin, Max: st.WindowMax}).Contains(*st.MoveIn) {
		return nil, ErrMoveInOutsideWindow
	}
	if st.Duration != 0 {
		st.Duration = clampDuration(st.Duration)
	}
	s := &Selection{listing: listing, state: st}
	if st.Tier != nil {
		tier := *st.Tier
		s.state.Tier = &tier
	}
	if st.MoveIn != nil {
		moveIn := *st.MoveIn
		s.state.MoveIn = &moveIn
	}
	return s, nil
}

func (s *Selection) Listing() Listing { return s.listing }

// State returns a copy safe to persist.
func (s *Selection) State() State {
	out := s.state
	if s.state.Tier != nil {
		tier := *s.state.Tier
		out.Tier = &tier
	}
	if s.state.MoveIn != nil {
		moveIn := *s.state.MoveIn
		out.MoveIn = &moveIn
	}
	return out
}

func (s *Selection) Window() Window {
	return Window{Min: s.state.WindowMin, Max: s.state.WindowMax}
}

func (s *Selection) SelectTier(label string) error {
	tier, ok := s.listing.tier(label)
	if !ok {
		return ErrUnknownTier
	}
	s.state.Tier = &tier
	return nil
}

// SelectedTier returns the chosen tier with its original monthly price.
func (s *Selection) SelectedTier() (Tier, bool) {
	if s.state.Tier == nil {
		return Tier{}, false
	}
	return *s.state.Tier, true
}

func (s *Selection) SetPriceMode(mode PriceMode) error {
	parsed, err := ParsePriceMode(string(mode))
	if err != nil {
		return err
	}
	s.state.PriceMode = parsed
	return nil
}

func (s *Selection) PriceMode() PriceMode { return s.state.PriceMode }

// DisplayedUnitPrice is the selected tier's price in the current mode.
func (s *Selection) DisplayedUnitPrice() (int64, bool) {
	if s.state.Tier == nil {
		return 0, false
	}
	return UnitPrice(s.state.Tier.MonthlyPrice, s.state.PriceMode), true
}

// SetMoveInDate accepts only days inside the window; a rejected date leaves the previous value.
func (s *Selection) SetMoveInDate(d time.Time) error {
	w := s.Window()
	if !w.Contains(d) {
		return ErrMoveInOutsideWindow
	}
	day := Day(d.In(w.Min.Location()))
	s.state.MoveIn = &day
	return nil
}

func (s *Selection) MoveInDate() (time.Time, bool) {
	if s.state.MoveIn == nil {
		return time.Time{}, false
	}
	return *s.state.MoveIn, true
}

// SetDuration takes raw form input. Blank clears the value, anything non-numeric becomes 1
// and numbers are clamped into [MinDuration, MaxDuration].
func (s *Selection) SetDuration(raw string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		s.state.Duration = 0
		return
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			if strings.HasPrefix(raw, "-") {
				n = MinDuration
			} else {
				n = MaxDuration
			}
		} else {
			n = MinDuration
		}
	}
	s.SetDurationValue(n)
}

func (s *Selection) SetDurationValue(n int) {
	s.state.Duration = clampDuration(n)
}

func (s *Selection) ClearDuration() {
	s.state.Duration = 0
}

// Duration returns the stored value; false means the field is blank.
func (s *Selection) Duration() (int, bool) {
	return s.state.Duration, s.state.Duration > 0
}

func (s *Selection) AcceptTerms(accepted bool) {
	s.state.AcceptedTerms = accepted
}

func (s *Selection) TermsAccepted() bool { return s.state.AcceptedTerms }

func (s *Selection) NextImage() int {
	n := len(s.listing.Images)
	s.state.ImageIndex = (s.state.ImageIndex + 1) % n
	return s.state.ImageIndex
}

func (s *Selection) PrevImage() int {
	n := len(s.listing.Images)
	s.state.ImageIndex = (s.state.ImageIndex - 1 + n) % n
	return s.state.ImageIndex
}

// ShowImage jumps to a thumbnail.
func (s *Selection) ShowImage(idx int) error {
	if idx < 0 || idx >= len(s.listing.Images) {
		return ErrImageIndex
	}
	s.state.ImageIndex = idx
	return nil
}

func (s *Selection) ImageIndex() int { return s.state.ImageIndex }

func (s *Selection) ActiveImage() string {
	return s.listing.Images[s.state.ImageIndex]
}

func (s *Selection) CanProceed() bool {
	if s.state.Tier == nil || s.state.MoveIn == nil || !s.state.AcceptedTerms {
		return false
	}
	return s.state.PriceMode == PriceModeMonthly || s.state.Duration > 0
}

func (s *Selection) ComputeTotal() Totals {
	return computeTotals(s.state.Tier, s.state.PriceMode, s.state.Duration, s.listing.Deposit)
}

// Checkout is what the popup hands to the payment flow.
type Checkout struct {
	HostelID  string
	Tier      Tier
	PriceMode PriceMode
	UnitPrice int64
	MoveIn    time.Time
	Duration  int
	Totals    Totals
}

// Continue calls onContinue with the checkout only when the proceed gate is open.
func (s *Selection) Continue(onContinue func(Checkout) error) error {
	if onContinue == nil {
		return ErrContinueHookNeeded
	}
	if !s.CanProceed() {
		return ErrNotReady
	}
	unit, _ := s.DisplayedUnitPrice()
	return onContinue(Checkout{
		HostelID:  s.listing.HostelID,
		Tier:      *s.state.Tier,
		PriceMode: s.state.PriceMode,
		UnitPrice: unit,
		MoveIn:    *s.state.MoveIn,
		Duration:  s.state.Duration,
		Totals:    s.ComputeTotal(),
	})
}

// Close runs onClose and resets the session to a fresh state.
func (s *Selection) Close(onClose func()) {
	if onClose != nil {
		onClose()
	}
	s.state = State{
		PriceMode: PriceModeMonthly,
		WindowMin: s.state.WindowMin,
		WindowMax: s.state.WindowMax,
	}
}

func clampDuration(n int) int {
	if n < MinDuration {
		return MinDuration
	}
	if n > MaxDuration {
		return MaxDuration
	}
	return n
}
