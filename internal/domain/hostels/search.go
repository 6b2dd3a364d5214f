package hostels

import "strings"

// FilterAll disables a filter, as the "All" option on the city page does.
const FilterAll = "All"

// SearchParams mirror the area and gender dropdowns of a city page.
type SearchParams struct {
	City   string
	Area   string
	Gender string
}

// Normalized lower-cases the city and turns blank filters into FilterAll.
func (p SearchParams) Normalized() SearchParams {
	out := p
	out.City = strings.ToLower(strings.TrimSpace(out.City))
	out.Area = strings.TrimSpace(out.Area)
	if out.Area == "" || strings.EqualFold(out.Area, FilterAll) {
		out.Area = FilterAll
	}
	out.Gender = strings.TrimSpace(out.Gender)
	if out.Gender == "" || strings.EqualFold(out.Gender, FilterAll) {
		out.Gender = FilterAll
	}
	return out
}

// Matches applies the area and gender filters; the city is matched by the repository.
func (p SearchParams) Matches(h *Hostel) bool {
	p = p.Normalized()
	if p.City != "" && h.City != p.City {
		return false
	}
	if p.Area != FilterAll && !strings.EqualFold(h.Area, p.Area) {
		return false
	}
	if p.Gender != FilterAll {
		want, err := ParsePGType(p.Gender)
		if err != nil || h.PGType != want {
			return false
		}
	}
	return true
}

// Filter keeps the hostels that match p, preserving order.
func Filter(items []*Hostel, p SearchParams) []*Hostel {
	out := make([]*Hostel, 0, len(items))
	for _, h := range items {
		if p.Matches(h) {
			out = append(out, h)
		}
	}
	return out
}

// AreaOptions is FilterAll followed by each distinct area in order of first appearance.
func AreaOptions(items []*Hostel) []string {
	out := []string{FilterAll}
	seen := make(map[string]struct{}, len(items))
	for _, h := range items {
		if h.Area == "" {
			continue
		}
		if _, ok := seen[h.Area]; ok {
			continue
		}
		seen[h.Area] = struct{}{}
		out = append(out, h.Area)
	}
	return out
}

// GenderOptions are the choices of the gender dropdown.
func GenderOptions() []string {
	return []string{FilterAll, "Male", "Female", "Co-Living"}
}
