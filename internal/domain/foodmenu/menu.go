package foodmenu

import (
	"context"
	"errors"
	"strings"

	"hlopg/internal/domain/hostels"
)

var ErrNotFound = errors.New("foodmenu: not found")

// Missing marks a meal the hostel did not publish.
const Missing = "-"

var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Menu stores each meal keyed by weekday.
type Menu struct {
	HostelID  hostels.HostelID
	Breakfast map[string]string
	Lunch     map[string]string
	Dinner    map[string]string
}

type Day struct {
	Day       string
	Breakfast string
	Lunch     string
	Dinner    string
}

type Repository interface {
	ByHostel(ctx context.Context, hostelID hostels.HostelID) (*Menu, error)
	Save(ctx context.Context, menu *Menu) error
}

// Days lays the menu out one row per weekday that has any meal, Monday first.
func (m *Menu) Days() []Day {
	out := make([]Day, 0, len(Weekdays))
	for _, day := range Weekdays {
		b, l, d := lookup(m.Breakfast, day), lookup(m.Lunch, day), lookup(m.Dinner, day)
		if b == Missing && l == Missing && d == Missing {
			continue
		}
		out = append(out, Day{Day: day, Breakfast: b, Lunch: l, Dinner: d})
	}
	return out
}

func lookup(meals map[string]string, day string) string {
	for k, v := range meals {
		if strings.EqualFold(k, day) {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return Missing
}
