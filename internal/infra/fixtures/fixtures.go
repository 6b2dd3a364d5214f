package fixtures

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	domainfoodmenu "hlopg/internal/domain/foodmenu"
	domainhostels "hlopg/internal/domain/hostels"
	domainreviews "hlopg/internal/domain/reviews"
)

// Repositories receive the imported catalog.
type Repositories struct {
	Hostels   domainhostels.Repository
	Reviews   domainreviews.Repository
	FoodMenus domainfoodmenu.Repository
}

type Summary struct {
	Hostels   int
	Skipped   int
	Reviews   int
	FoodMenus int
}

type file struct {
	Hostels []hostelFixture `json:"hostels"`
}

type hostelFixture struct {
	ID        string           `json:"id"`
	Owner     string           `json:"owner"`
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
	Reviews   []reviewFixture  `json:"reviews"`
	FoodMenu  *menuFixture     `json:"food_menu"`
}

type reviewFixture struct {
	Author    string `json:"author"`
	Rating    int    `json:"rating"`
	Text      string `json:"review_text"`
	CreatedAt string `json:"created_at"`
}

type menuFixture struct {
	Breakfast map[string]string `json:"breakfast"`
	Lunch     map[string]string `json:"lunch"`
	Dinner    map[string]string `json:"dinner"`
}

// Load imports hostels with their reviews and menus from a JSON file.
// A missing file is not an error. Hostels that already exist are left untouched,
// so the same file can be loaded on every start against a persistent store.
func Load(ctx context.Context, path string, repos Repositories, now time.Time, logger *slog.Logger) (Summary, error) {
	var summary Summary
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if logger != nil {
				logger.Info("hostel fixtures file not found, skipping", "path", path)
			}
			return summary, nil
		}
		return summary, fmt.Errorf("read fixtures: %w", err)
	}
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return summary, fmt.Errorf("decode fixtures: %w", err)
	}

	for _, fx := range f.Hostels {
		id := domainhostels.HostelID(fx.ID)
		if _, err := repos.Hostels.ByID(ctx, id); err == nil {
			summary.Skipped++
			continue
		} else if !errors.Is(err, domainhostels.ErrNotFound) {
			return summary, err
		}
		hostel, err := domainhostels.NewHostel(domainhostels.CreateParams{
			ID:        id,
			Owner:     domainhostels.OwnerID(fx.Owner),
			Name:      fx.Name,
			Address:   fx.Address,
			City:      fx.City,
			Area:      fx.Area,
			PGType:    fx.PGType,
			Sharing:   fx.Sharing,
			Amenities: fx.Amenities,
			Rules:     fx.Rules,
			Deposit:   fx.Deposit,
			Images:    fx.Images,
			Rating:    fx.Rating,
			Now:       now,
		})
		if err != nil {
			if logger != nil {
				logger.Error("fixture invalid", "hostel_id", fx.ID, "error", err)
			}
			continue
		}
		if err := repos.Hostels.Save(ctx, hostel); err != nil {
			return summary, fmt.Errorf("store hostel %s: %w", fx.ID, err)
		}
		summary.Hostels++

		for i, rf := range fx.Reviews {
			review, err := domainreviews.Submit(domainreviews.SubmitParams{
				ID:        domainreviews.ReviewID(fx.ID + "-review-" + strconv.Itoa(i+1)),
				HostelID:  id,
				Author:    rf.Author,
				Rating:    rf.Rating,
				Text:      rf.Text,
				CreatedAt: parseTime(rf.CreatedAt, now),
			})
			if err != nil {
				if logger != nil {
					logger.Warn("fixture review invalid", "hostel_id", fx.ID, "error", err)
				}
				continue
			}
			review.DiscardEvents()
			if err := repos.Reviews.Save(ctx, review); err != nil {
				return summary, fmt.Errorf("store review for %s: %w", fx.ID, err)
			}
			summary.Reviews++
		}

		if fx.FoodMenu != nil {
			menu := &domainfoodmenu.Menu{
				HostelID:  id,
				Breakfast: fx.FoodMenu.Breakfast,
				Lunch:     fx.FoodMenu.Lunch,
				Dinner:    fx.FoodMenu.Dinner,
			}
			if err := repos.FoodMenus.Save(ctx, menu); err != nil {
				return summary, fmt.Errorf("store food menu for %s: %w", fx.ID, err)
			}
			summary.FoodMenus++
		}
		if logger != nil {
			logger.Debug("hostel fixture imported", "hostel_id", hostel.ID)
		}
	}
	return summary, nil
}

func parseTime(value string, fallback time.Time) time.Time {
	if value == "" {
		return fallback
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return fallback
}
