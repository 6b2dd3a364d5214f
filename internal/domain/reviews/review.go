package reviews

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"hlopg/internal/domain/hostels"
	"hlopg/internal/domain/shared/events"
)

const (
	MinRating    = 1
	MaxRating    = 5
	MaxTextRunes = 1000
)

var (
	ErrInvalidRating = errors.New("reviews: rating must be between 1 and 5")
	ErrAuthorMissing = errors.New("reviews: author is required")
	ErrTextTooLong   = errors.New("reviews: text exceeds 1000 characters")
)

type ReviewID string

// Review is a student's rating of a hostel. Reviews are immutable once submitted.
type Review struct {
	ID        ReviewID
	HostelID  hostels.HostelID
	Author    string
	Rating    int
	Text      string
	CreatedAt time.Time
	events.Log
}

type Repository interface {
	// ListByHostel pages reviews newest first.
	ListByHostel(ctx context.Context, hostelID hostels.HostelID, limit, offset int) ([]*Review, error)
	Save(ctx context.Context, review *Review) error
}

type SubmitParams struct {
	ID        ReviewID
	HostelID  hostels.HostelID
	Author    string
	Rating    int
	Text      string
	CreatedAt time.Time
}

func (p SubmitParams) normalize() (SubmitParams, error) {
	p.Author = strings.TrimSpace(p.Author)
	p.Text = strings.TrimSpace(p.Text)
	switch {
	case p.Rating < MinRating || p.Rating > MaxRating:
		return p, ErrInvalidRating
	case p.Author == "":
		return p, ErrAuthorMissing
	case utf8.RuneCountInString(p.Text) > MaxTextRunes:
		return p, ErrTextTooLong
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

// Submit creates the review and raises ReviewSubmitted.
func Submit(params SubmitParams) (*Review, error) {
	p, err := params.normalize()
	if err != nil {
		return nil, err
	}
	r := &Review{ID: p.ID, HostelID: p.HostelID, Author: p.Author, Rating: p.Rating, Text: p.Text, CreatedAt: p.CreatedAt}
	r.Raise(ReviewSubmitted{ReviewID: r.ID, HostelID: r.HostelID, Rating: r.Rating, At: r.CreatedAt})
	return r, nil
}
