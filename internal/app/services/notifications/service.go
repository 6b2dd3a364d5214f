package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"hlopg/internal/app/policies"
	domainhostels "hlopg/internal/domain/hostels"
	"hlopg/internal/domain/shared/money"
	domainuser "hlopg/internal/domain/user"
)

const (
	TypeBookingRequested = "booking.requested.v1"
	TypeBookingCancelled = "booking.cancelled.v1"
)

var ErrMissingDependencies = errors.New("notifications: service missing dependencies")

// Inbox records handled event ids so redelivered events are skipped.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// Event is a decoded broker message.
type Event struct {
	ID   string
	Type string
	Data json.RawMessage
}

// Service tells students about their bookings.
type Service struct {
	Users    domainuser.Repository
	Hostels  domainhostels.Repository
	Notifier policies.Notifier
	Inbox    Inbox
	Logger   *slog.Logger
}

type bookingRequested struct {
	BookingID string
	HostelID  string
	StudentID string
	Tier      string
	MoveIn    time.Time
	Total     money.Money
}

type bookingCancelled struct {
	BookingID string
	StudentID string
	Reason    string
}

func (s *Service) Handle(ctx context.Context, ev Event) error {
	if s.Users == nil || s.Notifier == nil {
		return ErrMissingDependencies
	}
	if ev.Type != TypeBookingRequested && ev.Type != TypeBookingCancelled {
		return nil
	}
	if s.Inbox != nil {
		seen, err := s.Inbox.Seen(ctx, ev.ID)
		if err != nil {
			return err
		}
		if seen {
			s.logger().Debug("duplicate event skipped", "event_id", ev.ID, "type", ev.Type)
			return nil
		}
	}
	err := s.dispatch(ctx, ev)
	if err != nil && s.Inbox != nil {
		if forgetErr := s.Inbox.Forget(ctx, ev.ID); forgetErr != nil {
			return errors.Join(err, forgetErr)
		}
	}
	return err
}

func (s *Service) dispatch(ctx context.Context, ev Event) error {
	switch ev.Type {
	case TypeBookingRequested:
		var data bookingRequested
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			return fmt.Errorf("notifications: decode %s: %w", ev.Type, err)
		}
		return s.send(ctx, data.StudentID, policies.TemplateBookingRequested, map[string]any{
			"booking_id": data.BookingID,
			"hostel":     s.hostelName(ctx, data.HostelID),
			"tier":       data.Tier,
			"move_in":    data.MoveIn.Format("2006-01-02"),
			"total":      data.Total.String(),
		})
	default:
		var data bookingCancelled
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			return fmt.Errorf("notifications: decode %s: %w", ev.Type, err)
		}
		return s.send(ctx, data.StudentID, policies.TemplateBookingCancelled, map[string]any{
			"booking_id": data.BookingID,
			"reason":     data.Reason,
		})
	}
}

func (s *Service) send(ctx context.Context, studentID, template string, data map[string]any) error {
	student, err := s.Users.ByID(ctx, domainuser.ID(studentID))
	if errors.Is(err, domainuser.ErrNotFound) {
		s.logger().Warn("notification dropped, unknown student", "student_id", studentID, "template", template)
		return nil
	}
	if err != nil {
		return err
	}
	data["name"] = student.Name
	return s.Notifier.Send(ctx, student.Phone, template, data)
}

// hostelName falls back to the id when the catalog lookup fails.
func (s *Service) hostelName(ctx context.Context, id string) string {
	if s.Hostels == nil {
		return id
	}
	h, err := s.Hostels.ByID(ctx, domainhostels.HostelID(id))
	if err != nil {
		return id
	}
	return h.Name
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
