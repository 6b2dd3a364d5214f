package policies

import "context"

// Notifier delivers a templated message to a phone number.
type Notifier interface {
	Send(ctx context.Context, to string, template string, data any) error
}

// Message templates.
const (
	TemplateOTP              = "otp"
	TemplateBookingRequested = "booking_requested"
	TemplateBookingCancelled = "booking_cancelled"
)
