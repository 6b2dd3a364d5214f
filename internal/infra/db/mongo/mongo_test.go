package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"hlopg/internal/app/uow"
	domainbooking "hlopg/internal/domain/booking"
	domainuser "hlopg/internal/domain/user"
)

func TestBookingDocument_KeepsMoveInDay(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)
	b := &domainbooking.Booking{
		ID:        "b1",
		MoveIn:    time.Date(2026, 11, 1, 0, 0, 0, 0, kolkata),
		CreatedAt: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
		Version:   3,
	}
	doc := newBookingDocument(b)
	assert.Equal(t, "2026-11-01", doc.MoveIn)

	back := doc.toAggregate()
	assert.Equal(t, "2026-11-01", back.MoveIn.Format(dateLayout))
	assert.True(t, back.CreatedAt.Equal(b.CreatedAt))
	assert.Equal(t, int64(3), back.Version)
}

func TestParseDay_Invalid(t *testing.T) {
	assert.True(t, parseDay("not-a-date").IsZero())
}

func TestDuplicateUserError(t *testing.T) {
	assert.ErrorIs(t, duplicateUserError(errors.New("E11000 duplicate key error index: uniq_phone")), domainuser.ErrPhoneAlreadyUsed)
	assert.ErrorIs(t, duplicateUserError(errors.New("E11000 duplicate key error index: uniq_email")), domainuser.ErrEmailAlreadyUsed)
}

func TestFromMillis(t *testing.T) {
	assert.True(t, fromMillis(0).IsZero())
	at := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, at, fromMillis(at.UnixMilli()))
}

func TestFactory_BeginWithoutDatabase(t *testing.T) {
	_, err := Factory{}.Begin(context.Background(), uow.TxOptions{})
	assert.ErrorIs(t, err, ErrNoDatabase)
}

func TestIdempotencyDocument_Record(t *testing.T) {
	at := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	doc := idempotencyDocument{Key: "popup.continue:k1", Payload: []byte(`{}`), OccurredAt: at, ExpiresAt: at.Add(time.Hour)}
	rec := doc.record()
	assert.Equal(t, "popup.continue:k1", rec.Key)
	assert.Equal(t, at, rec.OccurredAt)
	assert.JSONEq(t, `{}`, string(rec.Payload))
	assert.False(t, rec.Pending)

	pending := idempotencyDocument{Key: "popup.continue:k2", OccurredAt: at, ExpiresAt: at.Add(reservationLease), Pending: true}
	assert.True(t, pending.record().Pending)
}
