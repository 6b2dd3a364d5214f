package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "hlopg/internal/domain/booking"
	domainhostels "hlopg/internal/domain/hostels"
	"hlopg/internal/domain/popup"
	"hlopg/internal/domain/shared/money"
)

var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

// Move-in is a calendar day in the app timezone; it is stored as a date so reads keep the day.
const dateLayout = "2006-01-02"

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	col := db.Collection(bookingsCollection)
	idx := mongo.IndexModel{Keys: bson.D{{Key: "student_id", Value: 1}, {Key: "created_at", Value: -1}}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &BookingRepository{col: col}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) ListByStudent(ctx context.Context, studentID string) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{"student_id": studentID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]*domainbooking.Booking, 0)
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

type bookingDocument struct {
	ID        string      `bson:"_id"`
	HostelID  string      `bson:"hostel_id"`
	StudentID string      `bson:"student_id"`
	Tier      string      `bson:"tier"`
	PriceMode string      `bson:"price_mode"`
	UnitPrice money.Money `bson:"unit_price"`
	MoveIn    string      `bson:"move_in"`
	Duration  int         `bson:"duration"`
	Rent      money.Money `bson:"rent"`
	Deposit   money.Money `bson:"deposit"`
	Total     money.Money `bson:"total"`
	State     string      `bson:"state"`
	CreatedAt int64       `bson:"created_at"`
	UpdatedAt int64       `bson:"updated_at"`
	Version   int64       `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:        string(b.ID),
		HostelID:  string(b.HostelID),
		StudentID: b.StudentID,
		Tier:      b.Tier,
		PriceMode: string(b.PriceMode),
		UnitPrice: b.UnitPrice,
		MoveIn:    b.MoveIn.Format(dateLayout),
		Duration:  b.Duration,
		Rent:      b.Rent,
		Deposit:   b.Deposit,
		Total:     b.Total,
		State:     string(b.State),
		CreatedAt: b.CreatedAt.UnixMilli(),
		UpdatedAt: b.UpdatedAt.UnixMilli(),
		Version:   b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:        domainbooking.BookingID(d.ID),
		HostelID:  domainhostels.HostelID(d.HostelID),
		StudentID: d.StudentID,
		Tier:      d.Tier,
		PriceMode: popup.PriceMode(d.PriceMode),
		UnitPrice: d.UnitPrice,
		MoveIn:    parseDay(d.MoveIn),
		Duration:  d.Duration,
		Rent:      d.Rent,
		Deposit:   d.Deposit,
		Total:     d.Total,
		State:     domainbooking.BookingState(d.State),
		CreatedAt: fromMillis(d.CreatedAt),
		UpdatedAt: fromMillis(d.UpdatedAt),
		Version:   d.Version,
	}
}

func parseDay(raw string) time.Time {
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return d
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
