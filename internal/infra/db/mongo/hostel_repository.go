package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainhostels "hlopg/internal/domain/hostels"
)

type HostelRepository struct {
	col *mongo.Collection
}

func NewHostelRepository(db *mongo.Database) *HostelRepository {
	col := db.Collection(hostelsCollection)
	idx := mongo.IndexModel{Keys: bson.D{{Key: "city", Value: 1}, {Key: "created_at", Value: 1}}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &HostelRepository{col: col}
}

func (r *HostelRepository) ByID(ctx context.Context, id domainhostels.HostelID) (*domainhostels.Hostel, error) {
	var doc hostelDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainhostels.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *HostelRepository) Save(ctx context.Context, h *domainhostels.Hostel) error {
	doc := newHostelDocument(h)
	filter := bson.M{"_id": doc.ID, "version": h.Version}
	doc.Version = h.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	h.Version = doc.Version
	return nil
}

// Search narrows by city in the query and applies the area and gender filters in memory.
func (r *HostelRepository) Search(ctx context.Context, params domainhostels.SearchParams) ([]*domainhostels.Hostel, error) {
	filter := bson.M{}
	if params.City != "" {
		filter["city"] = params.City
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]*domainhostels.Hostel, 0)
	for cur.Next(ctx) {
		var doc hostelDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		h := doc.toAggregate()
		if params.Matches(h) {
			out = append(out, h)
		}
	}
	return out, cur.Err()
}

type hostelDocument struct {
	ID        string           `bson:"_id"`
	Owner     string           `bson:"owner_id"`
	Name      string           `bson:"name"`
	Address   string           `bson:"address"`
	City      string           `bson:"city"`
	Area      string           `bson:"area"`
	PGType    string           `bson:"pg_type"`
	Sharing   map[string]int64 `bson:"sharing"`
	Amenities map[string]bool  `bson:"amenities"`
	Rules     []string         `bson:"rules"`
	Deposit   int64            `bson:"deposit"`
	Images    []string         `bson:"images"`
	Rating    float64          `bson:"rating"`
	CreatedAt int64            `bson:"created_at"`
	UpdatedAt int64            `bson:"updated_at"`
	Version   int64            `bson:"version"`
}

func newHostelDocument(h *domainhostels.Hostel) hostelDocument {
	return hostelDocument{
		ID:        string(h.ID),
		Owner:     string(h.Owner),
		Name:      h.Name,
		Address:   h.Address,
		City:      h.City,
		Area:      h.Area,
		PGType:    string(h.PGType),
		Sharing:   h.Sharing,
		Amenities: h.Amenities,
		Rules:     h.Rules,
		Deposit:   h.Deposit,
		Images:    h.Images,
		Rating:    h.Rating,
		CreatedAt: h.CreatedAt.UnixMilli(),
		UpdatedAt: h.UpdatedAt.UnixMilli(),
		Version:   h.Version,
	}
}

func (d hostelDocument) toAggregate() *domainhostels.Hostel {
	return &domainhostels.Hostel{
		ID:        domainhostels.HostelID(d.ID),
		Owner:     domainhostels.OwnerID(d.Owner),
		Name:      d.Name,
		Address:   d.Address,
		City:      d.City,
		Area:      d.Area,
		PGType:    domainhostels.PGType(d.PGType),
		Sharing:   d.Sharing,
		Amenities: d.Amenities,
		Rules:     d.Rules,
		Deposit:   d.Deposit,
		Images:    d.Images,
		Rating:    d.Rating,
		CreatedAt: fromMillis(d.CreatedAt),
		UpdatedAt: fromMillis(d.UpdatedAt),
		Version:   d.Version,
	}
}

var _ domainhostels.Repository = (*HostelRepository)(nil)
