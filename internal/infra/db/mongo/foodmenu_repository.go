package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainfoodmenu "hlopg/internal/domain/foodmenu"
	domainhostels "hlopg/internal/domain/hostels"
)

type FoodMenuRepository struct {
	col *mongo.Collection
}

func NewFoodMenuRepository(db *mongo.Database) *FoodMenuRepository {
	return &FoodMenuRepository{col: db.Collection(foodMenusCollection)}
}

func (r *FoodMenuRepository) ByHostel(ctx context.Context, hostelID domainhostels.HostelID) (*domainfoodmenu.Menu, error) {
	var doc foodMenuDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(hostelID)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainfoodmenu.ErrNotFound
		}
		return nil, err
	}
	return &domainfoodmenu.Menu{
		HostelID:  domainhostels.HostelID(doc.HostelID),
		Breakfast: doc.Breakfast,
		Lunch:     doc.Lunch,
		Dinner:    doc.Dinner,
	}, nil
}

func (r *FoodMenuRepository) Save(ctx context.Context, menu *domainfoodmenu.Menu) error {
	doc := foodMenuDocument{
		HostelID:  string(menu.HostelID),
		Breakfast: menu.Breakfast,
		Lunch:     menu.Lunch,
		Dinner:    menu.Dinner,
	}
	_, err := r.col.UpdateByID(ctx, doc.HostelID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

type foodMenuDocument struct {
	HostelID  string            `bson:"_id"`
	Breakfast map[string]string `bson:"breakfast"`
	Lunch     map[string]string `bson:"lunch"`
	Dinner    map[string]string `bson:"dinner"`
}

var _ domainfoodmenu.Repository = (*FoodMenuRepository)(nil)
