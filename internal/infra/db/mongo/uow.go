package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"hlopg/internal/app/uow"
	domainbooking "hlopg/internal/domain/booking"
	domainfoodmenu "hlopg/internal/domain/foodmenu"
	domainhostels "hlopg/internal/domain/hostels"
	domainreviews "hlopg/internal/domain/reviews"
)

var (
	ErrNoDatabase   = errors.New("mongo: unit of work factory has no database")
	ErrUnitFinished = errors.New("mongo: unit of work already committed or rolled back")
)

// Factory opens units over one client session. Writes run inside a majority
// transaction; read-only units share the session without one.
type Factory struct {
	DB *mongo.Database

	HostelsRepo   domainhostels.Repository
	BookingsRepo  domainbooking.Repository
	ReviewsRepo   domainreviews.Repository
	FoodMenusRepo domainfoodmenu.Repository
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrNoDatabase
	}
	session, err := f.DB.Client().StartSession(options.Session().SetCausalConsistency(true))
	if err != nil {
		return nil, fmt.Errorf("mongo session: %w", err)
	}
	u := &Unit{session: session, repos: f}
	if opts.ReadOnly {
		return u, nil
	}
	txn := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if err := session.StartTransaction(txn); err != nil {
		session.EndSession(ctx)
		return nil, fmt.Errorf("mongo start transaction: %w", err)
	}
	u.inTxn = true
	return u, nil
}

type Unit struct {
	session mongo.Session
	repos   Factory
	inTxn   bool
	done    bool
}

func (u *Unit) Hostels() domainhostels.Repository    { return u.repos.HostelsRepo }
func (u *Unit) Bookings() domainbooking.Repository   { return u.repos.BookingsRepo }
func (u *Unit) Reviews() domainreviews.Repository    { return u.repos.ReviewsRepo }
func (u *Unit) FoodMenus() domainfoodmenu.Repository { return u.repos.FoodMenusRepo }

func (u *Unit) Commit(ctx context.Context) error {
	return u.finish(ctx, u.session.CommitTransaction)
}

func (u *Unit) Rollback(ctx context.Context) error {
	return u.finish(ctx, u.session.AbortTransaction)
}

func (u *Unit) finish(ctx context.Context, end func(context.Context) error) error {
	if u.done {
		return ErrUnitFinished
	}
	u.done = true
	defer u.session.EndSession(ctx)
	if !u.inTxn {
		return nil
	}
	return end(ctx)
}

// InjectContext binds the session so repository calls join the transaction.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

var (
	_ uow.UoWFactory      = Factory{}
	_ uow.ContextInjector = (*Unit)(nil)
)
