package mongodoc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/tutoring-scheduler/internal/model"
	"github.com/iliyamo/tutoring-scheduler/internal/repository"
)

// mongoTx implements repository.Tx.  ctx passed to its methods is the
// session context handed out by RunInTx.
type mongoTx struct {
	s *Store
}

var _ repository.Tx = (*mongoTx)(nil)

// stamp returns the current time at BSON datetime precision.
func stamp() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

// bump increments lockVersion on the document so that a concurrent
// transaction touching it conflicts.
func bump(ctx context.Context, col *mongo.Collection, id string, out any) error {
	err := col.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"lockVersion": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(out)
	return mapErr(err)
}

func (t *mongoTx) LockSession(ctx context.Context, id string) (model.Session, error) {
	var sess model.Session
	err := bump(ctx, t.s.sessions, id, &sess)
	return sess, err
}

func (t *mongoTx) GetService(ctx context.Context, id string) (model.Service, error) {
	var svc model.Service
	err := t.s.services.FindOne(ctx, bson.M{"_id": id}).Decode(&svc)
	return svc, mapErr(err)
}

func (t *mongoTx) Roster(ctx context.Context, sessionID string) ([]model.RosterEntry, error) {
	cur, err := t.s.roster.Find(ctx, bson.M{"sessionId": sessionID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, mapErr(err)
	}
	var out []model.RosterEntry
	if err := cur.All(ctx, &out); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (t *mongoTx) AddRosterEntry(ctx context.Context, e *model.RosterEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = stamp()
	_, err := t.s.roster.InsertOne(ctx, e)
	return mapErr(err)
}

func (t *mongoTx) LockSale(ctx context.Context, id string) (model.Sale, error) {
	var doc saleDoc
	if err := bump(ctx, t.s.sales, id, &doc); err != nil {
		return model.Sale{}, err
	}
	return doc.Sale, nil
}

func (t *mongoTx) CreditEntries(ctx context.Context, saleID, since string) ([]model.CreditEntry, error) {
	entries, err := findCredits(ctx, t.s.credits, bson.M{"saleId": saleID, "weekAnchor": bson.M{"$gte": since}})
	if err != nil {
		return nil, err
	}
	docs, err := t.s.findSales(ctx, bson.M{"_id": saleID, "creditsUsed": bson.M{"$exists": true}})
	if err != nil {
		return nil, err
	}
	return mergeLegacy(entries, docs, since), nil
}

func (t *mongoTx) CreditByKey(ctx context.Context, key string) (model.CreditEntry, error) {
	var e model.CreditEntry
	err := t.s.credits.FindOne(ctx, bson.M{"idempotencyKey": key}).Decode(&e)
	return e, mapErr(err)
}

func (t *mongoTx) AppendCredit(ctx context.Context, e *model.CreditEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = stamp()
	_, err := t.s.credits.InsertOne(ctx, e)
	return mapErr(err)
}

func (t *mongoTx) BookingByCommitKey(ctx context.Context, key string) (model.Booking, error) {
	var b model.Booking
	err := t.s.bookings.FindOne(ctx, bson.M{"commitKey": key}).Decode(&b)
	return b, mapErr(err)
}

func (t *mongoTx) CreateBooking(ctx context.Context, b *model.Booking) error {
	return insertBooking(ctx, t.s.bookings, b)
}

func insertBooking(ctx context.Context, col *mongo.Collection, b *model.Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = model.BookingConfirmed
	}
	b.CreatedAt = stamp()
	_, err := col.InsertOne(ctx, b)
	return mapErr(err)
}
