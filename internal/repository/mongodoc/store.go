// Package mongodoc implements repository.Store on MongoDB.  Compound
// booking writes run in multi-document transactions; a transaction
// "locks" a session or sale by bumping its lockVersion, which makes
// concurrent transactions touching the same document abort with a write
// conflict and be retried by the driver.
package mongodoc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.mongodb.org/mongo-driver/x/mongo/driver"

	"github.com/iliyamo/tutoring-scheduler/internal/credit"
	"github.com/iliyamo/tutoring-scheduler/internal/model"
	"github.com/iliyamo/tutoring-scheduler/internal/repository"
)

// Collection names.
const (
	ColLocations = "locations"
	ColServices  = "services"
	ColSessions  = "sessions"
	ColRoster    = "session_roster"
	ColSales     = "sales"
	ColCredits   = "credit_ledger"
	ColBookings  = "bookings"
)

const labelUnknownCommit = "UnknownTransactionCommitResult"

// Store holds one handle per collection.
type Store struct {
	client    *mongo.Client
	locations *mongo.Collection
	services  *mongo.Collection
	sessions  *mongo.Collection
	roster    *mongo.Collection
	sales     *mongo.Collection
	credits   *mongo.Collection
	bookings  *mongo.Collection
}

var _ repository.Store = (*Store)(nil)

// Connect dials uri and verifies the connection.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return New(client, database), nil
}

// New wraps an existing client.
func New(client *mongo.Client, database string) *Store {
	db := client.Database(database)
	return &Store{
		client:    client,
		locations: db.Collection(ColLocations),
		services:  db.Collection(ColServices),
		sessions:  db.Collection(ColSessions),
		roster:    db.Collection(ColRoster),
		sales:     db.Collection(ColSales),
		credits:   db.Collection(ColCredits),
		bookings:  db.Collection(ColBookings),
	}
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }

// Ping checks connectivity, for health checks.
func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx, nil) }

// Indexes returns the indexes EnsureIndexes creates, per collection.
func Indexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		ColRoster: {
			{Keys: bson.D{{Key: "sessionId", Value: 1}, {Key: "parentId", Value: 1}, {Key: "childKey", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_session_child")},
		},
		ColCredits: {
			{Keys: bson.D{{Key: "idempotencyKey", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_idempotency_key")},
			{Keys: bson.D{{Key: "saleId", Value: 1}, {Key: "weekAnchor", Value: 1}}, Options: options.Index().SetName("sale_week")},
		},
		ColBookings: {
			{Keys: bson.D{{Key: "commitKey", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_commit_key").
				SetPartialFilterExpression(bson.D{{Key: "commitKey", Value: bson.D{{Key: "$type", Value: "string"}}}})},
			{Keys: bson.D{{Key: "parentId", Value: 1}, {Key: "date", Value: -1}}, Options: options.Index().SetName("parent_date")},
		},
		ColSessions: {
			{Keys: bson.D{{Key: "locationId", Value: 1}, {Key: "date", Value: 1}}, Options: options.Index().SetName("location_date")},
		},
		ColSales: {
			{Keys: bson.D{{Key: "parentId", Value: 1}, {Key: "locationId", Value: 1}}, Options: options.Index().SetName("parent_location")},
		},
	}
}

// EnsureIndexes creates the uniqueness rules the booking coordinator
// relies on.  It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	byName := map[string]*mongo.Collection{
		ColRoster: s.roster, ColCredits: s.credits, ColBookings: s.bookings,
		ColSessions: s.sessions, ColSales: s.sales,
	}
	for col, models := range Indexes() {
		if _, err := byName[col].Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", col, err)
		}
	}
	return nil
}

// mapErr translates driver errors into repository sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", repository.ErrDuplicate, err)
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		if se.HasErrorLabel(labelUnknownCommit) {
			return fmt.Errorf("%w: %v", repository.ErrCommitUnknown, err)
		}
		if se.HasErrorLabel(driver.TransientTransactionError) {
			return fmt.Errorf("%w: %v", repository.ErrConflict, err)
		}
	}
	return err
}

func (s *Store) GetLocation(ctx context.Context, id string) (model.Location, error) {
	var loc model.Location
	err := s.locations.FindOne(ctx, bson.M{"_id": id}).Decode(&loc)
	return loc, mapErr(err)
}

func (s *Store) GetSession(ctx context.Context, id string) (model.Session, error) {
	var sess model.Session
	err := s.sessions.FindOne(ctx, bson.M{"_id": id}).Decode(&sess)
	return sess, mapErr(err)
}

func (s *Store) ListSessions(ctx context.Context, locationID, date string) ([]model.Session, error) {
	cur, err := s.sessions.Find(ctx, bson.M{"locationId": locationID, "date": date})
	if err != nil {
		return nil, mapErr(err)
	}
	var out []model.Session
	if err := cur.All(ctx, &out); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (s *Store) CountRosters(ctx context.Context, sessionIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return counts, nil
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"sessionId": bson.M{"$in": sessionIDs}}}},
		{{Key: "$group", Value: bson.M{"_id": "$sessionId", "n": bson.M{"$sum": 1}}}},
	}
	cur, err := s.roster.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, mapErr(err)
	}
	var rows []struct {
		ID string `bson:"_id"`
		N  int    `bson:"n"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, mapErr(err)
	}
	for _, r := range rows {
		counts[r.ID] = r.N
	}
	return counts, nil
}

func (s *Store) GetServices(ctx context.Context, ids []string) (map[string]model.Service, error) {
	out := make(map[string]model.Service, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.services.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, mapErr(err)
	}
	var list []model.Service
	if err := cur.All(ctx, &list); err != nil {
		return nil, mapErr(err)
	}
	for _, svc := range list {
		out[svc.ID] = svc
	}
	return out, nil
}

// saleDoc is a sale as stored.  Older documents still carry the nested
// creditsUsed counter, which is read as ledger entries.
type saleDoc struct {
	model.Sale  `bson:",inline"`
	CreditsUsed credit.LegacyUsage `bson:"creditsUsed,omitempty"`
	LockVersion int64              `bson:"lockVersion,omitempty"`
}

func (s *Store) ListSales(ctx context.Context, parentID, locationID string) ([]model.Sale, error) {
	docs, err := s.findSales(ctx, bson.M{"parentId": parentID, "locationId": locationID})
	if err != nil {
		return nil, err
	}
	out := make([]model.Sale, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Sale)
	}
	repository.SortSales(out)
	return out, nil
}

func (s *Store) findSales(ctx context.Context, filter any) ([]saleDoc, error) {
	cur, err := s.sales.Find(ctx, filter)
	if err != nil {
		return nil, mapErr(err)
	}
	var docs []saleDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mapErr(err)
	}
	return docs, nil
}

// ListCreditEntries merges ledger documents with entries derived from
// legacy counters on the sales themselves.
func (s *Store) ListCreditEntries(ctx context.Context, saleIDs []string, since string) ([]model.CreditEntry, error) {
	if len(saleIDs) == 0 {
		return nil, nil
	}
	entries, err := findCredits(ctx, s.credits, bson.M{"saleId": bson.M{"$in": saleIDs}, "weekAnchor": bson.M{"$gte": since}})
	if err != nil {
		return nil, err
	}
	docs, err := s.findSales(ctx, bson.M{"_id": bson.M{"$in": saleIDs}, "creditsUsed": bson.M{"$exists": true}})
	if err != nil {
		return nil, err
	}
	return mergeLegacy(entries, docs, since), nil
}

// mergeLegacy appends legacy-derived entries anchored on or after since
// whose idempotency key is not already present.
func mergeLegacy(entries []model.CreditEntry, docs []saleDoc, since string) []model.CreditEntry {
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		seen[e.IdempotencyKey] = true
	}
	for _, d := range docs {
		for _, e := range credit.FromLegacyUsage(d.ID, d.CreditsUsed) {
			if e.WeekAnchor < since || seen[e.IdempotencyKey] {
				continue
			}
			seen[e.IdempotencyKey] = true
			entries = append(entries, e)
		}
	}
	return entries
}

func findCredits(ctx context.Context, col *mongo.Collection, filter any) ([]model.CreditEntry, error) {
	cur, err := col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, mapErr(err)
	}
	var out []model.CreditEntry
	if err := cur.All(ctx, &out); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (s *Store) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	var b model.Booking
	err := s.bookings.FindOne(ctx, bson.M{"_id": id}).Decode(&b)
	return b, mapErr(err)
}

func (s *Store) ListBookingsByParent(ctx context.Context, parentID string) ([]model.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "time", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := s.bookings.Find(ctx, bson.M{"parentId": parentID}, opts)
	if err != nil {
		return nil, mapErr(err)
	}
	var out []model.Booking
	if err := cur.All(ctx, &out); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (s *Store) CreateBooking(ctx context.Context, b *model.Booking) error {
	return insertBooking(ctx, s.bookings, b)
}

// CancelBooking uses an update pipeline so cancelledAt comes from the
// server clock.
func (s *Store) CancelBooking(ctx context.Context, id string) (model.Booking, error) {
	update := mongo.Pipeline{{{Key: "$set", Value: bson.D{
		{Key: "status", Value: string(model.BookingCancelled)},
		{Key: "cancelledAt", Value: "$$NOW"},
	}}}}
	var b model.Booking
	err := s.bookings.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": bson.M{"$ne": string(model.BookingCancelled)}},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return s.GetBooking(ctx, id)
	}
	return b, mapErr(err)
}

// RunInTx runs fn inside a causally consistent session transaction with
// majority read and write concern.  The driver retries fn on transient
// transaction errors, so fn must be safe to run more than once.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return mapErr(err)
	}
	defer sess.EndSession(context.Background())

	opts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc, &mongoTx{s: s})
	}, opts)
	return mapErr(err)
}
