package store

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

	"linkup/apperrors"
	"linkup/models"
)

// MongoStore backs Store with MongoDB. Transactions use sessions with
// snapshot read concern and majority write concern; the driver retries
// transient write conflicts by re-running the callback, so two concurrent
// writers of the same guard or lock document resolve exactly as the
// pair-locking protocol requires. Requires a replica set or mongos.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &MongoStore{client: client, db: client.Database(dbName)}, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Presences() PresenceRepo {
	return mongoPresences{s.db.Collection(colPresences)}
}

func (s *MongoStore) Offers() OfferRepo {
	return mongoOffers{
		offers: s.db.Collection(colOffers),
		locks:  s.db.Collection(colOfferLock),
	}
}

func (s *MongoStore) Matches() MatchRepo { return mongoMatches{s.db.Collection(colMatches)} }
func (s *MongoStore) Guards() GuardRepo  { return mongoGuards{s.db.Collection(colGuards)} }
func (s *MongoStore) Places() PlaceRepo  { return mongoPlaces{s.db.Collection(colPlaces)} }

func (s *MongoStore) RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		// already inside a transaction, join it
		return fn(ctx)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, txnOpts)
	if err != nil {
		var ce mongo.CommandError
		if errors.As(err, &ce) &&
			(ce.HasErrorLabel("TransientTransactionError") || ce.HasErrorLabel("UnknownTransactionCommitResult")) {
			return fmt.Errorf("%w: %v", apperrors.ErrTransactionAborted, err)
		}
		return err
	}
	return nil
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperrors.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

type mongoPresences struct{ c *mongo.Collection }

func (r mongoPresences) Get(ctx context.Context, userID string) (*models.Presence, error) {
	var p models.Presence
	if err := r.c.FindOne(ctx, bson.M{"_id": userID}).Decode(&p); err != nil {
		return nil, notFoundOr(err, "get presence")
	}
	return &p, nil
}

func (r mongoPresences) Put(ctx context.Context, p *models.Presence) error {
	_, err := r.c.ReplaceOne(ctx, bson.M{"_id": p.UserID}, p, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("put presence: %w", err)
	}
	return nil
}

func (r mongoPresences) Delete(ctx context.Context, userID string) error {
	if _, err := r.c.DeleteOne(ctx, bson.M{"_id": userID}); err != nil {
		return fmt.Errorf("delete presence: %w", err)
	}
	return nil
}

func (r mongoPresences) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.Presence, error) {
	filter := bson.M{"status": models.PresenceAvailable, "expires_at": bson.M{"$lte": now}}
	cur, err := r.c.Find(ctx, filter, options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("list expired presences: %w", err)
	}
	var out []models.Presence
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("list expired presences: %w", err)
	}
	return out, nil
}

type mongoOffers struct {
	offers *mongo.Collection
	locks  *mongo.Collection
}

func (r mongoOffers) Get(ctx context.Context, offerID string) (*models.Offer, error) {
	var o models.Offer
	if err := r.offers.FindOne(ctx, bson.M{"_id": offerID}).Decode(&o); err != nil {
		return nil, notFoundOr(err, "get offer")
	}
	return &o, nil
}

func (r mongoOffers) Put(ctx context.Context, o *models.Offer) error {
	_, err := r.offers.ReplaceOne(ctx, bson.M{"_id": o.ID}, o, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("put offer: %w", err)
	}
	return nil
}

func (r mongoOffers) ListPendingForUser(ctx context.Context, userID string) ([]models.Offer, error) {
	filter := bson.M{
		"status": models.OfferPending,
		"$or":    []bson.M{{"from_user_id": userID}, {"to_user_id": userID}},
	}
	cur, err := r.offers.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list pending offers: %w", err)
	}
	var out []models.Offer
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("list pending offers: %w", err)
	}
	return out, nil
}

func (r mongoOffers) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.Offer, error) {
	filter := bson.M{"status": models.OfferPending, "expires_at": bson.M{"$lte": now}}
	cur, err := r.offers.Find(ctx, filter, options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("list expired offers: %w", err)
	}
	var out []models.Offer
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("list expired offers: %w", err)
	}
	return out, nil
}

func (r mongoOffers) GetLock(ctx context.Context, pairKey string) (*models.OfferLock, error) {
	var l models.OfferLock
	if err := r.locks.FindOne(ctx, bson.M{"_id": pairKey}).Decode(&l); err != nil {
		return nil, notFoundOr(err, "get offer lock")
	}
	return &l, nil
}

func (r mongoOffers) PutLock(ctx context.Context, l *models.OfferLock) error {
	_, err := r.locks.ReplaceOne(ctx, bson.M{"_id": l.PairKey}, l, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("put offer lock: %w", err)
	}
	return nil
}

func (r mongoOffers) DeleteLock(ctx context.Context, pairKey string) error {
	if _, err := r.locks.DeleteOne(ctx, bson.M{"_id": pairKey}); err != nil {
		return fmt.Errorf("delete offer lock: %w", err)
	}
	return nil
}

type mongoMatches struct{ c *mongo.Collection }

func (r mongoMatches) Get(ctx context.Context, matchID string) (*models.Match, error) {
	var m models.Match
	if err := r.c.FindOne(ctx, bson.M{"_id": matchID}).Decode(&m); err != nil {
		return nil, notFoundOr(err, "get match")
	}
	return &m, nil
}

func (r mongoMatches) Put(ctx context.Context, m *models.Match) error {
	_, err := r.c.ReplaceOne(ctx, bson.M{"_id": m.ID}, m, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("put match: %w", err)
	}
	return nil
}

type mongoGuards struct{ c *mongo.Collection }

func (r mongoGuards) Get(ctx context.Context, pairKey string) (*models.MatchGuard, error) {
	var g models.MatchGuard
	if err := r.c.FindOne(ctx, bson.M{"_id": pairKey}).Decode(&g); err != nil {
		return nil, notFoundOr(err, "get guard")
	}
	return &g, nil
}

func (r mongoGuards) Create(ctx context.Context, g *models.MatchGuard) error {
	if _, err := r.c.InsertOne(ctx, g); err != nil {
		return fmt.Errorf("create guard: %w", err)
	}
	return nil
}

func (r mongoGuards) Delete(ctx context.Context, pairKey string) error {
	if _, err := r.c.DeleteOne(ctx, bson.M{"_id": pairKey}); err != nil {
		return fmt.Errorf("delete guard: %w", err)
	}
	return nil
}

type mongoPlaces struct{ c *mongo.Collection }

func (r mongoPlaces) Get(ctx context.Context, placeID string) (*models.Place, error) {
	var p models.Place
	if err := r.c.FindOne(ctx, bson.M{"_id": placeID}).Decode(&p); err != nil {
		return nil, notFoundOr(err, "get place")
	}
	return &p, nil
}

func (r mongoPlaces) Put(ctx context.Context, p *models.Place) error {
	_, err := r.c.ReplaceOne(ctx, bson.M{"_id": p.ID}, p, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("put place: %w", err)
	}
	return nil
}
