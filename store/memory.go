package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"linkup/apperrors"
	"linkup/models"
)

const (
	colPresences = "presences"
	colOffers    = "offers"
	colOfferLock = "offer_locks"
	colMatches   = "matches"
	colGuards    = "match_guards"
	colPlaces    = "places"
)

const memMaxAttempts = 32

// MemoryStore is an in-memory Store with optimistic concurrency: every
// document carries a version, transactions buffer their writes and record
// the versions they read, and commit validates those versions under a single
// mutex. A losing transaction is re-run, exactly like a real store client
// retrying on write conflict. Intended for tests.
type MemoryStore struct {
	mu   sync.Mutex
	cols map[string]map[string]*memDoc
}

type memDoc struct {
	data    any // nil marks a tombstone so versions survive deletion
	version uint64
}

type docKey struct {
	col, id string
}

type memTx struct {
	reads  map[docKey]uint64
	writes map[docKey]any // nil value = delete
}

type txKeyType struct{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cols: make(map[string]map[string]*memDoc)}
}

func (s *MemoryStore) Presences() PresenceRepo { return memPresences{s} }
func (s *MemoryStore) Offers() OfferRepo       { return memOffers{s} }
func (s *MemoryStore) Matches() MatchRepo      { return memMatches{s} }
func (s *MemoryStore) Guards() GuardRepo       { return memGuards{s} }
func (s *MemoryStore) Places() PlaceRepo       { return memPlaces{s} }

func (s *MemoryStore) RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		// already inside a transaction, join it
		return fn(ctx)
	}
	for attempt := 0; attempt < memMaxAttempts; attempt++ {
		tx := &memTx{reads: make(map[docKey]uint64), writes: make(map[docKey]any)}
		txCtx := context.WithValue(ctx, txKeyType{}, tx)
		if err := fn(txCtx); err != nil {
			return err
		}
		if s.commit(tx) {
			return nil
		}
	}
	return fmt.Errorf("%w: gave up after %d conflicting attempts", apperrors.ErrTransactionAborted, memMaxAttempts)
}

func txFrom(ctx context.Context) *memTx {
	tx, _ := ctx.Value(txKeyType{}).(*memTx)
	return tx
}

func (s *MemoryStore) commit(tx *memTx) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, ver := range tx.reads {
		if s.versionLocked(k) != ver {
			return false
		}
	}
	for k, v := range tx.writes {
		s.applyLocked(k, v)
	}
	return true
}

func (s *MemoryStore) versionLocked(k docKey) uint64 {
	if d, ok := s.cols[k.col][k.id]; ok {
		return d.version
	}
	return 0
}

func (s *MemoryStore) applyLocked(k docKey, v any) {
	col, ok := s.cols[k.col]
	if !ok {
		col = make(map[string]*memDoc)
		s.cols[k.col] = col
	}
	var ver uint64 = 1
	if d, ok := col[k.id]; ok {
		ver = d.version + 1
	}
	col[k.id] = &memDoc{data: v, version: ver}
}

// get reads a document, recording the observed version when inside a
// transaction so commit can detect a concurrent writer.
func (s *MemoryStore) get(ctx context.Context, col, id string) (any, bool) {
	k := docKey{col, id}
	if tx := txFrom(ctx); tx != nil {
		if v, staged := tx.writes[k]; staged {
			return v, v != nil
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, seen := tx.reads[k]; !seen {
			tx.reads[k] = s.versionLocked(k)
		}
		d, ok := s.cols[col][id]
		if !ok || d.data == nil {
			return nil, false
		}
		return d.data, true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.cols[col][id]
	if !ok || d.data == nil {
		return nil, false
	}
	return d.data, true
}

func (s *MemoryStore) put(ctx context.Context, col, id string, v any) {
	k := docKey{col, id}
	if tx := txFrom(ctx); tx != nil {
		tx.writes[k] = v
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(k, v)
}

// create is put plus an implicit read of the document's prior absence, so a
// concurrent creator of the same id is rejected at commit even if the caller
// never called get.
func (s *MemoryStore) create(ctx context.Context, col, id string, v any) {
	k := docKey{col, id}
	if tx := txFrom(ctx); tx != nil {
		if _, seen := tx.reads[k]; !seen {
			s.mu.Lock()
			tx.reads[k] = s.versionLocked(k)
			s.mu.Unlock()
		}
		tx.writes[k] = v
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(k, v)
}

func (s *MemoryStore) delete(ctx context.Context, col, id string) {
	s.put(ctx, col, id, nil)
}

// scan returns a merged view of committed documents and the transaction's
// staged writes. Scans do not record reads; the batch operations built on
// them are best-effort by design.
func (s *MemoryStore) scan(ctx context.Context, col string) []any {
	tx := txFrom(ctx)
	s.mu.Lock()
	var out []any
	seen := make(map[string]bool)
	for id, d := range s.cols[col] {
		if tx != nil {
			if v, staged := tx.writes[docKey{col, id}]; staged {
				seen[id] = true
				if v != nil {
					out = append(out, v)
				}
				continue
			}
		}
		if d.data != nil {
			out = append(out, d.data)
		}
	}
	s.mu.Unlock()
	if tx != nil {
		for k, v := range tx.writes {
			if k.col == col && !seen[k.id] && v != nil {
				out = append(out, v)
			}
		}
	}
	return out
}

func clonePresence(p *models.Presence) *models.Presence {
	cp := *p
	return &cp
}

func cloneOffer(o *models.Offer) *models.Offer {
	cp := *o
	return &cp
}

func cloneOfferLock(l *models.OfferLock) *models.OfferLock {
	cp := *l
	return &cp
}

func cloneMatch(m *models.Match) *models.Match {
	cp := *m
	cp.PendingConfirmationIDs = append([]string(nil), m.PendingConfirmationIDs...)
	return &cp
}

func cloneGuard(g *models.MatchGuard) *models.MatchGuard {
	cp := *g
	return &cp
}

func clonePlace(p *models.Place) *models.Place {
	cp := *p
	return &cp
}

type memPresences struct{ s *MemoryStore }

func (r memPresences) Get(ctx context.Context, userID string) (*models.Presence, error) {
	v, ok := r.s.get(ctx, colPresences, userID)
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return clonePresence(v.(*models.Presence)), nil
}

func (r memPresences) Put(ctx context.Context, p *models.Presence) error {
	r.s.put(ctx, colPresences, p.UserID, clonePresence(p))
	return nil
}

func (r memPresences) Delete(ctx context.Context, userID string) error {
	r.s.delete(ctx, colPresences, userID)
	return nil
}

func (r memPresences) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.Presence, error) {
	var out []models.Presence
	for _, v := range r.s.scan(ctx, colPresences) {
		p := v.(*models.Presence)
		if p.Status == models.PresenceAvailable && !now.Before(p.ExpiresAt) {
			out = append(out, *clonePresence(p))
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

type memOffers struct{ s *MemoryStore }

func (r memOffers) Get(ctx context.Context, offerID string) (*models.Offer, error) {
	v, ok := r.s.get(ctx, colOffers, offerID)
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return cloneOffer(v.(*models.Offer)), nil
}

func (r memOffers) Put(ctx context.Context, o *models.Offer) error {
	r.s.put(ctx, colOffers, o.ID, cloneOffer(o))
	return nil
}

func (r memOffers) ListPendingForUser(ctx context.Context, userID string) ([]models.Offer, error) {
	var out []models.Offer
	for _, v := range r.s.scan(ctx, colOffers) {
		o := v.(*models.Offer)
		if o.Status == models.OfferPending && (o.FromUserID == userID || o.ToUserID == userID) {
			out = append(out, *cloneOffer(o))
		}
	}
	return out, nil
}

func (r memOffers) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.Offer, error) {
	var out []models.Offer
	for _, v := range r.s.scan(ctx, colOffers) {
		o := v.(*models.Offer)
		if o.Status == models.OfferPending && !now.Before(o.ExpiresAt) {
			out = append(out, *cloneOffer(o))
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (r memOffers) GetLock(ctx context.Context, pairKey string) (*models.OfferLock, error) {
	v, ok := r.s.get(ctx, colOfferLock, pairKey)
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return cloneOfferLock(v.(*models.OfferLock)), nil
}

func (r memOffers) PutLock(ctx context.Context, l *models.OfferLock) error {
	r.s.create(ctx, colOfferLock, l.PairKey, cloneOfferLock(l))
	return nil
}

func (r memOffers) DeleteLock(ctx context.Context, pairKey string) error {
	r.s.delete(ctx, colOfferLock, pairKey)
	return nil
}

type memMatches struct{ s *MemoryStore }

func (r memMatches) Get(ctx context.Context, matchID string) (*models.Match, error) {
	v, ok := r.s.get(ctx, colMatches, matchID)
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return cloneMatch(v.(*models.Match)), nil
}

func (r memMatches) Put(ctx context.Context, m *models.Match) error {
	r.s.put(ctx, colMatches, m.ID, cloneMatch(m))
	return nil
}

type memGuards struct{ s *MemoryStore }

func (r memGuards) Get(ctx context.Context, pairKey string) (*models.MatchGuard, error) {
	v, ok := r.s.get(ctx, colGuards, pairKey)
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return cloneGuard(v.(*models.MatchGuard)), nil
}

func (r memGuards) Create(ctx context.Context, g *models.MatchGuard) error {
	r.s.create(ctx, colGuards, g.PairKey, cloneGuard(g))
	return nil
}

func (r memGuards) Delete(ctx context.Context, pairKey string) error {
	r.s.delete(ctx, colGuards, pairKey)
	return nil
}

type memPlaces struct{ s *MemoryStore }

func (r memPlaces) Get(ctx context.Context, placeID string) (*models.Place, error) {
	v, ok := r.s.get(ctx, colPlaces, placeID)
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return clonePlace(v.(*models.Place)), nil
}

func (r memPlaces) Put(ctx context.Context, p *models.Place) error {
	r.s.put(ctx, colPlaces, p.ID, clonePlace(p))
	return nil
}
