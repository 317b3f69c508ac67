// Package memory is a map-backed implementation of the storage contracts.
// It is safe for concurrent use and backs local runs and service tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/PREETHAM1590/waste-wise/internal/domain/models"
	"github.com/PREETHAM1590/waste-wise/internal/lib/apperr"
	"github.com/PREETHAM1590/waste-wise/internal/storage"
)

type userRecord struct {
	user models.User
	seq  int64
}

type challengeRecord struct {
	challenge models.Challenge
	seq       int64
}

type itemRecord struct {
	item models.MarketplaceItem
	seq  int64
}

type Store struct {
	// txMu serialises WithTx callers across all users; mu guards the maps.
	txMu sync.Mutex
	mu   sync.RWMutex

	seq          int64
	users        map[string]*userRecord
	wasteItems   map[string][]models.WasteItem
	transactions map[string][]models.EcoTransaction
	challenges   map[string]*challengeRecord
	market       map[string]*itemRecord
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:        make(map[string]*userRecord),
		wasteItems:   make(map[string][]models.WasteItem),
		transactions: make(map[string][]models.EcoTransaction),
		challenges:   make(map[string]*challengeRecord),
		market:       make(map[string]*itemRecord),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) Users() storage.Users                       { return userRepo{r: s.repos(nil)} }
func (s *Store) WasteItems() storage.WasteItems             { return wasteRepo{r: s.repos(nil)} }
func (s *Store) Transactions() storage.Transactions         { return transactionRepo{r: s.repos(nil)} }
func (s *Store) Challenges() storage.Challenges             { return challengeRepo{r: s.repos(nil)} }
func (s *Store) MarketplaceItems() storage.MarketplaceItems { return marketRepo{r: s.repos(nil)} }

// WithTx runs fn with repositories that journal every write. If fn returns
// an error or panics the journal is replayed backwards.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, repos storage.Repositories) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	j := &journal{}
	tx := s.repos(j)

	defer func() {
		if p := recover(); p != nil {
			j.rollback(s)
			panic(p)
		}
		if err != nil {
			j.rollback(s)
		}
	}()

	err = fn(ctx, tx)
	return err
}

// journal records compensating actions; they run with mu held.
type journal struct {
	undo []func()
}

func (j *journal) add(f func()) {
	if j != nil {
		j.undo = append(j.undo, f)
	}
}

func (j *journal) rollback(s *Store) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}

type repos struct {
	s *Store
	j *journal
}

func (s *Store) repos(j *journal) *repos { return &repos{s: s, j: j} }

func (r *repos) Users() storage.Users                       { return userRepo{r: r} }
func (r *repos) WasteItems() storage.WasteItems             { return wasteRepo{r: r} }
func (r *repos) Transactions() storage.Transactions         { return transactionRepo{r: r} }
func (r *repos) Challenges() storage.Challenges             { return challengeRepo{r: r} }
func (r *repos) MarketplaceItems() storage.MarketplaceItems { return marketRepo{r: r} }

func (s *Store) nextSeqLocked() int64 {
	s.seq++
	return s.seq
}

// Users -----------------------------------------------------------------------

type userRepo struct{ r *repos }

func (u userRepo) Create(_ context.Context, user *models.User) error {
	const op = "storage.memory.Users.Create"

	s := u.r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		return fmt.Errorf("%s: %w", op, apperr.Invalid("user id is required"))
	}
	if _, exists := s.users[user.ID]; exists {
		return fmt.Errorf("%s: %w", op, apperr.Invalid("user already exists"))
	}

	s.users[user.ID] = &userRecord{user: cloneUser(*user), seq: s.nextSeqLocked()}
	id := user.ID
	u.r.j.add(func() { delete(s.users, id) })

	return nil
}

func (u userRepo) Get(_ context.Context, id string) (*models.User, error) {
	const op = "storage.memory.Users.Get"

	s := u.r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}

	user := cloneUser(rec.user)
	return &user, nil
}

func (u userRepo) AddPoints(_ context.Context, id string, delta int64) (int64, error) {
	const op = "storage.memory.Users.AddPoints"

	s := u.r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok {
		return 0, fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}
	if rec.user.EcoPoints+delta < 0 {
		return 0, fmt.Errorf("%s: %w", op, apperr.ErrInsufficientPoints)
	}

	rec.user.EcoPoints += delta
	u.r.j.add(func() { rec.user.EcoPoints -= delta })

	return rec.user.EcoPoints, nil
}

func (u userRepo) GrantAchievement(_ context.Context, id, achievement string) (bool, error) {
	const op = "storage.memory.Users.GrantAchievement"

	s := u.r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok {
		return false, fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}
	if rec.user.HasAchievement(achievement) {
		return false, nil
	}

	rec.user.Achievements = append(rec.user.Achievements, achievement)
	u.r.j.add(func() {
		rec.user.Achievements = slices.DeleteFunc(rec.user.Achievements, func(a string) bool { return a == achievement })
	})

	return true, nil
}

func (u userRepo) UpdateWallet(_ context.Context, id, walletAddress string) error {
	const op = "storage.memory.Users.UpdateWallet"

	s := u.r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}

	prev := rec.user.WalletAddress
	rec.user.WalletAddress = &walletAddress
	u.r.j.add(func() { rec.user.WalletAddress = prev })

	return nil
}

func (u userRepo) Top(_ context.Context, limit int) ([]models.User, error) {
	s := u.r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := make([]*userRecord, 0, len(s.users))
	for _, rec := range s.users {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].user.EcoPoints != recs[j].user.EcoPoints {
			return recs[i].user.EcoPoints > recs[j].user.EcoPoints
		}
		return recs[i].seq < recs[j].seq
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}

	out := make([]models.User, 0, len(recs))
	for _, rec := range recs {
		out = append(out, cloneUser(rec.user))
	}
	return out, nil
}

func cloneUser(u models.User) models.User {
	u.Achievements = slices.Clone(u.Achievements)
	if u.Achievements == nil {
		u.Achievements = []string{}
	}
	if u.WalletAddress != nil {
		w := *u.WalletAddress
		u.WalletAddress = &w
	}
	return u
}

// Waste items -----------------------------------------------------------------

type wasteRepo struct{ r *repos }

func (w wasteRepo) Create(_ context.Context, item *models.WasteItem) error {
	s := w.r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	userID, id := item.UserID, item.ID
	s.wasteItems[userID] = append(s.wasteItems[userID], *item)
	w.r.j.add(func() {
		s.wasteItems[userID] = slices.DeleteFunc(s.wasteItems[userID], func(it models.WasteItem) bool { return it.ID == id })
	})

	return nil
}

func (w wasteRepo) ListByUser(_ context.Context, userID string, from, to time.Time) ([]models.WasteItem, error) {
	s := w.r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.WasteItem{}
	for _, it := range s.wasteItems[userID] {
		if it.ScannedAt.Before(from) || it.ScannedAt.After(to) {
			continue
		}
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScannedAt.Before(out[j].ScannedAt) })

	return out, nil
}

// Transactions ----------------------------------------------------------------

type transactionRepo struct{ r *repos }

func (t transactionRepo) Create(_ context.Context, tx *models.EcoTransaction) error {
	s := t.r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	userID, id := tx.UserID, tx.ID
	s.transactions[userID] = append(s.transactions[userID], *tx)
	t.r.j.add(func() {
		s.transactions[userID] = slices.DeleteFunc(s.transactions[userID], func(e models.EcoTransaction) bool { return e.ID == id })
	})

	return nil
}

func (t transactionRepo) ListByUser(_ context.Context, userID string, limit int) ([]models.EcoTransaction, error) {
	s := t.r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.transactions[userID]
	out := make([]models.EcoTransaction, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, entries[i])
	}
	return out, nil
}

// Challenges ------------------------------------------------------------------

type challengeRepo struct{ r *repos }

func (c challengeRepo) Create(_ context.Context, challenge *models.Challenge) error {
	const op = "storage.memory.Challenges.Create"

	s := c.r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.challenges[challenge.ID]; exists {
		return fmt.Errorf("%s: %w", op, apperr.Invalid("challenge already exists"))
	}

	cp := cloneChallenge(*challenge)
	s.challenges[challenge.ID] = &challengeRecord{challenge: cp, seq: s.nextSeqLocked()}
	id := challenge.ID
	c.r.j.add(func() { delete(s.challenges, id) })

	return nil
}

func (c challengeRepo) Get(_ context.Context, id string) (*models.Challenge, error) {
	const op = "storage.memory.Challenges.Get"

	s := c.r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.challenges[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}

	ch := cloneChallenge(rec.challenge)
	return &ch, nil
}

func (c challengeRepo) ListActive(_ context.Context, now time.Time, limit int) ([]models.Challenge, error) {
	s := c.r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := make([]*challengeRecord, 0)
	for _, rec := range s.challenges {
		if rec.challenge.Status(now) == models.ChallengeActive {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].challenge.StartDate.Equal(recs[j].challenge.StartDate) {
			return recs[i].challenge.StartDate.Before(recs[j].challenge.StartDate)
		}
		return recs[i].seq < recs[j].seq
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}

	out := make([]models.Challenge, 0, len(recs))
	for _, rec := range recs {
		out = append(out, cloneChallenge(rec.challenge))
	}
	return out, nil
}

func (c challengeRepo) AddParticipant(_ context.Context, challengeID, userID string) error {
	const op = "storage.memory.Challenges.AddParticipant"

	s := c.r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.challenges[challengeID]
	if !ok {
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}
	if rec.challenge.HasParticipant(userID) {
		return nil
	}

	rec.challenge.Participants = append(rec.challenge.Participants, userID)
	c.r.j.add(func() {
		rec.challenge.Participants = slices.DeleteFunc(rec.challenge.Participants, func(p string) bool { return p == userID })
	})

	return nil
}

func cloneChallenge(c models.Challenge) models.Challenge {
	c.Participants = slices.Clone(c.Participants)
	if c.Participants == nil {
		c.Participants = []string{}
	}
	return c
}

// Marketplace -----------------------------------------------------------------

type marketRepo struct{ r *repos }

func (m marketRepo) Create(_ context.Context, item *models.MarketplaceItem) error {
	const op = "storage.memory.MarketplaceItems.Create"

	s := m.r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.market[item.ID]; exists {
		return fmt.Errorf("%s: %w", op, apperr.Invalid("item already exists"))
	}

	s.market[item.ID] = &itemRecord{item: *item, seq: s.nextSeqLocked()}
	id := item.ID
	m.r.j.add(func() { delete(s.market, id) })

	return nil
}

func (m marketRepo) Get(_ context.Context, id string) (*models.MarketplaceItem, error) {
	const op = "storage.memory.MarketplaceItems.Get"

	s := m.r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.market[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}

	item := rec.item
	return &item, nil
}

func (m marketRepo) ListAvailable(_ context.Context, category string, limit int) ([]models.MarketplaceItem, error) {
	s := m.r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := make([]*itemRecord, 0)
	for _, rec := range s.market {
		if !rec.item.IsAvailable || (category != "" && rec.item.Category != category) {
			continue
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].item.CreatedAt.Equal(recs[j].item.CreatedAt) {
			return recs[i].item.CreatedAt.After(recs[j].item.CreatedAt)
		}
		return recs[i].seq > recs[j].seq
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}

	out := make([]models.MarketplaceItem, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.item)
	}
	return out, nil
}

func (m marketRepo) MarkSold(_ context.Context, id string) error {
	const op = "storage.memory.MarketplaceItems.MarkSold"

	s := m.r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.market[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}
	if !rec.item.IsAvailable {
		return fmt.Errorf("%s: %w", op, apperr.Invalid("item is no longer available"))
	}

	rec.item.IsAvailable = false
	m.r.j.add(func() { rec.item.IsAvailable = true })

	return nil
}
