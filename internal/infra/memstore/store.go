// Package memstore is the in-memory persistence backend used by unit
// tests and local development. One Store holds all state so cross-entity
// transactions stay atomic without a database; the Users, Competitions,
// and Payments views expose the repository ports over it.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fantapay/fantapay/internal/competition"
	"github.com/fantapay/fantapay/internal/ledger"
	"github.com/fantapay/fantapay/internal/matchday"
	"github.com/fantapay/fantapay/internal/platform/user"
	"github.com/fantapay/fantapay/pkg/money"
)

type txKey struct{}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

type paymentKey struct {
	userID        uuid.UUID
	competitionID uuid.UUID
	matchday      int
}

// Store holds all state behind a single mutex. WithTx holds the mutex for
// the whole unit, which serializes concurrent transactions the way row
// locks do in the SQL backend.
type Store struct {
	mu sync.Mutex

	users        map[uuid.UUID]*user.User
	competitions map[uuid.UUID]*competition.Competition
	inviteCodes  map[string]uuid.UUID
	transactions []*ledger.Transaction
	payments     map[paymentKey]*matchday.Payment
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		users:        make(map[uuid.UUID]*user.User),
		competitions: make(map[uuid.UUID]*competition.Competition),
		inviteCodes:  make(map[string]uuid.UUID),
		payments:     make(map[paymentKey]*matchday.Payment),
	}
}

// Users returns the user.Repository view.
func (s *Store) Users() *UserRepo { return &UserRepo{s} }

// Competitions returns the competition.Repository view.
func (s *Store) Competitions() *CompetitionRepo { return &CompetitionRepo{s} }

// Payments returns the matchday.Repository view.
func (s *Store) Payments() *MatchdayRepo { return &MatchdayRepo{s} }

// lock acquires the store mutex unless the caller is already inside a
// WithTx unit, which holds it for the unit's duration.
func (s *Store) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type snapshot struct {
	users        map[uuid.UUID]*user.User
	competitions map[uuid.UUID]*competition.Competition
	inviteCodes  map[string]uuid.UUID
	transactions []*ledger.Transaction
	payments     map[paymentKey]*matchday.Payment
}

func (s *Store) snapshot() *snapshot {
	snap := &snapshot{
		users:        make(map[uuid.UUID]*user.User, len(s.users)),
		competitions: make(map[uuid.UUID]*competition.Competition, len(s.competitions)),
		inviteCodes:  make(map[string]uuid.UUID, len(s.inviteCodes)),
		transactions: append([]*ledger.Transaction(nil), s.transactions...),
		payments:     make(map[paymentKey]*matchday.Payment, len(s.payments)),
	}
	for id, u := range s.users {
		snap.users[id] = cloneUser(u)
	}
	for id, c := range s.competitions {
		snap.competitions[id] = cloneCompetition(c)
	}
	for code, id := range s.inviteCodes {
		snap.inviteCodes[code] = id
	}
	for k, p := range s.payments {
		snap.payments[k] = clonePayment(p)
	}
	return snap
}

func (s *Store) restore(snap *snapshot) {
	s.users = snap.users
	s.competitions = snap.competitions
	s.inviteCodes = snap.inviteCodes
	s.transactions = snap.transactions
	s.payments = snap.payments
}

// WithTx implements ledger.Store. The mutex is held across fn, and a
// failed fn restores the pre-transaction snapshot.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// ---- ledger.Store ----

func (s *Store) UserBalance(ctx context.Context, userID uuid.UUID) (money.Amount, error) {
	defer s.lock(ctx)()
	u, ok := s.users[userID]
	if !ok {
		return 0, ledger.ErrUserWalletNotFound
	}
	return u.Balance, nil
}

func (s *Store) UserBalanceForUpdate(ctx context.Context, userID uuid.UUID) (money.Amount, error) {
	return s.UserBalance(ctx, userID)
}

func (s *Store) SetUserBalance(ctx context.Context, userID uuid.UUID, balance money.Amount) error {
	defer s.lock(ctx)()
	u, ok := s.users[userID]
	if !ok {
		return ledger.ErrUserWalletNotFound
	}
	u.Balance = balance
	u.UpdatedAt = time.Now()
	return nil
}

func (s *Store) CompetitionBalance(ctx context.Context, competitionID uuid.UUID) (money.Amount, error) {
	defer s.lock(ctx)()
	c, ok := s.competitions[competitionID]
	if !ok {
		return 0, ledger.ErrCompetitionWalletNotFound
	}
	return c.WalletBalance, nil
}

func (s *Store) CompetitionBalanceForUpdate(ctx context.Context, competitionID uuid.UUID) (money.Amount, error) {
	return s.CompetitionBalance(ctx, competitionID)
}

func (s *Store) SetCompetitionBalance(ctx context.Context, competitionID uuid.UUID, balance money.Amount) error {
	defer s.lock(ctx)()
	c, ok := s.competitions[competitionID]
	if !ok {
		return ledger.ErrCompetitionWalletNotFound
	}
	c.WalletBalance = balance
	c.UpdatedAt = time.Now()
	return nil
}

func (s *Store) AppendTransaction(ctx context.Context, tx *ledger.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	defer s.lock(ctx)()
	s.transactions = append(s.transactions, cloneTransaction(tx))
	return nil
}

func (s *Store) ListUserTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]*ledger.Transaction, error) {
	defer s.lock(ctx)()
	var out []*ledger.Transaction
	for i := len(s.transactions) - 1; i >= 0; i-- {
		tx := s.transactions[i]
		if tx.UserID != userID {
			continue
		}
		out = append(out, cloneTransaction(tx))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) ListCompetitionTransactions(ctx context.Context, competitionID uuid.UUID, limit int) ([]*ledger.Transaction, error) {
	defer s.lock(ctx)()
	var out []*ledger.Transaction
	for i := len(s.transactions) - 1; i >= 0; i-- {
		tx := s.transactions[i]
		if tx.CompetitionID == nil || *tx.CompetitionID != competitionID {
			continue
		}
		out = append(out, cloneTransaction(tx))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) SumCompetitionNet(ctx context.Context, competitionID uuid.UUID) (money.Amount, error) {
	defer s.lock(ctx)()
	var net money.Amount
	for _, tx := range s.transactions {
		if tx.CompetitionID == nil || *tx.CompetitionID != competitionID {
			continue
		}
		if tx.ToWallet == ledger.WalletCompetition {
			net = net.Add(tx.Amount)
		}
		if tx.FromWallet == ledger.WalletCompetition {
			net = net.Sub(tx.Amount)
		}
	}
	return net, nil
}

// ---- user.Repository ----

// UserRepo implements user.Repository over the shared store.
type UserRepo struct {
	s *Store
}

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	defer r.s.lock(ctx)()
	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return user.ErrUserAlreadyExists
		}
	}
	// The wallet starts at zero regardless of what the caller set; only
	// the ledger store methods move balances.
	stored := cloneUser(u)
	stored.Balance = 0
	r.s.users[u.ID] = stored
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	defer r.s.lock(ctx)()
	u, ok := r.s.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	defer r.s.lock(ctx)()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (r *UserRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*user.User, error) {
	defer r.s.lock(ctx)()
	out := make([]*user.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

// Update writes the mutable profile fields. The balance is owned by the
// ledger store methods and is deliberately not copied here.
func (r *UserRepo) Update(ctx context.Context, u *user.User) error {
	defer r.s.lock(ctx)()
	existing, ok := r.s.users[u.ID]
	if !ok {
		return user.ErrUserNotFound
	}
	existing.Name = u.Name
	existing.Language = u.Language
	existing.PasswordHash = u.PasswordHash
	existing.LastLoginAt = u.LastLoginAt
	existing.UpdatedAt = u.UpdatedAt
	return nil
}

func (r *UserRepo) Exists(ctx context.Context, email string) (bool, error) {
	defer r.s.lock(ctx)()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

// ---- competition.Repository ----

// CompetitionRepo implements competition.Repository over the shared store.
type CompetitionRepo struct {
	s *Store
}

func (r *CompetitionRepo) Create(ctx context.Context, c *competition.Competition) error {
	defer r.s.lock(ctx)()
	r.s.competitions[c.ID] = cloneCompetition(c)
	r.s.inviteCodes[c.InviteCode] = c.ID
	return nil
}

func (r *CompetitionRepo) GetByID(ctx context.Context, id uuid.UUID) (*competition.Competition, error) {
	defer r.s.lock(ctx)()
	c, ok := r.s.competitions[id]
	if !ok {
		return nil, competition.ErrNotFound
	}
	return cloneCompetition(c), nil
}

func (r *CompetitionRepo) GetByInviteCode(ctx context.Context, code string) (*competition.Competition, error) {
	defer r.s.lock(ctx)()
	id, ok := r.s.inviteCodes[strings.ToUpper(code)]
	if !ok {
		return nil, competition.ErrNotFound
	}
	return cloneCompetition(r.s.competitions[id]), nil
}

func (r *CompetitionRepo) ListByParticipant(ctx context.Context, userID uuid.UUID) ([]*competition.Competition, error) {
	defer r.s.lock(ctx)()
	var out []*competition.Competition
	for _, c := range r.s.competitions {
		if c.HasParticipant(userID) {
			out = append(out, cloneCompetition(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *CompetitionRepo) AddParticipant(ctx context.Context, competitionID, userID uuid.UUID) error {
	defer r.s.lock(ctx)()
	c, ok := r.s.competitions[competitionID]
	if !ok {
		return competition.ErrNotFound
	}
	if c.HasParticipant(userID) {
		return competition.ErrAlreadyParticipant
	}
	c.Participants = append(c.Participants, userID)
	c.UpdatedAt = time.Now()
	return nil
}

func (r *CompetitionRepo) RemoveParticipant(ctx context.Context, competitionID, userID uuid.UUID) error {
	defer r.s.lock(ctx)()
	c, ok := r.s.competitions[competitionID]
	if !ok {
		return competition.ErrNotFound
	}
	for i, p := range c.Participants {
		if p == userID {
			c.Participants = append(c.Participants[:i], c.Participants[i+1:]...)
			c.UpdatedAt = time.Now()
			return nil
		}
	}
	return competition.ErrParticipantNotFound
}

func (r *CompetitionRepo) UpdateStandings(ctx context.Context, competitionID uuid.UUID, standings competition.Standings, matchday *int) error {
	defer r.s.lock(ctx)()
	c, ok := r.s.competitions[competitionID]
	if !ok {
		return competition.ErrNotFound
	}
	c.Standings = cloneStandings(standings)
	if matchday != nil {
		c.CurrentMatchday = *matchday
	}
	c.UpdatedAt = time.Now()
	return nil
}

// ---- matchday.Repository ----

// MatchdayRepo implements matchday.Repository over the shared store.
type MatchdayRepo struct {
	s *Store
}

func (r *MatchdayRepo) CreateSchedule(ctx context.Context, payments []*matchday.Payment) error {
	defer r.s.lock(ctx)()
	for _, p := range payments {
		key := paymentKey{p.UserID, p.CompetitionID, p.Matchday}
		if _, exists := r.s.payments[key]; exists {
			continue
		}
		r.s.payments[key] = clonePayment(p)
	}
	return nil
}

func (r *MatchdayRepo) ListByUserAndCompetition(ctx context.Context, userID, competitionID uuid.UUID) ([]*matchday.Payment, error) {
	defer r.s.lock(ctx)()
	var out []*matchday.Payment
	for key, p := range r.s.payments {
		if key.userID == userID && key.competitionID == competitionID {
			out = append(out, clonePayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Matchday < out[j].Matchday })
	return out, nil
}

func (r *MatchdayRepo) ListByCompetition(ctx context.Context, competitionID uuid.UUID) ([]*matchday.Payment, error) {
	defer r.s.lock(ctx)()
	var out []*matchday.Payment
	for key, p := range r.s.payments {
		if key.competitionID == competitionID {
			out = append(out, clonePayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID.String() < out[j].UserID.String()
		}
		return out[i].Matchday < out[j].Matchday
	})
	return out, nil
}

func (r *MatchdayRepo) MarkPaid(ctx context.Context, userID, competitionID uuid.UUID, matchdays []int, paidAt time.Time) (int, error) {
	defer r.s.lock(ctx)()
	updated := 0
	for _, md := range matchdays {
		p, ok := r.s.payments[paymentKey{userID, competitionID, md}]
		if !ok || p.Status != matchday.StatusPending {
			continue
		}
		p.Status = matchday.StatusPaid
		at := paidAt
		p.PaidAt = &at
		updated++
	}
	return updated, nil
}

// ---- clone helpers ----

func cloneUser(u *user.User) *user.User {
	cp := *u
	if u.LastLoginAt != nil {
		at := *u.LastLoginAt
		cp.LastLoginAt = &at
	}
	return &cp
}

func cloneCompetition(c *competition.Competition) *competition.Competition {
	cp := *c
	cp.Participants = append([]uuid.UUID(nil), c.Participants...)
	cp.Standings = cloneStandings(c.Standings)
	return &cp
}

func cloneStandings(s competition.Standings) competition.Standings {
	cp := s
	if s.Legacy != nil {
		cp.Legacy = make(map[string]any, len(s.Legacy))
		for k, v := range s.Legacy {
			cp.Legacy[k] = v
		}
	}
	cp.Ranked = append([]competition.RankedRow(nil), s.Ranked...)
	return cp
}

func clonePayment(p *matchday.Payment) *matchday.Payment {
	cp := *p
	if p.PaidAt != nil {
		at := *p.PaidAt
		cp.PaidAt = &at
	}
	return &cp
}

func cloneTransaction(tx *ledger.Transaction) *ledger.Transaction {
	cp := *tx
	if tx.CompetitionID != nil {
		id := *tx.CompetitionID
		cp.CompetitionID = &id
	}
	return &cp
}
