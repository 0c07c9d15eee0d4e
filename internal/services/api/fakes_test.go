package api

import (
	"context"
	"sort"
	"sync"
	"time"

	"allowly/internal/channel"
	"allowly/internal/config"
	"allowly/internal/domain/allowance"
	"allowly/internal/domain/family"
	"allowly/internal/domain/invitation"
	"allowly/internal/domain/request"
	"allowly/internal/domain/transaction"
	"allowly/internal/notify"
	pg "allowly/internal/repository/postgres"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func init() { gin.SetMode(gin.TestMode) }

// memStore is an in-memory stand-in for the repository layer, shared by all
// fakes so handlers see one consistent world.
type memStore struct {
	mu         sync.Mutex
	families   map[string]*family.Family
	users      map[string]*family.User
	passwords  map[string]string
	allowances map[string]*allowance.Allowance
	requests   map[int64]*request.Request
	nextReq    int64
	ledger     []*transaction.Transaction
	nextTx     int64
	invites    map[string]*invitation.Invitation
}

func newMemStore() *memStore {
	return &memStore{
		families:   map[string]*family.Family{},
		users:      map[string]*family.User{},
		passwords:  map[string]string{},
		allowances: map[string]*allowance.Allowance{},
		requests:   map[int64]*request.Request{},
		invites:    map[string]*invitation.Invitation{},
	}
}

type memTx struct{}

func (memTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memFamilies struct{ s *memStore }

func (r memFamilies) Create(_ context.Context, f *family.Family) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.families[f.UID]; ok {
		return pg.ErrConflict
	}
	cp := *f
	r.s.families[f.UID] = &cp
	return nil
}

func (r memFamilies) GetByUID(_ context.Context, uid string) (*family.Family, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.families[uid]
	if !ok {
		return nil, pg.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

type memUsers struct{ s *memStore }

func (r memUsers) Create(_ context.Context, u *family.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.UID]; ok {
		return pg.ErrConflict
	}
	cp := *u
	r.s.users[u.UID] = &cp
	return nil
}

func (r memUsers) GetByUID(_ context.Context, uid string) (*family.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[uid]
	if !ok {
		return nil, pg.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*family.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email && email != "" {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pg.ErrNotFound
}

func (r memUsers) GetByName(_ context.Context, familyUID, name string) (*family.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.FamilyUID == familyUID && u.Name == name {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pg.ErrNotFound
}

func (r memUsers) ListByFamily(_ context.Context, familyUID string) ([]*family.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*family.User
	for _, u := range r.s.users {
		if u.FamilyUID == familyUID {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memUsers) Update(_ context.Context, u *family.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.UID]; !ok {
		return pg.ErrNotFound
	}
	cp := *u
	r.s.users[u.UID] = &cp
	return nil
}

func (r memUsers) Delete(_ context.Context, uid string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[uid]; !ok {
		return pg.ErrNotFound
	}
	delete(r.s.users, uid)
	return nil
}

type memPasswords struct{ s *memStore }

func (r memPasswords) Set(_ context.Context, userUID, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.passwords[userUID] = hash
	return nil
}

func (r memPasswords) Hash(_ context.Context, userUID string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	h, ok := r.s.passwords[userUID]
	if !ok {
		return "", pg.ErrNotFound
	}
	return h, nil
}

type memAllowances struct{ s *memStore }

func (r memAllowances) Create(_ context.Context, a *allowance.Allowance) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *a
	r.s.allowances[a.UID] = &cp
	return nil
}

func (r memAllowances) GetByUID(_ context.Context, uid string) (*allowance.Allowance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.allowances[uid]
	if !ok {
		return nil, pg.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r memAllowances) GetByUser(_ context.Context, userUID string) (*allowance.Allowance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.allowances {
		if a.UserUID == userUID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, pg.ErrNotFound
}

func (r memAllowances) Update(_ context.Context, a *allowance.Allowance) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.allowances[a.UID]; !ok {
		return pg.ErrNotFound
	}
	cp := *a
	r.s.allowances[a.UID] = &cp
	return nil
}

func (r memAllowances) PayDue(context.Context, time.Time) (int64, error) { return 0, nil }

type memRequests struct{ s *memStore }

func (r memRequests) Create(_ context.Context, rq *request.Request) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextReq++
	rq.UID = r.s.nextReq
	cp := *rq
	r.s.requests[rq.UID] = &cp
	return nil
}

func (r memRequests) GetByUID(_ context.Context, uid int64) (*request.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rq, ok := r.s.requests[uid]
	if !ok {
		return nil, pg.ErrNotFound
	}
	cp := *rq
	return &cp, nil
}

func (r memRequests) ListByUser(_ context.Context, userUID string) ([]*request.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*request.Request
	for _, rq := range r.s.requests {
		if rq.UserUID == userUID {
			cp := *rq
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

func (r memRequests) Delete(_ context.Context, uid int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.requests[uid]; !ok {
		return pg.ErrNotFound
	}
	delete(r.s.requests, uid)
	return nil
}

type memLedger struct{ s *memStore }

func (r memLedger) Create(_ context.Context, t *transaction.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextTx++
	t.UID = r.s.nextTx
	cp := *t
	r.s.ledger = append(r.s.ledger, &cp)
	return nil
}

func (r memLedger) ListByUser(_ context.Context, userUID string, limit int) ([]*transaction.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*transaction.Transaction
	for i := len(r.s.ledger) - 1; i >= 0 && len(out) < limit; i-- {
		if r.s.ledger[i].UserUID == userUID {
			cp := *r.s.ledger[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r memLedger) BalanceByUser(_ context.Context, userUID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var sum int64
	for _, t := range r.s.ledger {
		if t.UserUID == userUID {
			sum += t.Amount
		}
	}
	return sum, nil
}

type memInvites struct{ s *memStore }

func (r memInvites) Create(_ context.Context, inv *invitation.Invitation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *inv
	r.s.invites[inv.UID] = &cp
	return nil
}

func (r memInvites) GetByUID(_ context.Context, uid string) (*invitation.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invites[uid]
	if !ok {
		return nil, pg.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (r memInvites) ListByFamily(_ context.Context, familyUID string) ([]*invitation.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*invitation.Invitation
	for _, inv := range r.s.invites {
		if inv.FamilyUID == familyUID {
			cp := *inv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

func (r memInvites) Delete(_ context.Context, uid string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.invites[uid]; !ok {
		return pg.ErrNotFound
	}
	delete(r.s.invites, uid)
	return nil
}

func (r memInvites) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for uid, inv := range r.s.invites {
		if inv.Time.Before(cutoff) {
			delete(r.s.invites, uid)
			n++
		}
	}
	return n, nil
}

const testJWTSecret = "test-secret"

// newTestServer wires a Server over the in-memory store and the given
// channel backend.
func newTestServer(store *memStore, backend channel.Backend) *Server {
	users := memUsers{s: store}
	return &Server{
		Log: zap.NewNop(),
		Auth: config.Auth{
			JWTSecret:  testJWTSecret,
			SessionTTL: time.Hour,
		},
		Tx:         memTx{},
		Users:      users,
		Families:   memFamilies{s: store},
		Passwords:  memPasswords{s: store},
		Allowances: memAllowances{s: store},
		Requests:   memRequests{s: store},
		Ledger:     memLedger{s: store},
		Invites:    memInvites{s: store},
		Dispatch:   notify.NewDispatcher(users, backend, zap.NewNop()),
		Channels:   backend,
		Mail:       NopMailer{Log: zap.NewNop()},
	}
}
