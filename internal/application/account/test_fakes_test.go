package account

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

/*
Shared audit capture
*/

type auditEntry struct {
	action string
	fields map[string]string
}

/*
Fakes for ports
*/

type fakeUserRepo struct {
	mu sync.Mutex

	nextID  int64
	byID    map[int64]domain.User
	byEmail map[string]int64

	// injected errors (if set, method returns error)
	getByIDErr    error
	getByEmailErr error
	createErr     error
	saveErr       error
	listErr       error

	saves int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    map[int64]domain.User{},
		byEmail: map[string]int64{},
	}
}

func (f *fakeUserRepo) put(u domain.User) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()

	if u.ID == 0 {
		f.nextID++
		u.ID = f.nextID
	} else if u.ID > f.nextID {
		f.nextID = u.ID
	}
	f.byID[u.ID] = u
	f.byEmail[u.Email] = u.ID
	return u
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getByEmailErr != nil {
		return domain.User{}, f.getByEmailErr
	}
	id, ok := f.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return f.byID[id], nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int64) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getByIDErr != nil {
		return domain.User{}, f.getByIDErr
	}
	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return domain.User{}, f.createErr
	}
	if _, ok := f.byEmail[u.Email]; ok {
		return domain.User{}, domain.ErrEmailAlreadyExists()
	}
	f.nextID++
	u.ID = f.nextID
	f.byID[u.ID] = u
	f.byEmail[u.Email] = u.ID
	return u, nil
}

func (f *fakeUserRepo) Save(ctx context.Context, u domain.User) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.saveErr != nil {
		return domain.User{}, f.saveErr
	}
	if _, ok := f.byID[u.ID]; !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	f.byID[u.ID] = u
	f.saves++
	return u, nil
}

func (f *fakeUserRepo) List(ctx context.Context) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.User, 0, len(f.byID))
	for id := int64(1); id <= f.nextID; id++ {
		if u, ok := f.byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// fakeTx snapshots the repo and restores it when fn fails.
type fakeTx struct {
	repo    *fakeUserRepo
	commits int
	aborts  int
	open    int // transactions currently running
}

func (t *fakeTx) WithTx(ctx context.Context, fn func(tx UserRepo) error) error {
	t.repo.mu.Lock()
	nextID := t.repo.nextID
	byID := make(map[int64]domain.User, len(t.repo.byID))
	for k, v := range t.repo.byID {
		byID[k] = v
	}
	byEmail := make(map[string]int64, len(t.repo.byEmail))
	for k, v := range t.repo.byEmail {
		byEmail[k] = v
	}
	t.repo.mu.Unlock()

	t.open++
	err := fn(t.repo)
	t.open--
	if err != nil {
		t.repo.mu.Lock()
		t.repo.nextID, t.repo.byID, t.repo.byEmail = nextID, byID, byEmail
		t.repo.mu.Unlock()
		t.aborts++
		return err
	}
	t.commits++
	return nil
}

type fakeHasher struct {
	hashFn func(pw string) (string, error)
}

func (h *fakeHasher) Hash(pw string) (string, error) {
	if h.hashFn != nil {
		return h.hashFn(pw)
	}
	return "hash:" + pw, nil
}

func (h *fakeHasher) Verify(candidate, stored string) bool {
	return stored == "hash:"+candidate
}

type fakeTokens struct {
	issueErr error
	issued   []domain.User
}

func (f *fakeTokens) Issue(u domain.User) (string, error) {
	if f.issueErr != nil {
		return "", f.issueErr
	}
	f.issued = append(f.issued, u)
	return "tok:" + u.Email, nil
}

func (f *fakeTokens) Verify(token string) (Identity, error) {
	email, ok := strings.CutPrefix(token, "tok:")
	if !ok {
		return Identity{}, domain.ErrTokenInvalid(errors.New("bad token"))
	}
	return Identity{Email: email}, nil
}

func (f *fakeTokens) TTL() time.Duration { return 30 * time.Minute }

type fakePublisher struct {
	mu   sync.Mutex
	err  error
	evts []Event
}

func (p *fakePublisher) PublishAccountEvent(ctx context.Context, evt Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.evts = append(p.evts, evt)
	return nil
}

func (p *fakePublisher) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]EventType, len(p.evts))
	for i, e := range p.evts {
		out[i] = e.Type
	}
	return out
}

/*
Service factory for tests
*/

type testDeps struct {
	users  *fakeUserRepo
	tx     *fakeTx
	hasher *fakeHasher
	tokens *fakeTokens
	pub    *fakePublisher
	audits *[]auditEntry
}

func newSvcForTest(t *testing.T) (*Service, testDeps) {
	t.Helper()

	users := newFakeUserRepo()
	d := testDeps{
		users:  users,
		tx:     &fakeTx{repo: users},
		hasher: &fakeHasher{},
		tokens: &fakeTokens{},
		pub:    &fakePublisher{},
		audits: &[]auditEntry{},
	}

	svc := NewService(d.users, d.tx, d.hasher, d.tokens, d.pub).
		WithAudit(func(action string, fields map[string]string) {
			cp := map[string]string{}
			for k, v := range fields {
				cp[k] = v
			}
			*d.audits = append(*d.audits, auditEntry{action: action, fields: cp})
		}).
		WithClock(func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) })

	return svc, d
}

/*
Small assertions
*/

func requireDomainCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	got := domainCode(err)
	if got != wantCode {
		t.Fatalf("expected domain code %q, got %q (err=%v)", wantCode, got, err)
	}
}

func requireAuditAction(t *testing.T, audits *[]auditEntry, wantAction string) auditEntry {
	t.Helper()
	if audits == nil || len(*audits) == 0 {
		t.Fatalf("expected audit entry, got none")
	}
	e := (*audits)[len(*audits)-1]
	if e.action != wantAction {
		t.Fatalf("expected audit action %q, got %q", wantAction, e.action)
	}
	return e
}

func requireAuditField(t *testing.T, e auditEntry, k, want string) {
	t.Helper()
	got := strings.TrimSpace(e.fields[k])
	if got != want {
		t.Fatalf("expected audit field %q=%q, got %q (all=%v)", k, want, got, e.fields)
	}
}
