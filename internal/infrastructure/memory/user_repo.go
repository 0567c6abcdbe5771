package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/account"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// UserRepo is an in-process stand-in for the users table. It also acts as
// its own TxManager: a transaction works on a private copy that replaces
// the shared state only on commit.
type UserRepo struct {
	txMu sync.Mutex // serializes transactions

	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]domain.User
	byEmail map[string]int64
	now     func() time.Time
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		byID:    make(map[int64]domain.User),
		byEmail: make(map[string]int64),
		now:     time.Now,
	}
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return r.byID[id], nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u.Email = domain.NormalizeEmail(u.Email)
	if u.Email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	if _, exists := r.byEmail[u.Email]; exists {
		return domain.User{}, domain.ErrEmailAlreadyExists()
	}
	if u.RoleID == domain.RoleAny {
		u.RoleID = domain.DefaultRole
	}
	// stands in for the roles foreign key
	if !u.RoleID.Valid() {
		return domain.User{}, domain.ErrInvalidRole(u.RoleID.String())
	}

	r.nextID++
	u.ID = r.nextID
	u.CreatedAt = r.now().UTC()
	u.UpdatedAt = u.CreatedAt
	r.byID[u.ID] = u
	r.byEmail[u.Email] = u.ID
	return u, nil
}

func (r *UserRepo) Save(ctx context.Context, u domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[u.ID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	if !u.RoleID.Valid() {
		return domain.User{}, domain.ErrInvalidRole(u.RoleID.String())
	}

	// email and created_at are not writable through Save
	cur.Username = u.Username
	cur.PasswordHash = u.PasswordHash
	cur.IsActive = u.IsActive
	cur.RoleID = u.RoleID
	cur.UpdatedAt = r.now().UTC()
	r.byID[cur.ID] = cur
	return cur, nil
}

func (r *UserRepo) List(ctx context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// WithTx runs fn against a copy and publishes the copy only if fn succeeds.
// A panic in fn leaves the shared state untouched and is rethrown.
func (r *UserRepo) WithTx(ctx context.Context, fn func(tx account.UserRepo) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return domain.ErrDBUnavailable(err)
	}

	work := r.clone()
	if err := fn(work); err != nil {
		return err
	}

	work.mu.RLock()
	defer work.mu.RUnlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID, r.byID, r.byEmail = work.nextID, work.byID, work.byEmail
	return nil
}

func (r *UserRepo) clone() *UserRepo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c := &UserRepo{
		nextID:  r.nextID,
		byID:    make(map[int64]domain.User, len(r.byID)),
		byEmail: make(map[string]int64, len(r.byEmail)),
		now:     r.now,
	}
	for k, v := range r.byID {
		c.byID[k] = v
	}
	for k, v := range r.byEmail {
		c.byEmail[k] = v
	}
	return c
}
