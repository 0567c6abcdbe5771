package account

import (
	"context"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

/*
UserRepo
--------
Persistence port for users.
Create must report a uniqueness violation on email as
domain.ErrEmailAlreadyExists and never leak driver details.
*/
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, id int64) (domain.User, error)
	Create(ctx context.Context, u domain.User) (domain.User, error)
	Save(ctx context.Context, u domain.User) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}

/*
TxManager
---------
Runs fn inside a single transaction. Commits when fn returns nil,
rolls back on error or panic.
*/
type TxManager interface {
	WithTx(ctx context.Context, fn func(tx UserRepo) error) error
}

// UserLookup is the slice of UserRepo the authorization gate needs.
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (domain.User, error)
}

/*
PasswordHasher
--------------
Verify never errors: any mismatch or malformed stored hash is false.
*/
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(candidate, storedHash string) bool
}

/*
TokenIssuer
-----------
Issues and verifies access tokens (JWT).
Used by service + auth middleware.
*/
type Identity struct {
	UserID    int64
	Username  string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type TokenIssuer interface {
	Issue(u domain.User) (string, error)
	Verify(token string) (Identity, error)
	TTL() time.Duration
}

/*
EventPublisher
--------------
Publishes account lifecycle events to RabbitMQ.
Delivery failures never undo a committed change.
*/
type EventPublisher interface {
	PublishAccountEvent(ctx context.Context, evt Event) error
}

type EventType string

const (
	EventRegistered  EventType = "user.registered"
	EventUpdated     EventType = "user.updated"
	EventActivated   EventType = "user.activated"
	EventDeactivated EventType = "user.deactivated"
	EventRoleChanged EventType = "user.role_changed"
)

type Event struct {
	Type       EventType `json:"type"`
	UserID     int64     `json:"user_id"`
	Email      string    `json:"email"`
	Role       string    `json:"role,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
