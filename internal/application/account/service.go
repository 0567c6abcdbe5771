package account

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

type Service struct {
	users  UserRepo
	tx     TxManager
	hasher PasswordHasher
	tokens TokenIssuer
	pub    EventPublisher

	audit func(action string, fields map[string]string)
	now   func() time.Time
}

func NewService(
	users UserRepo,
	tx TxManager,
	hasher PasswordHasher,
	tokens TokenIssuer,
	pub EventPublisher,
) *Service {
	return &Service{
		users:  users,
		tx:     tx,
		hasher: hasher,
		tokens: tokens,
		pub:    pub,
		audit:  func(string, map[string]string) {},
		now:    time.Now,
	}
}

func (s *Service) WithAudit(fn func(action string, fields map[string]string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// AccessToken is what login hands back to the client.
type AccessToken struct {
	Token     string
	TokenType string // "bearer"
	ExpiresIn int64  // seconds
}

type LoginResult struct {
	User  domain.User
	Token AccessToken
}

// publish is best effort: the change it reports is already committed.
func (s *Service) publish(ctx context.Context, typ EventType, u domain.User) {
	if s.pub == nil {
		return
	}
	evt := Event{
		Type:       typ,
		UserID:     u.ID,
		Email:      u.Email,
		Role:       u.RoleID.String(),
		OccurredAt: s.now().UTC(),
	}
	if err := s.pub.PublishAccountEvent(ctx, evt); err != nil {
		s.audit("event.publish_failed", map[string]string{
			"event":      string(typ),
			"user_id":    idString(u.ID),
			"error_code": domainCode(err),
		})
	}
}

func domainCode(err error) string {
	if err == nil {
		return ""
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "non_domain_error"
}

// hashError keeps validation errors from the hasher and wraps the rest.
func hashError(err error) error {
	if domain.KindOf(err) == domain.KindValidation {
		return err
	}
	return domain.ErrHashFailed(err)
}

func idString(id int64) string { return strconv.FormatInt(id, 10) }
