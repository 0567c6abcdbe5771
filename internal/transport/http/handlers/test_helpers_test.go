package http_handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/account"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/memory"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/security"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/seed"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/response"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/router"
)

type testApp struct {
	h      http.Handler
	repo   *memory.UserRepo
	signer *security.JWTSigner
	hasher *security.BcryptHasher
}

// newTestApp wires the real service, middleware and router over the
// in-memory store. admin@x.com (ADMIN) and viewer@x.com (VIEWER) exist and
// are active; both use the password Secret123.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	repo := memory.NewUserRepo()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	signer := security.NewJWTSigner("handler-secret", "account-service")
	svc := account.NewService(repo, repo, hasher, signer, memory.NewNoopPublisher(zerolog.Nop()))

	n := seed.SeedUsers(context.Background(), repo, hasher, []seed.SeedUser{
		{Email: "admin@x.com", Username: "admin", Password: "Secret123", Role: domain.RoleAdmin},
		{Email: "viewer@x.com", Username: "viewer", Password: "Secret123", Role: domain.RoleViewer},
	}, zerolog.Nop())
	require.Equal(t, 2, n)

	users := NewUserHandler(svc)
	h, err := router.New(router.Deps{
		Health:  NewHealthHandler(nil),
		Users:   users,
		AuthMW:  middleware.Authenticate(signer, response.WriteError),
		AnyMW:   middleware.Authorize(account.Require(repo, domain.RoleAny), response.WriteError),
		AdminMW: middleware.Authorize(account.Require(repo, domain.RoleAdmin), response.WriteError),
	})
	require.NoError(t, err)

	return &testApp{h: h, repo: repo, signer: signer, hasher: hasher}
}

func (a *testApp) tokenFor(t *testing.T, email string) string {
	t.Helper()
	u, err := a.repo.GetByEmail(context.Background(), email)
	require.NoError(t, err)
	tok, err := a.signer.Issue(u)
	require.NoError(t, err)
	return tok
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		rdr = mustJSONBody(t, b)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	a.h.ServeHTTP(rr, req)
	return rr
}

// mustJSONBody marshals v to JSON and returns an io.Reader for request body.
func mustJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json marshal: %v", err)
	}
	return bytes.NewReader(b)
}

func mustReadJSON(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), out); err != nil {
		t.Fatalf("decode json failed; body=%s err=%v", rr.Body.String(), err)
	}
}

func errCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body response.ErrorBody
	mustReadJSON(t, rr, &body)
	return body.Error.Code
}
