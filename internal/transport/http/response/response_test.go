package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	reqctx "github.com/baechuer/real-time-ressys/services/account-service/internal/pkg/context"
)

// ---------- helpers ----------

func mustDecodeJSONLine(t *testing.T, b []byte, dst any) {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(dst); err != nil {
		t.Fatalf("decode json: %v, body=%q", err, string(b))
	}
}

func newReqWithBody(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// ---------- DecodeJSON ----------

type decodeDst struct {
	A string `json:"a"`
	B int    `json:"b"`
}

func TestDecodeJSON_OK_SingleObject(t *testing.T) {
	var dst decodeDst
	if err := DecodeJSON(httptest.NewRecorder(), newReqWithBody(t, `{"a":"x","b":1}`), &dst); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if dst.A != "x" || dst.B != 1 {
		t.Fatalf("unexpected dst: %+v", dst)
	}
}

func TestDecodeJSON_Rejections(t *testing.T) {
	cases := map[string]string{
		"unknown field":  `{"a":"x","b":1,"c":"oops"}`,
		"truncated":      `{"a":"x",`,
		"multiple":       `{}{}`,
		"empty":          ``,
		"wrong type":     `{"b":"one"}`,
		"oversized body": `{"a":"` + strings.Repeat("x", maxBodyBytes) + `"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var dst decodeDst
			err := DecodeJSON(httptest.NewRecorder(), newReqWithBody(t, body), &dst)
			if !domain.Is(err, "invalid_json") {
				t.Fatalf("expected invalid_json, got %v", err)
			}
		})
	}
}

// ---------- WriteError ----------

func TestWriteError_DomainError_MapsStatusCodeAndPayload(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req = req.WithContext(reqctx.WithRequestID(req.Context(), "req-123"))
	rr := httptest.NewRecorder()

	WriteError(rr, req, domain.ErrMissingField("email"))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("expected content-type json, got %q", ct)
	}

	var body ErrorBody
	mustDecodeJSONLine(t, rr.Body.Bytes(), &body)

	if body.Error.Code != "missing_field" {
		t.Fatalf("expected code missing_field, got %q", body.Error.Code)
	}
	if body.Error.Meta["field"] != "email" {
		t.Fatalf("expected meta.field=email, got %+v", body.Error.Meta)
	}
	if body.Error.RequestID != "req-123" {
		t.Fatalf("expected request_id req-123, got %q", body.Error.RequestID)
	}
}

func TestWriteError_AccountErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
		code string
	}{
		{domain.ErrUserNotFound(), http.StatusNotFound, "user_not_found"},
		{domain.ErrInvalidCredentials(), http.StatusUnauthorized, "invalid_credentials"},
		{domain.ErrUnauthorized(), http.StatusUnauthorized, "unauthorized"},
		{domain.ErrForbidden("ADMIN"), http.StatusForbidden, "forbidden"},
		{domain.ErrInactiveAccount(), http.StatusBadRequest, "inactive_account"},
		{domain.ErrEmailAlreadyExists(), http.StatusBadRequest, "email_already_exists"},
		{domain.ErrRateLimited("login"), http.StatusTooManyRequests, "rate_limited"},
		{domain.ErrDBUnavailable(errors.New("dial tcp")), http.StatusServiceUnavailable, "db_unavailable"},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		WriteError(rr, httptest.NewRequest(http.MethodGet, "/x", nil), tc.err)

		if rr.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.code, tc.want, rr.Code)
		}
		var body ErrorBody
		mustDecodeJSONLine(t, rr.Body.Bytes(), &body)
		if body.Error.Code != tc.code {
			t.Fatalf("expected %s, got %q", tc.code, body.Error.Code)
		}
		if strings.Contains(rr.Body.String(), "dial tcp") {
			t.Fatalf("cause leaked: %s", rr.Body.String())
		}
	}
}

func TestWriteError_NonDomainError_HidesDetailsAndReturns500(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, httptest.NewRequest(http.MethodGet, "/x", nil), errors.New("boom"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}

	var body ErrorBody
	mustDecodeJSONLine(t, rr.Body.Bytes(), &body)

	if body.Error.Code != "internal_error" || body.Error.Message != "internal error" {
		t.Fatalf("unexpected payload: %+v", body.Error)
	}
	if len(body.Error.Meta) != 0 {
		t.Fatalf("expected empty meta, got %+v", body.Error.Meta)
	}
}

func TestStatusFromKind_Mapping(t *testing.T) {
	cases := []struct {
		kind domain.ErrKind
		want int
	}{
		{domain.KindValidation, http.StatusBadRequest},
		{domain.KindAuth, http.StatusUnauthorized},
		{domain.KindForbidden, http.StatusForbidden},
		{domain.KindNotFound, http.StatusNotFound},
		{domain.KindRateLimited, http.StatusTooManyRequests},
		{domain.KindInfrastructure, http.StatusServiceUnavailable},
		{domain.KindInternal, http.StatusInternalServerError},
		{"unknown", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := StatusFromKind(tc.kind); got != tc.want {
			t.Fatalf("kind=%q expected %d got %d", tc.kind, tc.want, got)
		}
	}
}

// ---------- success ----------

func TestCreated_WritesBody(t *testing.T) {
	rr := httptest.NewRecorder()
	Created(rr, map[string]int{"id": 1})

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	if strings.TrimSpace(rr.Body.String()) != `{"id":1}` {
		t.Fatalf("unexpected body %q", rr.Body.String())
	}
}
