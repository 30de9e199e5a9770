package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/jcalloway/tillpoint-backend/pkg/errors"
	"github.com/jcalloway/tillpoint-backend/pkg/db/models"
)

type stubMemberService struct {
	member *models.Member
	list   []models.Member
	err    error
}

func (s stubMemberService) List(ctx context.Context) ([]models.Member, error) {
	return s.list, s.err
}

func (s stubMemberService) Get(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	return s.member, s.err
}

func (s stubMemberService) Lookup(ctx context.Context, phone string) (*models.Member, error) {
	return s.member, s.err
}

func (s stubMemberService) Register(ctx context.Context, name, phone string) (*models.Member, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Member{ID: uuid.New(), Name: name, Phone: phone}, nil
}

func (s stubMemberService) AdjustPoints(ctx context.Context, id uuid.UUID, delta int) (*models.Member, error) {
	return s.member, s.err
}

func (s stubMemberService) SetFrozen(ctx context.Context, id uuid.UUID, frozen bool) (*models.Member, error) {
	return s.member, s.err
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestMemberLookupRequiresPhone(t *testing.T) {
	handler := MemberLookup(stubMemberService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/members/lookup", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestMemberLookupSuccess(t *testing.T) {
	member := &models.Member{ID: uuid.New(), Name: "Dana", Phone: "555-0100", Points: 120}
	handler := MemberLookup(stubMemberService{member: member}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/members/lookup?phone=555-0100", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	var envelope struct {
		Data models.Member `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != member.ID {
		t.Fatalf("expected id %s got %s", member.ID, envelope.Data.ID)
	}
	if envelope.Data.Points != 120 {
		t.Fatalf("expected 120 points got %d", envelope.Data.Points)
	}
}

func TestMemberRegisterCreated(t *testing.T) {
	handler := MemberRegister(stubMemberService{}, nil)

	body := bytes.NewBufferString(`{"name":"Dana","phone":"555-0100"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/members", body)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rec.Code)
	}
}

func TestMemberRegisterValidation(t *testing.T) {
	handler := MemberRegister(stubMemberService{}, nil)

	body := bytes.NewBufferString(`{"name":"Dana"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/members", body)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestMemberRegisterDuplicateConflict(t *testing.T) {
	handler := MemberRegister(stubMemberService{err: pkgerrors.New(pkgerrors.CodeConflict, "phone already registered")}, nil)

	body := bytes.NewBufferString(`{"name":"Dana","phone":"555-0100"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/members", body)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
}

func TestMemberDetailInvalidID(t *testing.T) {
	handler := MemberDetail(stubMemberService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/members/nope", nil)
	req = withURLParam(req, "memberId", "nope")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
