package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "campuspark/internal/errors"
)

type stubAdminAuthService struct {
	createErr error
}

func (s *stubAdminAuthService) Login(email, password string) (string, error) {
	return "token", nil
}

func (s *stubAdminAuthService) CreateAdmin(email, password string) error {
	return s.createErr
}

func TestCreateAdminMapsValidationToBadRequest(t *testing.T) {
	h := NewAdminAuthHandler(&stubAdminAuthService{
		createErr: fmt.Errorf("%w: email and password are required", apperrors.ErrValidation),
	})

	req := httptest.NewRequest(http.MethodPost, "/admin/admins", strings.NewReader(`{"email":"","password":""}`))
	rec := httptest.NewRecorder()
	h.CreateAdmin(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateAdminMapsUnknownErrorToInternal(t *testing.T) {
	h := NewAdminAuthHandler(&stubAdminAuthService{createErr: errors.New("db is down")})

	req := httptest.NewRequest(http.MethodPost, "/admin/admins", strings.NewReader(`{"email":"ops@campus.edu","password":"secret"}`))
	rec := httptest.NewRecorder()
	h.CreateAdmin(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
