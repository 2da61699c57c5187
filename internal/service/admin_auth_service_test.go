package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"campuspark/internal/db"
	apperrors "campuspark/internal/errors"
)

type fakeAdminRepo struct {
	admins map[string]string // email -> password hash
}

func newFakeAdminRepo() *fakeAdminRepo {
	return &fakeAdminRepo{admins: make(map[string]string)}
}

func (r *fakeAdminRepo) GetByEmail(email string) (*db.Admin, error) {
	hash, ok := r.admins[email]
	if !ok {
		return nil, nil
	}
	return &db.Admin{ID: 1, Email: email, PasswordHash: hash}, nil
}

func (r *fakeAdminRepo) CreateAdmin(email, passwordHash string) error {
	r.admins[email] = passwordHash
	return nil
}

func TestCreateAdminRejectsEmptyCredentials(t *testing.T) {
	svc := NewAdminAuthService(newFakeAdminRepo())

	assert.ErrorIs(t, svc.CreateAdmin("", "secret"), apperrors.ErrValidation)
	assert.ErrorIs(t, svc.CreateAdmin("ops@campus.edu", ""), apperrors.ErrValidation)
}

func TestCreateAdminStoresBcryptHash(t *testing.T) {
	repo := newFakeAdminRepo()
	svc := NewAdminAuthService(repo)

	require.NoError(t, svc.CreateAdmin("ops@campus.edu", "secret"))
	hash := repo.admins["ops@campus.edu"]
	require.NotEmpty(t, hash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret")))
}

func TestLoginIssuesTokenForValidCredentials(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	repo := newFakeAdminRepo()
	svc := NewAdminAuthService(repo)
	require.NoError(t, svc.CreateAdmin("ops@campus.edu", "secret"))

	token, err := svc.Login("ops@campus.edu", "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = svc.Login("ops@campus.edu", "wrong")
	assert.Error(t, err)

	_, err = svc.Login("ghost@campus.edu", "secret")
	assert.Error(t, err)
}
