package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kirana-erp/kirana-erp/internal/shared"
)

type memoryOwnerRepo struct {
	nextID int64
	byMail map[string]*Owner
}

func newMemoryOwnerRepo() *memoryOwnerRepo {
	return &memoryOwnerRepo{nextID: 1, byMail: make(map[string]*Owner)}
}

func (r *memoryOwnerRepo) FindByEmail(ctx context.Context, email string) (*Owner, error) {
	o, ok := r.byMail[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *memoryOwnerRepo) CreateOwner(ctx context.Context, email, passwordHash, shopName string) (*Owner, error) {
	if _, ok := r.byMail[email]; ok {
		return nil, ErrEmailTaken
	}
	o := &Owner{ID: r.nextID, Email: email, PasswordHash: passwordHash, ShopName: shopName}
	r.nextID++
	r.byMail[email] = o
	cp := *o
	return &cp, nil
}

func TestRegisterHashesPassword(t *testing.T) {
	repo := newMemoryOwnerRepo()
	svc := NewService(repo)

	owner, err := svc.Register(context.Background(), "owner@shop.in", "s3cret-pass", "Sharma Kirana")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret-pass", owner.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(owner.PasswordHash), []byte("s3cret-pass")))
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	repo := newMemoryOwnerRepo()
	svc := NewService(repo)

	_, err := svc.Register(context.Background(), "owner@shop.in", "s3cret-pass", "Sharma Kirana")
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), "owner@shop.in", "other-pass", "Other Shop")
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestAuthenticate(t *testing.T) {
	repo := newMemoryOwnerRepo()
	svc := NewService(repo)
	_, err := svc.Register(context.Background(), "owner@shop.in", "s3cret-pass", "Sharma Kirana")
	require.NoError(t, err)

	owner, err := svc.Authenticate(context.Background(), "owner@shop.in", "s3cret-pass")
	require.NoError(t, err)
	require.Equal(t, "Sharma Kirana", owner.ShopName)

	_, err = svc.Authenticate(context.Background(), "owner@shop.in", "wrong-pass")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "nobody@shop.in", "s3cret-pass")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}
