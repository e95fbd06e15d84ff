package repos_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatekeeper/internal/domain"
	"gatekeeper/internal/repos"
)

func newRepo(t *testing.T) *repos.UserRepo {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return repos.NewUserRepo(db)
}

func TestInsertAssignsIDAndDefaults(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)

	u := &domain.User{Email: "a@x.com", Name: "A", Hash: "$2a$04$hash"}
	require.NoError(t, r.Insert(ctx, u))
	_, err := uuid.Parse(u.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.False(t, u.CreatedAt.IsZero())

	got, err := r.ByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got.Email)
	assert.Equal(t, "$2a$04$hash", got.Hash)
	assert.False(t, got.Approved)
	assert.WithinDuration(t, u.CreatedAt, got.CreatedAt, 1e9)
}

func TestInsertDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)

	require.NoError(t, r.Insert(ctx, &domain.User{Email: "a@x.com", Name: "A", Hash: "h"}))
	err := r.Insert(ctx, &domain.User{Email: "a@x.com", Name: "B", Hash: "h2"})
	require.ErrorIs(t, err, domain.ErrDuplicateEmail)

	// The case-insensitive index catches differently cased input too.
	err = r.Insert(ctx, &domain.User{Email: "A@X.COM", Name: "C", Hash: "h3"})
	require.ErrorIs(t, err, domain.ErrDuplicateEmail)

	got, err := r.ByEmail(ctx, "A@x.com")
	require.NoError(t, err)
	assert.Equal(t, "A", got.Name)
}

func TestLookupsNotFound(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)

	_, err := r.ByEmail(ctx, "missing@x.com")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = r.ByID(ctx, uuid.NewString())
	require.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = r.Approve(ctx, uuid.NewString())
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestApproveAndListPending(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)

	a := &domain.User{Email: "a@x.com", Name: "A", Hash: "h"}
	b := &domain.User{Email: "b@x.com", Name: "B", Hash: "h"}
	admin := &domain.User{Email: "root@x.com", Name: "Root", Hash: "h", Approved: true, Role: domain.RoleAdmin}
	for _, u := range []*domain.User{a, b, admin} {
		require.NoError(t, r.Insert(ctx, u))
	}

	pending, err := r.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	approved, err := r.Approve(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, approved.Approved)

	// Approving twice is harmless.
	_, err = r.Approve(ctx, a.ID)
	require.NoError(t, err)

	pending, err = r.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, b.ID, pending[0].ID)
}

func TestStoreErrorsAreWrapped(t *testing.T) {
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	r := repos.NewUserRepo(db)
	require.NoError(t, db.Close())

	_, err = r.ByEmail(context.Background(), "a@x.com")
	require.ErrorIs(t, err, domain.ErrStore)
	assert.NotErrorIs(t, err, domain.ErrUserNotFound)
}
