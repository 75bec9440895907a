package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	u := User{Email: "ada@example.com", PasswordHash: hash}

	assert.NoError(t, u.CheckPassword("s3cret-pass"))
	assert.ErrorIs(t, u.CheckPassword("wrong"), ErrInvalidCredentials)
	assert.ErrorIs(t, u.CheckPassword(""), ErrInvalidCredentials)
	assert.ErrorIs(t, User{}.CheckPassword("anything"), ErrInvalidCredentials)
}

func TestIsAdmin(t *testing.T) {
	assert.False(t, User{Role: RoleUser}.IsAdmin())
	assert.True(t, User{Role: RoleAdmin}.IsAdmin())
	assert.True(t, User{Role: RoleSuperAdmin}.IsAdmin())
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(User{Email: " Ada@Example.com ", Role: RoleUser, IsActive: true})

	u, err := m.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)

	require.NoError(t, m.SetProfilePicture(ctx, "ADA@example.com", "https://img/ada.jpg"))
	u, err = m.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://img/ada.jpg", u.ProfilePicture)

	_, err = m.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.SetProfilePicture(ctx, "nobody@example.com", "x"), ErrNotFound)
}
