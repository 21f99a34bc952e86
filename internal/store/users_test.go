package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/storekeeper/internal/db"
	"github.com/erazemk/storekeeper/internal/model"
)

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, "Test User", "Test@Example.com ", "hash123", model.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, "test@example.com", user.Email, "email is normalized")
	assert.Equal(t, model.RoleUser, user.Role)
	assert.True(t, user.Active)

	got, err := GetUser(ctx, database, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test User", got.Name)

	_, err = GetUser(ctx, database, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := CreateUser(ctx, database, "A", "a@example.com", "hash", model.RoleUser)
	require.NoError(t, err)

	_, err = CreateUser(ctx, database, "B", "A@example.com", "hash", model.RoleUser)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestGetUserByEmail(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := CreateUser(ctx, database, "Alice", "alice@example.com", "hash", model.RoleAdmin)
	require.NoError(t, err)

	user, err := GetUserByEmail(ctx, database, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)

	_, err = GetUserByEmail(ctx, database, "bob@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListUsers(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com"} {
		_, err := CreateUser(ctx, database, email[:1], email, "hash", model.RoleUser)
		require.NoError(t, err)
	}

	users, err := ListUsers(ctx, database)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestDeleteUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, "deleteme", "del@example.com", "hash", model.RoleUser)
	require.NoError(t, err)
	require.NoError(t, DeleteUser(ctx, database, user.ID))

	users, err := ListUsers(ctx, database)
	require.NoError(t, err)
	assert.Empty(t, users)

	// The email is free again once the old account is deleted.
	_, err = CreateUser(ctx, database, "again", "del@example.com", "hash", model.RoleUser)
	assert.NoError(t, err)

	assert.ErrorIs(t, DeleteUser(ctx, database, user.ID), ErrNotFound)
}

func TestUpdateUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, "Bob", "bob@example.com", "hash", model.RoleUser)
	require.NoError(t, err)

	role := model.RoleAdmin
	name := "Robert"
	got, err := UpdateUser(ctx, database, user.ID, UserUpdate{Name: &name, Role: &role})
	require.NoError(t, err)
	assert.Equal(t, "Robert", got.Name)
	assert.Equal(t, model.RoleAdmin, got.Role)

	bad := "overlord"
	_, err = UpdateUser(ctx, database, user.ID, UserUpdate{Role: &bad})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSetUserActive(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, "Carol", "carol@example.com", "hash", model.RoleUser)
	require.NoError(t, err)

	got, err := SetUserActive(ctx, database, user.ID, false)
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestUpdateUserPassword(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, "pwuser", "pw@example.com", "oldhash", model.RoleUser)
	require.NoError(t, err)
	require.NoError(t, UpdateUserPassword(ctx, database, user.ID, "newhash"))

	got, err := GetUser(ctx, database, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "newhash", got.PasswordHash)
}
