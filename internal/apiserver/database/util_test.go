package database

import (
	"context"
	"errors"
	"testing"

	"github.com/amoylab/hydrowatch/internal/common/cnst"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestInitSuperAdmin_Idempotent(t *testing.T) {
	db := newTestSQLite(t)
	ctx := context.Background()

	created, err := InitSuperAdmin(ctx, db, "root", "root@x.io", "hash")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = InitSuperAdmin(ctx, db, "root2", "root2@x.io", "hash")
	require.NoError(t, err)
	assert.False(t, created)

	u, err := db.GetUserByEmail(ctx, "root@x.io")
	require.NoError(t, err)
	assert.Equal(t, cnst.RoleSuperAdmin, u.Role)
	assert.True(t, u.EmailVerified)
}

func TestInitSuperAdmin_SkipsWithoutConfig(t *testing.T) {
	db := newTestSQLite(t)
	created, err := InitSuperAdmin(context.Background(), db, "", "", "")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil))
	assert.ErrorIs(t, mapError(gorm.ErrRecordNotFound), cnst.ErrNotFound)
	assert.ErrorIs(t, mapError(gorm.ErrDuplicatedKey), cnst.ErrDuplicate)
	assert.ErrorIs(t, mapError(errors.New(`pq: duplicate key value violates unique constraint "users_email_key"`)), cnst.ErrDuplicate)
	assert.ErrorIs(t, mapError(errors.New("Error 1062: Duplicate entry 'a' for key 'name'")), cnst.ErrDuplicate)
	assert.ErrorIs(t, mapError(errors.New("UNIQUE constraint failed: users.email")), cnst.ErrDuplicate)
	other := errors.New("connection reset")
	assert.Equal(t, other, mapError(other))
}
