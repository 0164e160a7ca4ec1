package database

import (
	"context"
	"errors"

	"github.com/amoylab/hydrowatch/internal/common/cnst"
)

// InitSuperAdmin creates the bootstrap Super Admin when none exists yet.
// passwordHash must already be hashed. It reports whether a user was created.
func InitSuperAdmin(ctx context.Context, db Database, username, email, passwordHash string) (bool, error) {
	if username == "" || email == "" || passwordHash == "" {
		return false, nil
	}

	created := false
	err := db.Transaction(ctx, func(ctx context.Context) error {
		count, err := db.CountUsersByRole(ctx, cnst.RoleSuperAdmin)
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		err = db.CreateUser(ctx, &User{
			Username:      username,
			Email:         email,
			Password:      passwordHash,
			Role:          cnst.RoleSuperAdmin,
			IsVerified:    true,
			EmailVerified: true,
		})
		// Another replica won the race.
		if errors.Is(err, cnst.ErrDuplicate) {
			return nil
		}
		if err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}
