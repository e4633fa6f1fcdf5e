package server

import (
	"context"
	"fmt"
)

// SeedIfEmpty inserts a default admin account when the admins table has no
// rows, so a fresh deployment is reachable before any provisioning runs.
// The password is "changeme". Rotate it before exposing the admin surface.
func (s *SQLiteStore) SeedIfEmpty(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&count); err != nil {
		return fmt.Errorf("counting admins: %w", err)
	}
	if count > 0 {
		return nil
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO admins (email, password_hash) VALUES (?, ?)`,
		"admin@earthlord.dev",
		"$2a$10$trCdqP4npsbw0R1vQxVwXeT1HebzRmP01SXaNGPz1eSAZ7mpcL0Uu",
	)
	if err != nil {
		return fmt.Errorf("seeding admin: %w", err)
	}
	return nil
}
