package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RevokeToken records a logged-out token by its JTI until the token would
// have expired anyway. Revoking twice is not an error.
func RevokeToken(ctx context.Context, db *sql.DB, jti string, expiresAt time.Time) error {
	if jti == "" {
		return fmt.Errorf("%w: token has no id", ErrValidation)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO revoked_tokens (jti, expires_at) VALUES (?, ?)
		 ON CONFLICT (jti) DO NOTHING`,
		jti, expiresAt.UTC(),
	); err != nil {
		return fmt.Errorf("revoking token %s: %w", jti, err)
	}
	return nil
}

// IsTokenRevoked reports whether the JTI is on the revocation list.
func IsTokenRevoked(ctx context.Context, db *sql.DB, jti string) (bool, error) {
	var revoked bool
	if err := db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = ?)`, jti,
	).Scan(&revoked); err != nil {
		return false, fmt.Errorf("checking token revocation: %w", err)
	}
	return revoked, nil
}

// PurgeRevokedTokens drops revocations for tokens that have expired. The
// scheduler runs it daily.
func PurgeRevokedTokens(ctx context.Context, db *sql.DB) (int64, error) {
	res, err := db.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < ?`, now(),
	)
	if err != nil {
		return 0, fmt.Errorf("purging revoked tokens: %w", err)
	}
	return res.RowsAffected()
}
