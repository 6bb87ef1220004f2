package database

import (
	"context"
	"database/sql"
	"fmt"

	"markethub/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const seedBusinessName = "Test Business"

// seedPassword is shared by every demo account. Never enable seeding in
// production environments.
const seedPassword = "testpass123"

var seedUsers = []struct {
	Username string
	Email    string
	Role     domain.Role
}{
	{"admin_user", "admin@example.com", domain.RoleAdmin},
	{"editor_user", "editor@example.com", domain.RoleEditor},
	{"approver_user", "approver@example.com", domain.RoleApprover},
	{"viewer_user", "viewer@example.com", domain.RoleViewer},
}

// Seed inserts the demo business and one account per role. Reruns are
// harmless: existing rows are left untouched.
func Seed(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO businesses (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (name) DO NOTHING`,
		uuid.New(), seedBusinessName, "Seeded demo business",
	)
	if err != nil {
		return fmt.Errorf("failed to seed business: %w", err)
	}

	var businessID uuid.UUID
	if err := db.QueryRowContext(ctx,
		`SELECT id FROM businesses WHERE name = $1`, seedBusinessName,
	).Scan(&businessID); err != nil {
		return fmt.Errorf("failed to look up seeded business: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	for _, u := range seedUsers {
		_, err := db.ExecContext(ctx, `
			INSERT INTO users (id, username, email, password_hash, role, business_id, is_active, date_joined)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE, NOW())
			ON CONFLICT (username) DO NOTHING`,
			uuid.New(), u.Username, u.Email, string(hash), u.Role, businessID,
		)
		if err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.Username, err)
		}
	}

	logger.Info("Seed data ensured",
		zap.String("business", seedBusinessName),
		zap.Int("users", len(seedUsers)),
	)
	return nil
}
