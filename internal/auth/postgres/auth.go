package auth

import (
	"database/sql"
	"fmt"

	"github.com/frahmantamala/document-management/internal/auth"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetPasswordForUsername(email string) (string, string, error) {
	var passwordHash string
	var userID string
	query := `SELECT id, password_hash FROM users WHERE email = ? AND is_active = true`

	row := r.db.Raw(query, email).Row()
	if err := row.Scan(&userID, &passwordHash); err != nil {
		if err == sql.ErrNoRows {
			return "", "", fmt.Errorf("user not found")
		}
		return "", "", err
	}
	return passwordHash, userID, nil
}

// GetUser loads the user and decodes its role. Unknown role values are an
// error here, not a silent downgrade.
func (r *Repository) GetUser(userID int64) (*auth.User, error) {
	var user auth.User
	var roleName string

	query := `SELECT id, email, role FROM users WHERE id = ? AND is_active = true`

	row := r.db.Raw(query, userID).Row()
	if err := row.Scan(&user.ID, &user.Email, &roleName); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found")
		}
		return nil, err
	}

	role, err := auth.ParseCoarseRole(roleName)
	if err != nil {
		return nil, fmt.Errorf("user %d has invalid role %q: %w", userID, roleName, err)
	}
	user.Role = role

	return &user, nil
}
