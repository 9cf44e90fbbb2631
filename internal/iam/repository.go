package iam

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/medrex/clinic-backend/pkg/database"
	"github.com/medrex/clinic-backend/pkg/logger"
	"github.com/medrex/clinic-backend/pkg/types"
)

const userColumns = `id, email, password_hash, first_name, last_name, role,
		phone, address, COALESCE(to_char(date_of_birth, 'YYYY-MM-DD'), ''), gender, blood_group,
		profession, license_number, profile_completed, is_active, last_login,
		created_at, updated_at`

// UserRepository implements user data persistence
type UserRepository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB, log *logger.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: log,
	}
}

func scanUser(row interface {
	Scan(dest ...interface{}) error
}) (*types.User, error) {
	var user types.User
	var lastLogin sql.NullTime

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.Phone,
		&user.Address,
		&user.DateOfBirth,
		&user.Gender,
		&user.BloodGroup,
		&user.Profession,
		&user.LicenseNumber,
		&user.ProfileCompleted,
		&user.IsActive,
		&lastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}
	return &user, nil
}

// Create creates a new user in the database
func (r *UserRepository) Create(user *types.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, first_name, last_name, role,
			phone, profession, license_number, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.Exec(query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Role,
		user.Phone,
		user.Profession,
		user.LicenseNumber,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				return &types.ClinicError{
					Type:    types.ErrorTypeConflict,
					Code:    types.ErrCodeEmailExists,
					Message: "A user with this email already exists",
				}
			}
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("User created successfully")
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(id string) (*types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &types.ClinicError{
				Type:    types.ErrorTypeNotFound,
				Code:    "USER_NOT_FOUND",
				Message: "User not found",
			}
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(email string) (*types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.QueryRow(query, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &types.ClinicError{
				Type:    types.ErrorTypeNotFound,
				Code:    "USER_NOT_FOUND",
				Message: "User not found",
			}
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// Update updates user information using a field whitelist
func (r *UserRepository) Update(id string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return fmt.Errorf("no updates provided")
	}

	// Build dynamic update query
	setParts := make([]string, 0, len(updates))
	args := make([]interface{}, 0, len(updates)+1)
	argIndex := 1

	for field, value := range updates {
		switch field {
		case "first_name", "last_name", "phone", "address", "date_of_birth",
			"gender", "blood_group", "profession", "license_number",
			"password_hash", "profile_completed", "is_active", "last_login":
			setParts = append(setParts, fmt.Sprintf("%s = $%d", field, argIndex))
			args = append(args, value)
		default:
			return fmt.Errorf("invalid field for update: %s", field)
		}
		argIndex++
	}

	// Always update the updated_at timestamp
	setParts = append(setParts, fmt.Sprintf("updated_at = $%d", argIndex))
	args = append(args, time.Now())
	argIndex++

	// Add user ID as the last parameter
	args = append(args, id)

	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d",
		strings.Join(setParts, ", "), argIndex)

	result, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return &types.ClinicError{
			Type:    types.ErrorTypeNotFound,
			Code:    "USER_NOT_FOUND",
			Message: "User not found",
		}
	}

	r.logger.WithField("user_id", id).Info("User updated successfully")
	return nil
}

// Delete removes a user account
func (r *UserRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &types.ClinicError{
			Type:    types.ErrorTypeNotFound,
			Code:    "USER_NOT_FOUND",
			Message: "User not found",
		}
	}

	r.logger.WithField("user_id", id).Info("User deleted")
	return nil
}

// List retrieves users matching the given criteria
func (r *UserRepository) List(criteria *types.UserSearchCriteria) ([]*types.User, error) {
	baseQuery := `SELECT ` + userColumns + ` FROM users`

	whereParts := make([]string, 0)
	args := make([]interface{}, 0)
	argIndex := 1

	if criteria.Role != "" {
		whereParts = append(whereParts, fmt.Sprintf("role = $%d", argIndex))
		args = append(args, criteria.Role)
		argIndex++
	}

	if criteria.Profession != "" {
		whereParts = append(whereParts, fmt.Sprintf("profession = $%d", argIndex))
		args = append(args, criteria.Profession)
		argIndex++
	}

	if criteria.Email != "" {
		whereParts = append(whereParts, fmt.Sprintf("email ILIKE $%d", argIndex))
		args = append(args, "%"+criteria.Email+"%")
		argIndex++
	}

	if criteria.Name != "" {
		whereParts = append(whereParts,
			fmt.Sprintf("(first_name ILIKE $%d OR last_name ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+criteria.Name+"%")
		argIndex++
	}

	if criteria.IsActive != nil {
		whereParts = append(whereParts, fmt.Sprintf("is_active = $%d", argIndex))
		args = append(args, *criteria.IsActive)
		argIndex++
	}

	query := baseQuery
	if len(whereParts) > 0 {
		query += " WHERE " + strings.Join(whereParts, " AND ")
	}

	query += " ORDER BY created_at DESC"

	if criteria.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, criteria.Limit)
		argIndex++
	}

	if criteria.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, criteria.Offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*types.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, user)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	return users, nil
}
