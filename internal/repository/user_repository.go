package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"coursehub/internal/models"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `
	id, name, email, COALESCE(password_hash, ''), avatar_public_id, avatar_url, role, is_verified,
	courses, COALESCE(password_reset_code, ''), password_reset_expires_at, password_reset_verified,
	password_changed_at, created_at, updated_at
`

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Avatar.PublicID,
		&user.Avatar.URL,
		&user.Role,
		&user.IsVerified,
		&user.Courses,
		&user.PasswordResetCode,
		&user.PasswordResetExpiresAt,
		&user.PasswordResetVerified,
		&user.PasswordChangedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	if user.Courses == nil {
		user.Courses = []models.CourseRef{}
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user models.User) (models.User, error) {
	const query = `
		INSERT INTO users (
			id, name, email, password_hash, avatar_public_id, avatar_url, role, is_verified, courses,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, NOW(), NOW()
		)
		RETURNING ` + userColumns

	courses := user.Courses
	if courses == nil {
		courses = []models.CourseRef{}
	}

	created, err := scanUser(r.pool.QueryRow(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Avatar.PublicID,
		user.Avatar.URL,
		user.Role,
		user.IsVerified,
		courses,
	))
	if isUniqueViolation(err) {
		return models.User{}, ErrEmailTaken
	}
	return created, err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepository) UpdateName(ctx context.Context, id string, name string) (models.User, error) {
	query := `
		UPDATE users SET name = $2, updated_at = NOW() WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, query, id, name))
}

// UpdatePassword also consumes any outstanding reset code.
func (r *UserRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) (models.User, error) {
	query := `
		UPDATE users
		SET password_hash = $2,
		    password_changed_at = NOW(),
		    password_reset_code = NULL,
		    password_reset_expires_at = NULL,
		    password_reset_verified = FALSE,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, query, id, passwordHash))
}

func (r *UserRepository) UpdateAvatar(ctx context.Context, id string, avatar models.Avatar) (models.User, error) {
	query := `
		UPDATE users SET avatar_public_id = $2, avatar_url = $3, updated_at = NOW() WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, query, id, avatar.PublicID, avatar.URL))
}

func (r *UserRepository) UpdateRole(ctx context.Context, id string, role models.UserRole) (models.User, error) {
	query := `
		UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, query, id, role))
}

// grantCourseQuery appends the ownership record unless it is already present.
var grantCourseQuery = `
	UPDATE users
	SET courses = CASE
	        WHEN courses @> jsonb_build_array(jsonb_build_object('courseId', $2::text)) THEN courses
	        ELSE courses || jsonb_build_array(jsonb_build_object('courseId', $2::text))
	    END,
	    updated_at = NOW()
	WHERE id = $1
	RETURNING ` + userColumns

func (r *UserRepository) SetResetCode(ctx context.Context, id string, codeHash string, expiresAt time.Time) error {
	const query = `
		UPDATE users
		SET password_reset_code = $2,
		    password_reset_expires_at = $3,
		    password_reset_verified = FALSE,
		    updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, codeHash, expiresAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) MarkResetVerified(ctx context.Context, id string) error {
	const query = `UPDATE users SET password_reset_verified = TRUE, updated_at = NOW() WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
