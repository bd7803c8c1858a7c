package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"coursehub/internal/models"
)

// CourseRepository stores each course as one JSONB document. title, price
// and rating are mirrored into columns for listing; purchased and version
// are owned by their columns and overlaid on read.
type CourseRepository struct {
	pool *pgxpool.Pool
}

func NewCourseRepository(pool *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{pool: pool}
}

const courseColumns = `id, purchased, version, doc, created_at, updated_at`

func scanCourse(row pgx.Row) (models.Course, error) {
	var (
		course    models.Course
		id        string
		purchased int
		version   int64
		doc       []byte
	)
	if err := row.Scan(&id, &purchased, &version, &doc, &course.CreatedAt, &course.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Course{}, ErrCourseNotFound
		}
		return models.Course{}, err
	}

	createdAt, updatedAt := course.CreatedAt, course.UpdatedAt
	if err := json.Unmarshal(doc, &course); err != nil {
		return models.Course{}, fmt.Errorf("decode course %s: %w", id, err)
	}
	course.ID = id
	course.Purchased = purchased
	course.Version = version
	course.CreatedAt = createdAt
	course.UpdatedAt = updatedAt
	return course, nil
}

func (r *CourseRepository) Create(ctx context.Context, course models.Course) (models.Course, error) {
	doc, err := json.Marshal(course)
	if err != nil {
		return models.Course{}, fmt.Errorf("encode course: %w", err)
	}

	query := `
		INSERT INTO courses (id, title, price, rating, purchased, version, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, 1, $5, NOW(), NOW())
		RETURNING ` + courseColumns

	return scanCourse(r.pool.QueryRow(ctx, query, course.ID, course.Title, course.Price, course.Rating, doc))
}

func (r *CourseRepository) GetByID(ctx context.Context, id string) (models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`
	return scanCourse(r.pool.QueryRow(ctx, query, id))
}

func (r *CourseRepository) List(ctx context.Context) ([]models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	courses := []models.Course{}
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, course)
	}
	return courses, rows.Err()
}

// Update replaces the document only if the stored version still equals
// course.Version, and returns the course with its new version.
func (r *CourseRepository) Update(ctx context.Context, course models.Course) (models.Course, error) {
	doc, err := json.Marshal(course)
	if err != nil {
		return models.Course{}, fmt.Errorf("encode course: %w", err)
	}

	query := `
		UPDATE courses
		SET title = $2, price = $3, rating = $4, doc = $5, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $6
		RETURNING ` + courseColumns

	updated, err := scanCourse(r.pool.QueryRow(ctx, query,
		course.ID, course.Title, course.Price, course.Rating, doc, course.Version,
	))
	if !errors.Is(err, ErrCourseNotFound) {
		return updated, err
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM courses WHERE id = $1)`, course.ID).Scan(&exists); err != nil {
		return models.Course{}, err
	}
	if exists {
		return models.Course{}, ErrCourseConflict
	}
	return models.Course{}, ErrCourseNotFound
}

func (r *CourseRepository) IncrementPurchased(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE courses SET purchased = purchased + 1 WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCourseNotFound
	}
	return nil
}

func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCourseNotFound
	}
	return nil
}
