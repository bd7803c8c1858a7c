package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"coursehub/internal/models"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CreateAndGrant inserts the order and adds the course to the buyer in one
// transaction: either both land or neither does.
func (r *OrderRepository) CreateAndGrant(ctx context.Context, order models.Order) (models.Order, models.User, error) {
	const insert = `
		INSERT INTO orders (id, user_id, course_id, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, user_id, course_id, created_at
	`

	var (
		created models.Order
		buyer   models.User
	)
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, insert, order.ID, order.UserID, order.CourseID).Scan(
			&created.ID,
			&created.UserID,
			&created.CourseID,
			&created.CreatedAt,
		)
		if isUniqueViolation(err) {
			return ErrOrderExists
		}
		if err != nil {
			return err
		}

		buyer, err = scanUser(tx.QueryRow(ctx, grantCourseQuery, order.UserID, order.CourseID))
		return err
	})
	if err != nil {
		return models.Order{}, models.User{}, err
	}
	return created, buyer, nil
}

// ListDetailed joins weakly: orders survive deletion of their course or user.
func (r *OrderRepository) ListDetailed(ctx context.Context) ([]models.OrderDetail, error) {
	const query = `
		SELECT o.id, o.user_id, o.course_id, o.created_at,
		       COALESCE(c.title, ''), COALESCE(c.price, 0)::float8,
		       COALESCE(u.name, ''), COALESCE(u.email, '')
		FROM orders o
		LEFT JOIN courses c ON c.id = o.course_id
		LEFT JOIN users u ON u.id = o.user_id
		ORDER BY o.created_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []models.OrderDetail{}
	for rows.Next() {
		var o models.OrderDetail
		if err := rows.Scan(
			&o.ID,
			&o.UserID,
			&o.CourseID,
			&o.CreatedAt,
			&o.CourseTitle,
			&o.CoursePrice,
			&o.UserName,
			&o.UserEmail,
		); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
