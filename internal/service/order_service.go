package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"coursehub/internal/ids"
	"coursehub/internal/mail"
	"coursehub/internal/models"
	"coursehub/internal/repository"
)

type OrderService struct {
	orders        OrderStore
	courses       CourseStore
	cache         CourseCache
	tokens        *TokenService
	notifications *NotificationService
	mailer        mail.Dispatcher
	log           zerolog.Logger
}

func NewOrderService(
	orders OrderStore,
	courses CourseStore,
	cache CourseCache,
	tokens *TokenService,
	notifications *NotificationService,
	mailer mail.Dispatcher,
	log zerolog.Logger,
) *OrderService {
	return &OrderService{
		orders:        orders,
		courses:       courses,
		cache:         cache,
		tokens:        tokens,
		notifications: notifications,
		mailer:        mailer,
		log:           log,
	}
}

// CreateOrder records a purchase and grants the course. Payment is out of
// scope; an order is trusted once the caller is authenticated.
func (s *OrderService) CreateOrder(ctx context.Context, user models.User, courseID string) (models.Order, error) {
	if user.HasCourse(courseID) {
		return models.Order{}, ErrAlreadyPurchased
	}

	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, repository.ErrCourseNotFound) {
			return models.Order{}, ErrCourseNotFound
		}
		return models.Order{}, internalErr("load course", err)
	}

	order, updated, err := s.orders.CreateAndGrant(ctx, models.Order{
		ID:       ids.New(),
		UserID:   user.ID,
		CourseID: course.ID,
	})
	if err != nil {
		if errors.Is(err, repository.ErrOrderExists) {
			return models.Order{}, ErrAlreadyPurchased
		}
		return models.Order{}, internalErr("create order", err)
	}
	s.tokens.SyncSession(ctx, updated)

	if err := s.courses.IncrementPurchased(ctx, course.ID); err != nil {
		s.log.Warn().Err(err).Str("course_id", course.ID).Msg("increment purchased failed")
	}
	if err := s.cache.Invalidate(ctx, course.ID); err != nil {
		s.log.Warn().Err(err).Str("course_id", course.ID).Msg("course cache invalidation failed")
	}

	s.notifications.Record(ctx, "New Order",
		fmt.Sprintf("You have a new order from %s for %s", user.Name, course.Title), user.ID)

	err = s.mailer.Dispatch(ctx, mail.Message{
		To:       user.Email,
		Subject:  "Order Confirmation",
		Template: mail.TemplateOrderConfirmation,
		Data: map[string]any{
			"name":        user.Name,
			"orderId":     order.ID,
			"courseTitle": course.Title,
			"price":       course.Price,
			"date":        order.CreatedAt.Format("Jan 2, 2006"),
		},
	})
	if err != nil {
		s.log.Error().Err(err).Str("order_id", order.ID).Msg("order confirmation email failed")
	}

	s.log.Info().Str("order_id", order.ID).Str("user_id", user.ID).Str("course_id", course.ID).Msg("order created")
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context) ([]models.OrderDetail, error) {
	orders, err := s.orders.ListDetailed(ctx)
	if err != nil {
		return nil, internalErr("list orders", err)
	}
	return orders, nil
}
