package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"coursehub/internal/config"
	"coursehub/internal/mail"
	"coursehub/internal/middleware"
	"coursehub/internal/models"
	"coursehub/internal/repository"
	"coursehub/internal/service"
	"coursehub/internal/storage"
)

type Services struct {
	Tokens        *service.TokenService
	Auth          *service.AuthService
	Users         *service.UserService
	Courses       *service.CourseService
	Orders        *service.OrderService
	Notifications *service.NotificationService
	Analytics     *service.AnalyticsService
}

// NewServices wires the repositories over postgres, redis and the object
// store into the service layer.
func NewServices(cfg *config.AppConfig, log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, store *storage.ObjectStore, mailer mail.Dispatcher) Services {
	users := repository.NewUserRepository(db)
	courses := repository.NewCourseRepository(db)
	courseCache := repository.NewCourseCache(cache, cfg.Cache.CourseTTL)

	tokens := service.NewTokenService(repository.NewSessionRepository(cache), cfg.Security, log)
	media := service.NewMediaService(store, log)
	notifications := service.NewNotificationService(repository.NewNotificationRepository(db), log)

	return Services{
		Tokens: tokens,
		Auth: service.NewAuthService(users, repository.NewPendingRepository(cache), tokens, mailer,
			cfg.Security, log.With().Str("component", "auth").Logger()),
		Users: service.NewUserService(users, tokens, media, mailer, cfg.Storage.BucketAvatars,
			cfg.Security.ResetCodeTTL, log.With().Str("component", "users").Logger()),
		Courses: service.NewCourseService(courses, courseCache, notifications, mailer, media,
			cfg.Storage.BucketCourses, log.With().Str("component", "courses").Logger()),
		Orders: service.NewOrderService(repository.NewOrderRepository(db), courses, courseCache, tokens,
			notifications, mailer, log.With().Str("component", "orders").Logger()),
		Notifications: notifications,
		Analytics:     service.NewAnalyticsService(repository.NewAnalyticsRepository(db), log),
	}
}

// Check reports the health of one dependency.
type Check func(ctx context.Context) error

type HandlerSet struct {
	log           zerolog.Logger
	cfg           *config.AppConfig
	tokens        *service.TokenService
	auth          *service.AuthService
	users         *service.UserService
	courses       *service.CourseService
	orders        *service.OrderService
	notifications *service.NotificationService
	analytics     *service.AnalyticsService
	checks        map[string]Check
	checkTimeout  time.Duration
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, svc Services, checks map[string]Check) HandlerSet {
	return HandlerSet{
		log:           log,
		cfg:           cfg,
		tokens:        svc.Tokens,
		auth:          svc.Auth,
		users:         svc.Users,
		courses:       svc.Courses,
		orders:        svc.Orders,
		notifications: svc.Notifications,
		analytics:     svc.Analytics,
		checks:        checks,
		checkTimeout:  2 * time.Second,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	requireUser := middleware.Auth(h.tokens, h.log)
	requireAdmin := middleware.RequireRoles(models.UserRoleAdmin)

	v1 := router.Group("/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/register", h.RegisterUser)
		auth.POST("/activate", h.Activate)
		auth.POST("/login", h.Login)
		auth.POST("/refresh-token", h.RefreshToken)
		auth.POST("/social-auth", h.SocialAuth)
		auth.POST("/logout", requireUser, h.Logout)
	}

	user := v1.Group("/user")
	{
		user.POST("/forgot-password", h.ForgotPassword)
		user.POST("/verify-reset-code", h.VerifyResetCode)
		user.PUT("/reset-password", h.ResetPassword)

		user.GET("/me", requireUser, h.Me)
		user.PUT("/update-info", requireUser, h.UpdateInfo)
		user.PUT("/update-password", requireUser, h.UpdatePassword)
		user.PUT("/update-avatar", requireUser, h.UpdateAvatar)

		user.GET("/get-users", requireUser, requireAdmin, h.AdminListUsers)
		user.PUT("/update-role", requireUser, requireAdmin, h.AdminUpdateRole)
		user.DELETE("/delete-user/:id", requireUser, requireAdmin, h.AdminDeleteUser)
	}

	course := v1.Group("/course")
	{
		course.GET("/get-course/:id", h.GetCourse)
		course.GET("/get-courses", h.ListCourses)

		course.GET("/get-course-content/:id", requireUser, h.GetCourseContent)
		course.PUT("/add-question", requireUser, h.AddQuestion)
		course.PUT("/add-question-reply", requireUser, h.AddQuestionReply)
		course.PUT("/add-review/:id", requireUser, h.AddReview)

		course.PUT("/add-review-reply", requireUser, requireAdmin, h.AddReviewReply)
		course.POST("/create-course", requireUser, requireAdmin, h.CreateCourse)
		course.PUT("/edit-course/:id", requireUser, requireAdmin, h.EditCourse)
		course.DELETE("/delete-course/:id", requireUser, requireAdmin, h.DeleteCourse)
		course.GET("/get-admin-courses", requireUser, requireAdmin, h.ListAdminCourses)
	}

	order := v1.Group("/order", requireUser)
	{
		order.POST("/create-order", h.CreateOrder)
		order.GET("/get-orders", requireAdmin, h.ListOrders)
	}

	notification := v1.Group("/notification", requireUser, requireAdmin)
	{
		notification.GET("/get-all-notifications", h.ListNotifications)
		notification.PUT("/update-notification/:id", h.UpdateNotification)
	}

	analytics := v1.Group("/analytics", requireUser, requireAdmin)
	{
		analytics.GET("/get-users-analytics", h.UsersAnalytics)
		analytics.GET("/get-courses-analytics", h.CoursesAnalytics)
		analytics.GET("/get-orders-analytics", h.OrdersAnalytics)
	}
}
