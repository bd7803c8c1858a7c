package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"coursehub/internal/apperr"
	"coursehub/internal/ids"
	"coursehub/internal/mail"
	"coursehub/internal/models"
	"coursehub/internal/repository"
)

const mutationAttempts = 3

type CourseService struct {
	courses       CourseStore
	cache         CourseCache
	notifications *NotificationService
	mailer        mail.Dispatcher
	media         *MediaService
	bucket        string
	log           zerolog.Logger
	now           func() time.Time
}

func NewCourseService(
	courses CourseStore,
	cache CourseCache,
	notifications *NotificationService,
	mailer mail.Dispatcher,
	media *MediaService,
	bucket string,
	log zerolog.Logger,
) *CourseService {
	return &CourseService{
		courses:       courses,
		cache:         cache,
		notifications: notifications,
		mailer:        mailer,
		media:         media,
		bucket:        bucket,
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// mutate loads the course, applies fn and writes the whole document back
// guarded by its version. On a concurrent write the course is reloaded and
// fn runs again on the fresh copy.
func (s *CourseService) mutate(ctx context.Context, courseID string, fn func(*models.Course) error) (models.Course, error) {
	for attempt := 1; ; attempt++ {
		course, err := s.courses.GetByID(ctx, courseID)
		if err != nil {
			return models.Course{}, s.storeErr(err, "load course")
		}

		if err := fn(&course); err != nil {
			return models.Course{}, err
		}

		updated, err := s.courses.Update(ctx, course)
		if errors.Is(err, repository.ErrCourseConflict) {
			if attempt < mutationAttempts {
				s.log.Debug().Str("course_id", courseID).Int("attempt", attempt).Msg("course version conflict, retrying")
				continue
			}
			return models.Course{}, ErrCourseConflict
		}
		if err != nil {
			return models.Course{}, s.storeErr(err, "save course")
		}

		s.invalidate(ctx, courseID)
		return updated, nil
	}
}

func (s *CourseService) storeErr(err error, op string) error {
	if errors.Is(err, repository.ErrCourseNotFound) {
		return ErrCourseNotFound
	}
	return internalErr(op, err)
}

func (s *CourseService) invalidate(ctx context.Context, courseID string) {
	if err := s.cache.Invalidate(ctx, courseID); err != nil {
		s.log.Warn().Err(err).Str("course_id", courseID).Msg("course cache invalidation failed")
	}
}

type AddQuestionInput struct {
	CourseID  string
	ContentID string
	Question  string
}

func (s *CourseService) AddQuestion(ctx context.Context, author models.User, input AddQuestionInput) (models.Course, error) {
	if strings.TrimSpace(input.Question) == "" {
		return models.Course{}, apperr.Validation("question is required")
	}

	var contentTitle string
	course, err := s.mutate(ctx, input.CourseID, func(c *models.Course) error {
		content := c.ContentByID(input.ContentID)
		if content == nil {
			return ErrContentNotFound
		}
		content.Questions = append(content.Questions, models.Question{
			ID:        ids.New(),
			Author:    models.AuthorOf(author),
			Question:  input.Question,
			Replies:   []models.Comment{},
			CreatedAt: s.now(),
		})
		contentTitle = content.Title
		return nil
	})
	if err != nil {
		return models.Course{}, err
	}

	s.notifications.Record(ctx, "New Question Received",
		fmt.Sprintf("You have a new question in %s", contentTitle), author.ID)
	return course, nil
}

type AddQuestionReplyInput struct {
	CourseID   string
	ContentID  string
	QuestionID string
	Reply      string
}

// AddQuestionReply notifies in-app when the asker answers their own
// question, otherwise emails the asker. A missing asker email is detected
// before the write; a dispatch failure happens after it and leaves the
// reply in place.
func (s *CourseService) AddQuestionReply(ctx context.Context, author models.User, input AddQuestionReplyInput) (models.Course, error) {
	if strings.TrimSpace(input.Reply) == "" {
		return models.Course{}, apperr.Validation("reply is required")
	}

	var (
		asker        models.Author
		contentTitle string
	)
	course, err := s.mutate(ctx, input.CourseID, func(c *models.Course) error {
		content := c.ContentByID(input.ContentID)
		if content == nil {
			return ErrContentNotFound
		}
		question := content.QuestionByID(input.QuestionID)
		if question == nil {
			return ErrQuestionNotFound
		}
		if question.Author.ID != author.ID && question.Author.Email == "" {
			return ErrMissingEmail
		}

		question.Replies = append(question.Replies, models.Comment{
			ID:        ids.New(),
			Author:    models.AuthorOf(author),
			Comment:   input.Reply,
			CreatedAt: s.now(),
		})
		asker = question.Author
		contentTitle = content.Title
		return nil
	})
	if err != nil {
		return models.Course{}, err
	}

	if asker.ID == author.ID {
		s.notifications.Record(ctx, "New Question Reply Received",
			fmt.Sprintf("You have a new question reply in %s", contentTitle), author.ID)
		return course, nil
	}

	err = s.mailer.Dispatch(ctx, mail.Message{
		To:       asker.Email,
		Subject:  "Question Reply",
		Template: mail.TemplateQuestionReply,
		Data: map[string]any{
			"name":         asker.Name,
			"contentTitle": contentTitle,
			"reply":        input.Reply,
		},
	})
	if err != nil {
		s.log.Error().Err(err).Str("course_id", input.CourseID).Str("question_id", input.QuestionID).Msg("question reply email failed")
		return models.Course{}, ErrEmailDispatch.Wrap(err)
	}
	return course, nil
}

type AddReviewInput struct {
	Review string
	Rating float64
}

func (s *CourseService) AddReview(ctx context.Context, author models.User, courseID string, input AddReviewInput) (models.Course, error) {
	if !author.HasCourse(courseID) {
		return models.Course{}, ErrReviewNotAllowed
	}

	return s.mutate(ctx, courseID, func(c *models.Course) error {
		c.Reviews = append(c.Reviews, models.Review{
			ID:        ids.New(),
			Author:    models.AuthorOf(author),
			Rating:    input.Rating,
			Comment:   input.Review,
			Replies:   []models.Comment{},
			CreatedAt: s.now(),
		})
		c.RecomputeRating()
		return nil
	})
}

type AddReviewReplyInput struct {
	CourseID string
	ReviewID string
	Comment  string
}

func (s *CourseService) AddReviewReply(ctx context.Context, author models.User, input AddReviewReplyInput) (models.Course, error) {
	if strings.TrimSpace(input.Comment) == "" {
		return models.Course{}, apperr.Validation("comment is required")
	}

	return s.mutate(ctx, input.CourseID, func(c *models.Course) error {
		review := c.ReviewByID(input.ReviewID)
		if review == nil {
			return ErrReviewNotFound
		}
		review.Replies = append(review.Replies, models.Comment{
			ID:        ids.New(),
			Author:    models.AuthorOf(author),
			Comment:   input.Comment,
			CreatedAt: s.now(),
		})
		c.RecomputeRating()
		return nil
	})
}

type ContentInput struct {
	ID           string
	Title        string
	Description  string
	VideoURL     string
	VideoSection string
	VideoLength  int
	Links        []models.Link
	Suggestion   string
}

type CourseInput struct {
	Title          string
	Description    string
	Categories     string
	Price          float64
	EstimatedPrice float64
	Thumbnail      string
	Tags           string
	Level          string
	DemoURL        string
	Benefits       []models.Titled
	Prerequisites  []models.Titled
	Content        []ContentInput
}

func (s *CourseService) CreateCourse(ctx context.Context, input CourseInput) (models.Course, error) {
	if strings.TrimSpace(input.Title) == "" {
		return models.Course{}, apperr.Validation("title is required")
	}

	course := models.Course{
		ID:             ids.New(),
		Title:          input.Title,
		Description:    input.Description,
		Categories:     input.Categories,
		Price:          input.Price,
		EstimatedPrice: input.EstimatedPrice,
		Tags:           input.Tags,
		Level:          input.Level,
		DemoURL:        input.DemoURL,
		Benefits:       input.Benefits,
		Prerequisites:  input.Prerequisites,
		Content:        mergeContent(nil, input.Content),
		Reviews:        []models.Review{},
	}

	if input.Thumbnail != "" {
		img, err := s.media.UploadDataURI(ctx, s.bucket, "courses", input.Thumbnail)
		if err != nil {
			return models.Course{}, err
		}
		course.Thumbnail = models.Thumbnail{PublicID: img.PublicID, URL: img.URL}
	}

	created, err := s.courses.Create(ctx, course)
	if err != nil {
		s.media.Remove(ctx, s.bucket, course.Thumbnail.PublicID)
		return models.Course{}, internalErr("create course", err)
	}

	s.invalidate(ctx, created.ID)
	s.log.Info().Str("course_id", created.ID).Msg("course created")
	return created, nil
}

// CourseUpdate is a partial edit: nil fields and nil slices keep the stored
// value. An empty, non-nil slice clears it.
type CourseUpdate struct {
	Title          *string
	Description    *string
	Categories     *string
	Price          *float64
	EstimatedPrice *float64
	Thumbnail      string
	Tags           *string
	Level          *string
	DemoURL        *string
	Benefits       []models.Titled
	Prerequisites  []models.Titled
	Content        []ContentInput
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// EditCourse applies a partial update. Content items that keep their id
// keep their questions; reviews and rating are untouched.
func (s *CourseService) EditCourse(ctx context.Context, courseID string, input CourseUpdate) (models.Course, error) {
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return models.Course{}, apperr.Validation("title is required")
	}

	var thumbnail *models.Thumbnail
	if input.Thumbnail != "" {
		img, err := s.media.UploadDataURI(ctx, s.bucket, "courses", input.Thumbnail)
		if err != nil {
			return models.Course{}, err
		}
		thumbnail = &models.Thumbnail{PublicID: img.PublicID, URL: img.URL}
	}

	var previous models.Thumbnail
	course, err := s.mutate(ctx, courseID, func(c *models.Course) error {
		setIf(&c.Title, input.Title)
		setIf(&c.Description, input.Description)
		setIf(&c.Categories, input.Categories)
		setIf(&c.Price, input.Price)
		setIf(&c.EstimatedPrice, input.EstimatedPrice)
		setIf(&c.Tags, input.Tags)
		setIf(&c.Level, input.Level)
		setIf(&c.DemoURL, input.DemoURL)
		if input.Benefits != nil {
			c.Benefits = input.Benefits
		}
		if input.Prerequisites != nil {
			c.Prerequisites = input.Prerequisites
		}
		if input.Content != nil {
			c.Content = mergeContent(c.Content, input.Content)
		}
		previous = c.Thumbnail
		if thumbnail != nil {
			c.Thumbnail = *thumbnail
		}
		return nil
	})
	if err != nil {
		if thumbnail != nil {
			s.media.Remove(ctx, s.bucket, thumbnail.PublicID)
		}
		return models.Course{}, err
	}

	if thumbnail != nil {
		s.media.Remove(ctx, s.bucket, previous.PublicID)
	}
	return course, nil
}

func mergeContent(existing []models.ContentItem, input []ContentInput) []models.ContentItem {
	byID := make(map[string]models.ContentItem, len(existing))
	for _, item := range existing {
		byID[item.ID] = item
	}

	out := make([]models.ContentItem, 0, len(input))
	for _, in := range input {
		item := models.ContentItem{
			ID:           in.ID,
			Title:        in.Title,
			Description:  in.Description,
			VideoURL:     in.VideoURL,
			VideoSection: in.VideoSection,
			VideoLength:  in.VideoLength,
			Links:        in.Links,
			Suggestion:   in.Suggestion,
			Questions:    []models.Question{},
		}
		if prev, ok := byID[in.ID]; ok && in.ID != "" {
			item.Questions = prev.Questions
		} else {
			item.ID = ids.New()
		}
		out = append(out, item)
	}
	return out
}

func (s *CourseService) DeleteCourse(ctx context.Context, courseID string) error {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return s.storeErr(err, "load course")
	}
	if err := s.courses.Delete(ctx, courseID); err != nil {
		return s.storeErr(err, "delete course")
	}

	s.invalidate(ctx, courseID)
	s.media.Remove(ctx, s.bucket, course.Thumbnail.PublicID)
	s.log.Info().Str("course_id", courseID).Msg("course deleted")
	return nil
}

// GetCourse returns the public view, served from cache when possible.
func (s *CourseService) GetCourse(ctx context.Context, courseID string) (models.Course, error) {
	if cached, ok, err := s.cache.Get(ctx, courseID); err != nil {
		s.log.Warn().Err(err).Str("course_id", courseID).Msg("course cache read failed")
	} else if ok {
		return cached, nil
	}

	gen, genErr := s.cache.Generation(ctx)
	if genErr != nil {
		s.log.Warn().Err(genErr).Msg("course cache generation read failed")
	}

	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return models.Course{}, s.storeErr(err, "load course")
	}

	view := course.PublicView()
	if genErr == nil {
		if err := s.cache.Set(ctx, view, gen); err != nil {
			s.log.Warn().Err(err).Str("course_id", courseID).Msg("course cache write failed")
		}
	}
	return view, nil
}

func (s *CourseService) ListCourses(ctx context.Context) ([]models.Course, error) {
	if cached, ok, err := s.cache.GetList(ctx); err != nil {
		s.log.Warn().Err(err).Msg("course list cache read failed")
	} else if ok {
		return cached, nil
	}

	gen, genErr := s.cache.Generation(ctx)
	if genErr != nil {
		s.log.Warn().Err(genErr).Msg("course cache generation read failed")
	}

	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, internalErr("list courses", err)
	}

	views := make([]models.Course, len(courses))
	for i, c := range courses {
		views[i] = c.PublicView()
	}
	if genErr == nil {
		if err := s.cache.SetList(ctx, views, gen); err != nil {
			s.log.Warn().Err(err).Msg("course list cache write failed")
		}
	}
	return views, nil
}

func (s *CourseService) ListAdminCourses(ctx context.Context) ([]models.Course, error) {
	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, internalErr("list courses", err)
	}
	return courses, nil
}

// GetCourseContent returns the full content for buyers and admins.
func (s *CourseService) GetCourseContent(ctx context.Context, user models.User, courseID string) ([]models.ContentItem, error) {
	if !user.HasCourse(courseID) && !user.IsAdmin() {
		return nil, ErrNotPurchased
	}

	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, s.storeErr(err, "load course")
	}
	return course.Content, nil
}
