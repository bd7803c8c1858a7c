package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"coursehub/internal/models"
	"coursehub/internal/service"
)

type contentRequest struct {
	ID           string        `json:"_id"`
	Title        string        `json:"title" binding:"required"`
	Description  string        `json:"description"`
	VideoURL     string        `json:"videoUrl"`
	VideoSection string        `json:"videoSection"`
	VideoLength  int           `json:"videoLength" binding:"min=0"`
	Links        []models.Link `json:"links"`
	Suggestion   string        `json:"suggestion"`
}

type courseRequest struct {
	Title          string           `json:"title" binding:"required"`
	Description    string           `json:"description" binding:"required"`
	Categories     string           `json:"categories"`
	Price          float64          `json:"price" binding:"min=0"`
	EstimatedPrice float64          `json:"estimatedPrice" binding:"min=0"`
	Thumbnail      string           `json:"thumbnail"`
	Tags           string           `json:"tags"`
	Level          string           `json:"level"`
	DemoURL        string           `json:"demoUrl"`
	Benefits       []models.Titled  `json:"benefits"`
	Prerequisites  []models.Titled  `json:"prerequisites"`
	Content        []contentRequest `json:"courseData" binding:"dive"`
}

type editCourseRequest struct {
	Title          *string          `json:"title" binding:"omitempty,min=1"`
	Description    *string          `json:"description"`
	Categories     *string          `json:"categories"`
	Price          *float64         `json:"price" binding:"omitempty,min=0"`
	EstimatedPrice *float64         `json:"estimatedPrice" binding:"omitempty,min=0"`
	Thumbnail      string           `json:"thumbnail"`
	Tags           *string          `json:"tags"`
	Level          *string          `json:"level"`
	DemoURL        *string          `json:"demoUrl"`
	Benefits       []models.Titled  `json:"benefits"`
	Prerequisites  []models.Titled  `json:"prerequisites"`
	Content        []contentRequest `json:"courseData" binding:"omitempty,dive"`
}

// contentInputs keeps nil as nil so an omitted courseData leaves the
// stored content alone on edit.
func contentInputs(items []contentRequest) []service.ContentInput {
	if items == nil {
		return nil
	}
	content := make([]service.ContentInput, len(items))
	for i, item := range items {
		content[i] = service.ContentInput{
			ID:           item.ID,
			Title:        item.Title,
			Description:  item.Description,
			VideoURL:     item.VideoURL,
			VideoSection: item.VideoSection,
			VideoLength:  item.VideoLength,
			Links:        item.Links,
			Suggestion:   item.Suggestion,
		}
	}
	return content
}

func (r courseRequest) input() service.CourseInput {
	return service.CourseInput{
		Title:          r.Title,
		Description:    r.Description,
		Categories:     r.Categories,
		Price:          r.Price,
		EstimatedPrice: r.EstimatedPrice,
		Thumbnail:      r.Thumbnail,
		Tags:           r.Tags,
		Level:          r.Level,
		DemoURL:        r.DemoURL,
		Benefits:       r.Benefits,
		Prerequisites:  r.Prerequisites,
		Content:        contentInputs(r.Content),
	}
}

func (r editCourseRequest) update() service.CourseUpdate {
	return service.CourseUpdate{
		Title:          r.Title,
		Description:    r.Description,
		Categories:     r.Categories,
		Price:          r.Price,
		EstimatedPrice: r.EstimatedPrice,
		Thumbnail:      r.Thumbnail,
		Tags:           r.Tags,
		Level:          r.Level,
		DemoURL:        r.DemoURL,
		Benefits:       r.Benefits,
		Prerequisites:  r.Prerequisites,
		Content:        contentInputs(r.Content),
	}
}

func (h HandlerSet) CreateCourse(c *gin.Context) {
	var req courseRequest
	if !h.bind(c, &req) {
		return
	}

	course, err := h.courses.CreateCourse(c.Request.Context(), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"course": course})
}

func (h HandlerSet) EditCourse(c *gin.Context) {
	var req editCourseRequest
	if !h.bind(c, &req) {
		return
	}

	course, err := h.courses.EditCourse(c.Request.Context(), c.Param("id"), req.update())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"course": course})
}

func (h HandlerSet) DeleteCourse(c *gin.Context) {
	if err := h.courses.DeleteCourse(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Course deleted successfully"})
}

func (h HandlerSet) GetCourse(c *gin.Context) {
	course, err := h.courses.GetCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"course": course})
}

func (h HandlerSet) ListCourses(c *gin.Context) {
	courses, err := h.courses.ListCourses(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"courses": courses})
}

func (h HandlerSet) ListAdminCourses(c *gin.Context) {
	courses, err := h.courses.ListAdminCourses(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"courses": courses})
}

func (h HandlerSet) GetCourseContent(c *gin.Context) {
	user, _ := currentUser(c)

	content, err := h.courses.GetCourseContent(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"content": content})
}

type addQuestionRequest struct {
	Question  string `json:"question" binding:"required"`
	CourseID  string `json:"courseId" binding:"required"`
	ContentID string `json:"contentId" binding:"required"`
}

func (h HandlerSet) AddQuestion(c *gin.Context) {
	var req addQuestionRequest
	if !h.bind(c, &req) {
		return
	}
	user, _ := currentUser(c)

	course, err := h.courses.AddQuestion(c.Request.Context(), user, service.AddQuestionInput{
		CourseID:  req.CourseID,
		ContentID: req.ContentID,
		Question:  req.Question,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"course": course})
}

// addQuestionReplyRequest takes the reply text as "reply" or, from older
// clients, "answer".
type addQuestionReplyRequest struct {
	Reply      string `json:"reply" binding:"required_without=Answer"`
	Answer     string `json:"answer"`
	CourseID   string `json:"courseId" binding:"required"`
	ContentID  string `json:"contentId" binding:"required"`
	QuestionID string `json:"questionId" binding:"required"`
}

func (h HandlerSet) AddQuestionReply(c *gin.Context) {
	var req addQuestionReplyRequest
	if !h.bind(c, &req) {
		return
	}
	user, _ := currentUser(c)

	reply := req.Reply
	if reply == "" {
		reply = req.Answer
	}

	course, err := h.courses.AddQuestionReply(c.Request.Context(), user, service.AddQuestionReplyInput{
		CourseID:   req.CourseID,
		ContentID:  req.ContentID,
		QuestionID: req.QuestionID,
		Reply:      reply,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"course": course})
}

type addReviewRequest struct {
	Review string  `json:"review" binding:"required"`
	Rating float64 `json:"rating" binding:"required,min=1,max=5"`
}

func (h HandlerSet) AddReview(c *gin.Context) {
	var req addReviewRequest
	if !h.bind(c, &req) {
		return
	}
	user, _ := currentUser(c)

	course, err := h.courses.AddReview(c.Request.Context(), user, c.Param("id"), service.AddReviewInput{
		Review: req.Review,
		Rating: req.Rating,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"course": course})
}

type addReviewReplyRequest struct {
	Comment  string `json:"comment" binding:"required"`
	CourseID string `json:"courseId" binding:"required"`
	ReviewID string `json:"reviewId" binding:"required"`
}

func (h HandlerSet) AddReviewReply(c *gin.Context) {
	var req addReviewReplyRequest
	if !h.bind(c, &req) {
		return
	}
	user, _ := currentUser(c)

	course, err := h.courses.AddReviewReply(c.Request.Context(), user, service.AddReviewReplyInput{
		CourseID: req.CourseID,
		ReviewID: req.ReviewID,
		Comment:  req.Comment,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"course": course})
}
