package models

import "time"

// Author is the snapshot of a user embedded in questions, replies and reviews.
type Author struct {
	ID     string   `json:"_id"`
	Name   string   `json:"name"`
	Email  string   `json:"email,omitempty"`
	Avatar Avatar   `json:"avatar"`
	Role   UserRole `json:"role"`
}

func AuthorOf(u User) Author {
	return Author{
		ID:     u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Avatar: u.Avatar,
		Role:   u.Role,
	}
}

type Thumbnail struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
}

type Titled struct {
	Title string `json:"title"`
}

type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type Comment struct {
	ID        string    `json:"_id"`
	Author    Author    `json:"user"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

type Question struct {
	ID        string    `json:"_id"`
	Author    Author    `json:"user"`
	Question  string    `json:"question"`
	Replies   []Comment `json:"questionReplies"`
	CreatedAt time.Time `json:"createdAt"`
}

type Review struct {
	ID        string    `json:"_id"`
	Author    Author    `json:"user"`
	Rating    float64   `json:"rating"`
	Comment   string    `json:"comment"`
	Replies   []Comment `json:"commentReplies"`
	CreatedAt time.Time `json:"createdAt"`
}

type ContentItem struct {
	ID           string     `json:"_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	VideoURL     string     `json:"videoUrl,omitempty"`
	VideoSection string     `json:"videoSection"`
	VideoLength  int        `json:"videoLength"`
	Links        []Link     `json:"links,omitempty"`
	Suggestion   string     `json:"suggestion,omitempty"`
	Questions    []Question `json:"questions,omitempty"`
}

// Course is persisted as a single document; Version guards whole-document
// writes against lost updates.
type Course struct {
	ID             string        `json:"_id"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Categories     string        `json:"categories"`
	Price          float64       `json:"price"`
	EstimatedPrice float64       `json:"estimatedPrice,omitempty"`
	Thumbnail      Thumbnail     `json:"thumbnail"`
	Tags           string        `json:"tags"`
	Level          string        `json:"level"`
	DemoURL        string        `json:"demoUrl"`
	Benefits       []Titled      `json:"benefits"`
	Prerequisites  []Titled      `json:"prerequisites"`
	Content        []ContentItem `json:"courseData"`
	Reviews        []Review      `json:"reviews"`
	Rating         float64       `json:"ratings"`
	Purchased      int           `json:"purchased"`
	Version        int64         `json:"version"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

func (c *Course) ContentByID(id string) *ContentItem {
	for i := range c.Content {
		if c.Content[i].ID == id {
			return &c.Content[i]
		}
	}
	return nil
}

func (c *Course) ReviewByID(id string) *Review {
	for i := range c.Reviews {
		if c.Reviews[i].ID == id {
			return &c.Reviews[i]
		}
	}
	return nil
}

func (item *ContentItem) QuestionByID(id string) *Question {
	for i := range item.Questions {
		if item.Questions[i].ID == id {
			return &item.Questions[i]
		}
	}
	return nil
}

// RecomputeRating sets Rating to the arithmetic mean of all review ratings.
func (c *Course) RecomputeRating() {
	if len(c.Reviews) == 0 {
		c.Rating = 0
		return
	}
	var sum float64
	for _, r := range c.Reviews {
		sum += r.Rating
	}
	c.Rating = sum / float64(len(c.Reviews))
}

// PublicView strips what only buyers may see (questions, links,
// suggestions, video urls) and the email of every reviewer.
func (c Course) PublicView() Course {
	out := c
	out.Content = make([]ContentItem, len(c.Content))
	for i, item := range c.Content {
		item.VideoURL = ""
		item.Links = nil
		item.Suggestion = ""
		item.Questions = nil
		out.Content[i] = item
	}

	if c.Reviews != nil {
		out.Reviews = make([]Review, len(c.Reviews))
		for i, review := range c.Reviews {
			review.Author.Email = ""
			if review.Replies != nil {
				replies := make([]Comment, len(review.Replies))
				for j, reply := range review.Replies {
					reply.Author.Email = ""
					replies[j] = reply
				}
				review.Replies = replies
			}
			out.Reviews[i] = review
		}
	}
	return out
}
