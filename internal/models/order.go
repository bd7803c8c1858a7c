package models

import "time"

type Order struct {
	ID        string    `json:"_id"`
	UserID    string    `json:"userId"`
	CourseID  string    `json:"courseId"`
	CreatedAt time.Time `json:"createdAt"`
}

// OrderDetail is an order joined with the referenced course and user.
type OrderDetail struct {
	Order
	CourseTitle string  `json:"courseTitle"`
	CoursePrice float64 `json:"coursePrice"`
	UserName    string  `json:"userName"`
	UserEmail   string  `json:"userEmail"`
}
