package entity

import "encoding/json"

// SubmitFeedbackRequest - тело POST /reviews.
// Rating хранится как есть: строки, bool и дроби должны давать "invalid rating",
// а не ошибку разбора тела.
type SubmitFeedbackRequest struct {
	Rating  json.RawMessage `json:"rating"`
	Name    string          `json:"name"`
	Email   string          `json:"email"`
	Opinion string          `json:"opinion"`
}

// ErrorResponse - стандартный ответ об ошибке
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// ClickResponse - ответ на оценку 5
type ClickResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	ID          string `json:"id"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

// ReviewResponse - ответ на сохранённый отзыв
type ReviewResponse struct {
	Success bool    `json:"success"`
	Review  *Review `json:"review"`
	Message string  `json:"message"`
}

// ReviewListResponse - ответ GET /reviews
type ReviewListResponse struct {
	Success        bool     `json:"success"`
	Reviews        []Review `json:"reviews"`
	FiveStarClicks int64    `json:"fiveStarClicks"`
}

// FieldError - ошибка конкретного поля формы
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
