// Package validation содержит правила проверки формы отзыва на уровне запроса.
// Клиентская форма может проверять строже, но решение принимает сервер.
package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"guestfeedback/feedback-service/internal/app/feedback/entity"
)

const (
	MessageRatingRequired = "rating is required"
	MessageInvalidRating  = "invalid rating"
	MessageFieldsRequired = "all fields required for 1-4 star reviews"
	MessageInvalidEmail   = "invalid email format"

	FiveStars = 5

	LooseEmailTag = "loose_email"
)

// EmailPattern - нестрогая проверка вида something@something.something
var EmailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// NewEngine возвращает validator с тегом loose_email; используется и схемой хранилища.
// Ошибка регистрации тега - ошибка программиста, поэтому panic.
func NewEngine() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation(LooseEmailTag, looseEmail); err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", LooseEmailTag, err))
	}
	return v
}

func looseEmail(fl validator.FieldLevel) bool {
	return EmailPattern.MatchString(fl.Field().String())
}

// Submission - нормализованные поля формы
type Submission struct {
	Rating  int
	Name    string `validate:"required"`
	Email   string `validate:"required"`
	Opinion string `validate:"required"`
}

// Result - итог проверки. Message - сообщение первого сработавшего этапа.
type Result struct {
	Message string
	Errors  []entity.FieldError
}

func (r *Result) Valid() bool {
	return r == nil || len(r.Errors) == 0
}

type Validator struct {
	engine *validator.Validate
}

func New() *Validator {
	return &Validator{engine: NewEngine()}
}

// Validate проверяет запрос и возвращает нормализованные поля.
// При оценке 5 остальные поля не читаются и в результат не попадают.
func (v *Validator) Validate(req *entity.SubmitFeedbackRequest) (Submission, *Result) {
	rating, res := parseRating(req.Rating)
	if res != nil {
		return Submission{}, res
	}
	if rating == FiveStars {
		return Submission{Rating: rating}, nil
	}

	sub := Submission{
		Rating:  rating,
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.ToLower(strings.TrimSpace(req.Email)),
		Opinion: strings.TrimSpace(req.Opinion),
	}

	if err := v.engine.Struct(sub); err != nil {
		res := &Result{Message: MessageFieldsRequired}
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				field := strings.ToLower(fe.Field())
				res.Errors = append(res.Errors, entity.FieldError{Field: field, Message: field + " is required"})
			}
		}
		if len(res.Errors) == 0 {
			res.Errors = []entity.FieldError{{Field: "form", Message: MessageFieldsRequired}}
		}
		return Submission{}, res
	}

	if err := v.engine.Var(sub.Email, LooseEmailTag); err != nil {
		return Submission{}, &Result{
			Message: MessageInvalidEmail,
			Errors:  []entity.FieldError{{Field: "email", Message: MessageInvalidEmail}},
		}
	}

	return sub, nil
}

// parseRating принимает только JSON число с целым значением 1-5 (3 и 3.0 равны).
// Отсутствие и null - "rating is required", всё остальное - "invalid rating".
func parseRating(raw json.RawMessage) (int, *Result) {
	value := bytes.TrimSpace(raw)
	if len(value) == 0 || bytes.Equal(value, []byte("null")) {
		return 0, &Result{
			Message: MessageRatingRequired,
			Errors:  []entity.FieldError{{Field: "rating", Message: MessageRatingRequired}},
		}
	}

	invalid := &Result{
		Message: MessageInvalidRating,
		Errors:  []entity.FieldError{{Field: "rating", Message: MessageInvalidRating}},
	}

	// строки, bool, объекты и массивы числом не являются
	if first := value[0]; first != '-' && (first < '0' || first > '9') {
		return 0, invalid
	}

	number, err := strconv.ParseFloat(string(value), 64)
	if err != nil || number != math.Trunc(number) || number < 1 || number > FiveStars {
		return 0, invalid
	}
	return int(number), nil
}
