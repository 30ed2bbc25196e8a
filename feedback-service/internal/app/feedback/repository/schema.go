package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"guestfeedback/feedback-service/internal/app/feedback/entity"
	"guestfeedback/feedback-service/internal/app/feedback/validation"
)

const (
	ReviewsCollection    = "reviews"
	StarClicksCollection = "starclicks"

	codeNamespaceExists           = 48
	codeDocumentValidationFailure = 121
)

var (
	// Стандартные ошибки репозитория для обработки в service layer
	ErrDuplicateKey = errors.New("duplicate key")
)

// SchemaError - документ не прошёл схему хранилища
type SchemaError struct {
	Details []entity.FieldError
	Err     error
}

func (e *SchemaError) Error() string {
	msgs := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		msgs = append(msgs, d.Message)
	}
	return "schema validation failed: " + strings.Join(msgs, "; ")
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

var schemaEngine = validation.NewEngine()

// validateReview - схема документа отзыва; все четыре поля проверяются вместе
func validateReview(review *entity.Review) error {
	err := schemaEngine.Struct(review)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &SchemaError{Details: []entity.FieldError{{Field: "review", Message: err.Error()}}, Err: err}
	}

	schemaErr := &SchemaError{}
	for _, fe := range fieldErrs {
		field := strings.ToLower(fe.Field())
		schemaErr.Details = append(schemaErr.Details, entity.FieldError{Field: field, Message: schemaMessage(field, fe)})
	}
	return schemaErr
}

func schemaMessage(field string, fe validator.FieldError) string {
	switch {
	case fe.Tag() == "required":
		return field + " is required"
	case fe.Tag() == validation.LooseEmailTag:
		return validation.MessageInvalidEmail
	case field == "rating":
		return "rating must be between 1 and 4"
	case fe.Tag() == "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	default:
		return field + " is invalid"
	}
}

// classifyWriteError приводит ошибки драйвера к ошибкам репозитория
func classifyWriteError(err error) error {
	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) && serverErr.HasErrorCode(codeDocumentValidationFailure) {
		return &SchemaError{
			Details: []entity.FieldError{{Field: "document", Message: "document failed validation"}},
			Err:     err,
		}
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	return err
}

var reviewJSONSchema = bson.M{
	"bsonType": "object",
	"required": bson.A{"name", "email", "rating", "opinion", "created_at"},
	"properties": bson.M{
		"name":       bson.M{"bsonType": "string", "minLength": 1},
		"email":      bson.M{"bsonType": "string", "pattern": validation.EmailPattern.String()},
		"rating":     bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1, "maximum": 4},
		"opinion":    bson.M{"bsonType": "string", "minLength": 10},
		"created_at": bson.M{"bsonType": "date"},
	},
}

var starClickJSONSchema = bson.M{
	"bsonType": "object",
	"required": bson.A{"clicked_at"},
	"properties": bson.M{
		"clicked_at": bson.M{"bsonType": "date"},
	},
}

// EnsureSchema создаёт коллекции с $jsonSchema и индексы по дате.
// Вызывается после каждого подключения; существующие коллекции обновляются через collMod.
func EnsureSchema(ctx context.Context, db *mongo.Database) error {
	if err := ensureCollection(ctx, db, ReviewsCollection, reviewJSONSchema, "created_at"); err != nil {
		return err
	}
	return ensureCollection(ctx, db, StarClicksCollection, starClickJSONSchema, "clicked_at")
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, schema bson.M, dateField string) error {
	validatorDoc := bson.M{"$jsonSchema": schema}

	err := db.CreateCollection(ctx, name, options.CreateCollection().SetValidator(validatorDoc))
	if err != nil {
		var serverErr mongo.ServerError
		if !errors.As(err, &serverErr) || !serverErr.HasErrorCode(codeNamespaceExists) {
			return fmt.Errorf("failed to create collection %s: %w", name, err)
		}
		cmd := bson.D{{Key: "collMod", Value: name}, {Key: "validator", Value: validatorDoc}}
		if err := db.RunCommand(ctx, cmd).Err(); err != nil {
			return fmt.Errorf("failed to update validator on %s: %w", name, err)
		}
	}

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: dateField, Value: -1}},
		Options: options.Index().SetName(dateField + "_desc_idx"),
	}
	if _, err := db.Collection(name).Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("failed to create index on %s.%s: %w", name, dateField, err)
	}

	return nil
}
