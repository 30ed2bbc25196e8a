package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"guestfeedback/feedback-service/internal/app/feedback/entity"
)

func validReview() *entity.Review {
	return &entity.Review{Name: "Ana", Email: "ana@x.com", Rating: 3, Opinion: "Great stay overall", CreatedAt: time.Now()}
}

func TestValidateReview_Valid(t *testing.T) {
	assert.NoError(t, validateReview(validReview()))
}

func TestValidateReview_ShortOpinion(t *testing.T) {
	review := validReview()
	review.Opinion = "short"

	err := validateReview(review)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []entity.FieldError{{Field: "opinion", Message: "opinion must be at least 10 characters"}}, schemaErr.Details)
}

func TestValidateReview_CollectsAllViolations(t *testing.T) {
	review := &entity.Review{Name: "", Email: "a@b", Rating: 5, Opinion: "tiny"}

	err := validateReview(review)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []entity.FieldError{
		{Field: "name", Message: "name is required"},
		{Field: "email", Message: "invalid email format"},
		{Field: "rating", Message: "rating must be between 1 and 4"},
		{Field: "opinion", Message: "opinion must be at least 10 characters"},
	}, schemaErr.Details)
}

func TestClassifyWriteError(t *testing.T) {
	validationFailure := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 121, Message: "Document failed validation"}}}
	var schemaErr *SchemaError
	assert.True(t, errors.As(classifyWriteError(validationFailure), &schemaErr))

	duplicate := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.ErrorIs(t, classifyWriteError(duplicate), ErrDuplicateKey)

	other := errors.New("connection reset")
	assert.Equal(t, other, classifyWriteError(other))
}

type failingProvider struct {
	err error
}

func (p failingProvider) Database(ctx context.Context) (*mongo.Database, error) {
	return nil, p.err
}

func TestReviewRepository_SchemaCheckedBeforeConnecting(t *testing.T) {
	provider := failingProvider{err: errors.New("must not be called")}
	repo := NewReviewRepository(provider)

	review := validReview()
	review.Opinion = "short"
	err := repo.Create(context.Background(), review)

	var schemaErr *SchemaError
	assert.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, primitive.NilObjectID, review.ID)
}

func TestReviewRepository_DatabaseUnavailable(t *testing.T) {
	cause := fmt.Errorf("server selection timeout")
	repo := NewReviewRepository(failingProvider{err: cause})

	err := repo.Create(context.Background(), validReview())
	assert.ErrorIs(t, err, cause)

	_, err = repo.ListNewestFirst(context.Background())
	assert.ErrorIs(t, err, cause)
}

func TestStarClickRepository_DatabaseUnavailable(t *testing.T) {
	cause := fmt.Errorf("server selection timeout")
	repo := NewStarClickRepository(failingProvider{err: cause})

	click := &entity.StarClick{}
	err := repo.Create(context.Background(), click)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, primitive.NilObjectID, click.ID)

	_, err = repo.Count(context.Background())
	assert.ErrorIs(t, err, cause)
}
