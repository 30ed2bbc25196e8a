//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"guestfeedback/feedback-service/internal/app/feedback/config"
	"guestfeedback/feedback-service/internal/app/feedback/database"
	"guestfeedback/feedback-service/internal/app/feedback/entity"
	"guestfeedback/feedback-service/internal/app/feedback/handler"
	"guestfeedback/feedback-service/internal/app/feedback/report"
	"guestfeedback/feedback-service/internal/app/feedback/repository"
	"guestfeedback/feedback-service/internal/app/feedback/repository/mocks"
	"guestfeedback/feedback-service/internal/app/feedback/service"
)

type FeedbackIntegrationTestSuite struct {
	suite.Suite
	manager   *database.Manager
	db        *mongo.Database
	router    *gin.Engine
	publisher *mocks.MockEventPublisher
}

func TestFeedbackIntegrationSuite(t *testing.T) {
	suite.Run(t, new(FeedbackIntegrationTestSuite))
}

func (s *FeedbackIntegrationTestSuite) SetupSuite() {
	cfg := config.MongoDBConfig{
		URI:                    getEnv("TEST_MONGODB_URI", "mongodb://localhost:27017"),
		Database:               getEnv("TEST_MONGODB_DATABASE", "feedback_test_db"),
		ServerSelectionTimeout: 5 * time.Second,
		SocketTimeout:          10 * time.Second,
	}

	s.manager = database.NewManager(cfg)
	s.manager.OnConnect(repository.EnsureSchema)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	s.db, err = s.manager.Database(ctx)
	s.Require().NoError(err)

	reviewRepo := repository.NewReviewRepository(s.manager)
	clickRepo := repository.NewStarClickRepository(s.manager)
	s.publisher = &mocks.MockEventPublisher{Events: make([]entity.FeedbackEvent, 0)}

	feedbackService := service.NewFeedbackService(reviewRepo, clickRepo, s.publisher, nil)
	reportService := service.NewReportService(reviewRepo, clickRepo, nil)

	gin.SetMode(gin.TestMode)
	feedbackHandler := handler.NewFeedbackHandler(feedbackService, reportService, report.NewPDFRenderer(), "")
	s.router = handler.SetupRoutes(feedbackHandler, handler.NewHealthHandler(s.manager), nil)
}

func (s *FeedbackIntegrationTestSuite) SetupTest() {
	ctx := context.Background()
	// коллекции не удаляем, иначе пропадёт $jsonSchema
	s.db.Collection(repository.ReviewsCollection).DeleteMany(ctx, bson.M{})
	s.db.Collection(repository.StarClicksCollection).DeleteMany(ctx, bson.M{})

	s.publisher.Events = make([]entity.FeedbackEvent, 0)
	s.publisher.ExpectedCalls = nil
	s.publisher.Calls = nil
	s.publisher.On("PublishEvent", mock.Anything, mock.Anything).Return(nil)
}

func (s *FeedbackIntegrationTestSuite) TearDownSuite() {
	if s.manager != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.manager.Close(ctx)
	}
}

func (s *FeedbackIntegrationTestSuite) post(body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req, _ := http.NewRequest(http.MethodPost, "/reviews", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func (s *FeedbackIntegrationTestSuite) list() entity.ReviewListResponse {
	req, _ := http.NewRequest(http.MethodGet, "/reviews", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Require().Equal(http.StatusOK, w.Code)

	var resp entity.ReviewListResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *FeedbackIntegrationTestSuite) TestFiveStarClick_IncrementsCounterOnly() {
	before := s.list()

	w, resp := s.post(`{"rating":5,"name":"ignored","email":"nope"}`)

	s.Equal(http.StatusCreated, w.Code)
	s.Equal(true, resp["success"])
	s.NotEmpty(resp["id"])

	after := s.list()
	s.Equal(before.FiveStarClicks+1, after.FiveStarClicks)
	s.Equal(len(before.Reviews), len(after.Reviews))
	s.Len(s.publisher.Events, 1)
}

func (s *FeedbackIntegrationTestSuite) TestReview_Normalized() {
	w, resp := s.post(`{"rating":3,"name":" Ana ","email":" ANA@X.COM ","opinion":"Great stay overall"}`)

	s.Require().Equal(http.StatusCreated, w.Code)
	s.Equal("review saved", resp["message"])

	listed := s.list()
	s.Require().Len(listed.Reviews, 1)
	stored := listed.Reviews[0]
	s.Equal("Ana", stored.Name)
	s.Equal("ana@x.com", stored.Email)
	s.Equal("Great stay overall", stored.Opinion)
	s.Equal(3, stored.Rating)
	s.False(stored.CreatedAt.IsZero())
}

func (s *FeedbackIntegrationTestSuite) TestShortOpinion_ValidationError() {
	w, resp := s.post(`{"rating":2,"name":"A","email":"a@b.co","opinion":"short"}`)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("validation error", resp["error"])
	s.NotNil(resp["details"])
	s.Empty(s.list().Reviews)
	s.Empty(s.publisher.Events)
}

func (s *FeedbackIntegrationTestSuite) TestMissingFields_NoWrite() {
	w, resp := s.post(`{"rating":2,"name":"Bob"}`)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("all fields required for 1-4 star reviews", resp["error"])
	s.Empty(s.list().Reviews)
}

func (s *FeedbackIntegrationTestSuite) TestList_NewestFirst() {
	for _, name := range []string{"first", "second", "third"} {
		w, _ := s.post(`{"rating":4,"name":"` + name + `","email":"x@y.zz","opinion":"Pleasant enough stay"}`)
		s.Require().Equal(http.StatusCreated, w.Code)
		time.Sleep(5 * time.Millisecond)
	}

	reviews := s.list().Reviews
	s.Require().Len(reviews, 3)
	s.Equal("third", reviews[0].Name)
	s.Equal("first", reviews[2].Name)
}

func (s *FeedbackIntegrationTestSuite) TestServerSideSchemaRejectsBadDocument() {
	_, err := s.db.Collection(repository.ReviewsCollection).InsertOne(context.Background(), bson.M{
		"name": "x", "email": "x@y.zz", "rating": 9, "opinion": "long enough text", "created_at": time.Now(),
	})

	var writeErr mongo.WriteException
	s.Require().True(errors.As(err, &writeErr))
	s.True(writeErr.HasErrorCode(121))
}

func (s *FeedbackIntegrationTestSuite) TestManager_ConcurrentCallersShareClient() {
	var wg sync.WaitGroup
	clients := make([]*mongo.Client, 20)

	for i := range clients {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			clients[i], _ = s.manager.Client(context.Background())
		}(i)
	}
	wg.Wait()

	for _, c := range clients {
		s.Same(clients[0], c)
	}
}

func (s *FeedbackIntegrationTestSuite) TestExportPDF() {
	s.post(`{"rating":1,"name":"Zoe","email":"z@x.io","opinion":"Nobody cleaned the room"}`)

	req, _ := http.NewRequest(http.MethodGet, "/reviews/report.pdf", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusOK, w.Code)
	s.True(bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

func (s *FeedbackIntegrationTestSuite) TestHealth() {
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusOK, w.Code)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
