package liveClassRoutes

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	controllers "eduvibe/controllers/liveClass"
	"eduvibe/database"
	"eduvibe/middleware"
	"eduvibe/models"
	"eduvibe/realtime"
	"eduvibe/services/liveclass"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	teacherID = uint(7)
	studentID = uint(21)
)

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

type fixture struct {
	app      *fiber.App
	tokens   *middleware.TokenIssuer
	courseID uint
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Connect(database.MemoryConfig(uuid.NewString()), zap.NewNop())
	require.NoError(t, err)

	course := models.Course{Title: "Physics", TeacherID: teacherID, Category: models.CategoryNEET}
	require.NoError(t, db.Create(&course).Error)

	tokens := middleware.NewTokenIssuer("secret", time.Hour, time.Hour, time.Hour)
	engine := liveclass.NewEngine(db, realtime.NewHub(zap.NewNop()), zap.NewNop())

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(zap.NewNop(), false)})
	SetupLiveClassRoutes(app.Group("/api"), controllers.New(engine, zap.NewNop()), tokens)

	return &fixture{app: app, tokens: tokens, courseID: course.ID}
}

func (f *fixture) do(t *testing.T, userID uint, method, path, body string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "/api/live-classes"+path, reader)
	req.Header.Set("Content-Type", "application/json")

	userType := models.UserTypeStudent
	if userID == teacherID {
		userType = models.UserTypeTeacher
	}
	token, err := f.tokens.Issue(userID, userType, middleware.TokenAccess)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func (f *fixture) create(t *testing.T, settings string) uint {
	t.Helper()
	body := fmt.Sprintf(`{"title":"Kinematics","courseId":%d,"scheduledStartTime":"%s"%s}`,
		f.courseID, time.Now().Add(time.Hour).UTC().Format(time.RFC3339), settings)
	code, env := f.do(t, teacherID, "POST", "/", body)
	require.Equal(t, fiber.StatusCreated, code, env.Message)

	var class models.LiveClass
	require.NoError(t, json.Unmarshal(env.Data, &class))
	return class.ID
}

func TestOnlyTeachersCreate(t *testing.T) {
	f := newFixture(t)
	body := fmt.Sprintf(`{"title":"Kinematics","courseId":%d,"scheduledStartTime":"2030-01-01T10:00:00Z"}`, f.courseID)
	code, _ := f.do(t, studentID, "POST", "/", body)
	assert.Equal(t, fiber.StatusForbidden, code)

	code, env := f.do(t, teacherID, "POST", "/", `{"title":"Kinematics","courseId":1,"scheduledStartTime":"soon"}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, code, env.Message)

	code, _ = f.do(t, teacherID, "POST", "/", `{"title":"x","courseId":1,"scheduledStartTime":"2030-01-01","settings":{"participantLimit":0}}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, code)

	code, _ = f.do(t, teacherID, "POST", "/", `{"title":"x","courseId":999,"scheduledStartTime":"2030-01-01"}`)
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestClassOverREST(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, "")
	path := fmt.Sprintf("/%d", id)

	code, _ := f.do(t, studentID, "POST", path+"/join", "")
	assert.Equal(t, fiber.StatusBadRequest, code, "scheduled classes are not joinable")

	code, _ = f.do(t, studentID, "POST", path+"/start", "")
	assert.Equal(t, fiber.StatusForbidden, code)

	code, _ = f.do(t, teacherID, "POST", path+"/start", "")
	require.Equal(t, fiber.StatusOK, code)

	code, _ = f.do(t, teacherID, "POST", path+"/start", "")
	assert.Equal(t, fiber.StatusConflict, code)

	code, env := f.do(t, studentID, "POST", path+"/join", "")
	require.Equal(t, fiber.StatusOK, code, env.Message)
	assert.Contains(t, string(env.Data), `"maxQuality":"720p"`)

	code, _ = f.do(t, studentID, "POST", path+"/join", "")
	assert.Equal(t, fiber.StatusConflict, code)

	// polls
	code, env = f.do(t, teacherID, "POST", path+"/polls", `{"question":"Unit of force?","options":["Newton","Joule"]}`)
	require.Equal(t, fiber.StatusCreated, code, env.Message)
	var poll models.Poll
	require.NoError(t, json.Unmarshal(env.Data, &poll))

	code, _ = f.do(t, teacherID, "POST", path+"/polls", `{"question":"Only one?","options":["yes"]}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, code)

	code, env = f.do(t, studentID, "POST", path+"/polls/"+poll.ID+"/vote", `{"optionIndex":0}`)
	require.Equal(t, fiber.StatusOK, code, env.Message)
	assert.Contains(t, string(env.Data), `"percentage":100`)

	code, env = f.do(t, studentID, "POST", path+"/polls/"+poll.ID+"/vote", `{"optionIndex":1}`)
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, "Already voted on this poll", env.Message)

	code, _ = f.do(t, studentID, "POST", path+"/polls/"+poll.ID+"/vote", `{}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, code)

	code, _ = f.do(t, studentID, "POST", path+"/polls/"+poll.ID+"/close", "")
	assert.Equal(t, fiber.StatusForbidden, code)
	code, _ = f.do(t, teacherID, "POST", path+"/polls/"+poll.ID+"/close", "")
	assert.Equal(t, fiber.StatusOK, code)

	// hand raise toggles without a body
	code, env = f.do(t, studentID, "POST", path+"/hand-raise", "")
	require.Equal(t, fiber.StatusOK, code, env.Message)
	var raise models.HandRaise
	require.NoError(t, json.Unmarshal(env.Data, &raise))
	assert.True(t, raise.Raised)

	code, _ = f.do(t, teacherID, "POST", path+"/hand-raise/"+raise.ID+"/resolve", "")
	assert.Equal(t, fiber.StatusOK, code)

	code, env = f.do(t, studentID, "POST", path+"/chat", `{"content":"  thanks!  ","username":"asha"}`)
	require.Equal(t, fiber.StatusCreated, code, env.Message)
	assert.Contains(t, string(env.Data), `"content":"thanks!"`)

	code, env = f.do(t, studentID, "GET", path, "")
	require.Equal(t, fiber.StatusOK, code)
	assert.Contains(t, string(env.Data), `"viewerCount":0`)

	code, _ = f.do(t, studentID, "POST", path+"/leave", "")
	assert.Equal(t, fiber.StatusOK, code)

	code, _ = f.do(t, teacherID, "POST", path+"/end", "")
	require.Equal(t, fiber.StatusOK, code)

	code, _ = f.do(t, studentID, "POST", path+"/join", "")
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestModeratorGrantOverREST(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, "")
	path := fmt.Sprintf("/%d", id)

	code, _ := f.do(t, teacherID, "POST", path+"/start", "")
	require.Equal(t, fiber.StatusOK, code)

	code, env := f.do(t, studentID, "POST", path+"/join", `{"role":"MODERATOR"}`)
	require.Equal(t, fiber.StatusOK, code, env.Message)

	code, env = f.do(t, studentID, "GET", path, "")
	require.Equal(t, fiber.StatusOK, code)
	assert.Contains(t, string(env.Data), `"role":"STUDENT"`)
	assert.NotContains(t, string(env.Data), `"role":"MODERATOR"`)

	grant := fmt.Sprintf("%s/participants/%d/moderator", path, studentID)
	code, _ = f.do(t, studentID, "POST", grant, "")
	assert.Equal(t, fiber.StatusForbidden, code)

	code, _ = f.do(t, teacherID, "POST", path+"/participants/abc/moderator", "")
	assert.Equal(t, fiber.StatusUnprocessableEntity, code)

	code, _ = f.do(t, teacherID, "POST", path+"/participants/99/moderator", "")
	assert.Equal(t, fiber.StatusNotFound, code)

	code, env = f.do(t, teacherID, "POST", grant, "")
	require.Equal(t, fiber.StatusOK, code, env.Message)
	assert.Contains(t, string(env.Data), `"role":"MODERATOR"`)
}

func TestEndedClassRejectsInteraction(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, "")
	path := fmt.Sprintf("/%d", id)

	code, _ := f.do(t, teacherID, "POST", path+"/start", "")
	require.Equal(t, fiber.StatusOK, code)
	code, _ = f.do(t, teacherID, "POST", path+"/end", "")
	require.Equal(t, fiber.StatusOK, code)

	code, env := f.do(t, studentID, "POST", path+"/hand-raise", "")
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, "This can only be done while the class is live", env.Message)

	code, _ = f.do(t, teacherID, "POST", path+"/polls", `{"question":"Too late?","options":["yes","no"]}`)
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestDisabledChat(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, `,"settings":{"chatEnabled":false}`)
	path := fmt.Sprintf("/%d", id)

	code, _ := f.do(t, teacherID, "POST", path+"/start", "")
	require.Equal(t, fiber.StatusOK, code)

	code, env := f.do(t, studentID, "POST", path+"/chat", `{"content":"hello"}`)
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, "Chat is disabled for this class", env.Message)
}

func TestListAndBadIDs(t *testing.T) {
	f := newFixture(t)
	f.create(t, "")
	f.create(t, "")

	code, env := f.do(t, studentID, "GET", "/?status=scheduled", "")
	require.Equal(t, fiber.StatusOK, code, env.Message)
	var page struct {
		LiveClasses []models.LiveClass `json:"liveClasses"`
		Pagination  struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Len(t, page.LiveClasses, 2)
	assert.Equal(t, int64(2), page.Pagination.Total)

	code, _ = f.do(t, studentID, "GET", "/?status=PAUSED", "")
	assert.Equal(t, fiber.StatusUnprocessableEntity, code)

	code, _ = f.do(t, studentID, "GET", "/abc", "")
	assert.Equal(t, fiber.StatusUnprocessableEntity, code)

	code, _ = f.do(t, studentID, "GET", "/999", "")
	assert.Equal(t, fiber.StatusNotFound, code)
}
