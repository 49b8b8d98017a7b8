package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"eduvibe/database"
	"eduvibe/models"
	"eduvibe/services/liveclass"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	teacherID = uint(7)
	studentID = uint(21)
)

// tokenTable authenticates "token-<id>"
type tokenTable struct{}

func (tokenTable) Authenticate(token string) (uint, string, error) {
	var id uint
	if _, err := fmt.Sscanf(token, "token-%d", &id); err != nil || id == 0 {
		return 0, "", errors.New("bad token")
	}
	if id == teacherID {
		return id, models.UserTypeTeacher, nil
	}
	return id, models.UserTypeStudent, nil
}

type fixture struct {
	hub     *Hub
	engine  *liveclass.Engine
	gateway *Gateway
	classID uint
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Connect(database.MemoryConfig(uuid.NewString()), zap.NewNop())
	require.NoError(t, err)

	hub := NewHub(zap.NewNop())
	engine := liveclass.NewEngine(db, hub, zap.NewNop())
	gateway := NewGateway(hub, engine, tokenTable{}, nil, zap.NewNop())

	course := models.Course{Title: "Organic Chemistry", TeacherID: teacherID, Category: models.CategoryIITJEE}
	require.NoError(t, db.Create(&course).Error)

	class, err := engine.Create(context.Background(), teacherID, liveclass.CreateInput{
		Title:              "Aldehydes and ketones",
		CourseID:           course.ID,
		ScheduledStartTime: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	return &fixture{hub: hub, engine: engine, gateway: gateway, classID: class.ID}
}

func send(t *testing.T, g *Gateway, c *Client, event string, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	frame, err := json.Marshal(Frame{Event: event, Data: raw})
	require.NoError(t, err)
	g.Handle(c, frame)
}

func connect(t *testing.T, f *fixture, userID uint) *Client {
	t.Helper()
	c := NewClient(uuid.NewString(), 64)
	send(t, f.gateway, c, ActionAuthenticate, fmt.Sprintf("token-%d", userID))
	frames := drain(t, c)
	require.Len(t, frames, 1)
	require.Equal(t, EventAuthenticated, frames[0].Event)
	return c
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	c := NewClient("c", 16)

	send(t, f.gateway, c, ActionJoinClass, f.classID)
	frames := drain(t, c)
	require.Len(t, frames, 1)
	assert.Equal(t, EventError, frames[0].Event)
	assert.Contains(t, string(frames[0].Data), "Unauthenticated")

	send(t, f.gateway, c, ActionAuthenticate, "garbage")
	frames = drain(t, c)
	require.Len(t, frames, 1)
	assert.Equal(t, EventAuthError, frames[0].Event)

	send(t, f.gateway, c, ActionAuthenticate, map[string]string{"token": "token-21"})
	frames = drain(t, c)
	require.Len(t, frames, 1)
	assert.Equal(t, EventAuthenticated, frames[0].Event)
	assert.JSONEq(t, `{"userId":21}`, string(frames[0].Data))
	assert.Equal(t, studentID, c.UserID())
}

func TestActionsNeedARoom(t *testing.T) {
	f := newFixture(t)
	c := connect(t, f, studentID)

	for _, action := range []string{ActionChatMessage, ActionHandRaise, ActionPollVote} {
		send(t, f.gateway, c, action, map[string]string{})
		frames := drain(t, c)
		require.Len(t, frames, 1, action)
		assert.Contains(t, string(frames[0].Data), "NotInClass", action)
	}
}

func TestClassScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := liveclass.Room(f.classID)

	started, err := f.engine.Start(ctx, f.classID, teacherID)
	require.NoError(t, err)
	assert.Equal(t, models.ClassLive, started.Status)
	assert.NotNil(t, started.ActualStartTime)

	student := connect(t, f, studentID)
	send(t, f.gateway, student, ActionJoinClass, map[string]uint{"classId": f.classID})

	frames := drain(t, student)
	assert.Equal(t, 1, lastCount(t, frames))
	assert.NotEmpty(t, framesNamed(frames, EventJoinedClass))
	assert.Equal(t, 1, f.engine.ViewerCount(f.classID))

	class, err := f.engine.Get(ctx, f.classID)
	require.NoError(t, err)
	require.Len(t, class.Participants, 1)
	assert.Nil(t, class.Participants[0].LeftAt)

	send(t, f.gateway, student, ActionLeaveClass, nil)
	assert.Equal(t, 0, f.hub.RoomSize(room))
	assert.Equal(t, 0, f.engine.ViewerCount(f.classID))

	class, err = f.engine.Get(ctx, f.classID)
	require.NoError(t, err)
	assert.NotNil(t, class.Participants[0].LeftAt)

	ended, err := f.engine.End(ctx, f.classID, teacherID)
	require.NoError(t, err)
	assert.Equal(t, models.ClassEnded, ended.Status)
	assert.NotNil(t, ended.EndTime)

	_, err = f.engine.Join(ctx, f.classID, studentID, "")
	assert.ErrorIs(t, err, liveclass.ErrNotJoinable)
}

func TestWatcherSeesViewerCountChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.Start(ctx, f.classID, teacherID)
	require.NoError(t, err)

	teacher := connect(t, f, teacherID)
	send(t, f.gateway, teacher, ActionJoinClass, f.classID)
	drain(t, teacher)

	student := connect(t, f, studentID)
	send(t, f.gateway, student, ActionJoinClass, fmt.Sprint(f.classID))
	frames := drain(t, teacher)
	assert.Equal(t, 2, lastCount(t, frames))
	assert.NotEmpty(t, framesNamed(frames, liveclass.EventParticipantJoined))

	f.gateway.Disconnect(student)
	assert.Equal(t, 1, lastCount(t, drain(t, teacher)))

	// a dropped socket closes the roster entry too
	class, err := f.engine.Get(ctx, f.classID)
	require.NoError(t, err)
	for _, p := range class.Participants {
		if p.UserID == studentID {
			assert.NotNil(t, p.LeftAt)
		}
	}
}

func TestRestLeaveEvictsSockets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.Start(ctx, f.classID, teacherID)
	require.NoError(t, err)

	teacher := connect(t, f, teacherID)
	send(t, f.gateway, teacher, ActionJoinClass, f.classID)
	student := connect(t, f, studentID)
	send(t, f.gateway, student, ActionJoinClass, f.classID)
	drain(t, teacher)
	drain(t, student)

	_, err = f.engine.Leave(ctx, f.classID, studentID)
	require.NoError(t, err)

	assert.Equal(t, 1, f.hub.RoomSize(liveclass.Room(f.classID)))
	assert.Equal(t, 1, lastCount(t, drain(t, teacher)))
	assert.NotEmpty(t, framesNamed(drain(t, student), EventLeftClass))
}

func TestSecondSocketKeepsAttendanceOpen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.Start(ctx, f.classID, teacherID)
	require.NoError(t, err)

	phone := connect(t, f, studentID)
	laptop := connect(t, f, studentID)
	send(t, f.gateway, phone, ActionJoinClass, f.classID)
	send(t, f.gateway, laptop, ActionJoinClass, f.classID)

	// second join tolerated the existing entry
	for _, fr := range framesNamed(drain(t, laptop), EventError) {
		t.Fatalf("unexpected error frame: %s", fr.Data)
	}

	f.gateway.Disconnect(phone)
	class, err := f.engine.Get(ctx, f.classID)
	require.NoError(t, err)
	require.Len(t, class.Participants, 1)
	assert.Nil(t, class.Participants[0].LeftAt)

	f.gateway.Disconnect(laptop)
	class, err = f.engine.Get(ctx, f.classID)
	require.NoError(t, err)
	assert.NotNil(t, class.Participants[0].LeftAt)
}

func TestSlowSocketDropStillClosesAttendance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.Start(ctx, f.classID, teacherID)
	require.NoError(t, err)

	slow := NewClient("slow", 4)
	send(t, f.gateway, slow, ActionAuthenticate, fmt.Sprintf("token-%d", studentID))
	drain(t, slow)
	send(t, f.gateway, slow, ActionJoinClass, f.classID)
	require.NotEmpty(t, framesNamed(drain(t, slow), EventJoinedClass))

	// the socket never reads, so chat eventually overflows its buffer
	for i := 0; i < 6; i++ {
		_, err := f.engine.PostChat(ctx, f.classID, teacherID, "teacher", fmt.Sprintf("slide %d", i))
		require.NoError(t, err)
	}
	select {
	case <-slow.Done():
	default:
		t.Fatal("slow client should be dropped")
	}
	assert.Equal(t, 0, f.hub.RoomSize(liveclass.Room(f.classID)))

	f.gateway.Disconnect(slow)

	class, err := f.engine.Get(ctx, f.classID)
	require.NoError(t, err)
	require.Len(t, class.Participants, 1)
	assert.NotNil(t, class.Participants[0].LeftAt, "roster entry should be closed")

	// a second disconnect does not touch the closed entry again
	f.gateway.Disconnect(slow)
	_, ok := slow.takeDropped()
	assert.False(t, ok)
}

func TestSocketChatHandRaiseAndVote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.Start(ctx, f.classID, teacherID)
	require.NoError(t, err)

	teacher := connect(t, f, teacherID)
	send(t, f.gateway, teacher, ActionJoinClass, f.classID)
	student := connect(t, f, studentID)
	send(t, f.gateway, student, ActionJoinClass, f.classID)
	drain(t, teacher)
	drain(t, student)

	send(t, f.gateway, student, ActionChatMessage, map[string]string{"content": "Is this on the exam?", "username": "asha"})
	chats := framesNamed(drain(t, teacher), liveclass.EventChatMessage)
	require.Len(t, chats, 1)
	var msg models.ChatMessage
	require.NoError(t, json.Unmarshal(chats[0].Data, &msg))
	assert.Equal(t, "Is this on the exam?", msg.Content)
	assert.Equal(t, studentID, msg.UserID)

	send(t, f.gateway, student, ActionHandRaise, map[string]interface{}{"username": "asha", "raised": true})
	raises := framesNamed(drain(t, teacher), liveclass.EventHandRaise)
	require.Len(t, raises, 1)
	var raise models.HandRaise
	require.NoError(t, json.Unmarshal(raises[0].Data, &raise))
	assert.True(t, raise.Raised)

	poll, err := f.engine.CreatePoll(ctx, f.classID, teacherID, "Tollens test detects?", []string{"Aldehyde", "Ketone"})
	require.NoError(t, err)
	drain(t, teacher)
	drain(t, student)

	send(t, f.gateway, student, ActionPollVote, map[string]interface{}{"pollId": poll.ID, "optionIndex": 0})
	results := framesNamed(drain(t, teacher), liveclass.EventPollResults)
	require.Len(t, results, 1)
	var pr liveclass.PollResults
	require.NoError(t, json.Unmarshal(results[0].Data, &pr))
	assert.Equal(t, 100, pr.Results[0].Percentage)

	send(t, f.gateway, student, ActionPollVote, map[string]interface{}{"pollId": poll.ID, "optionIndex": 1})
	errs := framesNamed(drain(t, student), EventError)
	require.Len(t, errs, 1)
	assert.Contains(t, string(errs[0].Data), "AlreadyVoted")
}

func TestJoinScheduledClassWatchesWithoutRoster(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	student := connect(t, f, studentID)
	send(t, f.gateway, student, ActionJoinClass, f.classID)
	assert.Equal(t, 1, lastCount(t, drain(t, student)))

	_, err := f.engine.Start(ctx, f.classID, teacherID)
	require.NoError(t, err)
	assert.NotEmpty(t, framesNamed(drain(t, student), liveclass.EventClassStarted))

	class, err := f.engine.Get(ctx, f.classID)
	require.NoError(t, err)
	assert.Empty(t, class.Participants)
}

func TestDecodeClassID(t *testing.T) {
	for _, raw := range []string{`12`, `"12"`, `{"classId":12}`, `{"classId":"12"}`} {
		id, err := decodeClassID(json.RawMessage(raw))
		require.NoError(t, err, raw)
		assert.Equal(t, uint(12), id, raw)
	}
	for _, raw := range []string{`0`, `"abc"`, `{}`, `null`} {
		_, err := decodeClassID(json.RawMessage(raw))
		assert.Error(t, err, raw)
	}
}
