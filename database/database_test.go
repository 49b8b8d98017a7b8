package database

import (
	"testing"
	"time"

	"eduvibe/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConnectSqliteMigrates(t *testing.T) {
	db, err := Connect(MemoryConfig(uuid.NewString()), zap.NewNop())
	require.NoError(t, err)

	for _, m := range []interface{}{
		&models.User{}, &models.OTP{}, &models.LoginTracking{},
		&models.AadharVerification{}, &models.Course{}, &models.LiveClass{}, &models.WatchProgress{},
	} {
		assert.True(t, db.Migrator().HasTable(m))
	}
}

func TestLiveClassRoundTripsSettingsAndCollections(t *testing.T) {
	db, err := Connect(MemoryConfig(uuid.NewString()), zap.NewNop())
	require.NoError(t, err)

	settings := models.DefaultClassSettings()
	settings.ChatEnabled = false

	class := models.LiveClass{
		Title:              "Organic Chemistry",
		CourseID:           1,
		TeacherID:          7,
		ScheduledStartTime: time.Now().Add(time.Hour),
		Status:             models.ClassScheduled,
		MaxQuality:         models.DefaultMaxQuality,
		Settings:           settings,
		Participants: []models.Participant{
			{UserID: 9, Role: models.RoleStudent, JoinedAt: time.Now()},
		},
	}
	require.NoError(t, db.Create(&class).Error)

	var got models.LiveClass
	require.NoError(t, db.First(&got, class.ID).Error)
	assert.False(t, got.Settings.ChatEnabled)
	assert.True(t, got.Settings.PollsEnabled)
	assert.Equal(t, 100, got.Settings.ParticipantLimit)
	require.Len(t, got.Participants, 1)
	assert.Equal(t, uint(9), got.Participants[0].UserID)
	assert.Empty(t, got.Polls)
}
