package liveclass

import (
	"context"
	"time"

	"eduvibe/models"
	"eduvibe/utils"

	"github.com/jinzhu/now"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SendReminders notifies the teacher of every scheduled class starting
// within lead, rounded out to the end of that minute so a per-minute job
// never skips a class. A class is marked before anything is sent, so it is
// reminded at most once even when delivery fails.
func (e *Engine) SendReminders(ctx context.Context, notifier utils.Notifier, lead time.Duration) (int, error) {
	from := e.now()
	until := now.New(from.Add(lead)).EndOfMinute()

	var ids []uint
	err := e.db.WithContext(ctx).Model(&models.LiveClass{}).
		Where("status = ? AND reminder_sent = ?", models.ClassScheduled, false).
		Where("scheduled_start_time BETWEEN ? AND ?", from, until).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, utils.Internal("Failed to load upcoming classes", err)
	}

	sent := 0
	for _, id := range ids {
		due := false
		class, err := e.mutate(ctx, id, func(class *models.LiveClass) (func(), error) {
			if class.ReminderSent || class.Status != models.ClassScheduled {
				return nil, errUnchanged
			}
			class.ReminderSent = true
			due = true
			return nil, nil
		})
		if err != nil {
			e.log.Warn("marking class reminder", zap.Uint("classId", id), zap.Error(err))
			continue
		}
		if !due {
			continue
		}

		e.remind(ctx, notifier, class)
		sent++
	}
	return sent, nil
}

func (e *Engine) remind(ctx context.Context, notifier utils.Notifier, class *models.LiveClass) {
	var teacher models.User
	if err := e.db.WithContext(ctx).First(&teacher, class.TeacherID).Error; err != nil {
		e.log.Warn("class reminder without teacher", zap.Uint("classId", class.ID), zap.Error(err))
		return
	}

	subject := utils.ClassReminderSubject(class.Title)
	message := utils.ClassReminderMessage(class.Title, teacher.FullName, class.ScheduledStartTime)

	// dispatch failures are logged by the notifier
	_ = notifier.Notify(ctx, "phone", teacher.Phone, subject, message)
	_ = notifier.Notify(ctx, "email", teacher.Email, subject, message)

	e.log.Info("class reminder sent", zap.Uint("classId", class.ID), zap.Uint("teacherId", teacher.ID))
}

// ScheduleReminders registers SendReminders on c using a cron spec such as "@every 1m".
func (e *Engine) ScheduleReminders(c *cron.Cron, spec string, notifier utils.Notifier, lead time.Duration) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if _, err := e.SendReminders(ctx, notifier, lead); err != nil {
			e.log.Error("class reminders failed", zap.Error(err))
		}
	})
}
