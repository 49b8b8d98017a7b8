package otp

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ScheduleReaper registers Sweep on c using a cron spec such as "@every 5m".
func (s *Service) ScheduleReaper(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		n, err := s.Sweep(ctx)
		if err != nil {
			s.log.Error("otp sweep failed", zap.Error(err))
			return
		}
		if n > 0 {
			s.log.Info("expired otps removed", zap.Int64("count", n))
		}
	})
}
