package app

import (
	"time"

	"github.com/peluqueria/salond/internal/domain"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() error {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	if _, err := a.sched.AddFunc("@every 1m", a.SchedPruneRateLimits); err != nil {
		return errors.Wrap(err, "init job")
	}
	if _, err := a.sched.AddFunc("@daily", a.SchedPurgePastAvailability); err != nil {
		return errors.Wrap(err, "init job")
	}

	a.sched.Start()
	return nil
}

// SchedPruneRateLimits drops finished rate limit windows.
func (a *Application) SchedPruneRateLimits() {
	if n := a.limiter.Prune(time.Now()); n > 0 {
		zap.L().Debug("pruned rate limit windows", zap.String("namespace", "job"), zap.Int("count", n))
	}
}

// SchedPurgePastAvailability removes slots dated before today.
func (a *Application) SchedPurgePastAvailability() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	n, err := a.PurgeAvailabilityBefore(time.Now())
	if err != nil {
		zap.L().Error("purge availability failed", zap.String("namespace", "job"), zap.Error(err))
		return
	}
	zap.L().Info("purged past availability", zap.String("namespace", "job"), zap.Int64("rows", n))
}

// PurgeAvailabilityBefore deletes slots whose date is before day's date.
func (a *Application) PurgeAvailabilityBefore(day time.Time) (int64, error) {
	res := a.gormDB.Where("date < ?", day.Format(domain.DateLayout)).Delete(&domain.Availability{})
	return res.RowsAffected, res.Error
}
