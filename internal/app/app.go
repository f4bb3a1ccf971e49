package app

import (
	"os"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	"github.com/peluqueria/salond/config"
	"github.com/peluqueria/salond/internal/auth"
	"github.com/peluqueria/salond/internal/domain"
	"github.com/peluqueria/salond/internal/events"
	"github.com/peluqueria/salond/internal/mailer"
	"github.com/peluqueria/salond/internal/ratelimit"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

type Application struct {
	appConfig *config.AppConfig
	gormDB    *gorm.DB
	sched     *cron.Cron
	bus       *events.Bus
	issuer    *auth.Issuer
	limiter   *ratelimit.Store
	mail      *mailer.Mailer
	forwarder *events.AMQPForwarder
}

// Ensure Application implements all interfaces
var (
	_ DBProvider        = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ EventsProvider    = (*Application)(nil)
	_ AuthProvider      = (*Application)(nil)
	_ MailProvider      = (*Application)(nil)
	_ RateLimitProvider = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{
		appConfig: appConfig,
		bus:       events.NewBus(),
		issuer:    auth.NewIssuer(appConfig.Auth.Secret, appConfig.Auth.Expire),
		limiter:   ratelimit.NewStore(appConfig.Web.RateLimitMax, appConfig.Web.RateLimitWindow),
	}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the application's database handle (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
}

func (a *Application) Events() *events.Bus {
	return a.bus
}

func (a *Application) Issuer() *auth.Issuer {
	return a.issuer
}

func (a *Application) Mailer() *mailer.Mailer {
	return a.mail
}

// OverrideMailer replaces the mailer (used in tests).
func (a *Application) OverrideMailer(m *mailer.Mailer) {
	a.mail = m
}

func (a *Application) RateLimiter() *ratelimit.Store {
	return a.limiter
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

func initLogger(cfg config.LogConfig, logDir string) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.Mode == config.EnvProduction {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	if !cfg.FileEnable {
		return zapConfig.Build(zap.AddCaller())
	}

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create log dir %s", logDir)
	}
	lumberJackLogger := &lumberjack.Logger{
		Filename:   logDir + "/" + cfg.Filename,
		MaxSize:    64,
		MaxBackups: 7,
		MaxAge:     7,
		Compress:   false,
	}
	core := zapcore.NewTee(
		zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(lumberJackLogger),
			zapConfig.Level,
		),
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.AddSync(os.Stdout),
			zapConfig.Level,
		),
	)
	return zap.New(core, zap.AddCaller()), nil
}

// Init sets up logging, the database, optional mail and broker integrations
// and the cron jobs.
func (a *Application) Init() error {
	cfg := a.appConfig
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	logger, err := initLogger(cfg.Logger, cfg.GetLogDir())
	if err != nil {
		return errors.Wrap(err, "init logger")
	}
	zap.ReplaceGlobals(logger)

	a.gormDB, err = OpenDatabase(cfg.Database, cfg.GetDataDir())
	if err != nil {
		return err
	}
	zap.L().Info("database connection successful", zap.String("type", cfg.Database.Type))

	if err := a.MigrateDB(cfg.Database.Debug); err != nil {
		return errors.Wrap(err, "database migration failed")
	}
	a.checkAdmin()

	if cfg.Mail.Enabled() {
		a.mail, err = mailer.New(cfg.Mail)
		if err != nil {
			return err
		}
	} else {
		zap.L().Warn("mail is not configured, /api/email will answer 503", zap.String("namespace", "mailer"))
	}

	if cfg.Amqp.URL != "" {
		a.forwarder, err = events.DialAMQP(cfg.Amqp.URL, cfg.Amqp.Exchange)
		if err != nil {
			// the broker is optional
			zap.L().Error("amqp forwarder disabled", zap.String("namespace", "amqp"), zap.Error(err))
		} else if err := a.bus.SubscribeAllAsync(a.forwarder.Forward); err != nil {
			return errors.Wrap(err, "subscribe amqp forwarder")
		}
	}

	return a.initJob()
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEBUG_TRACE") != "" {
				debug.PrintStack()
			}
			if err2, ok := err1.(error); ok {
				err = err2
			} else {
				err = errors.Errorf("migrate panic: %v", err1)
			}
			zap.L().Error("migrate panic", zap.Error(err))
		}
	}()
	db := a.gormDB
	if track {
		db = db.Debug()
	}
	return db.Migrator().AutoMigrate(domain.Tables...)
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		<-a.sched.Stop().Done()
	}
	if a.mail != nil {
		a.mail.Release()
	}
	a.bus.Wait()
	if a.forwarder != nil {
		_ = a.forwarder.Close()
	}
	if a.gormDB != nil {
		if sqlDB, err := a.gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = zap.L().Sync()
}
