package app

import (
	"github.com/peluqueria/salond/config"
	"github.com/peluqueria/salond/internal/auth"
	"github.com/peluqueria/salond/internal/events"
	"github.com/peluqueria/salond/internal/mailer"
	"github.com/peluqueria/salond/internal/ratelimit"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// EventsProvider provides the domain event bus
type EventsProvider interface {
	Events() *events.Bus
}

// AuthProvider provides the token issuer
type AuthProvider interface {
	Issuer() *auth.Issuer
}

// MailProvider provides the contact mailer; nil when mail is not configured
type MailProvider interface {
	Mailer() *mailer.Mailer
}

// RateLimitProvider provides the request counter shared by the web layer and jobs
type RateLimitProvider interface {
	RateLimiter() *ratelimit.Store
}

// AppContext combines all provider interfaces for full application context
type AppContext interface {
	DBProvider
	ConfigProvider
	SchedulerProvider
	EventsProvider
	AuthProvider
	MailProvider
	RateLimitProvider

	MigrateDB(track bool) error
}
