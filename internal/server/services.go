package server

import (
	"fmt"
	"time"

	"advisorbooking/internal/domain/appointment"
	"advisorbooking/internal/domain/calendar"
	"advisorbooking/internal/domain/notification"
	"advisorbooking/internal/events"
	"advisorbooking/internal/observability/metrics"
	"advisorbooking/internal/pkg/clock"
	"advisorbooking/internal/pkg/logging"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// Deps are the infrastructure pieces shared by the API and the reminder worker.
type Deps struct {
	DB       *gorm.DB
	Logger   *logging.Logger
	Clock    clock.Clock
	Location *time.Location

	// Optional.
	Locker   appointment.Locker
	Kafka    *events.KafkaSink
	Registry *prometheus.Registry
}

// Services is the assembled application graph.
type Services struct {
	Store         *appointment.GormStore
	Inbox         *notification.Repository
	Notifications *notification.Service
	Appointments  *appointment.Service
	Calendar      *calendar.Service
	Hub           *notification.Hub
	Dispatcher    *events.Dispatcher
	Metrics       *metrics.BookingMetrics
	Registry      *prometheus.Registry
}

func NewServices(deps Deps) *Services {
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}

	bookingMetrics := metrics.NewBookingMetrics(deps.Registry)

	hub := notification.NewHub()
	notificationRepo := notification.NewRepository(deps.DB)
	notificationService := notification.NewService(notificationRepo, hub, deps.Clock, deps.Logger)

	// Subscription order is delivery order: persist first, then fan out.
	dispatcher := events.NewDispatcher(deps.Logger, bookingMetrics)
	dispatcher.Subscribe("notifications", notificationService)
	if deps.Kafka != nil {
		dispatcher.Subscribe("kafka", deps.Kafka)
	}
	dispatcher.Subscribe("metrics", bookingMetrics)

	store := appointment.NewGormStore(deps.DB)
	opts := []appointment.Option{
		appointment.WithClock(deps.Clock),
		appointment.WithLocation(deps.Location),
		appointment.WithLogger(deps.Logger),
		appointment.WithMetrics(bookingMetrics),
	}
	if deps.Locker != nil {
		opts = append(opts, appointment.WithLocker(deps.Locker))
	}
	appointmentService := appointment.NewService(store, dispatcher, opts...)

	return &Services{
		Store:         store,
		Inbox:         notificationRepo,
		Notifications: notificationService,
		Appointments:  appointmentService,
		Calendar:      calendar.NewService(store, deps.Clock, deps.Location),
		Hub:           hub,
		Dispatcher:    dispatcher,
		Metrics:       bookingMetrics,
		Registry:      deps.Registry,
	}
}

// AutoMigrate creates the tables from the gorm models. Postgres deployments
// use the SQL migrations instead, which also install the exclusion constraint.
func (s *Services) AutoMigrate() error {
	if err := s.Store.AutoMigrate(); err != nil {
		return fmt.Errorf("migrate appointments: %w", err)
	}
	if err := s.Inbox.AutoMigrate(); err != nil {
		return fmt.Errorf("migrate notifications: %w", err)
	}
	return nil
}

// Close releases connections held by the services.
func (s *Services) Close() {
	s.Hub.Close()
}
