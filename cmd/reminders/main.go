package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"advisorbooking/internal/config"
	"advisorbooking/internal/domain/appointment"
	"advisorbooking/internal/pkg/logging"
	"advisorbooking/internal/server"

	"github.com/robfig/cron/v3"
)

func main() {
	once := flag.Bool("once", false, "send due reminders once and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel).With("service", "advisorbooking-reminders")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, cleanup, err := server.Bootstrap(ctx, cfg, "advisorbooking-reminders", logger)
	if err != nil {
		cleanup()
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	job := reminderJob(ctx, svc.Appointments, cfg.ReminderLead, logger)
	if *once {
		job()
		return
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.ReminderSchedule, job); err != nil {
		logger.Error("invalid reminder schedule", "schedule", cfg.ReminderSchedule, "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	logger.Info("reminder scheduler started", "schedule", cfg.ReminderSchedule, "lead", cfg.ReminderLead.String())

	<-ctx.Done()
	logger.Info("stopping reminder scheduler")
	<-scheduler.Stop().Done()
}

func reminderJob(ctx context.Context, appts *appointment.Service, lead time.Duration, logger *logging.Logger) func() {
	return func() {
		sent, err := appts.SendDueReminders(ctx, lead)
		if err != nil {
			logger.Error("sending reminders failed", "error", err)
			return
		}
		logger.Info("reminders sent", "count", sent)
	}
}
