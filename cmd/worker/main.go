package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"kingsbalfx_app/internal/config"
	"kingsbalfx_app/internal/logger"
	"kingsbalfx_app/internal/models"
	"kingsbalfx_app/internal/services"
	"kingsbalfx_app/internal/tasks"
)

const pollInterval = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger.Init("worker", cfg.Debug)

	db, err := services.InitDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := services.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run database migrations")
	}

	store := services.NewGormStore(db)
	deps := &tasks.Deps{
		Store:    store,
		Sync:     services.NewSyncService(store),
		Email:    services.NewEmailService(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From),
		OpsEmail: cfg.SMTP.OpsEmail,
	}

	tasks.DefineTasks()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Info().Msg("shutting down worker")
		cancel()
	}()

	log.Info().Dur("interval", pollInterval).Msg("worker started")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	// One pass at startup, then on every tick
	processScheduledTasks(ctx, db, deps)

	for {
		select {
		case <-ticker.C:
			processScheduledTasks(ctx, db, deps)
		case <-ctx.Done():
			return
		}
	}
}

func processScheduledTasks(ctx context.Context, db *gorm.DB, deps *tasks.Deps) {
	var pendingTasks []models.ScheduledTask
	now := time.Now()
	if err := db.Where("status = ? AND due <= ?", models.ScheduledTaskStatusActive, now).Find(&pendingTasks).Error; err != nil {
		log.Error().Err(err).Msg("failed to fetch pending tasks")
		return
	}

	if len(pendingTasks) == 0 {
		log.Debug().Msg("no pending tasks")
		return
	}

	log.Info().Int("count", len(pendingTasks)).Msg("processing pending tasks")

	for _, task := range pendingTasks {
		if ctx.Err() != nil {
			return
		}
		executeTask(ctx, db, deps, task, 1)
	}
}

func executeTask(ctx context.Context, db *gorm.DB, deps *tasks.Deps, task models.ScheduledTask, curAttempt int) {
	log.Info().Str("task", task.TaskName).Uint("id", task.ID).Int("attempt", curAttempt).Msg("executing task")

	handler, found := tasks.GetHandler(task.TaskName)
	if !found {
		log.Error().Str("task", task.TaskName).Msg("task handler not found")

		now := time.Now()
		db.Model(&task).Updates(map[string]interface{}{
			"status":   models.ScheduledTaskStatusFailure,
			"last_run": &now,
		})
		db.Create(&models.ScheduledTaskHistory{
			ScheduledTaskID: task.ID,
			TaskName:        task.TaskName,
			RunAt:           now,
			Status:          "handler_not_found",
			AttemptNumber:   curAttempt,
			Arguments:       task.Arguments,
			Result:          map[string]interface{}{"error": "handler not found"},
		})
		return
	}

	startTime := time.Now()
	result, err := handler(ctx, deps, task.Arguments)
	runtimeMs := int(time.Since(startTime).Milliseconds())

	status := "success"
	resultData := result
	if err != nil {
		status = "failure"
		resultData = map[string]interface{}{"error": err.Error()}
		log.Error().Err(err).Str("task", task.TaskName).Int("attempt", curAttempt).Msg("task failed")
	} else {
		log.Info().Str("task", task.TaskName).Int("runtime_ms", runtimeMs).Msg("task completed")
	}

	db.Create(&models.ScheduledTaskHistory{
		ScheduledTaskID: task.ID,
		TaskName:        task.TaskName,
		RunAt:           startTime,
		RuntimeMs:       runtimeMs,
		Status:          status,
		AttemptNumber:   curAttempt,
		Arguments:       task.Arguments,
		Result:          resultData,
	})

	taskUpdates := map[string]interface{}{
		"last_run": &startTime,
	}

	if status != "success" {
		if curAttempt < task.MaxAttempt {
			executeTask(ctx, db, deps, task, curAttempt+1)
			return
		}
		taskUpdates["status"] = models.ScheduledTaskStatusFailure
	} else {
		switch task.TaskType {
		case models.ScheduledTaskTypeOneTime:
			taskUpdates["status"] = models.ScheduledTaskStatusDone
		case models.ScheduledTaskTypeRecurring:
			// Only reschedule when the rule yields a future date,
			// otherwise the task would re-run on every tick
			nextDue := task.NextDue()
			if nextDue.After(task.Due) {
				taskUpdates["status"] = models.ScheduledTaskStatusActive
				taskUpdates["due"] = nextDue
			} else {
				taskUpdates["status"] = models.ScheduledTaskStatusDone
			}
		}
	}

	db.Model(&task).Updates(taskUpdates)
}
