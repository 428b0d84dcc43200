package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ticketbay/ticketbay/internal/models"
	"github.com/ticketbay/ticketbay/internal/tasks"
)

// rollupSchedule enqueues the previous day's rollup shortly after midnight UTC
const rollupSchedule = "10 0 * * *"

// StartReportScheduler enqueues a daily sales rollup task on a cron schedule.
// It blocks until the context is cancelled.
func StartReportScheduler(ctx context.Context, client *asynq.Client, logger zerolog.Logger) {
	c := cron.New(cron.WithLocation(time.UTC))

	_, err := c.AddFunc(rollupSchedule, func() {
		date := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
		task, err := tasks.NewReportRollupTask(date)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to build rollup task")
			return
		}
		if _, err := client.Enqueue(task); err != nil {
			logger.Error().Err(err).Str("date", date).Msg("Failed to enqueue rollup task")
			return
		}
		logger.Info().Str("date", date).Msg("Rollup task enqueued")
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to schedule report rollup")
		return
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
}

// HandleReportRollup aggregates one day of orders into a DailyReport row.
// Re-running a day replaces its row, so the task is safe to retry.
func HandleReportRollup(ctx context.Context, t *asynq.Task, db *gorm.DB, logger zerolog.Logger) error {
	payload, err := tasks.ParseReportRollupPayload(t)
	if err != nil {
		return err
	}

	report, err := RollupDay(db, payload.Date)
	if err != nil {
		return fmt.Errorf("failed to roll up %s: %w", payload.Date, err)
	}

	logger.Info().
		Str("date", report.Date).
		Int64("orders", report.OrdersCount).
		Int64("tickets", report.TicketsSold).
		Int64("revenue_cents", report.RevenueCents).
		Msg("Daily report generated")

	return nil
}

// RollupDay computes and upserts the report for one YYYY-MM-DD day
func RollupDay(db *gorm.DB, date string) (*models.DailyReport, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, fmt.Errorf("invalid rollup date %q: %w", date, err)
	}
	start := day.UTC()
	end := start.AddDate(0, 0, 1)

	var totals struct {
		OrdersCount  int64
		TicketsSold  int64
		RevenueCents int64
	}
	err = db.Model(&models.Order{}).
		Select("COUNT(*) AS orders_count, COALESCE(SUM(quantity), 0) AS tickets_sold, COALESCE(SUM(total_cents), 0) AS revenue_cents").
		Where("status = ? AND created_at >= ? AND created_at < ?", "confirmed", start, end).
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}

	report := models.DailyReport{
		Date:         date,
		OrdersCount:  totals.OrdersCount,
		TicketsSold:  totals.TicketsSold,
		RevenueCents: totals.RevenueCents,
		GeneratedAt:  time.Now().UTC(),
	}

	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"orders_count", "tickets_sold", "revenue_cents", "generated_at"}),
	}).Create(&report).Error
	if err != nil {
		return nil, err
	}

	return &report, nil
}
