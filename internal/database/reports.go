package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"crypto-portfolio-bot/internal/types"

	log "github.com/sirupsen/logrus"
)

// UpsertReport stores the user's subscription, replacing any previous one.
func (s *Store) UpsertReport(ctx context.Context, sub types.ReportSubscription) error {
	query := `
	INSERT OR REPLACE INTO scheduled_reports (user_id, time, frequency)
	VALUES (?, ?, ?);`

	if _, err := s.db.ExecContext(ctx, query, sub.UserID, sub.TimeOfDay(), string(sub.Frequency)); err != nil {
		return fmt.Errorf("failed to save report subscription: %w", err)
	}
	return nil
}

// DeleteReport removes the user's subscription and reports whether one existed.
func (s *Store) DeleteReport(ctx context.Context, userID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_reports WHERE user_id = ?;`, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete report subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// GetReport returns the user's subscription or ErrNotFound.
func (s *Store) GetReport(ctx context.Context, userID int64) (types.ReportSubscription, error) {
	var timeOfDay, frequency string
	err := s.db.QueryRowContext(ctx, `SELECT time, frequency FROM scheduled_reports WHERE user_id = ?;`, userID).
		Scan(&timeOfDay, &frequency)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ReportSubscription{}, ErrNotFound
	} else if err != nil {
		return types.ReportSubscription{}, fmt.Errorf("failed to get report subscription: %w", err)
	}
	return toSubscription(userID, timeOfDay, frequency)
}

// GetAllReports returns every user's subscription. Corrupt rows are logged and skipped.
func (s *Store) GetAllReports(ctx context.Context) ([]types.ReportSubscription, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id, time, frequency FROM scheduled_reports ORDER BY user_id;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query report subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []types.ReportSubscription
	for rows.Next() {
		var userID int64
		var timeOfDay, frequency string
		if err := rows.Scan(&userID, &timeOfDay, &frequency); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		sub, err := toSubscription(userID, timeOfDay, frequency)
		if err != nil {
			log.Warnf("⚠️ Skipping report subscription: %v", err)
			continue
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func toSubscription(userID int64, timeOfDay, frequency string) (types.ReportSubscription, error) {
	hour, minute, err := types.ParseTimeOfDay(timeOfDay)
	if err != nil {
		return types.ReportSubscription{}, fmt.Errorf("corrupt report subscription for user %d: %w", userID, err)
	}
	f, err := types.ParseFrequency(frequency)
	if err != nil {
		return types.ReportSubscription{}, fmt.Errorf("corrupt report subscription for user %d: %w", userID, err)
	}
	return types.ReportSubscription{UserID: userID, Hour: hour, Minute: minute, Frequency: f}, nil
}
