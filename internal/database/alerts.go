package database

import (
	"context"
	"fmt"
	"time"

	"crypto-portfolio-bot/internal/types"

	log "github.com/sirupsen/logrus"
)

// InsertAlert saves an alert to the database
func (s *Store) InsertAlert(ctx context.Context, alert types.PriceAlert) (int64, error) {
	query := `
	INSERT INTO price_alerts (user_id, symbol, target_price, direction)
	VALUES (?, ?, ?, ?);`

	res, err := s.db.ExecContext(ctx, query, alert.UserID, alert.Symbol, alert.TargetPrice, string(alert.Direction))
	if err != nil {
		return 0, fmt.Errorf("failed to insert alert: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read alert id: %w", err)
	}

	log.Debugf("Alert inserted successfully: ID: %d, UserID: %d, Symbol: %s, Target: %f, Direction: %s",
		id, alert.UserID, alert.Symbol, alert.TargetPrice, alert.Direction)
	return id, nil
}

// GetAllAlerts fetches the alerts of every user, oldest first
func (s *Store) GetAllAlerts(ctx context.Context) ([]types.PriceAlert, error) {
	query := `SELECT id, user_id, symbol, target_price, direction, created_at FROM price_alerts ORDER BY id;`
	return s.queryAlerts(ctx, query)
}

// GetAlertsByUser fetches all alerts for a specific user
func (s *Store) GetAlertsByUser(ctx context.Context, userID int64) ([]types.PriceAlert, error) {
	query := `SELECT id, user_id, symbol, target_price, direction, created_at FROM price_alerts WHERE user_id = ? ORDER BY id;`
	return s.queryAlerts(ctx, query, userID)
}

// DeleteAlert removes an alert and reports whether this call was the one that removed it.
func (s *Store) DeleteAlert(ctx context.Context, alertID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM price_alerts WHERE id = ?;`, alertID)
	if err != nil {
		return false, fmt.Errorf("failed to delete alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

func (s *Store) queryAlerts(ctx context.Context, query string, args ...any) ([]types.PriceAlert, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []types.PriceAlert
	for rows.Next() {
		var alert types.PriceAlert
		var direction, createdAt string
		if err := rows.Scan(&alert.ID, &alert.UserID, &alert.Symbol, &alert.TargetPrice, &direction, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		alert.Direction = types.Direction(direction)
		alert.CreatedAt = parseTimestamp(createdAt)
		alerts = append(alerts, alert)
	}

	return alerts, rows.Err()
}

// parseTimestamp accepts both what sqlite's CURRENT_TIMESTAMP stores and what the driver may hand back.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
