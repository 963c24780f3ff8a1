package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"crypto-portfolio-bot/internal/types"

	log "github.com/sirupsen/logrus"
)

// InsertTransaction saves a buy and returns its id.
func (s *Store) InsertTransaction(ctx context.Context, tx types.Transaction) (int64, error) {
	query := `
	INSERT INTO transactions (user_id, symbol, quantity, price, date)
	VALUES (?, ?, ?, ?, ?);`

	res, err := s.db.ExecContext(ctx, query, tx.UserID, tx.Symbol, tx.Quantity, tx.UnitPrice, tx.Date.Format(dateLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to insert transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read transaction id: %w", err)
	}

	log.Debugf("Transaction inserted: ID: %d, UserID: %d, Symbol: %s", id, tx.UserID, tx.Symbol)
	return id, nil
}

// ListTransactions returns the user's transactions oldest first, optionally for one symbol only.
func (s *Store) ListTransactions(ctx context.Context, userID int64, symbol string) ([]types.Transaction, error) {
	query := `SELECT id, user_id, symbol, quantity, price, date FROM transactions WHERE user_id = ?`
	args := []any{userID}
	if symbol != "" {
		query += ` AND symbol = ?`
		args = append(args, symbol)
	}
	query += ` ORDER BY date ASC, id ASC;`

	return s.queryTransactions(ctx, query, args...)
}

// RecentTransactions returns at most limit transactions, newest first.
func (s *Store) RecentTransactions(ctx context.Context, userID int64, limit int) ([]types.Transaction, error) {
	query := `
	SELECT id, user_id, symbol, quantity, price, date FROM transactions
	WHERE user_id = ? ORDER BY date DESC, id DESC LIMIT ?;`

	return s.queryTransactions(ctx, query, userID, limit)
}

// GetTransaction fetches one of the user's transactions.
func (s *Store) GetTransaction(ctx context.Context, userID, id int64) (types.Transaction, error) {
	query := `SELECT id, user_id, symbol, quantity, price, date FROM transactions WHERE user_id = ? AND id = ?;`

	txs, err := s.queryTransactions(ctx, query, userID, id)
	if err != nil {
		return types.Transaction{}, err
	}
	if len(txs) == 0 {
		return types.Transaction{}, ErrNotFound
	}
	return txs[0], nil
}

// UpdateTransaction overwrites symbol, quantity, price and date of an existing row.
func (s *Store) UpdateTransaction(ctx context.Context, tx types.Transaction) error {
	query := `
	UPDATE transactions SET symbol = ?, quantity = ?, price = ?, date = ?
	WHERE id = ? AND user_id = ?;`

	res, err := s.db.ExecContext(ctx, query, tx.Symbol, tx.Quantity, tx.UnitPrice, tx.Date.Format(dateLayout), tx.ID, tx.UserID)
	if err != nil {
		return fmt.Errorf("failed to update transaction %d: %w", tx.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTransaction removes one row and reports whether it existed.
func (s *Store) DeleteTransaction(ctx context.Context, userID, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?;`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete transaction %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// DeleteUserTransactions wipes the user's ledger. Alerts and report subscriptions are left alone.
func (s *Store) DeleteUserTransactions(ctx context.Context, userID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = ?;`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to reset transactions for user %d: %w", userID, err)
	}
	return res.RowsAffected()
}

// Holdings aggregates the user's transactions per symbol.
func (s *Store) Holdings(ctx context.Context, userID int64) ([]types.Holding, error) {
	query := `
	SELECT symbol, SUM(quantity), SUM(quantity * price), MIN(date)
	FROM transactions
	WHERE user_id = ?
	GROUP BY symbol
	ORDER BY symbol;`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings for user %d: %w", userID, err)
	}
	defer rows.Close()

	var holdings []types.Holding
	for rows.Next() {
		var h types.Holding
		var first string
		if err := rows.Scan(&h.Symbol, &h.Quantity, &h.Cost, &first); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if h.FirstPurchase, err = time.Parse(dateLayout, first); err != nil {
			return nil, fmt.Errorf("failed to parse date %q: %w", first, err)
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

// QuantityChanges compares per-symbol quantities held on cutoff (inclusive) with the current ones.
func (s *Store) QuantityChanges(ctx context.Context, userID int64, cutoff time.Time) ([]types.QuantityChange, error) {
	query := `
	SELECT symbol,
		SUM(CASE WHEN date <= ? THEN quantity ELSE 0 END),
		SUM(quantity)
	FROM transactions
	WHERE user_id = ?
	GROUP BY symbol
	ORDER BY symbol;`

	rows, err := s.db.QueryContext(ctx, query, cutoff.Format(dateLayout), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query quantity changes for user %d: %w", userID, err)
	}
	defer rows.Close()

	var changes []types.QuantityChange
	for rows.Next() {
		var c types.QuantityChange
		if err := rows.Scan(&c.Symbol, &c.Before, &c.Now); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]types.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]types.Transaction, error) {
	var txs []types.Transaction
	for rows.Next() {
		var tx types.Transaction
		var date string
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Symbol, &tx.Quantity, &tx.UnitPrice, &date); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		d, err := time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("failed to parse date %q: %w", date, err)
		}
		tx.Date = d
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}
