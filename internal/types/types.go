package types

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is how transaction dates are written and read by users.
const DateLayout = "02-01-2006"

// Transaction is a single buy recorded in the ledger. Date has no time component.
type Transaction struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Symbol    string    `json:"symbol"`
	Quantity  float64   `json:"quantity"`
	UnitPrice float64   `json:"unit_price"`
	Date      time.Time `json:"date"`
}

// Holding is the per-symbol aggregate of a user's transactions.
type Holding struct {
	Symbol        string
	Quantity      float64
	Cost          float64
	FirstPurchase time.Time
}

type Direction string

const (
	Above Direction = "above"
	Below Direction = "below"
)

// ParseDirection accepts the English and the Italian tokens.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(s) {
	case "ABOVE", "SOPRA":
		return Above, nil
	case "BELOW", "SOTTO":
		return Below, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

type PriceAlert struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Symbol      string    `json:"symbol"`
	TargetPrice float64   `json:"target_price"`
	Direction   Direction `json:"direction"`
	CreatedAt   time.Time `json:"created_at"`
}

// Triggered reports whether price crosses the target strictly in the alert's direction.
func (a PriceAlert) Triggered(price float64) bool {
	switch a.Direction {
	case Above:
		return price > a.TargetPrice
	case Below:
		return price < a.TargetPrice
	}
	return false
}

type Frequency string

const (
	Daily        Frequency = "daily"
	Every12Hours Frequency = "every_12_hours"
	Every3Days   Frequency = "every_3_days"
)

func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(strings.ToLower(s)); f {
	case Daily, Every12Hours, Every3Days:
		return f, nil
	}
	return "", fmt.Errorf("unknown frequency %q", s)
}

// ReportSubscription asks for a periodic portfolio report. At most one exists per user.
type ReportSubscription struct {
	UserID    int64     `json:"user_id"`
	Hour      int       `json:"hour"`
	Minute    int       `json:"minute"`
	Frequency Frequency `json:"frequency"`
}

// TimeOfDay renders the subscription time as HH:MM.
func (r ReportSubscription) TimeOfDay() string {
	return fmt.Sprintf("%02d:%02d", r.Hour, r.Minute)
}

// ParseTimeOfDay parses HH:MM into hour and minute.
func ParseTimeOfDay(s string) (int, int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}

// QuantityChange compares how much of a symbol was held at a cutoff date with what is held now.
type QuantityChange struct {
	Symbol string
	Before float64
	Now    float64
}
