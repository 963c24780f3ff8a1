package commands

import (
	"math"
	"strconv"
	"strings"
	"time"

	"crypto-portfolio-bot/internal/types"

	"github.com/pkg/errors"
)

var (
	ErrInvalidFormat    = errors.New("invalid format")
	ErrInvalidNumber    = errors.New("invalid number")
	ErrInvalidDate      = errors.New("invalid date")
	ErrNotPositive      = errors.New("value must be positive")
	ErrUnknownToken     = errors.New("unknown token")
	ErrInvalidTimeOfDay = errors.New("invalid time of day")
)

// bulkSentinels end an /addmultiple session.
var bulkSentinels = map[string]bool{"FINE": true, "DONE": true}

// confirmTokens accept a /reset.
var confirmTokens = map[string]bool{"YES": true, "SI": true, "SÌ": true}

func IsBulkSentinel(line string) bool {
	return bulkSentinels[strings.ToUpper(strings.TrimSpace(line))]
}

func parsePositive(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Wrapf(ErrInvalidNumber, "%q", s)
	}
	if v <= 0 {
		return 0, errors.Wrapf(ErrNotPositive, "%q", s)
	}
	return v, nil
}

// ParseTransactionLine reads "SYMBOL PRICE QUANTITY DD-MM-YYYY".
func ParseTransactionLine(line string) (types.Transaction, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return types.Transaction{}, errors.Wrapf(ErrInvalidFormat, "expected 4 fields, got %d", len(fields))
	}

	unitPrice, err := parsePositive(fields[1])
	if err != nil {
		return types.Transaction{}, errors.Wrap(err, "price")
	}
	quantity, err := parsePositive(fields[2])
	if err != nil {
		return types.Transaction{}, errors.Wrap(err, "quantity")
	}
	date, err := time.Parse(types.DateLayout, fields[3])
	if err != nil {
		return types.Transaction{}, errors.Wrapf(ErrInvalidDate, "%q", fields[3])
	}

	return types.Transaction{
		Symbol:    strings.ToUpper(fields[0]),
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Date:      date,
	}, nil
}

// ParseAlert reads "SYMBOL PRICE DIRECTION".
func ParseAlert(text string) (types.PriceAlert, error) {
	fields := strings.Fields(text)
	if len(fields) != 3 {
		return types.PriceAlert{}, errors.Wrapf(ErrInvalidFormat, "expected 3 fields, got %d", len(fields))
	}

	target, err := parsePositive(fields[1])
	if err != nil {
		return types.PriceAlert{}, errors.Wrap(err, "target price")
	}
	direction, err := types.ParseDirection(fields[2])
	if err != nil {
		return types.PriceAlert{}, errors.Wrap(ErrUnknownToken, err.Error())
	}

	return types.PriceAlert{
		Symbol:      strings.ToUpper(fields[0]),
		TargetPrice: target,
		Direction:   direction,
	}, nil
}

// ParseReport reads "FREQUENCY HH:MM".
func ParseReport(text string) (types.ReportSubscription, error) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return types.ReportSubscription{}, errors.Wrapf(ErrInvalidFormat, "expected 2 fields, got %d", len(fields))
	}

	frequency, err := types.ParseFrequency(fields[0])
	if err != nil {
		return types.ReportSubscription{}, errors.Wrap(ErrUnknownToken, err.Error())
	}
	hour, minute, err := types.ParseTimeOfDay(fields[1])
	if err != nil {
		return types.ReportSubscription{}, errors.Wrap(ErrInvalidTimeOfDay, err.Error())
	}

	return types.ReportSubscription{Hour: hour, Minute: minute, Frequency: frequency}, nil
}
