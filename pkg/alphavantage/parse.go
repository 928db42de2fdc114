package alphavantage

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// parseQuote converts the raw string fields of a GLOBAL_QUOTE.
func parseQuote(r rawQuote) (Quote, error) {
	var q Quote
	var err error

	q.Symbol = r.Symbol
	q.LatestTradingDay = r.LatestTradingDay
	q.ChangePercent = strings.TrimSuffix(strings.TrimSpace(r.ChangePercent), "%")

	if q.Price, err = parseFloat("price", r.Price); err != nil {
		return Quote{}, err
	}
	if q.Open, err = parseFloat("open", r.Open); err != nil {
		return Quote{}, err
	}
	if q.High, err = parseFloat("high", r.High); err != nil {
		return Quote{}, err
	}
	if q.Low, err = parseFloat("low", r.Low); err != nil {
		return Quote{}, err
	}
	if q.PreviousClose, err = parseFloat("previous close", r.PreviousClose); err != nil {
		return Quote{}, err
	}
	if q.Change, err = parseFloat("change", r.Change); err != nil {
		return Quote{}, err
	}
	if q.Volume, err = parseInt("volume", r.Volume); err != nil {
		return Quote{}, err
	}
	return q, nil
}

// parseSeries returns at most limit bars, newest first.
func parseSeries(rows map[string]rawBar, limit int) ([]Bar, error) {
	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	// timestamps are zero-padded, so lexical order is chronological
	slices.Sort(keys)
	slices.Reverse(keys)

	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}

	bars := make([]Bar, 0, len(keys))
	for _, k := range keys {
		r := rows[k]
		b := Bar{Time: k}
		var err error
		if b.Open, err = parseFloat("open", r.Open); err != nil {
			return nil, fmt.Errorf("row %s: %w", k, err)
		}
		if b.High, err = parseFloat("high", r.High); err != nil {
			return nil, fmt.Errorf("row %s: %w", k, err)
		}
		if b.Low, err = parseFloat("low", r.Low); err != nil {
			return nil, fmt.Errorf("row %s: %w", k, err)
		}
		if b.Close, err = parseFloat("close", r.Close); err != nil {
			return nil, fmt.Errorf("row %s: %w", k, err)
		}
		if b.Volume, err = parseInt("volume", r.Volume); err != nil {
			return nil, fmt.Errorf("row %s: %w", k, err)
		}
		bars = append(bars, b)
	}
	return bars, nil
}

func parseFloat(field, s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, s, err)
	}
	return f, nil
}

func parseInt(field, s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, s, err)
	}
	return n, nil
}
