package alphavantage

import "fmt"

// SeriesInterval is the interval accepted by the historical endpoint.
type SeriesInterval string

// SeriesIntervalMeta holds the API function and response key for an interval.
type SeriesIntervalMeta struct {
	Function  string
	Interval  string // query "interval" value; empty when the function takes none
	SeriesKey string // top-level key holding the rows
}

const (
	IntervalDaily    SeriesInterval = "daily"
	IntervalIntraday SeriesInterval = "intraday"

	// DefaultSeriesLimit caps the rows returned from a series.
	DefaultSeriesLimit = 100

	functionGlobalQuote = "GLOBAL_QUOTE"
)

var validSeriesIntervals = map[SeriesInterval]SeriesIntervalMeta{
	IntervalDaily:    {Function: "TIME_SERIES_DAILY", SeriesKey: "Time Series (Daily)"},
	IntervalIntraday: {Function: "TIME_SERIES_INTRADAY", Interval: "5min", SeriesKey: "Time Series (5min)"},
}

// IsValid checks if the SeriesInterval is a supported interval
func (s SeriesInterval) IsValid() bool {
	_, ok := validSeriesIntervals[s]
	return ok
}

// ParseSeriesInterval parses a string into a SeriesInterval. An empty string
// means daily.
func ParseSeriesInterval(s string) (SeriesInterval, error) {
	if s == "" {
		return IntervalDaily, nil
	}
	interval := SeriesInterval(s)
	if !interval.IsValid() {
		return "", fmt.Errorf("invalid series interval: %q", s)
	}
	return interval, nil
}

func (s SeriesInterval) meta() SeriesIntervalMeta {
	return validSeriesIntervals[s]
}
