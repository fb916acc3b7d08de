package util

import "time"

// TradingDay formats t as a YYYY-MM-DD calendar day in the given location.
// Used for daily counter rollover; nil location means UTC.
func TradingDay(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01-02")
}
