package driver

import "time"

// Temporal is implemented by backend-native date, time, and duration values
// that hydration converts to portable Go types before field assignment.
type Temporal interface {
	// ToNative returns the portable Go representation of the value.
	ToNative() any
}

// Date is a backend calendar date without a time component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ToNative returns the date as midnight UTC.
func (d Date) ToNative() any {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// LocalTime is a backend time of day without a date component.
type LocalTime struct {
	Hour       int
	Minute     int
	Second     int
	Nanosecond int
}

// ToNative returns the time of day anchored to the zero date in UTC.
func (t LocalTime) ToNative() any {
	return time.Date(1, time.January, 1, t.Hour, t.Minute, t.Second, t.Nanosecond, time.UTC)
}

// DateTime is a backend timestamp with an explicit zone offset in seconds.
type DateTime struct {
	Year       int
	Month      time.Month
	Day        int
	Hour       int
	Minute     int
	Second     int
	Nanosecond int
	Offset     int
}

// ToNative returns the timestamp in its fixed zone.
func (dt DateTime) ToNative() any {
	loc := time.FixedZone("", dt.Offset)
	return time.Date(dt.Year, dt.Month, dt.Day, dt.Hour, dt.Minute, dt.Second, dt.Nanosecond, loc)
}

// Duration is a backend duration split into calendar and clock components.
type Duration struct {
	Months  int64
	Days    int64
	Seconds int64
	Nanos   int64
}

// ToNative returns the duration as a time.Duration, counting a month as 30
// days, which matches how the backing engine flattens calendar durations.
func (d Duration) ToNative() any {
	days := d.Days + d.Months*30
	return time.Duration(days)*24*time.Hour +
		time.Duration(d.Seconds)*time.Second +
		time.Duration(d.Nanos)
}
