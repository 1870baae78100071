package protocol

import (
	"strconv"
	"time"
)

const (
	microLayout = "20060102T15:04:05.000000"
	secLayout   = "20060102T15:04:05"
)

// DateTime carries the ISO-8601 `YYYYMMDDThh:mm:ss[.ffffff]` encoding used
// by mtrpc arguments and results. UnmarshalJSON accepts a JSON string in
// either precision form and returns an error for any other string;
// ParseDateTime instead reports a non-match so the caller can keep the
// plain string. Request params and results are not scanned for
// timestamps automatically, so DateTime is only used where a field is
// known in advance to be a timestamp.
type DateTime struct {
	time.Time
}

// NewDateTime wraps a time.Time value.
func NewDateTime(t time.Time) DateTime { return DateTime{Time: t} }

// MarshalJSON encodes with microsecond precision, matching the server's
// preferred (first-listed) encoding format.
func (d DateTime) MarshalJSON() ([]byte, error) {
	return strconv.AppendQuote(nil, d.Time.Format(microLayout)), nil
}

// UnmarshalJSON accepts either the microsecond or second-precision form.
func (d *DateTime) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// UnmarshalText tries the microsecond layout first, then the second
// layout, mirroring mtrpc's ISO8601_FORMATS preference order.
func (d *DateTime) UnmarshalText(text []byte) error {
	s := string(text)
	if t, err := time.Parse(microLayout, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(secLayout, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// ParseDateTime reports whether s matches one of the two ISO-8601 forms
// mtrpc uses for timestamps, returning (value, true) on match and
// (zero, false) otherwise so callers can fall back to treating s as a
// plain string.
func ParseDateTime(s string) (DateTime, bool) {
	if t, err := time.Parse(microLayout, s); err == nil {
		return DateTime{Time: t}, true
	}
	if t, err := time.Parse(secLayout, s); err == nil {
		return DateTime{Time: t}, true
	}
	return DateTime{}, false
}
