package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ReportDate is a calendar date that unmarshals from the formats custodian
// feeds actually use: "YYYY-MM-DD", compact "YYYYMMDD", and RFC3339.
type ReportDate struct {
	time.Time
}

// ParseReportDate parses a date string in any supported feed format.
func ParseReportDate(s string) (ReportDate, error) {
	for _, layout := range []string{"2006-01-02", "20060102", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return ReportDate{Time: t}, nil
		}
	}
	return ReportDate{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD or YYYYMMDD", s)
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (d *ReportDate) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	parsed, err := ParseReportDate(s)
	if err != nil {
		return err
	}
	d.Time = parsed.Time
	return nil
}

// MarshalJSON implements the json.Marshaler interface.
func (d ReportDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format("2006-01-02"))
}

// UnmarshalYAML lets bank snapshot files carry the compact date form.
func (d *ReportDate) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseReportDate(s)
	if err != nil {
		return err
	}
	d.Time = parsed.Time
	return nil
}
