package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a day-granular timestamp stored in a DATE column and serialized
// as YYYY-MM-DD.
type Date time.Time

// NewDate truncates a timestamp to day granularity.
func NewDate(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// Time returns the underlying timestamp.
func (d Date) Time() time.Time { return time.Time(d) }

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(d).Format(dateLayout) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if raw == "null" {
		return nil
	}
	if len(raw) < 2 || raw[0] != '"' || raw[len(raw)-1] != '"' {
		return fmt.Errorf("parse date: invalid literal %s", raw)
	}
	t, err := time.Parse(dateLayout, raw[1:len(raw)-1])
	if err != nil {
		return fmt.Errorf("parse date: %w", err)
	}
	*d = Date(t)
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return time.Time(d), nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = NewDate(v)
		return nil
	}
	return fmt.Errorf("scan date: unsupported type %T", src)
}

// News represents a news post. The date is assigned by the server at
// creation and never changes afterwards.
type News struct {
	ID    int64  `db:"id" json:"id"`
	Title string `db:"title" json:"title"`
	Date  Date   `db:"date" json:"date"`
	Body  string `db:"body" json:"body"`
}

// NewsFilter captures the declared filter fields for listing news.
type NewsFilter struct {
	Title string
	Body  string
	Date  *Date
}
