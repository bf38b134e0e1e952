package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire format of a calendar date, e.g. "1969-03-02".
const DateLayout = "2006-01-02"

// Contact is the data structure for a person that we know.
// All fields with the exception of the Id field are optional.
type Contact struct {
	Id          int64   `json:"id"                     db:"id"`
	FirstName   *string `json:"first_name,omitempty"   db:"first_name"`
	LastName    *string `json:"last_name,omitempty"    db:"last_name"`
	Email       *string `json:"email,omitempty"        db:"email"        binding:"omitempty,email"`
	PhoneNumber *string `json:"phone_number,omitempty" db:"phone_number" binding:"omitempty,e164"`
	Birthday    *Date   `json:"birthday,omitempty"     db:"birthday"`
	Description *string `json:"description,omitempty"  db:"description"`
}

// Date is a calendar date without time of day. It is stored in a DATE column and travels as
// "YYYY-MM-DD" in JSON.
type Date struct {
	time.Time
}

// NewDate returns the date for the given year, month and day in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts "YYYY-MM-DD" as well as a full RFC 3339 timestamp, of which only the date
// part is kept.
func ParseDate(s string) (Date, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q", s)
	}
	return NewDate(t.Year(), t.Month(), t.Day()), nil
}

// String formats the date as "YYYY-MM-DD".
func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan implements sql.Scanner. The MySQL driver hands out time.Time when parseTime is set and
// raw bytes otherwise.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = NewDate(v.Year(), v.Month(), v.Day())
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	case nil:
		*d = Date{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into model.Date", src)
}

func (d *Date) scanString(s string) error {
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return d.Time, nil
}

// StringValue returns the pointed-to string, or "" for nil.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StringPtr returns nil for an empty string and a pointer to s otherwise.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
