package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// The backend is loose with its number and date encodings: prices come as
// numbers or strings, quantities sometimes as strings, dates with or without
// a time part. These types decode whatever arrives and never fail a whole
// payload because of one bad field.

var jsonNull = []byte("null")

// Quantity is a unit count. Non-numeric or negative input decodes to 0 and
// huge values are capped at MaxInt32.
type Quantity int

func (q *Quantity) UnmarshalJSON(b []byte) error {
	*q = 0
	s := strings.TrimSpace(string(bytes.Trim(b, `"`)))
	if s == "" || s == "null" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || f < 0 {
		return nil
	}
	*q = Quantity(math.Min(math.Floor(f), math.MaxInt32))
	return nil
}

func (q Quantity) Int() int {
	return int(q)
}

// Amount is an optional money value. Invalid means absent or unparsable.
type Amount struct {
	Value decimal.Decimal
	Valid bool
}

func NewAmount(d decimal.Decimal) Amount {
	return Amount{Value: d, Valid: true}
}

func AmountFromInt(v int64) Amount {
	return NewAmount(decimal.NewFromInt(v))
}

// Decimal returns the value, or zero when absent.
func (a Amount) Decimal() decimal.Decimal {
	if !a.Valid {
		return decimal.Zero
	}
	return a.Value
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	*a = Amount{}
	s := strings.TrimSpace(string(bytes.Trim(b, `"`)))
	if s == "" || s == "null" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	*a = NewAmount(d)
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return jsonNull, nil
	}
	return []byte(a.Value.String()), nil
}

var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Date is a calendar date or timestamp as sent by the backend.
// The zero value means the field was missing.
type Date struct {
	time.Time
}

func ParseDate(s string) (Date, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t}, true
		}
	}
	return Date{}, false
}

func (d Date) Valid() bool {
	return !d.IsZero()
}

func (d *Date) UnmarshalJSON(b []byte) error {
	*d = Date{}
	if bytes.Equal(b, jsonNull) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil
	}
	if parsed, ok := ParseDate(s); ok {
		*d = parsed
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if !d.Valid() {
		return jsonNull, nil
	}
	return json.Marshal(d.String())
}

// String renders a plain date when there is no time part.
func (d Date) String() string {
	if !d.Valid() {
		return ""
	}
	if d.Equal(d.Truncate(24*time.Hour)) && d.Location() == time.UTC {
		return d.Format(time.DateOnly)
	}
	return d.Format(time.RFC3339)
}
