package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Expiry is a card expiry as entered at checkout ("MM/YY").
type Expiry struct {
	Month int
	Year  int
}

// ParseExpiry splits s on "/" into a month and a two-digit year offset from 2000.
// The month is only bounded to two digits: "13/25" parses and its Date rolls into
// January 2026. The year must be two digits, so every expiry falls in 2000-2107.
func ParseExpiry(s string) (Expiry, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return Expiry{}, fmt.Errorf("%w: %q", ErrMalformedExpiry, s)
	}

	month, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Expiry{}, fmt.Errorf("%w: %q", ErrMalformedExpiry, s)
	}
	year, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Expiry{}, fmt.Errorf("%w: %q", ErrMalformedExpiry, s)
	}
	if month < 0 || month > 99 || year < 0 || year > 99 {
		return Expiry{}, fmt.Errorf("%w: %q", ErrMalformedExpiry, s)
	}

	return Expiry{Month: month, Year: year + 2000}, nil
}

// Date is the first day of the expiry month.
func (e Expiry) Date() time.Time {
	return time.Date(e.Year, time.Month(e.Month), 1, 0, 0, 0, 0, time.UTC)
}

func (e Expiry) IsExpired(now time.Time) bool {
	if now.Year() != e.Year {
		return now.Year() > e.Year
	}
	return int(now.Month()) > e.Month
}

func (e Expiry) String() string {
	return fmt.Sprintf("%02d/%d", e.Month, e.Year)
}

// ExpiryOf recovers the month and year of a stored expire date.
func ExpiryOf(t time.Time) Expiry {
	return Expiry{Month: int(t.Month()), Year: t.Year()}
}
