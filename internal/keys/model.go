package keys

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Status tells whether a record may still be re-issued.
type Status int

const (
	// StatusAllowed permits exactly one more re-issuance.
	StatusAllowed Status = iota
	// StatusForbidden is terminal: the record can never be re-issued again.
	StatusForbidden
)

// Persisted literals for Status. They are part of the storage format.
const (
	statusAllowedLiteral   = "разрешена"
	statusForbiddenLiteral = "запрещена"
)

// String returns the persisted literal, which is also what users see.
func (s Status) String() string {
	if s == StatusForbidden {
		return statusForbiddenLiteral
	}
	return statusAllowedLiteral
}

// ParseStatus maps a persisted literal to Status. Unknown values are
// reported as StatusForbidden together with ok=false.
func ParseStatus(raw string) (Status, bool) {
	switch strings.TrimSpace(raw) {
	case statusAllowedLiteral, "":
		return StatusAllowed, true
	case statusForbiddenLiteral:
		return StatusForbidden, true
	default:
		return StatusForbidden, false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	*s, _ = ParseStatus(string(b))
	return nil
}

// Value implements driver.Valuer.
func (s Status) Value() (driver.Value, error) {
	return s.String(), nil
}

// Scan implements sql.Scanner.
func (s *Status) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = StatusAllowed
	case string:
		*s, _ = ParseStatus(v)
	case []byte:
		*s, _ = ParseStatus(string(v))
	default:
		return fmt.Errorf("keys: cannot scan %T into Status", src)
	}
	return nil
}

const dateLayout = "2006-01-02"

// Date is a calendar date without time of day or zone.
type Date struct {
	year  int
	month time.Month
	day   int
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{year: y, month: m, day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// IsZero reports whether d is unset.
func (d Date) IsZero() bool {
	return d.year == 0 && d.month == 0 && d.day == 0
}

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.year, d.month, d.day+n, 0, 0, 0, 0, time.UTC))
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	if d.year != other.year {
		return d.year > other.year
	}
	if d.month != other.month {
		return d.month > other.month
	}
	return d.day > other.day
}

// String formats d as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.year, int(d.month), d.day)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Values that do not
// parse leave the zero date so the owning record reads as incomplete.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		*d = Date{}
		return nil
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer. The zero date is stored as NULL.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
	case string:
		return d.UnmarshalText([]byte(v))
	case []byte:
		return d.UnmarshalText(v)
	case time.Time:
		*d = DateOf(v)
	default:
		return fmt.Errorf("keys: cannot scan %T into Date", src)
	}
	return nil
}

// Record is the key state of one user.
type Record struct {
	Key            string `json:"key"`
	ExpirationDate Date   `json:"expiration_date"`
	ReissueStatus  Status `json:"reissue_status"`
}

// Complete reports whether both the key and its expiration are present.
func (r Record) Complete() bool {
	return r.Key != "" && !r.ExpirationDate.IsZero()
}

// Snapshot maps user identifiers to their records.
type Snapshot map[string]Record

// IssuedKeys returns the set of non-empty keys in the snapshot.
func (s Snapshot) IssuedKeys() map[string]struct{} {
	out := make(map[string]struct{}, len(s))
	for _, rec := range s {
		if rec.Key != "" {
			out[rec.Key] = struct{}{}
		}
	}
	return out
}

// Clone returns a shallow copy; Record has no reference fields.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Mask shortens a key for logs, e.g. "nearmod-AB…YZ".
func Mask(key string) string {
	if !strings.HasPrefix(key, KeyPrefix) || len(key) < len(KeyPrefix)+4 {
		if key == "" {
			return ""
		}
		return "…"
	}
	suffix := key[len(KeyPrefix):]
	return KeyPrefix + suffix[:2] + "…" + suffix[len(suffix)-2:]
}
