package score

import (
	"fmt"
	"strings"
)

// Status classifies a score entry.
type Status uint8

// Score statuses. The zero value is Scored.
const (
	StatusScored Status = iota
	StatusDNS
	StatusDNF
	StatusCap
	StatusWithdrawn
)

var statusNames = [...]string{ //nolint:gochecknoglobals // read-only lookup table
	StatusScored:    "scored",
	StatusDNS:       "dns",
	StatusDNF:       "dnf",
	StatusCap:       "cap",
	StatusWithdrawn: "withdrawn",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// Active reports whether the status carries a rankable value.
func (s Status) Active() bool {
	return s == StatusScored || s == StatusCap
}

// ParseStatus converts the text form of a status.
func ParseStatus(v string) (Status, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	for i, name := range statusNames {
		if name == v {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown status %q", ErrInvalidScore, v)
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if int(s) >= len(statusNames) {
		return nil, fmt.Errorf("%w: unknown status %d", ErrInvalidScore, uint8(s))
	}
	return []byte(statusNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	st, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}
