package bitquery

import (
	"bytes"
	"strconv"
	"time"
)

// Float is a float64 that tolerates the upstream's loose numeric
// encoding: numbers, quoted numbers and null all decode; anything
// unparsable decodes to zero instead of failing the enclosing frame.
type Float float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *Float) UnmarshalJSON(data []byte) error {
	*f = 0

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		data = bytes.Trim(data, `"`)
		if len(data) == 0 {
			return nil
		}
	}

	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return nil
	}

	*f = Float(v)
	return nil
}

// Value returns the plain float64.
func (f Float) Value() float64 {
	return float64(f)
}

// ParseBlockTime converts an upstream block time string to unix
// milliseconds. Returns 0 when the value is absent or unparsable.
func ParseBlockTime(s string) int64 {
	if s == "" {
		return 0
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().UnixMilli()
		}
	}
	return 0
}
