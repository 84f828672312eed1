package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Amount is a non-negative whole number submitted from a form field. Blank,
// non-numeric or negative input decodes to 0 instead of failing the request.
type Amount int

func (a *Amount) UnmarshalJSON(data []byte) error {
	*a = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var raw string
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}
	} else {
		raw = string(data)
	}
	*a = ParseAmount(raw)
	return nil
}

// maxAmount bounds a single value so daily sums cannot overflow.
const maxAmount = math.MaxInt32

// ParseAmount converts s to an Amount. Decimal input is truncated; values
// above maxAmount degrade to 0 like any other unusable input.
func ParseAmount(s string) Amount {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > maxAmount {
			return 0
		}
		return Amount(n)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || math.IsNaN(f) || f > maxAmount {
		return 0
	}
	return Amount(int(f))
}

func (a Amount) Int() int { return int(a) }
