package frame

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Month-first for slash dates.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"2006-01",
	"Jan 2006",
	"January 2006",
}

func parseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, errors.New("missing date")
	case time.Time:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		for _, l := range layouts {
			if ts, err := time.Parse(l, s); err == nil {
				return ts, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized date %q", t)
	case json.Number:
		sec, err := t.Int64()
		if err != nil {
			return time.Time{}, fmt.Errorf("unrecognized date %q", t.String())
		}
		return time.Unix(sec, 0).UTC(), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) || t != math.Trunc(t) {
			return time.Time{}, fmt.Errorf("unrecognized date %v", t)
		}
		return time.Unix(int64(t), 0).UTC(), nil
	case int:
		return time.Unix(int64(t), 0).UTC(), nil
	case int64:
		return time.Unix(t, 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unrecognized date %v (%T)", v, v)
	}
}
