package postgres

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amounts are NUMERIC naira columns in the database and int64 kobo in the
// domain. These two helpers are the only place that conversion happens.

func numericToKobo(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty numeric string")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse numeric %q: %w", s, err)
	}

	return int64(math.Round(f * 100)), nil
}

func koboToNumeric(kobo int64) string {
	sign := ""
	if kobo < 0 {
		sign = "-"
		kobo = -kobo
	}
	return fmt.Sprintf("%s%d.%02d", sign, kobo/100, kobo%100)
}
