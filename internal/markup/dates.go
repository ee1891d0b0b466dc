package markup

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// DateLayout is the time layout of dates captured from date lines.
const DateLayout = "02/01/2006"

// DateParts splits a DD/MM/YYYY date into its numbers without checking
// that the day exists in that month; 31/02/2024 is accepted.
func DateParts(s string) (year, month, day int, ok bool) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return 0, 0, 0, false
	}
	nums := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0, 0, 0, false
		}
		nums[i] = n
	}
	return nums[2], nums[1], nums[0], true
}

// CompareDates orders two DD/MM/YYYY dates by year, month, then day.
// Strings that are not three numbers sort after every date and compare
// equal among themselves.
func CompareDates(a, b string) int {
	ya, ma, da, okA := DateParts(a)
	yb, mb, db, okB := DateParts(b)
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return 1
	case !okB:
		return -1
	}
	if c := cmp.Compare(ya, yb); c != 0 {
		return c
	}
	if c := cmp.Compare(ma, mb); c != 0 {
		return c
	}
	return cmp.Compare(da, db)
}

// SortDates sorts dates chronologically in place.
func SortDates(dates []string) {
	slices.SortStableFunc(dates, CompareDates)
}
