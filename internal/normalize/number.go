package normalize

import (
	"math"
	"strconv"
	"strings"

	"github.com/lox/headcount/internal/models"
)

// Percentage parses s and truncates it toward zero at three decimals.
// Text with no numeric prefix coerces to 0.
func Percentage(s string) float64 {
	f, _ := Float(s)
	return Truncate(f)
}

// Truncate drops everything past the third decimal: 2.8571 -> 2.857.
func Truncate(f float64) float64 {
	return math.Trunc(f*1000) / 1000
}

// Rate normalizes an already-typed rate. A value that is a three-decimal
// number up to float error is kept, so normalizing twice is a no-op.
func Rate(f float64) float64 {
	if r := math.Round(f*1000) / 1000; math.Abs(r-f) < 1e-9 {
		return r
	}
	return Truncate(f)
}

// Percentageable reports whether s is exactly the canonical rendering of a
// float, which placeholder cells like "N/A", "LNE" or "1" are not.
func Percentageable(s string) bool {
	f, ok := Float(s)
	if !ok {
		return false
	}
	return formatFloat(f) == s
}

// Float parses the longest numeric prefix of s. ok is false when there is
// no numeric prefix at all, in which case the value is 0.
func Float(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := floatPrefix(s)
	if end == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Int parses the leading integer of s, so "2010-2011" reads as 2010 and
// "3rd grade" as 3. Missing digits give 0.
func Int(s string) (int, bool) {
	s = strings.TrimSpace(s)
	i := 0
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		i++
	}
	start := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == start {
		return 0, false
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Grade extracts the tested grade from a source name such as
// "3rd grade students scoring proficient...". It returns false when the name
// does not start with 3 or 8.
func Grade(name string) (int, bool) {
	g, ok := Int(name)
	if !ok || !models.ValidGrade(g) {
		return 0, false
	}
	return g, true
}

// YearRange splits "2010-2011" into its two years.
func YearRange(s string) models.YearRange {
	from, to, _ := strings.Cut(strings.TrimSpace(s), "-")
	f, _ := Int(from)
	t, _ := Int(to)
	return models.YearRange{From: f, To: t}
}

func floatPrefix(s string) int {
	i := 0
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		i++
	}
	digits := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
			frac++
		}
		if frac > 0 {
			i = j
			digits += frac
		}
	}
	if digits == 0 {
		return 0
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '-' || s[j] == '+') {
			j++
		}
		exp := j
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		if j > exp {
			i = j
		}
	}
	return i
}

// formatFloat renders f the way a data-entry tool writes floats: shortest
// round-trip digits, always with a fractional part, exponent form outside
// [1e-4, 1e16).
func formatFloat(f float64) string {
	abs := math.Abs(f)
	if f != 0 && (abs < 1e-4 || abs >= 1e16) {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		if !strings.Contains(mant, ".") {
			mant += ".0"
		}
		return mant + "e" + exp
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
