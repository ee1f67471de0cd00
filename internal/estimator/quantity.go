package estimator

import (
	"strconv"
	"strings"
)

// numberWords maps spelled-out Hebrew numbers to values, in lookup order.
var numberWords = []struct {
	word  string
	value float64
}{
	{"אפס", 0},
	{"אחד", 1},
	{"אחת", 1},
	{"שניים", 2},
	{"שתיים", 2},
	{"שלוש", 3},
	{"ארבע", 4},
	{"חמש", 5},
	{"שש", 6},
	{"שבע", 7},
	{"שמונה", 8},
	{"תשע", 9},
	{"עשר", 10},
}

// firstNumber returns the first run of digits in s, where '.' and ',' both
// act as a decimal point. A run that does not parse counts as no number.
func firstNumber(s string) (float64, bool) {
	start, end := -1, -1
	for i := 0; i < len(s); i++ {
		if !isNumberByte(s[i]) {
			continue
		}
		j := i
		digits := false
		for j < len(s) && isNumberByte(s[j]) {
			if s[j] >= '0' && s[j] <= '9' {
				digits = true
			}
			j++
		}
		if digits {
			start, end = i, j
			break
		}
		i = j
	}
	if start < 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s[start:end], ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func isNumberByte(c byte) bool {
	return (c >= '0' && c <= '9') || c == '.' || c == ','
}

// numberWord returns the value of the first number word contained in s.
func numberWord(s string) (float64, bool) {
	for _, nw := range numberWords {
		if strings.Contains(s, nw.word) {
			return nw.value, true
		}
	}
	return 0, false
}
