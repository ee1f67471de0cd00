// Package estimator guesses grams of protein from a short Hebrew food
// description such as "ביצה קשה אחת" or "150 גרם חזה עוף".
//
// The estimate comes from an ordered table of keyword rules. The first rule
// whose keywords appear in the text decides the result; text that no rule
// recognises yields 0. Estimates are pure and safe for concurrent use.
package estimator

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Result is an estimate together with the rule that produced it.
// Rule is empty when nothing in the text was recognised.
type Result struct {
	Grams int    `json:"grams"`
	Rule  string `json:"rule,omitempty"`
}

// Estimate returns the estimated grams of protein in text, or 0 when the
// text is empty or names no known food.
func Estimate(text string) int {
	return Detect(text).Grams
}

// Detect is Estimate that also reports which rule matched.
func Detect(text string) Result {
	in, ok := normalize(text)
	if !ok {
		return Result{}
	}
	for _, r := range rules {
		if r.match(in) {
			return Result{Grams: r.eval(in), Rule: r.Name}
		}
	}
	return Result{}
}

// normalize lowercases and trims text and strips Hebrew points so that
// vocalised input matches the unpointed keywords. It reports false for
// blank input.
func normalize(text string) (input, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return "", false
	}
	stripped, _, err := transform.String(stripMarks(), t)
	if err == nil {
		t = strings.TrimSpace(stripped)
	}
	return input(t), t != ""
}

// stripMarks is rebuilt per call; a transform chain holds buffers and is
// not safe for concurrent use.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// input is normalised description text.
type input string

func (in input) has(words ...string) bool {
	for _, w := range words {
		if strings.Contains(string(in), w) {
			return true
		}
	}
	return false
}

// amount is the first number in the text, or def.
func (in input) amount(def float64) float64 {
	if n, ok := firstNumber(string(in)); ok {
		return n
	}
	return def
}

// count is the first number, then the first number word, then def.
func (in input) count(def float64) float64 {
	if n, ok := firstNumber(string(in)); ok {
		return n
	}
	if n, ok := numberWord(string(in)); ok {
		return n
	}
	return def
}

// per100 scales a per-100g (or per-100ml) protein rate to amount.
func per100(rate, amount float64) float64 {
	return math.Round(rate * amount / 100)
}

func toGrams(v float64) int {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Round(v))
}
