package estimator

// Keywords shared by several rules.
const (
	wordGrams  = "גרם"
	wordSlice  = "פרוסה"
	wordMl     = "מל"
	wordMlLat  = "ml"
	wordSalmon = "סלמון"
	wordTofu   = "טופו"
	wordLentil = "עדשים"
)

// Rule maps descriptions containing any of its keywords to grams of protein.
type Rule struct {
	Name     string
	Keywords []string

	// when overrides plain keyword matching.
	when  func(in input) bool
	grams func(in input) float64
}

// Matches reports whether the rule recognises text on its own, without
// regard to rules ahead of it.
func (r Rule) Matches(text string) bool {
	in, ok := normalize(text)
	return ok && r.match(in)
}

// Grams applies the rule's formula to text whether or not it matches.
func (r Rule) Grams(text string) int {
	in, _ := normalize(text)
	return r.eval(in)
}

func (r Rule) match(in input) bool {
	if r.when != nil {
		return r.when(in)
	}
	return in.has(r.Keywords...)
}

func (r Rule) eval(in input) int {
	return toGrams(r.grams(in))
}

// Rules returns a copy of the rule table in evaluation order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// rules is evaluated top to bottom. Narrow phrases must stay ahead of the
// broader keywords they contain: soy milk before milk, and protein bread
// ("לחם חלבוני") before both bread and milk, since it contains "חלב".
var rules = []Rule{
	{
		Name:     "egg",
		Keywords: []string{"ביצה", "חביתה"},
		grams:    perUnit(6),
	},
	{
		Name:     "protein-scoop",
		Keywords: []string{"סקופ", "אבקת חלבון", "חלבון מי גבינה"},
		grams:    perUnit(25),
	},
	{
		Name:     "poultry",
		Keywords: []string{"חזה עוף", "עוף", "הודו"},
		grams:    byWeight(31, 150),
	},
	{
		Name:     "tuna",
		Keywords: []string{"טונה"},
		grams: func(in input) float64 {
			switch {
			case in.has(wordGrams):
				return per100(26, in.amount(120))
			case in.has("קופסה", "פחית"):
				return 24
			}
			return 20
		},
	},
	{
		Name:     "yogurt",
		Keywords: []string{"יוגורט", "סקייר", "skyr", "יווני"},
		grams:    byWeight(10, 200),
	},
	{
		Name:     "cottage",
		Keywords: []string{"קוטג"},
		grams:    byWeight(11, 150),
	},
	{
		Name:     "cheese-slice",
		Keywords: []string{"גבינה צהובה", "פרוסת גבינה", wordSlice},
		grams:    perUnit(6),
	},
	{
		Name:     "beef",
		Keywords: []string{"בשר", "סטייק"},
		grams:    byWeight(26, 150),
	},
	{
		Name:     "protein-bread",
		Keywords: []string{"לחם חלבוני"},
		grams:    bySlice(20, 10),
	},
	{
		Name:     "almond-milk",
		Keywords: []string{"חלב שקדים"},
		grams:    byVolume(0.5, 250),
	},
	{
		Name:     "soy-milk",
		Keywords: []string{"חלב סויה"},
		when: func(in input) bool {
			return in.has("חלב סויה") || (in.has("סויה") && in.has("חלב"))
		},
		grams: byVolume(3.3, 250),
	},
	{
		Name:     "milk",
		Keywords: []string{"חלב"},
		grams:    byVolume(3.4, 250),
	},
	{
		Name:     "pita",
		Keywords: []string{"פיתה"},
		grams: func(in input) float64 {
			if in.has(wordGrams) {
				return per100(9, in.amount(60))
			}
			return in.count(1) * per100(9, 60)
		},
	},
	{
		Name:     "bread",
		Keywords: []string{"לחם"},
		grams:    bySlice(8, 3),
	},
	{
		Name:     "salmon",
		Keywords: []string{wordSalmon},
		when: func(in input) bool {
			return in.has(wordSalmon) && !in.has(wordGrams)
		},
		grams: fixed(per100(20, 150)),
	},
	{
		Name:     "lentils",
		Keywords: []string{wordLentil},
		when: func(in input) bool {
			return in.has(wordLentil) && !in.has(wordGrams)
		},
		grams: fixed(per100(9, 150)),
	},
	{
		Name:     "fish-grams",
		Keywords: []string{"דג", wordSalmon, wordTofu, wordLentil},
		when: func(in input) bool {
			return in.has(wordGrams) && in.has("דג", wordSalmon, wordTofu, wordLentil)
		},
		grams: func(in input) float64 {
			rate := 20.0
			switch {
			case in.has(wordSalmon):
				rate = 20
			case in.has(wordTofu):
				rate = 8
			case in.has(wordLentil):
				rate = 9
			}
			return per100(rate, in.amount(150))
		},
	},
}

// perUnit counts discrete items at a flat protein value each.
func perUnit(each float64) func(input) float64 {
	return func(in input) float64 {
		return in.count(1) * each
	}
}

// byWeight applies a per-100g rate. The number in the text is read as grams
// only when the text says "grams"; otherwise a typical portion is assumed.
func byWeight(rate, portion float64) func(input) float64 {
	return func(in input) float64 {
		if in.has(wordGrams) {
			return per100(rate, in.amount(portion))
		}
		return per100(rate, portion)
	}
}

// byVolume is byWeight for drinks measured in millilitres.
func byVolume(rate, portion float64) func(input) float64 {
	return func(in input) float64 {
		if in.has(wordMl, wordMlLat) {
			return per100(rate, in.amount(portion))
		}
		return per100(rate, portion)
	}
}

// bySlice handles bread: weighed at rate per 100g (30g default) when grams
// are given, otherwise counted in slices, defaulting to two unless a single
// slice is mentioned.
func bySlice(rate, perSlice float64) func(input) float64 {
	return func(in input) float64 {
		if in.has(wordGrams) {
			return per100(rate, in.amount(30))
		}
		def := 2.0
		if in.has(wordSlice) {
			def = 1
		}
		return in.count(def) * perSlice
	}
}

func fixed(v float64) func(input) float64 {
	return func(input) float64 { return v }
}
