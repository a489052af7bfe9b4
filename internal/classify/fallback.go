package classify

// FallbackConfidence is always below the manual-review threshold, so every
// fallback classification surfaces for review.
const FallbackConfidence = 0.30

// fallbackClass picks a low-confidence default class from cheap heuristics
// on the description. It is the tier of last resort and never fails.
func fallbackClass(normalized string) (string, string) {
	words := tokenize(normalized)

	digits := 0
	for _, r := range normalized {
		if r >= '0' && r <= '9' {
			digits++
		}
	}

	// Model-number-heavy descriptions are usually electronic equipment.
	if digits >= 4 && len(words) <= 4 {
		return "Computers & Peripherals", "short model-number description"
	}
	if len(words) >= 6 {
		return "Office Furniture & Fixtures", "long descriptive text without matched keywords"
	}
	return "Machinery & Equipment", "no keyword or pattern matched"
}
