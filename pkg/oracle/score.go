package oracle

import "math"

// Accuracy returns the fraction of correct validations rounded to three
// decimals. An empty list scores 0.
func Accuracy(validations []Validation) float64 {
	if len(validations) == 0 {
		return 0
	}
	fraction := float64(correctCount(validations)) / float64(len(validations))
	return math.Round(fraction*1000) / 1000
}

// Misrouted returns the validations that failed, preserving input order.
func Misrouted(validations []Validation) []Validation {
	var missed []Validation
	for _, v := range validations {
		if !v.Correct {
			missed = append(missed, v)
		}
	}
	return missed
}

func correctCount(validations []Validation) int {
	n := 0
	for _, v := range validations {
		if v.Correct {
			n++
		}
	}
	return n
}

// accuracyPercent is the whole-number percentage used in proposal text.
func accuracyPercent(validations []Validation) int {
	if len(validations) == 0 {
		return 0
	}
	fraction := float64(correctCount(validations)) / float64(len(validations))
	return int(math.Round(fraction * 100))
}
