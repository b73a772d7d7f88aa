package prompt

import (
	"fmt"
	"strings"
)

const creativeJudgment = "Use your creative judgment to interpret the image."

// ClampStrength forces strength into [MinStrength, MaxStrength]. Zero means
// unset and maps to DefaultStrength.
func ClampStrength(strength int) int {
	switch {
	case strength == 0:
		return DefaultStrength
	case strength < MinStrength:
		return MinStrength
	case strength > MaxStrength:
		return MaxStrength
	}
	return strength
}

// StrengthText returns the creative-freedom instruction for strength.
func StrengthText(strength int) string {
	return variationStrengths[ClampStrength(strength)]
}

// Variation composes the image-to-image prompt. The reference carries the
// content, text steers it, and strength sets how far the result may drift.
func Variation(text string, strength int) string {
	lead := creativeJudgment
	if t := strings.TrimSpace(text); t != "" {
		lead = fmt.Sprintf(`Text prompt: "%s".`, t)
	}
	return strings.Join([]string{lead, VariationBase, StrengthText(strength)}, " ")
}
