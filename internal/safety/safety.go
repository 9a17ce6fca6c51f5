// Package safety implements crisis detection, content filtering and
// disclaimer composition for outgoing responses.
package safety

import (
	"regexp"
	"strings"
)

// crisisKeywords are matched as case-insensitive substrings of user input.
// Negations are not handled: "I don't want to die" still matches. That is a
// documented limitation of the heuristic, not a bug.
var crisisKeywords = []string{
	"suicide", "kill myself", "end my life", "take my own life",
	"don't want to live", "want to die", "harming myself", "self harm",
	"hurting myself", "end it all",
}

// harmfulPatterns flag candidate responses that must never be surfaced as-is.
var harmfulPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)you should.*end your life`),
	regexp.MustCompile(`(?i)killing yourself`),
	regexp.MustCompile(`(?i)encourage.*suicide`),
	regexp.MustCompile(`(?i)harmful advice`),
	regexp.MustCompile(`(?i)illegal activity`),
	regexp.MustCompile(`(?i)dangerous behavior`),
}

const generalDisclaimer = "\n\n*I'm an AI assistant and not a replacement for professional mental health support. Please consider reaching out to a qualified professional for help.*"

const crisisResources = `


**If you're in crisis or experiencing suicidal thoughts, please reach out for immediate help:**
- Call or text 988 (Suicide & Crisis Lifeline)
- Text HOME to 741741 (Crisis Text Line)
- Call 911 or go to your nearest emergency room
`

// DetectCrisis reports whether the text contains any configured self-harm
// phrase, case-insensitively.
func DetectCrisis(text string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range crisisKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// FilterHarmfulContent reports whether a candidate response matches any of the
// harmful-advice patterns.
func FilterHarmfulContent(response string) bool {
	for _, pattern := range harmfulPatterns {
		if pattern.MatchString(response) {
			return true
		}
	}
	return false
}

// AddDisclaimer appends the general professional-care disclaimer to a
// response. When isCrisis is set, the crisis-resources block is inserted
// before the general disclaimer. Not idempotent; the pipeline invokes it
// exactly once per request.
func AddDisclaimer(response string, isCrisis bool) string {
	if isCrisis {
		return response + crisisResources + generalDisclaimer
	}
	return response + generalDisclaimer
}

// GeneralDisclaimer returns the fixed general disclaimer text.
func GeneralDisclaimer() string {
	return generalDisclaimer
}

// CrisisResources returns the fixed crisis-resources block.
func CrisisResources() string {
	return crisisResources
}
