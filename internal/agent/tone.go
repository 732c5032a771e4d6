package agent

import "strings"

const baseInstruction = "You are a specialized AI assistant with expertise in health, biology, and medical queries. " +
	"Your primary goal is to provide accurate, safe, and helpful information. " +
	"Ensure your responses are concise, clear, and easy to understand, with a supportive and professional tone. " +
	"Your maximum response length is 100 words."

// Tone directives in priority order; the first keyword present wins.
var toneDirectives = []struct {
	keyword   string
	directive string
}{
	{"friendly", " Also, maintain a very friendly and encouraging tone."},
	{"serious", " Adopt a very serious and direct tone."},
	{"funny", " Try to be humorous in your responses."},
}

// ToneInstruction returns the system instruction for input, adjusted for the
// first tone keyword it mentions.
func ToneInstruction(input string) string {
	lower := strings.ToLower(input)
	for _, t := range toneDirectives {
		if strings.Contains(lower, t.keyword) {
			return baseInstruction + t.directive
		}
	}
	return baseInstruction
}
