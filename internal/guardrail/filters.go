// Package guardrail implements the safety and scope policy applied to user
// queries before routing and to assistant replies before they are returned.
package guardrail

import (
	"regexp"
	"strings"
)

// Patterns are matched against the lowercased query. Order inside a list has
// no meaning; the first hit short-circuits.
var (
	emergencyPatterns = compile(
		`\bemergency\b`, `\burgent\b`, `\bhelp me now\b`, `\bcall an ambulance\b`,
		`\bchoking\b`, `\bheart attack\b`, `\bstroke\b`, `\bsuicidal\b`,
		`\bhurt myself\b`, `\blife-threatening\b`, `\binjured\b`,
	)

	// The three phrases spelled with a capital "I" are matched case-sensitively
	// against lowercased text and therefore never fire. Kept as-is so the
	// classifier behaves exactly like the published keyword list.
	diagnosisPatterns = compile(
		`\bdiagnose\b`, `\bsymptoms\b.*\bmean\b`, `\bwhat is wrong with me\b`,
		`\bdo I have\b`, `\bis this a symptom of\b`, `\bmedical advice\b`,
		`\btreatment for\b`, `\bcure for\b`, `\bmedication for\b`,
		`\bshould I take\b`, `\bwhat should I do for my\b`, `\bdoctor\b.*\bconsult\b`,
		`\bcondition is\b`, `\bmy pain\b`, `\bmy headache\b`, `\bfever\b`,
		`\brash\b`, `\bcough\b`, `\bfatigue\b`, `\bache\b`, `\billness\b`,
	)

	offTopicPatterns = compile(
		`\bhouse construction\b`, `\bbuilding a house\b`, `\barchitect\b`,
		`\bplumbing\b`, `\belectricity\b`, `\broofing\b`, `\bfoundation\b`,
		`\bfinance\b`, `\bstocks\b`, `\binvestment\b`, `\bpolitics\b`,
		`\bgovernment\b`, `\bcar repair\b`, `\bengine\b`, `\bsoftware development\b`,
		`\bprogramming\b`, `\bcomputer\b`, `\bphone\b`, `\bcooking recipe\b`,
		`\bhistory of\b`, `\bgeography of\b`, `\bweather forecast\b`,
	)
)

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		out = append(out, regexp.MustCompile(expr))
	}
	return out
}

func matchAny(patterns []*regexp.Regexp, query string) bool {
	lower := strings.ToLower(query)
	for _, p := range patterns {
		if p.MatchString(lower) {
			return true
		}
	}
	return false
}

// ContainsEmergencyRequest reports whether the query looks like a medical emergency.
func ContainsEmergencyRequest(query string) bool {
	return matchAny(emergencyPatterns, query)
}

// ContainsDiagnosisRequest reports whether the query asks for a diagnosis or treatment.
func ContainsDiagnosisRequest(query string) bool {
	return matchAny(diagnosisPatterns, query)
}

// ContainsOffTopicRequest reports whether the query is outside the health domain.
func ContainsOffTopicRequest(query string) bool {
	return matchAny(offTopicPatterns, query)
}

// ContainsSensitiveHealthQuery combines the diagnosis and emergency checks.
func ContainsSensitiveHealthQuery(query string) bool {
	return ContainsDiagnosisRequest(query) || ContainsEmergencyRequest(query)
}
