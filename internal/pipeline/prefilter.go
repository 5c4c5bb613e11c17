package pipeline

import "strings"

// rejectPhrases are generic conversational openers that short-circuit a
// report to rejected without any external call. A match here wins over any
// keyword match below.
var rejectPhrases = []string{
	"how are you",
	"what's up",
	"whats up",
	"good morning",
	"good afternoon",
	"good evening",
	"good night",
	"thank you",
	"thanks for",
	"who are you",
	"what can you do",
	"what are you",
	"tell me a joke",
	"tell me about yourself",
	"nice to meet you",
	"how do you work",
	"are you a bot",
	"test message",
	"just testing",
}

// acceptKeywords are the domain terms that mark a report as plausibly
// traffic related. Matched case-insensitively as substrings, so multi-word
// entries and partials ("highway" via "highway", "closure" via "closures")
// both hit.
var acceptKeywords = []string{
	"traffic",
	"accident",
	"crash",
	"collision",
	"wreck",
	"pileup",
	"road",
	"highway",
	"freeway",
	"interstate",
	"i-35",
	"i35",
	"mopac",
	"lane",
	"closure",
	"closed",
	"blocked",
	"congestion",
	"gridlock",
	"backup",
	"construction",
	"roadwork",
	"detour",
	"pothole",
	"stalled",
	"breakdown",
	"shoulder",
	"exit ramp",
	"on-ramp",
	"off-ramp",
	"intersection",
	"stoplight",
	"traffic light",
	"traffic signal",
	"pedestrian",
	"cyclist",
	"bridge",
	"toll",
	"flooding",
	"speeding",
	"rush hour",
	"commute",
	"vehicle",
	"truck",
	"semi",
	"bus",
}

// Prefilter is the deterministic relevance gate that runs before any
// external call. Reject phrases win outright; otherwise the text passes iff
// at least one domain keyword is present.
//
// Known tradeoff: a genuine report phrased without any listed keyword never
// reaches the classifier and routes straight to rejected. That is the
// accepted cost of not paying for a completion call on every greeting.
func Prefilter(text string) bool {
	lower := strings.ToLower(text)

	for _, phrase := range rejectPhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}
	for _, kw := range acceptKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
