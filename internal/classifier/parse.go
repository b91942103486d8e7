package classifier

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/qaforge/backend/internal/storage/models"
)

// ParsedVote is the normalized outcome of one backend response.
type ParsedVote struct {
	Decision      string
	QualityRating float64
	HasRating     bool
	Category      string
}

var (
	fencePrefix   = regexp.MustCompile("^```(json)?\\s*")
	fenceSuffix   = regexp.MustCompile("\\s*```$")
	jsonTags      = regexp.MustCompile(`(?i)</?json>`)
	nonJSONPrefix = regexp.MustCompile(`^[^{\[]*`)
	nonJSONSuffix = regexp.MustCompile(`[^}\]]*$`)
	decisionWord  = regexp.MustCompile(`(?i)"decision"\s*:\s*"(\w+)"`)
)

// ParseModelResponse normalizes whatever a backend produced into a vote. It
// is total: any input, including the empty string, truncated JSON, or JSON
// buried in prose and code fences, yields a valid decision and category.
func ParseModelResponse(raw string) ParsedVote {
	candidate := extractObjectSpan(raw)

	cleaned := strings.TrimSpace(candidate)
	cleaned = jsonTags.ReplaceAllString(cleaned, "")
	cleaned = fencePrefix.ReplaceAllString(cleaned, "")
	cleaned = fenceSuffix.ReplaceAllString(cleaned, "")
	cleaned = nonJSONPrefix.ReplaceAllString(cleaned, "")
	cleaned = nonJSONSuffix.ReplaceAllString(cleaned, "")

	if !strings.HasSuffix(cleaned, "}") {
		if last := strings.LastIndex(cleaned, "}"); last > 0 {
			cleaned = cleaned[:last+1]
		} else {
			cleaned = "{}"
		}
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return fallbackParse(raw)
	}

	vote := ParsedVote{
		Decision: models.DecisionRejected,
		Category: models.DefaultCategory,
	}

	if decision, ok := fields["decision"].(string); ok && isApproved(decision) {
		vote.Decision = models.DecisionApproved
	}

	if rating, ok := fields["quality_rating"].(float64); ok {
		vote.QualityRating = clampRating(rating)
		vote.HasRating = true
	}

	if category, ok := fields["category"].(string); ok {
		category = strings.TrimSpace(category)
		if models.ValidCategory(category) {
			vote.Category = category
		}
	}

	return vote
}

// extractObjectSpan pulls the first-{ to last-} span out of text that often
// wraps the JSON in prose or a closing tag.
func extractObjectSpan(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

// fallbackParse scrapes a "decision" field out of undecodable text.
func fallbackParse(raw string) ParsedVote {
	vote := ParsedVote{
		Decision: models.DecisionRejected,
		Category: models.DefaultCategory,
	}
	if m := decisionWord.FindStringSubmatch(raw); m != nil && isApproved(m[1]) {
		vote.Decision = models.DecisionApproved
	}
	return vote
}

func isApproved(decision string) bool {
	return strings.HasPrefix(strings.ToLower(decision), "approved")
}

func clampRating(r float64) float64 {
	if r < 1 {
		return 1
	}
	if r > 10 {
		return 10
	}
	return r
}
