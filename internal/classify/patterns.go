package classify

import (
	"regexp"
	"strings"

	"github.com/wayfinderhq/wayfinder/backend/internal/model/travel"
)

// intentRule holds the surface patterns for one intent. Phrases score double
// because they are far less ambiguous than single keywords.
type intentRule struct {
	keywords []string
	phrases  []string
}

var intentRules = map[travel.Intent]intentRule{
	travel.IntentDestination: {
		keywords: []string{
			"where to go", "destination", "recommend", "travel to",
			"best places", "suggestions", "trip ideas", "vacation spots",
			"cities", "countries", "places to visit", "somewhere",
		},
		phrases: []string{
			"where should i go", "recommend a destination", "best place to visit",
			"travel suggestions", "vacation ideas",
		},
	},
	travel.IntentPacking: {
		keywords: []string{
			"pack", "packing", "bring", "luggage", "suitcase", "clothes",
			"clothing", "what to wear", "essentials", "bag",
		},
		phrases: []string{
			"what should i pack", "what to bring", "packing list",
			"what clothes", "what items",
		},
	},
	travel.IntentAttractions: {
		keywords: []string{
			"attractions", "activities", "sightseeing", "museums",
			"restaurants", "landmarks", "tours", "experiences",
			"entertainment", "places to see",
		},
		phrases: []string{
			"things to do", "what to see", "attractions in", "activities in",
			"places to visit in",
		},
	},
}

var monthNames = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

var climateWords = []string{
	"warm", "hot", "cold", "cool", "tropical", "sunny", "snowy", "mild", "rainy",
}

var interestWords = []string{
	"culture", "food", "history", "beaches", "nightlife", "nature",
	"shopping", "art", "adventure",
}

var activityWords = []string{
	"hiking", "swimming", "skiing", "surfing", "diving", "camping", "cycling",
}

// Data-need hints. A query mentioning these benefits from the live source no
// matter which intent wins, e.g. a destination question asking about rain.
var (
	weatherHintWords = []string{
		"weather", "forecast", "temperature", "rain", "snow", "umbrella",
	}
	attractionHintWords = []string{
		"attractions", "sightseeing", "museums", "landmarks", "things to do",
		"tours",
	}
)

var (
	budgetRe   = regexp.MustCompile(`\$\s*([0-9][0-9,]*)|([0-9][0-9,]*)\s*(?:dollars|usd|eur|euros)`)
	durationRe = regexp.MustCompile(`(?i)\b(\d+)\s*(days?|weeks?|nights?|months?)\b|\b(long\s+weekend|weekend)\b`)
	groupRe    = regexp.MustCompile(`(?i)\b(\d+)\s*(?:people|persons|travellers|travelers|adults)\b|\b(solo|couple|family)\b`)
	// Capitalized word(s) after a location preposition. Month names are
	// filtered out afterwards so "in March" never becomes a location.
	locationRe = regexp.MustCompile(`(?:\bin|\bto|\bfor|\bnear|\baround|\bvisit(?:ing)?)\s+([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)?)`)
)

// categoryExtractorCount is the denominator for the deterministic pattern
// confidence: the fraction of extractable categories actually matched.
const categoryExtractorCount = 8

// patternResult is the outcome of the deterministic pass. It always exists;
// pattern matching can yield zero matches but cannot fail.
type patternResult struct {
	Intent     travel.Intent
	Confidence float64
	Categories map[string][]string
	Needs      []travel.DataKind
	Matches    []string
}

// matchPatterns runs the rule table against the query. Categories relevant to
// every intent are extracted in the same pass, so a packing query can still
// surface a budget useful for a later destination question.
func matchPatterns(query string) patternResult {
	lower := strings.ToLower(query)

	result := patternResult{
		Intent:     travel.IntentDestination,
		Confidence: 0.1,
		Categories: map[string][]string{},
	}
	if strings.TrimSpace(query) == "" {
		return result
	}

	bestScore := 0.0
	for intent, rule := range intentRules {
		score := 0
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				score++
				result.Matches = append(result.Matches, kw)
			}
		}
		for _, ph := range rule.phrases {
			if strings.Contains(lower, ph) {
				score += 2
				result.Matches = append(result.Matches, ph)
			}
		}
		normalized := float64(score) / float64(len(rule.keywords)+2*len(rule.phrases))
		if normalized > bestScore {
			bestScore = normalized
			result.Intent = intent
		}
	}

	extractCategories(query, lower, result.Categories)

	matched := len(result.Categories)
	if matched > 0 {
		result.Confidence = float64(matched) / categoryExtractorCount
	}
	// An explicit place name is the strongest deterministic signal we have;
	// without this floor a short "pack for Tokyo" query would never clear
	// the routing threshold on the pattern path.
	if len(result.Categories[travel.CategoryLocation]) > 0 && result.Confidence < 0.6 {
		result.Confidence = 0.6
	}

	result.Needs = detectDataNeeds(lower, result.Intent)

	return result
}

// detectDataNeeds derives the external data hint from the winning intent plus
// explicit mentions, so the need travels with the query rather than being
// hard-bound to one intent.
func detectDataNeeds(lower string, intent travel.Intent) []travel.DataKind {
	needs := make([]travel.DataKind, 0, 2)
	if intent == travel.IntentPacking || containsAnyWord(lower, weatherHintWords) {
		needs = append(needs, travel.DataWeather)
	}
	if intent == travel.IntentAttractions || containsAnyWord(lower, attractionHintWords) {
		needs = append(needs, travel.DataAttractions)
	}
	if len(needs) == 0 {
		return nil
	}
	return needs
}

func containsAnyWord(lower string, words []string) bool {
	for _, w := range words {
		if containsWord(lower, w) {
			return true
		}
	}
	return false
}

func extractCategories(query, lower string, categories map[string][]string) {
	for _, m := range monthNames {
		if containsWord(lower, m) {
			appendValue(categories, travel.CategoryMonth, m)
		}
	}
	for _, w := range climateWords {
		if containsWord(lower, w) {
			appendValue(categories, travel.CategoryClimate, w)
		}
	}
	for _, w := range interestWords {
		if containsWord(lower, w) {
			appendValue(categories, travel.CategoryInterests, w)
		}
	}
	for _, w := range activityWords {
		if containsWord(lower, w) {
			appendValue(categories, travel.CategoryActivity, w)
		}
	}

	for _, m := range budgetRe.FindAllStringSubmatch(query, -1) {
		amount := m[1]
		if amount == "" {
			amount = m[2]
		}
		appendValue(categories, travel.CategoryBudget, strings.ReplaceAll(amount, ",", ""))
	}
	for _, m := range durationRe.FindAllStringSubmatch(query, -1) {
		if m[1] != "" {
			appendValue(categories, travel.CategoryDuration, strings.ToLower(m[1]+" "+m[2]))
		} else if m[3] != "" {
			appendValue(categories, travel.CategoryDuration, strings.ToLower(m[3]))
		}
	}
	for _, m := range groupRe.FindAllStringSubmatch(query, -1) {
		if m[1] != "" {
			appendValue(categories, travel.CategoryGroupSize, m[1])
		} else if m[2] != "" {
			appendValue(categories, travel.CategoryGroupSize, strings.ToLower(m[2]))
		}
	}

	for _, m := range locationRe.FindAllStringSubmatch(query, -1) {
		candidate := strings.TrimSpace(m[1])
		if candidate == "" || isMonthName(candidate) {
			continue
		}
		appendValue(categories, travel.CategoryLocation, candidate)
	}
}

func appendValue(categories map[string][]string, category, value string) {
	norm := travel.NormalizeValue(value)
	if norm == "" {
		return
	}
	for _, existing := range categories[category] {
		if travel.NormalizeValue(existing) == norm {
			return
		}
	}
	categories[category] = append(categories[category], value)
}

func containsWord(lower, word string) bool {
	idx := strings.Index(lower, word)
	for idx >= 0 {
		before := idx == 0 || !isLetter(lower[idx-1])
		afterIdx := idx + len(word)
		after := afterIdx >= len(lower) || !isLetter(lower[afterIdx])
		if before && after {
			return true
		}
		next := strings.Index(lower[idx+1:], word)
		if next < 0 {
			return false
		}
		idx += 1 + next
	}
	return false
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isMonthName(s string) bool {
	lower := strings.ToLower(s)
	for _, m := range monthNames {
		if lower == m {
			return true
		}
	}
	return false
}
