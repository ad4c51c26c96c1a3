package ai

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/wayfinderhq/wayfinder/backend/internal/external"
	"github.com/wayfinderhq/wayfinder/backend/internal/model/travel"
)

// systemPromptFor selects the specialist framing for the final answer.
func systemPromptFor(intent travel.Intent) string {
	switch intent {
	case travel.IntentDestination:
		return "You are a travel advisor recommending destinations. Ground every suggestion in the traveller's stated preferences and budget."
	case travel.IntentPacking:
		return "You are a packing expert. Tailor the packing list to the destination, the season and the weather data when it is provided."
	case travel.IntentAttractions:
		return "You are a local guide. Recommend sights and activities, preferring the provided attractions data over general knowledge."
	default:
		return "You are a helpful travel assistant."
	}
}

// BuildResponsePrompt renders the resolved plan into the user prompt for the
// answer chain. It consumes only the ResponsePlan; prompt construction never
// reaches back into the store or the classifier.
func BuildResponsePrompt(plan travel.ResponsePlan) string {
	var b strings.Builder

	b.WriteString("Traveller question: ")
	b.WriteString(fmt.Sprintf("%q", plan.Query))
	b.WriteString("\n")

	if summary := contextLines(plan.Context); summary != "" {
		b.WriteString("\nWhat we know about this traveller so far:\n")
		b.WriteString(summary)
	}

	if raw, ok := plan.Payloads[travel.DataWeather]; ok {
		b.WriteString("\nCurrent weather and forecast:\n")
		b.WriteString(renderWeather(raw))
	}
	if raw, ok := plan.Payloads[travel.DataAttractions]; ok {
		b.WriteString("\nNearby attractions:\n")
		b.WriteString(renderAttractions(raw))
	}

	for kind, entry := range plan.Plan {
		if entry.Source == travel.SourceModelKnowledge {
			b.WriteString(fmt.Sprintf("\nNo live %s data for this turn; answer from general knowledge.\n", kind))
		}
	}

	b.WriteString("\nAnswer the question directly and concretely.")
	return b.String()
}

func contextLines(sessionContext travel.Context) string {
	if len(sessionContext) == 0 {
		return ""
	}
	categories := make([]string, 0, len(sessionContext))
	for category := range sessionContext {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var b strings.Builder
	for _, category := range categories {
		b.WriteString(fmt.Sprintf("- %s: %s\n", category, strings.Join(sessionContext[category], ", ")))
	}
	return b.String()
}

func renderWeather(raw json.RawMessage) string {
	var payload external.WeatherPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		// Opaque payloads still get forwarded rather than dropped.
		return string(raw) + "\n"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("- %s: %.1f°C (feels like %.1f°C), %s\n",
		payload.Location, payload.Current.Temperature, payload.Current.FeelsLike, payload.Current.Description))
	for _, point := range payload.Forecast {
		b.WriteString(fmt.Sprintf("- %s: %.1f°C, %s\n",
			point.Time.Format("Mon 15:04"), point.Temperature, point.Description))
	}
	return b.String()
}

func renderAttractions(raw json.RawMessage) string {
	var payload external.AttractionsPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return string(raw) + "\n"
	}

	var b strings.Builder
	for _, attraction := range payload.Attractions {
		if len(attraction.Categories) > 0 {
			b.WriteString(fmt.Sprintf("- %s (%s)\n", attraction.Name, strings.Join(attraction.Categories, ", ")))
		} else {
			b.WriteString(fmt.Sprintf("- %s\n", attraction.Name))
		}
	}
	if b.Len() == 0 {
		return "- none found\n"
	}
	return b.String()
}
