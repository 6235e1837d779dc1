package planner

import (
	"fmt"
	"strings"

	"github.com/daymate/daymate/internal/models"
)

// profile instruction blocks injected into the plan prompt. The child and
// elderly blocks constrain activity count, pacing, and content filtering; the
// standard block is the energetic default.
const (
	childInstructions = `PROFILE: FAMILY WITH CHILDREN
- Prioritize safety, entertainment, and short travel times
- Only mention news that affects family safety; filter out the rest
- If it rains, suggest indoor alternatives (museums, play centers)
- In heat, suggest shaded parks or water play
- When traffic is bad, advise staying local
- Suggest at most 2-3 activities for the day`

	elderlyInstructions = `PROFILE: ELDERLY / RELAXED PACE
- Prioritize accessibility, low exertion, and quiet venues
- In cold or rain, advise staying indoors
- Surface any health-advisory news prominently
- Suggest at most 1-2 activities, with a slow unhurried pace
- Prefer places with comfortable seating and easy restroom access`

	standardInstructions = `PROFILE: STANDARD ADULT
- Balance efficiency, productivity, and leisure
- When traffic is bad, suggest alternate routes or timing
- Suggest 3-4 activities with an energetic tone`
)

// profileInstructions returns the instruction block for the profile,
// defaulting to standard.
func profileInstructions(profile string) string {
	switch profile {
	case models.ProfileChild:
		return childInstructions
	case models.ProfileElderly:
		return elderlyInstructions
	default:
		return standardInstructions
	}
}

// preferenceValue substitutes a neutral default for a missing preference.
func preferenceValue(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// userName returns the preferred name or "Friend".
func userName(prefs *models.UserPreferences) string {
	if prefs != nil && strings.TrimSpace(prefs.Name) != "" {
		return prefs.Name
	}
	return "Friend"
}

// buildContext assembles the structured data block shared by plan prompts:
// a weather summary (or an unavailable note), up to five news headlines, and
// up to five alerts flagged by priority.
func buildContext(weather *models.WeatherReading, articles []models.NewsArticle, city string, alerts []models.TrafficAlert) string {
	var parts []string

	if weather != nil {
		parts = append(parts, fmt.Sprintf(`WEATHER:
- Location: %s, %s
- Temperature: %.1f°C (feels like %.1f°C)
- Conditions: %s - %s
- Humidity: %d%%
- Wind: %.1f m/s`,
			weather.CityName, weather.Country,
			weather.Temp, weather.FeelsLike,
			weather.Condition, weather.Description,
			weather.Humidity, weather.WindSpeed))
	} else {
		parts = append(parts, fmt.Sprintf("WEATHER: Not available for %s", orUnknown(city)))
	}

	if len(articles) > 0 {
		var headlines []string
		for i, a := range articles {
			if i >= 5 {
				break
			}
			if a.Title == "" {
				continue
			}
			headlines = append(headlines, "- "+a.Title)
		}
		if len(headlines) > 0 {
			parts = append(parts, "TODAY'S NEWS:\n"+strings.Join(headlines, "\n"))
		}
	}

	if len(alerts) > 0 {
		var lines []string
		for i, a := range alerts {
			if i >= 5 {
				break
			}
			flag := ""
			if a.Priority == models.PriorityHigh {
				flag = " [HIGH PRIORITY]"
			}
			lines = append(lines, fmt.Sprintf("- (%s)%s %s", a.AlertType, flag, a.Title))
		}
		parts = append(parts, "TRAFFIC & EMERGENCY ALERTS:\n"+strings.Join(lines, "\n"))
	}

	return strings.Join(parts, "\n\n")
}

// buildPlanPrompt assembles the full daily-plan prompt: data context, profile
// instructions, preference block, and output format requirements.
func buildPlanPrompt(weather *models.WeatherReading, articles []models.NewsArticle, city, profile string, prefs *models.UserPreferences, alerts []models.TrafficAlert) string {
	location := orUnknown(city)
	if weather != nil && weather.CityName != "" {
		location = weather.CityName
	}

	name := userName(prefs)
	prefBlock := ""
	if prefs != nil {
		prefBlock = fmt.Sprintf(`
USER PREFERENCES:
- Name: %s
- Travel Mode: %s
- Food Preference: %s
- Activity Type: %s
- Pace: %s
- Budget: %s
- Companions: %s
- Additional Notes: %s
`,
			name,
			preferenceValue(prefs.TravelMode, "any"),
			preferenceValue(prefs.FoodPreference, "any"),
			preferenceValue(prefs.ActivityType, "mixed"),
			preferenceValue(prefs.Pace, "medium"),
			preferenceValue(prefs.Budget, "medium"),
			preferenceValue(prefs.Companions, "solo"),
			preferenceValue(prefs.Interests, "None"))
	}

	weatherHint := "variable conditions"
	if weather != nil {
		weatherHint = fmt.Sprintf("%.1f°C %s weather", weather.Temp, weather.Condition)
	}

	return fmt.Sprintf(`You are DayMate, a friendly personal assistant who knows %s like the back of your hand!

%s

%s
%s
Create a warm, personalized daily plan for %s. Be like a helpful friend who lives in %s.

STYLE:
- Be warm and conversational (use "you", "your", friendly phrases)
- Address the user as "%s" at least once naturally
- Sound excited and helpful, like texting a friend recommendations
- Use emojis sparingly (1-2 max in the whole response)

FORMAT - Use EXACTLY this structure:
* **Morning:** [Specific activity at a REAL named place]. [Why it's great + weather consideration]

* **Midday:** [Lunch recommendation at REAL restaurant name]. [What to try there]

* **Afternoon:** [Activity at REAL place]. [Tip or detail]

* **Evening:** [Dinner/activity at REAL venue]. [Personal touch]

* **Local Tip:** [One insider secret about %s]

REQUIREMENTS:
1. Name REAL specific places in %s (actual restaurant names, real landmarks, specific neighborhoods)
2. Consider the %s - suggest what to wear briefly
3. Keep each point to 1-2 sentences max
4. Sound like a friendly local, not a tour guide
5. If news or alerts mention events/issues, weave them in naturally
6. STRICTLY ADHERE to the PROFILE guidelines above.

Remember: Be specific! Say "grab a flat white at Monmouth Coffee" not "visit a local cafe".`,
		location,
		buildContext(weather, articles, city, alerts),
		profileInstructions(profile),
		prefBlock,
		name, location,
		name,
		location,
		location,
		weatherHint)
}

// buildFollowupPrompt assembles the single-turn chat continuation prompt:
// a compact context line, the prior plan, and the new user message.
func buildFollowupPrompt(weather *models.WeatherReading, articles []models.NewsArticle, city, previousPlan, userMessage string) string {
	location := orUnknown(city)
	if weather != nil && weather.CityName != "" {
		location = weather.CityName
	}

	var contextParts []string
	if weather != nil {
		contextParts = append(contextParts, fmt.Sprintf("WEATHER: %.1f°C, %s", weather.Temp, weather.Condition))
	}
	var headlines []string
	for i, a := range articles {
		if i >= 3 {
			break
		}
		if a.Title != "" {
			headlines = append(headlines, a.Title)
		}
	}
	if len(headlines) > 0 {
		contextParts = append(contextParts, "NEWS: "+strings.Join(headlines, "; "))
	}

	return fmt.Sprintf(`You are DayMate, a friendly local expert for %s.

CONTEXT:
%s

PREVIOUS PLAN GENERATED:
%s

USER SAYS:
"%s"

INSTRUCTIONS:
Answer the user's question or request naturally.
- Be helpful, specific, and friendly.
- If suggesting new places, use REAL names.
- Keep it concise (under 150 words).
- Don't repeat the whole plan, just address the specific request.

Response:`,
		location,
		strings.Join(contextParts, "\n"),
		previousPlan,
		userMessage)
}

func orUnknown(city string) string {
	if strings.TrimSpace(city) == "" {
		return "Unknown"
	}
	return city
}
