package planner

import (
	"fmt"
	"strings"

	"github.com/daymate/daymate/internal/models"
)

// FallbackPlan generates the deterministic rule-based plan used when the
// generative model is unconfigured or fails. It is a pure function of its
// inputs: the same arguments always produce byte-identical text.
func FallbackPlan(weather *models.WeatherReading, articles []models.NewsArticle, city string, hasWeather bool) string {
	var temp float64 = 20
	condition := "unknown"
	location := city
	if location == "" {
		location = "your area"
	}
	if hasWeather && weather != nil {
		temp = weather.Temp
		condition = strings.ToLower(weather.Condition)
		if weather.CityName != "" {
			location = weather.CityName
		}
	}

	parts := []string{fmt.Sprintf("## Daily Plan for %s\n", location)}

	if !hasWeather {
		parts = append(parts, "*Note: Weather data unavailable. Here are flexible recommendations:*\n")
	}

	parts = append(parts, "### Morning")
	switch {
	case !hasWeather:
		parts = append(parts,
			"- Check the weather before heading out",
			"- Keep an umbrella handy just in case",
			"- Great time for morning exercise or a walk")
	case strings.Contains(condition, "rain") || strings.Contains(condition, "storm") || strings.Contains(condition, "drizzle"):
		parts = append(parts,
			"- Don't forget your umbrella! Rain is expected today.",
			"- Consider indoor exercise like yoga or a home workout.")
	case temp > 30:
		parts = append(parts,
			"- Start your day early to avoid peak heat.",
			"- Stay hydrated - keep water with you.")
	case temp < 10:
		parts = append(parts,
			"- Bundle up! It's cold outside.",
			"- A warm breakfast will help start your day right.")
	default:
		parts = append(parts,
			"- Great weather for a morning walk or jog!",
			"- Enjoy breakfast outdoors if possible.")
	}

	parts = append(parts, "\n### Afternoon")
	switch {
	case !hasWeather:
		parts = append(parts,
			"- Good time for errands and tasks",
			"- Plan both indoor and outdoor options")
	case strings.Contains(condition, "rain") || strings.Contains(condition, "storm"):
		parts = append(parts,
			"- Good time for indoor activities: reading, movies, or catching up on work.",
			"- If you must go out, plan trips between rain showers.")
	case temp > 30:
		parts = append(parts,
			"- Stay indoors during peak sun hours (12-3 PM).",
			"- Visit air-conditioned places like malls or libraries.")
	case strings.Contains(condition, "clear") || strings.Contains(condition, "sun"):
		parts = append(parts,
			"- Perfect weather for outdoor activities!",
			"- Consider a lunch picnic or outdoor cafe.")
	default:
		parts = append(parts,
			"- Good time for errands and outdoor tasks.",
			"- Check local events happening today.")
	}

	parts = append(parts, "\n### Evening")
	switch {
	case !hasWeather:
		parts = append(parts,
			"- Perfect time for dinner plans or relaxation",
			"- Consider both indoor and outdoor dining options")
	case strings.Contains(condition, "rain"):
		parts = append(parts, "- Cozy evening indoors - perfect for cooking or movies.")
	case temp > 25:
		parts = append(parts, "- Enjoy the cooler evening air with a walk.")
	default:
		parts = append(parts, "- Great time for dinner out or evening activities.")
	}

	if len(articles) > 0 && articles[0].Title != "" {
		parts = append(parts,
			"\n### Stay Informed",
			"- Check local news: "+articles[0].Title)
	}

	return strings.Join(parts, "\n")
}
