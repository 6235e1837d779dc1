package planner

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/daymate/daymate/internal/models"
	"github.com/daymate/daymate/internal/observability"
)

// Tuning parameters for the two generation modes.
const (
	planTemperature = 0.8
	planMaxTokens   = 800

	followupTemperature = 0.7
	followupMaxTokens   = 300
)

// apologyText is returned for follow-ups when the model is unavailable.
const apologyText = "I'm sorry, I can't answer follow-up questions right now because my AI brain isn't fully connected."

// generator is the subset of GeminiClient used by the Synthesizer.
type generator interface {
	Configured() bool
	Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
}

// PlanInput collects everything the plan prompt draws on. Weather may be nil
// and Articles may be empty; the synthesizer degrades accordingly.
type PlanInput struct {
	Weather     *models.WeatherReading
	Articles    []models.NewsArticle
	City        string
	Profile     string
	Preferences *models.UserPreferences
	Alerts      []models.TrafficAlert
}

// PlanResult is the tagged outcome of plan synthesis. Plan is always
// non-empty: on failure it carries the rule-based fallback text and Err
// describes the failure category.
type PlanResult struct {
	Plan        string
	AIGenerated bool
	Err         *models.ServiceError
}

// FollowupResult is the tagged outcome of a follow-up synthesis. Response is
// always non-empty; on failure it carries canned apology text.
type FollowupResult struct {
	Response string
	Err      *models.ServiceError
}

// Synthesizer turns aggregated data into natural-language plan text, falling
// back to deterministic rule-based text when the model is unavailable.
type Synthesizer struct {
	gen generator
}

// NewSynthesizer creates a plan synthesizer over the given model client.
func NewSynthesizer(gen generator) *Synthesizer {
	return &Synthesizer{gen: gen}
}

// GeneratePlan builds the prompt and invokes the model. Every failure mode
// substitutes the deterministic fallback plan, so callers can treat the plan
// text as always present.
func (s *Synthesizer) GeneratePlan(ctx context.Context, in PlanInput) PlanResult {
	hasWeather := in.Weather != nil

	if !s.gen.Configured() {
		observability.PlanGeneratedTotal.WithLabelValues("fallback").Inc()
		return PlanResult{
			Plan: FallbackPlan(in.Weather, in.Articles, in.City, hasWeather),
			Err: &models.ServiceError{
				Service: models.ServiceAI,
				Message: "AI API key not configured. Using basic recommendations.",
			},
		}
	}

	prompt := buildPlanPrompt(in.Weather, in.Articles, in.City, in.Profile, in.Preferences, in.Alerts)
	text, err := s.gen.Generate(ctx, prompt, planTemperature, planMaxTokens)
	if err != nil {
		observability.PlanGeneratedTotal.WithLabelValues("fallback").Inc()
		if logger := observability.FromContext(ctx); logger != nil {
			logger.Warn("plan generation failed, using fallback", zap.Error(err))
		}
		return PlanResult{
			Plan: FallbackPlan(in.Weather, in.Articles, in.City, hasWeather),
			Err:  &models.ServiceError{Service: models.ServiceAI, Message: generateMessage(err)},
		}
	}

	observability.PlanGeneratedTotal.WithLabelValues("gemini").Inc()
	return PlanResult{Plan: strings.TrimSpace(text), AIGenerated: true}
}

// GenerateFollowup answers a single-turn follow-up about a prior plan. Same
// credential and failure semantics as GeneratePlan, with canned text instead
// of a rule-based plan.
func (s *Synthesizer) GenerateFollowup(ctx context.Context, weather *models.WeatherReading, articles []models.NewsArticle, city, previousPlan, userMessage string) FollowupResult {
	if !s.gen.Configured() {
		return FollowupResult{
			Response: apologyText,
			Err: &models.ServiceError{
				Service: models.ServiceAI,
				Message: "AI API key not configured.",
			},
		}
	}

	prompt := buildFollowupPrompt(weather, articles, city, previousPlan, userMessage)
	text, err := s.gen.Generate(ctx, prompt, followupTemperature, followupMaxTokens)
	if err != nil {
		if errors.Is(err, ErrEmptyResponse) {
			return FollowupResult{
				Response: "I'm not sure how to answer that. Could you rephrase?",
				Err:      &models.ServiceError{Service: models.ServiceAI, Message: generateMessage(err)},
			}
		}
		return FollowupResult{
			Response: "I'm having trouble thinking of a response right now. Please try again.",
			Err:      &models.ServiceError{Service: models.ServiceAI, Message: generateMessage(err)},
		}
	}

	return FollowupResult{Response: strings.TrimSpace(text)}
}

// generateMessage maps a model error to the user-facing failure description.
func generateMessage(err error) string {
	switch {
	case errors.Is(err, ErrBadRequest):
		return "Invalid request to AI service."
	case errors.Is(err, ErrAuthFailure):
		return "AI API key invalid or quota exceeded."
	case errors.Is(err, ErrTimeout):
		return "AI service timed out. Using basic recommendations."
	case errors.Is(err, ErrEmptyResponse):
		return "Could not parse AI response. Using basic recommendations."
	default:
		return "AI service temporarily unavailable. Using basic recommendations."
	}
}
