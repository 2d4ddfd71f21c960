// Package validation checks request payloads before they reach the services.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"contentflow/internal/models"
)

// Field limits for content items.
const (
	MaxTitleLength    = 300
	MaxBriefLength    = 10000
	MaxPlatformLength = 50
	MaxTagCount       = 50
	MaxTagLength      = 100
)

// ValidateCreate checks a create payload and fills in the workflow defaults
// (Draft, Creation). The returned error is a *models.AppError naming the
// first offending field.
func ValidateCreate(in *models.CreateContentInput) error {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateTitle(in.Title); err != nil {
		return err
	}

	in.Platform = strings.TrimSpace(in.Platform)
	if in.Platform == "" {
		return models.NewFieldError("platform", "Platform is required")
	}
	if err := validatePlatform(in.Platform); err != nil {
		return err
	}

	if in.Brief != nil {
		if err := validateBrief(*in.Brief); err != nil {
			return err
		}
	}

	if in.Status == "" {
		in.Status = models.StatusDraft
	}
	if !in.Status.Valid() {
		return invalidEnum("status", string(in.Status), models.Statuses)
	}

	if in.KanbanStage == "" {
		in.KanbanStage = models.StageCreation
	}
	if !in.KanbanStage.Valid() {
		return invalidEnum("kanbanStage", string(in.KanbanStage), models.KanbanStages)
	}

	if in.Intelligence != nil {
		return validateIntelligence(in.Intelligence)
	}
	return nil
}

// ValidateUpdate checks a partial update. Only present fields are checked;
// an input with no fields is valid and only touches updated_at.
func ValidateUpdate(in *models.UpdateContentInput) error {
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		in.Title = &title
		if err := validateTitle(title); err != nil {
			return err
		}
	}

	if in.Platform != nil {
		platform := strings.TrimSpace(*in.Platform)
		in.Platform = &platform
		if platform == "" {
			return models.NewFieldError("platform", "Platform cannot be empty")
		}
		if err := validatePlatform(platform); err != nil {
			return err
		}
	}

	if in.Brief.Set && !in.Brief.Null {
		if err := validateBrief(in.Brief.Value); err != nil {
			return err
		}
	}

	if in.Status != nil && !in.Status.Valid() {
		return invalidEnum("status", string(*in.Status), models.Statuses)
	}
	if in.KanbanStage != nil && !in.KanbanStage.Valid() {
		return invalidEnum("kanbanStage", string(*in.KanbanStage), models.KanbanStages)
	}

	if in.Intelligence.Set && !in.Intelligence.Null {
		return validateIntelligence(&in.Intelligence.Value)
	}
	return nil
}

func validateTitle(title string) error {
	if title == "" {
		return models.NewFieldError("title", "Title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return models.NewFieldError("title", fmt.Sprintf("Title must be at most %d characters", MaxTitleLength))
	}
	return nil
}

func validatePlatform(platform string) error {
	if utf8.RuneCountInString(platform) > MaxPlatformLength {
		return models.NewFieldError("platform", fmt.Sprintf("Platform must be at most %d characters", MaxPlatformLength))
	}
	return nil
}

func validateBrief(brief string) error {
	if utf8.RuneCountInString(brief) > MaxBriefLength {
		return models.NewFieldError("brief", fmt.Sprintf("Brief must be at most %d characters", MaxBriefLength))
	}
	return nil
}

func validateIntelligence(in *models.Intelligence) error {
	if err := validateTags("intelligence.keywords", in.Keywords); err != nil {
		return err
	}
	if err := validateTags("intelligence.hashtags", in.Hashtags); err != nil {
		return err
	}
	if m := in.MetricsTarget; m != nil {
		targets := []struct {
			field string
			value *int
		}{
			{"intelligence.metricsTarget.reach", m.Reach},
			{"intelligence.metricsTarget.engagement", m.Engagement},
			{"intelligence.metricsTarget.leads", m.Leads},
		}
		for _, target := range targets {
			if target.value != nil && *target.value < 0 {
				return models.NewFieldError(target.field, "Metric targets cannot be negative")
			}
		}
	}
	return nil
}

func validateTags(field string, tags []string) error {
	if len(tags) > MaxTagCount {
		return models.NewFieldError(field, fmt.Sprintf("At most %d entries are allowed", MaxTagCount))
	}
	for _, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			return models.NewFieldError(field, "Entries cannot be empty")
		}
		if utf8.RuneCountInString(tag) > MaxTagLength {
			return models.NewFieldError(field, fmt.Sprintf("Entries must be at most %d characters", MaxTagLength))
		}
	}
	return nil
}

func invalidEnum[T ~string](field, got string, allowed []T) error {
	names := make([]string, len(allowed))
	for i, v := range allowed {
		names[i] = string(v)
	}
	return models.NewFieldError(field,
		fmt.Sprintf("Invalid %s %q: expected one of %s", field, got, strings.Join(names, ", ")))
}
