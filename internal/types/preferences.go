// Package types defines the shared data structures for the matching pipeline.
package types

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Tier is the service level of a user. It determines the match quota,
// scoring strategy preference, and send cadence.
type Tier string

// Tier constants
const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// UserPreferences is the declared profile a matching run scores against.
// It is read-only inside the core; signup and profile-update flows own it.
type UserPreferences struct {
	Email                 string   `json:"email" validate:"required,email"`
	TargetCities          []string `json:"target_cities" validate:"required,min=1,max=10"`
	CareerPath            []string `json:"career_path" validate:"required,min=1,max=2"`
	RolesSelected         []string `json:"roles_selected,omitempty"`
	Skills                []string `json:"skills,omitempty"`
	Industries            []string `json:"industries,omitempty"`
	EntryLevelPreference  string   `json:"entry_level_preference,omitempty"`
	CompanySizePreference string   `json:"company_size_preference,omitempty"`
	WorkEnvironment       string   `json:"work_environment,omitempty"`
	VisaStatus            string   `json:"visa_status,omitempty"`
	Tier                  Tier     `json:"tier" validate:"required,oneof=free premium"`
}

var validate = validator.New()

// Validate checks the preference record against its structural constraints.
func (p *UserPreferences) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid user preferences for %q: %w", p.Email, err)
	}
	return nil
}

// ProfileText renders the preferences as a single text block for embedding.
// The output is stable for identical inputs so the embedding cache key
// (a content hash of this text) only changes when the profile changes.
func (p *UserPreferences) ProfileText() string {
	var sb strings.Builder
	sb.WriteString("Target cities: " + strings.Join(p.TargetCities, ", "))
	sb.WriteString("\nCareer path: " + strings.Join(p.CareerPath, ", "))
	if len(p.RolesSelected) > 0 {
		sb.WriteString("\nRoles: " + strings.Join(p.RolesSelected, ", "))
	}
	if len(p.Skills) > 0 {
		sb.WriteString("\nSkills: " + strings.Join(p.Skills, ", "))
	}
	if len(p.Industries) > 0 {
		sb.WriteString("\nIndustries: " + strings.Join(p.Industries, ", "))
	}
	if p.EntryLevelPreference != "" {
		sb.WriteString("\nEntry level preference: " + p.EntryLevelPreference)
	}
	if p.CompanySizePreference != "" {
		sb.WriteString("\nCompany size: " + p.CompanySizePreference)
	}
	if p.WorkEnvironment != "" {
		sb.WriteString("\nWork environment: " + p.WorkEnvironment)
	}
	if p.VisaStatus != "" {
		sb.WriteString("\nVisa status: " + p.VisaStatus)
	}
	return sb.String()
}

// WantsCity reports whether city is one of the user's target cities
// (case-insensitive).
func (p *UserPreferences) WantsCity(city string) bool {
	for _, c := range p.TargetCities {
		if strings.EqualFold(strings.TrimSpace(c), strings.TrimSpace(city)) {
			return true
		}
	}
	return false
}
