package domain

import (
	"strings"
	"time"
)

// ProfileInput carries one person's raw profile material.
type ProfileInput struct {
	Text      string   `json:"text"`
	ImageData []string `json:"image_data,omitempty"`
}

func (p ProfileInput) HasContent() bool {
	if strings.TrimSpace(p.Text) != "" {
		return true
	}
	for _, image := range p.ImageData {
		if strings.TrimSpace(image) != "" {
			return true
		}
	}
	return false
}

// DateContext holds the contextual constraints of the plan. Fields are
// free-form strings at the wire level; stages interpret a known subset
// specially and pass everything else through as opaque hints.
type DateContext struct {
	Location  string `json:"location"`
	TimeOfDay string `json:"time_of_day"`
	Season    string `json:"season"`
	Duration  string `json:"duration"`
	DateType  string `json:"date_type"`
}

const (
	DefaultLocation  = "amsterdam"
	DefaultTimeOfDay = "afternoon"
	DefaultDuration  = "4 hours"
	DefaultDateType  = "first_date"
)

// Normalized lowercases and trims fields and fills missing values with the
// engine defaults. Unrecognized values survive untouched.
func (c DateContext) Normalized(now time.Time) DateContext {
	normalized := DateContext{
		Location:  strings.ToLower(strings.TrimSpace(c.Location)),
		TimeOfDay: strings.ToLower(strings.TrimSpace(c.TimeOfDay)),
		Season:    strings.ToLower(strings.TrimSpace(c.Season)),
		Duration:  strings.TrimSpace(c.Duration),
		DateType:  strings.ToLower(strings.TrimSpace(c.DateType)),
	}

	switch normalized.Location {
	case "", "unknown", "none":
		normalized.Location = DefaultLocation
	}
	if normalized.TimeOfDay == "" {
		normalized.TimeOfDay = DefaultTimeOfDay
	}
	if normalized.Season == "" {
		normalized.Season = SeasonForMonth(now.Month())
	}
	if normalized.Duration == "" {
		normalized.Duration = DefaultDuration
	}
	if normalized.DateType == "" {
		normalized.DateType = DefaultDateType
	}
	return normalized
}

func SeasonForMonth(month time.Month) string {
	switch month {
	case time.March, time.April, time.May:
		return "spring"
	case time.June, time.July, time.August:
		return "summer"
	case time.September, time.October, time.November:
		return "autumn"
	default:
		return "winter"
	}
}

// PlanRequest is the submitted payload persisted on the JobRecord so the
// pipeline can re-read it independently of the caller's connection.
type PlanRequest struct {
	ProfileA ProfileInput `json:"profile_a"`
	ProfileB ProfileInput `json:"profile_b"`
	Context  DateContext  `json:"context"`
}
