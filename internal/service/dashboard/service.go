// Package dashboard builds the overview a dentist sees after signing in.
package dashboard

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
)

const funnelWindow = 100

type SuggestionType string

const (
	SuggestionUrgent  SuggestionType = "urgent"
	SuggestionWarning SuggestionType = "warning"
	SuggestionAction  SuggestionType = "action"
)

type Suggestion struct {
	Type   SuggestionType `json:"type"`
	Title  string         `json:"title"`
	Action string         `json:"action"`
	Target string         `json:"target"`
}

type AppointmentStats struct {
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Completed int `json:"completed"`
}

type FunnelStats struct {
	ThumbsUp       int `json:"thumbs_up"`
	ThumbsDown     int `json:"thumbs_down"`
	ConversionRate int `json:"conversion_rate"`
}

type PatientStats struct {
	Total        int `json:"total"`
	NewThisMonth int `json:"new_this_month"`
}

type Completeness struct {
	Percent int    `json:"percent"`
	Label   string `json:"label"`
}

type Overview struct {
	TodayAppointments AppointmentStats `json:"today_appointments"`
	Funnel            FunnelStats      `json:"funnel"`
	Patients          PatientStats     `json:"patients"`
	Profile           Completeness     `json:"profile"`
	Suggestions       []Suggestion     `json:"suggestions"`
}

type Service struct {
	clinics      repository.ClinicRepository
	appointments repository.AppointmentRepository
	funnel       repository.FunnelEventRepository
	patients     repository.PatientRepository
	now          func() time.Time
}

func NewService(
	clinics repository.ClinicRepository,
	appointments repository.AppointmentRepository,
	funnel repository.FunnelEventRepository,
	patients repository.PatientRepository,
) *Service {
	return &Service{
		clinics:      clinics,
		appointments: appointments,
		funnel:       funnel,
		patients:     patients,
		now:          time.Now,
	}
}

// Overview assembles the dashboard for a clinic the caller already owns.
func (s *Service) Overview(ctx context.Context, clinic *model.Clinic) (*Overview, error) {
	now := s.now()
	out := &Overview{}

	counts, err := s.appointments.CountByStatusOn(ctx, clinic.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to count appointments: %w", err)
	}
	for _, c := range counts {
		switch c.Status {
		case model.AppointmentStatusPending:
			out.TodayAppointments.Pending = c.Count
		case model.AppointmentStatusConfirmed:
			out.TodayAppointments.Confirmed = c.Count
		case model.AppointmentStatusCompleted:
			out.TodayAppointments.Completed = c.Count
		}
	}

	events, err := s.funnel.ListRecent(ctx, clinic.ID, funnelWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to list funnel events: %w", err)
	}
	out.Funnel = funnelStats(events)

	if out.Patients.Total, err = s.patients.CountActive(ctx, clinic.ID); err != nil {
		return nil, fmt.Errorf("failed to count patients: %w", err)
	}
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	if out.Patients.NewThisMonth, err = s.patients.CountCreatedSince(ctx, clinic.ID, monthStart); err != nil {
		return nil, fmt.Errorf("failed to count new patients: %w", err)
	}

	extras, err := s.clinics.GetExtras(ctx, clinic.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load clinic extras: %w", err)
	}
	out.Profile = ProfileCompleteness(clinic, extras)
	out.Suggestions = Suggestions(clinic, out)
	return out, nil
}

func funnelStats(events []*model.ReviewFunnelEvent) FunnelStats {
	var st FunnelStats
	for _, e := range events {
		switch e.EventType {
		case model.FunnelEventThumbsUp:
			st.ThumbsUp++
		case model.FunnelEventThumbsDown:
			st.ThumbsDown++
		}
	}
	if len(events) > 0 {
		st.ConversionRate = percent(st.ThumbsUp, len(events))
	}
	return st
}

// ProfileCompleteness scores ten listing signals.
func ProfileCompleteness(c *model.Clinic, extras *model.ClinicExtras) Completeness {
	signals := []bool{
		c.Name != "",
		nonEmpty(c.Description),
		nonEmpty(c.Address),
		c.Phone != "",
		c.Email != "",
		nonEmpty(c.Website),
		nonEmpty(c.CoverImageURL),
		nonEmpty(c.GooglePlaceID),
		extras != nil && extras.Hours > 0,
		extras != nil && extras.Images > 0,
	}
	present := 0
	for _, ok := range signals {
		if ok {
			present++
		}
	}

	p := percent(present, len(signals))
	label := "Needs work"
	switch {
	case p >= 80:
		label = "Good"
	case p >= 50:
		label = "Fair"
	}
	return Completeness{Percent: p, Label: label}
}

// Suggestions returns at most three nudges, most urgent first.
func Suggestions(c *model.Clinic, o *Overview) []Suggestion {
	var out []Suggestion
	if n := o.TodayAppointments.Pending; n > 0 {
		out = append(out, Suggestion{SuggestionUrgent, fmt.Sprintf("%d pending appointments", n), "Review and confirm appointments", "my-appointments"})
	}
	if o.Funnel.ThumbsDown > o.Funnel.ThumbsUp {
		out = append(out, Suggestion{SuggestionWarning, "High negative feedback", "Review private feedback and address concerns", "my-reputation"})
	}
	if !nonEmpty(c.GooglePlaceID) {
		out = append(out, Suggestion{SuggestionAction, "Connect Google Business", "Link GMB to boost visibility and reviews", "my-reputation"})
	}
	if o.Profile.Percent < 80 {
		out = append(out, Suggestion{SuggestionAction, fmt.Sprintf("Profile %d%% complete", o.Profile.Percent), "Complete your profile for better visibility", "my-profile"})
	}
	if c.VerificationStatus != model.VerificationStatusVerified {
		out = append(out, Suggestion{SuggestionAction, "Get verified", "Verified clinics get 3x more bookings", "my-profile"})
	}
	if len(out) > 3 {
		out = out[:3]
	}
	if out == nil {
		out = []Suggestion{}
	}
	return out
}

func percent(part, total int) int {
	return int(math.Round(float64(part) / float64(total) * 100))
}

func nonEmpty(s *string) bool {
	return s != nil && *s != ""
}
