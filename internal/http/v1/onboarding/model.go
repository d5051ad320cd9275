package onboarding

import (
	"github.com/janisto/onboarding-wizard/internal/onboarding/session"
	"github.com/janisto/onboarding-wizard/internal/onboarding/wizard"
	"github.com/janisto/onboarding-wizard/internal/platform/timeutil"
)

// Draft is the form as entered so far.
type Draft struct {
	FirstName       string   `json:"firstName"       doc:"First name"                example:"Ada"`
	LastName        string   `json:"lastName"        doc:"Last name"                 example:"Lovelace"`
	Phone           string   `json:"phone"           doc:"Phone number"              example:"0401234567"`
	Address         string   `json:"address"         doc:"Postal address"            example:"12 Analytical St"`
	Subjects        []string `json:"subjects"        doc:"Subjects of interest"`
	ProfilePhotoURL string   `json:"profilePhotoUrl" doc:"Uploaded profile photo URL" example:"https://cdn.example.com/ada.png"`
}

// Session is the identity the user currently carries. The access token is never exposed.
type Session struct {
	UserID       string `json:"userId"       doc:"User identifier"        example:"user-123"`
	Name         string `json:"name"         doc:"Display name"           example:"Ada Lovelace"`
	Role         string `json:"role"         doc:"Role"                   example:"STUDENT"`
	IsOnboarding bool   `json:"isOnboarding" doc:"Onboarding flag"`
	Image        string `json:"image"        doc:"Avatar URL"`
}

// State is the wizard as the client renders it.
type State struct {
	Step         int               `json:"step"              doc:"Current step (1-3)"              example:"1"`
	StepName     string            `json:"stepName"          doc:"Current step name"               example:"personal"`
	Draft        Draft             `json:"draft"`
	Errors       map[string]string `json:"errors,omitempty"  doc:"Field errors keyed by field name"`
	Submitting   bool              `json:"submitting"        doc:"A submission is in flight"`
	Submitted    bool              `json:"submitted"         doc:"The profile has been submitted"`
	SubmittedAt  timeutil.Time     `json:"submittedAt"       doc:"When the profile was submitted" example:"2024-01-15T10:30:00.000Z"`
	Notice       string            `json:"notice,omitempty"  doc:"User-visible notice from the last action"`
	SessionState string            `json:"sessionState"      doc:"Session bridge state"            example:"authenticated"`
	Session      *Session          `json:"session,omitempty"`
}

// Destination is where the client should navigate after continuing.
type Destination struct {
	Path   string `json:"path"             doc:"Target path"            example:"/portal/messages"`
	Prompt string `json:"prompt,omitempty" doc:"Message shown on arrival" example:"Please log in again."`
}

// ContinueResult is returned when leaving the confirmation step.
type ContinueResult struct {
	Destination Destination `json:"destination"`
	State       State       `json:"state"`
}

func toHTTPState(s wizard.Snapshot) State {
	out := State{
		Step:     int(s.Step),
		StepName: s.Step.String(),
		Draft: Draft{
			FirstName:       s.Draft.FirstName,
			LastName:        s.Draft.LastName,
			Phone:           s.Draft.Phone,
			Address:         s.Draft.Address,
			Subjects:        s.Draft.Subjects,
			ProfilePhotoURL: s.Draft.ProfilePhotoURL,
		},
		Submitting:   s.Submitting,
		Submitted:    s.Submitted,
		SubmittedAt:  timeutil.NewTime(s.SubmittedAt),
		Notice:       s.Notice,
		SessionState: s.SessionState.String(),
	}
	if len(s.Errors) > 0 {
		out.Errors = s.Errors
	}
	if s.Session != nil {
		out.Session = toHTTPSession(s.Session)
	}
	return out
}

func toHTTPSession(s *session.Session) *Session {
	return &Session{
		UserID:       s.UserID,
		Name:         s.Name,
		Role:         s.Role,
		IsOnboarding: s.IsOnboarding,
		Image:        s.Image,
	}
}
