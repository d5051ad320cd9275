package onboarding

// StateOutput wraps the wizard state.
type StateOutput struct {
	Body State
}

// AddSubjectOutput for POST /onboarding/subjects (201 Created)
type AddSubjectOutput struct {
	Body struct {
		Index int   `json:"index" doc:"Index of the new subject entry" example:"1"`
		State State `json:"state"`
	}
}

// ContinueOutput for POST /onboarding/continue
type ContinueOutput struct {
	Body ContinueResult
}
