package onboarding

// GetInput for GET /onboarding
type GetInput struct{}

// FieldsInput for PUT /onboarding/fields
type FieldsInput struct {
	Body struct {
		Fields map[string]string `json:"fields" required:"true" minProperties:"1" doc:"Field values keyed by name; subject entries use subjects.<index>"`
	}
}

// AddSubjectInput for POST /onboarding/subjects
type AddSubjectInput struct{}

// RemoveSubjectInput for DELETE /onboarding/subjects/{index}
type RemoveSubjectInput struct {
	Index int `path:"index" minimum:"0" doc:"Subject entry index" example:"1"`
}

// ActionInput for the step actions (advance, retreat, submit, continue)
type ActionInput struct{}
