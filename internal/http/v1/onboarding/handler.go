package onboarding

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/onboarding-wizard/internal/onboarding/form"
	"github.com/janisto/onboarding-wizard/internal/onboarding/session"
	"github.com/janisto/onboarding-wizard/internal/onboarding/step"
	"github.com/janisto/onboarding-wizard/internal/onboarding/submit"
	"github.com/janisto/onboarding-wizard/internal/onboarding/wizard"
	"github.com/janisto/onboarding-wizard/internal/platform/auth"
	applog "github.com/janisto/onboarding-wizard/internal/platform/logging"
)

var bearerAuth = []map[string][]string{{"bearerAuth": {}}}

// Register registers the onboarding wizard endpoints.
func Register(api huma.API, reg *Registry) {
	huma.Register(api, huma.Operation{
		OperationID: "get-onboarding",
		Method:      http.MethodGet,
		Path:        "/onboarding",
		Summary:     "Get onboarding state",
		Description: "Returns the authenticated user's wizard: current step, entered values and field errors.",
		Tags:        []string{"Onboarding"},
		Security:    bearerAuth,
	}, func(ctx context.Context, _ *GetInput) (*StateOutput, error) {
		e := current(ctx, reg)
		return stateOutput(ctx, e.wizard), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-onboarding-fields",
		Method:      http.MethodPut,
		Path:        "/onboarding/fields",
		Summary:     "Set form fields",
		Description: "Records field values without validating them. Either all values are applied or none.",
		Tags:        []string{"Onboarding"},
		Security:    bearerAuth,
	}, func(ctx context.Context, input *FieldsInput) (*StateOutput, error) {
		e := current(ctx, reg)
		if err := e.wizard.SetFields(input.Body.Fields); err != nil {
			return nil, mapError(ctx, err)
		}
		return stateOutput(ctx, e.wizard), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-onboarding-subject",
		Method:        http.MethodPost,
		Path:          "/onboarding/subjects",
		Summary:       "Add a subject entry",
		Description:   "Appends an empty subject entry.",
		Tags:          []string{"Onboarding"},
		DefaultStatus: http.StatusCreated,
		Security:      bearerAuth,
	}, func(ctx context.Context, _ *AddSubjectInput) (*AddSubjectOutput, error) {
		e := current(ctx, reg)
		out := &AddSubjectOutput{}
		out.Body.Index = e.wizard.AppendSubject()
		out.Body.State = toHTTPState(e.wizard.Snapshot(ctx))
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-onboarding-subject",
		Method:      http.MethodDelete,
		Path:        "/onboarding/subjects/{index}",
		Summary:     "Remove a subject entry",
		Description: "Removes a subject entry. Removing the only remaining entry leaves the list unchanged.",
		Tags:        []string{"Onboarding"},
		Security:    bearerAuth,
	}, func(ctx context.Context, input *RemoveSubjectInput) (*StateOutput, error) {
		e := current(ctx, reg)
		e.wizard.RemoveSubject(input.Index)
		return stateOutput(ctx, e.wizard), nil
	})

	registerAction(api, reg, "advance-onboarding", "/onboarding/advance", "Advance to the next step",
		"Validates the current step and moves forward. The picture step is left by submitting.",
		func(_ context.Context, w *wizard.Wizard) error { return w.Advance() })

	registerAction(api, reg, "retreat-onboarding", "/onboarding/retreat", "Go back one step",
		"Moves back without validating. Entered values are kept.",
		func(_ context.Context, w *wizard.Wizard) error { return w.Retreat() })

	registerAction(api, reg, "submit-onboarding", "/onboarding/submit", "Submit the onboarding profile",
		"Provisions the chat identity, persists the profile and refreshes the session. On failure the step is unchanged.",
		func(ctx context.Context, w *wizard.Wizard) error { return w.Submit(ctx) })

	huma.Register(api, huma.Operation{
		OperationID: "continue-onboarding",
		Method:      http.MethodPost,
		Path:        "/onboarding/continue",
		Summary:     "Leave the wizard",
		Description: "Re-establishes the session with the new role and returns where to navigate. " +
			"If re-authentication fails the destination is the login page.",
		Tags:     []string{"Onboarding"},
		Security: bearerAuth,
	}, func(ctx context.Context, _ *ActionInput) (*ContinueOutput, error) {
		e := current(ctx, reg)
		err := e.wizard.Continue(ctx)
		dest, navigated := e.nav.take()
		if err != nil && !(navigated && errors.Is(err, session.ErrSessionTransition)) {
			return nil, mapError(ctx, err)
		}
		out := &ContinueOutput{Body: ContinueResult{
			Destination: Destination{Path: dest.Path, Prompt: dest.Prompt},
			State:       toHTTPState(e.wizard.Snapshot(ctx)),
		}}
		if navigated {
			reg.release(e.wizard.UserID(), e)
		}
		return out, nil
	})
}

func registerAction(api huma.API, reg *Registry, id, path, summary, description string,
	action func(context.Context, *wizard.Wizard) error,
) {
	huma.Register(api, huma.Operation{
		OperationID: id,
		Method:      http.MethodPost,
		Path:        path,
		Summary:     summary,
		Description: description,
		Tags:        []string{"Onboarding"},
		Security:    bearerAuth,
	}, func(ctx context.Context, _ *ActionInput) (*StateOutput, error) {
		e := current(ctx, reg)
		if err := action(ctx, e.wizard); err != nil {
			return nil, mapError(ctx, err)
		}
		return stateOutput(ctx, e.wizard), nil
	})
}

func current(ctx context.Context, reg *Registry) *entry {
	return reg.get(ctx, auth.UserFromContext(ctx), auth.TokenFromContext(ctx))
}

func stateOutput(ctx context.Context, w *wizard.Wizard) *StateOutput {
	return &StateOutput{Body: toHTTPState(w.Snapshot(ctx))}
}

func mapError(ctx context.Context, err error) error {
	var verr *step.ValidationError
	switch {
	case errors.As(err, &verr):
		return huma.Error422UnprocessableEntity("validation failed", fieldDetails(verr.Fields)...)
	case errors.Is(err, form.ErrUnknownField), errors.Is(err, form.ErrSubjectIndex):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, submit.ErrInFlight):
		return huma.Error409Conflict(submit.Message(err))
	case errors.Is(err, submit.ErrAlreadySubmitted):
		return huma.Error409Conflict(submit.Message(err))
	case errors.Is(err, submit.ErrChatProvisioning), errors.Is(err, submit.ErrPersistence):
		return huma.Error502BadGateway(submit.Message(err))
	case errors.Is(err, step.ErrSubmissionRequired),
		errors.Is(err, step.ErrReadOnly),
		errors.Is(err, step.ErrNoPreviousStep),
		errors.Is(err, wizard.ErrNotSubmittable),
		errors.Is(err, wizard.ErrNotConfirmed),
		errors.Is(err, session.ErrTransitionInProgress):
		return huma.Error409Conflict(err.Error())
	default:
		applog.LogError(ctx, "onboarding action failed", err)
		return huma.Error500InternalServerError("internal error")
	}
}

func fieldDetails(fields map[string]string) []error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]error, 0, len(keys))
	for _, k := range keys {
		out = append(out, &huma.ErrorDetail{Location: "body." + k, Message: fields[k]})
	}
	return out
}
