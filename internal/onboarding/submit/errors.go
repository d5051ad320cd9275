package submit

import "errors"

// Workflow errors. Stage failures wrap their cause.
var (
	// ErrChatProvisioning indicates the chat identity could not be set up.
	// Persistence was not attempted.
	ErrChatProvisioning = errors.New("chat profile setup failed")

	// ErrChatDeclined is the cause when the provisioner answered false.
	ErrChatDeclined = errors.New("chat provider declined")

	// ErrPersistence indicates the profile update or session refresh failed.
	ErrPersistence = errors.New("profile persistence failed")

	// ErrMissingToken is the cause when the update succeeded without an access token.
	ErrMissingToken = errors.New("no access token returned from server")

	// ErrInFlight is returned when a submission is already running.
	ErrInFlight = errors.New("submission already in progress")

	// ErrAlreadySubmitted is returned after a successful submission.
	ErrAlreadySubmitted = errors.New("profile already submitted")
)

// User-visible notices.
const (
	NoticeChatProvisioning = "Failed to set up chat profile"
	NoticeUnexpected       = "An unexpected error occurred. Please try again."
	NoticeInFlight         = "Your profile is being submitted."
	NoticeAlreadySubmitted = "Your profile has already been submitted."
)

// Message maps a workflow error to the single notice shown to the user.
// Raw error detail is never part of the notice.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrChatProvisioning):
		return NoticeChatProvisioning
	case errors.Is(err, ErrInFlight):
		return NoticeInFlight
	case errors.Is(err, ErrAlreadySubmitted):
		return NoticeAlreadySubmitted
	default:
		return NoticeUnexpected
	}
}
