// Package step implements the onboarding step state machine. Each step is a
// variant carrying its own validation field set and its own merge into the
// accumulated submission.
package step

import (
	"fmt"

	"github.com/janisto/onboarding-wizard/internal/onboarding/form"
)

// Index identifies a wizard step.
type Index int

// Wizard steps.
const (
	Personal     Index = 1 // personal details and subjects
	Picture      Index = 2 // profile picture
	Confirmation Index = 3 // terminal, read-only
)

func (i Index) String() string {
	switch i {
	case Personal:
		return "personal"
	case Picture:
		return "picture"
	case Confirmation:
		return "confirmation"
	default:
		return fmt.Sprintf("step(%d)", int(i))
	}
}

// Accumulated is the union of validated values merged across steps.
type Accumulated struct {
	FirstName       string
	LastName        string
	Phone           string
	Address         string
	Subjects        []string
	ProfilePhotoURL string
}

// Clone returns a deep copy of a.
func (a Accumulated) Clone() Accumulated {
	c := a
	c.Subjects = append([]string(nil), a.Subjects...)
	return c
}

// Step is one stage of the wizard.
type Step interface {
	Index() Index
	// Fields lists the fields validated before leaving the step.
	Fields() []form.Field
	merge(acc *Accumulated, d form.Draft)
}

type personalStep struct{}

func (personalStep) Index() Index { return Personal }

func (personalStep) Fields() []form.Field {
	return []form.Field{
		form.FieldFirstName,
		form.FieldLastName,
		form.FieldPhone,
		form.FieldAddress,
		form.FieldSubjects,
	}
}

func (personalStep) merge(acc *Accumulated, d form.Draft) {
	acc.FirstName = d.FirstName
	acc.LastName = d.LastName
	acc.Phone = d.Phone
	acc.Address = d.Address
	acc.Subjects = append([]string(nil), d.Subjects...)
}

type pictureStep struct{}

func (pictureStep) Index() Index { return Picture }

func (pictureStep) Fields() []form.Field {
	return []form.Field{form.FieldProfilePhotoURL}
}

func (pictureStep) merge(acc *Accumulated, d form.Draft) {
	acc.ProfilePhotoURL = d.ProfilePhotoURL
}

type confirmationStep struct{}

func (confirmationStep) Index() Index {
	return Confirmation
}

func (confirmationStep) Fields() []form.Field {
	return nil
}

func (confirmationStep) merge(*Accumulated, form.Draft) {}

var steps = map[Index]Step{
	Personal:     personalStep{},
	Picture:      pictureStep{},
	Confirmation: confirmationStep{},
}

// For returns the step variant for i, or nil for an unknown index.
func For(i Index) Step {
	return steps[i]
}
