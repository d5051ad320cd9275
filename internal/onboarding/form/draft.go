// Package form holds the onboarding form state: field values, the subject
// list, and per-field validation errors evaluated on demand.
package form

// Field names a validatable form field.
type Field string

// Form fields. The string values are the names used by SetField and as error keys.
const (
	FieldFirstName       Field = "firstName"
	FieldLastName        Field = "lastName"
	FieldPhone           Field = "phone"
	FieldAddress         Field = "address"
	FieldSubjects        Field = "subjects"
	FieldProfilePhotoURL Field = "profilePhotoUrl"
)

// Draft is a snapshot of the values entered so far.
type Draft struct {
	FirstName       string   `json:"firstName"`
	LastName        string   `json:"lastName"`
	Phone           string   `json:"phone"`
	Address         string   `json:"address"`
	Subjects        []string `json:"subjects"`
	ProfilePhotoURL string   `json:"profilePhotoUrl,omitempty"`
}

// Clone returns a deep copy of d.
func (d Draft) Clone() Draft {
	c := d
	c.Subjects = append([]string(nil), d.Subjects...)
	return c
}
