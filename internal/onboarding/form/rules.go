package form

import (
	"strconv"

	"github.com/go-playground/validator/v10"
)

type rule struct {
	tag     string
	message string
}

// rules holds one declarative rule per field, evaluated with validator tags.
var rules = map[Field]rule{
	FieldFirstName:       {tag: "required", message: "First name is required!"},
	FieldLastName:        {tag: "required", message: "Last name is required!"},
	FieldPhone:           {tag: "required,min=9", message: "Valid phone number is required!"},
	FieldAddress:         {tag: "required", message: "Address is required!"},
	FieldSubjects:        {tag: "min=1", message: "At least one subject is required!"},
	FieldProfilePhotoURL: {tag: "omitempty,url", message: "Valid URL is required!"},
}

// subjectRule applies to every entry of the subject list.
var subjectRule = rule{tag: "required", message: "Subject is required!"}

// SubjectKey returns the error key for the subject at index i.
func SubjectKey(i int) string {
	return string(FieldSubjects) + "." + strconv.Itoa(i)
}

// check evaluates field against d and returns the resulting error entries.
func check(v *validator.Validate, d Draft, field Field) map[string]string {
	out := map[string]string{}
	r, ok := rules[field]
	if !ok {
		return out
	}

	var value any
	switch field {
	case FieldFirstName:
		value = d.FirstName
	case FieldLastName:
		value = d.LastName
	case FieldPhone:
		value = d.Phone
	case FieldAddress:
		value = d.Address
	case FieldProfilePhotoURL:
		value = d.ProfilePhotoURL
	case FieldSubjects:
		if err := v.Var(d.Subjects, r.tag); err != nil {
			out[string(field)] = r.message
		}
		for i, s := range d.Subjects {
			if err := v.Var(s, subjectRule.tag); err != nil {
				out[SubjectKey(i)] = subjectRule.message
			}
		}
		return out
	}

	if err := v.Var(value, r.tag); err != nil {
		out[string(field)] = r.message
	}
	return out
}
