package form

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Store errors
var (
	ErrUnknownField = errors.New("unknown form field")
	ErrSubjectIndex = errors.New("subject index out of range")
)

// Store holds field values and the per-field error mapping used for display.
// Edits never validate; Validate runs the rules of the requested fields only.
type Store struct {
	mu       sync.Mutex
	draft    Draft
	errors   map[string]string
	validate *validator.Validate
}

// NewStore returns a store with a single empty subject entry.
func NewStore() *Store {
	return &Store{
		draft:    Draft{Subjects: []string{""}},
		errors:   map[string]string{},
		validate: validator.New(),
	}
}

// SetField sets a single value. Subject entries are addressed as "subjects.<index>".
func (s *Store) SetField(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(name, value)
}

// SetFields applies all values or none.
func (s *Store) SetFields(values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.draft.Clone()
	for name, value := range values {
		if err := s.setLocked(name, value); err != nil {
			s.draft = prev
			return err
		}
	}
	return nil
}

func (s *Store) setLocked(name, value string) error {
	switch Field(name) {
	case FieldFirstName:
		s.draft.FirstName = value
	case FieldLastName:
		s.draft.LastName = value
	case FieldPhone:
		s.draft.Phone = value
	case FieldAddress:
		s.draft.Address = value
	case FieldProfilePhotoURL:
		s.draft.ProfilePhotoURL = value
	default:
		idx, ok := strings.CutPrefix(name, string(FieldSubjects)+".")
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
		i, err := strconv.Atoi(idx)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
		if i < 0 || i >= len(s.draft.Subjects) {
			return fmt.Errorf("%w: %d", ErrSubjectIndex, i)
		}
		s.draft.Subjects[i] = value
	}
	return nil
}

// AppendSubject adds an empty subject entry and returns its index.
func (s *Store) AppendSubject() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Subjects = append(s.draft.Subjects, "")
	return len(s.draft.Subjects) - 1
}

// RemoveSubject deletes the entry at i. It is a no-op returning false when
// i is out of range or only one entry remains.
func (s *Store) RemoveSubject(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.draft.Subjects)
	if n <= 1 || i < 0 || i >= n {
		return false
	}
	s.draft.Subjects = append(s.draft.Subjects[:i:i], s.draft.Subjects[i+1:]...)
	// Indexed subject errors no longer line up with the entries.
	s.clearLocked(FieldSubjects)
	return true
}

// Draft returns a snapshot of the current values.
func (s *Store) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

// Errors returns a copy of the current error mapping.
func (s *Store) Errors() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.errors))
	for k, v := range s.errors {
		out[k] = v
	}
	return out
}

// Validate evaluates the rules of fields, replaces their entries in the
// error mapping, and reports whether all of them passed.
func (s *Store) Validate(fields ...Field) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok := true
	for _, f := range fields {
		s.clearLocked(f)
		for k, msg := range check(s.validate, s.draft, f) {
			s.errors[k] = msg
			ok = false
		}
	}
	return ok
}

func (s *Store) clearLocked(f Field) {
	delete(s.errors, string(f))
	if f != FieldSubjects {
		return
	}
	prefix := string(FieldSubjects) + "."
	for k := range s.errors {
		if strings.HasPrefix(k, prefix) {
			delete(s.errors, k)
		}
	}
}
