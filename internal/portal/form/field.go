// Package form holds the per-field state shared by the portal screens: the
// tri-state FieldValidation, the value types of text and password inputs, and
// the pure validation rules that map raw input to a FieldValidation.
package form

// FieldValidation is the validation result attached to one input.
// Valid and Invalid are never both true; both false means the field has not
// been evaluated yet.
type FieldValidation struct {
	Valid   bool
	Invalid bool
	Message string
}

// Unchecked is the neutral, not-yet-evaluated state.
func Unchecked() FieldValidation { return FieldValidation{} }

// Accept marks a field as valid.
func Accept() FieldValidation { return FieldValidation{Valid: true} }

// Reject marks a field as invalid with a user-facing message.
func Reject(msg string) FieldValidation { return FieldValidation{Invalid: true, Message: msg} }

// Checked reports whether the field has been evaluated.
func (v FieldValidation) Checked() bool { return v.Valid || v.Invalid }

// Secret is the value of a password input with its reveal toggle.
type Secret struct {
	Value  string
	Reveal bool
}

// Toggle flips the reveal flag.
func (s Secret) Toggle() Secret {
	s.Reveal = !s.Reveal
	return s
}

// AllValid reports whether every validation is Valid.
func AllValid(vs ...FieldValidation) bool {
	for _, v := range vs {
		if !v.Valid {
			return false
		}
	}
	return true
}
