package model

import (
	"errors"
	"fmt"
)

var ErrInvalidSchema = errors.New("invalid form schema")

type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTel      FieldType = "tel"
	FieldEmail    FieldType = "email"
	FieldTextarea FieldType = "textarea"
	FieldDate     FieldType = "date"
	FieldDropdown FieldType = "dropdown"
	FieldRadio    FieldType = "radio"
	FieldCheckbox FieldType = "checkbox"
)

// IsMulti reports whether values of this type are lists of strings.
func (t FieldType) IsMulti() bool {
	return t == FieldCheckbox
}

// HasOptions reports whether the field is rendered from a list of options.
func (t FieldType) HasOptions() bool {
	return t == FieldDropdown || t == FieldRadio || t == FieldCheckbox
}

func (t FieldType) known() bool {
	switch t {
	case FieldText, FieldTel, FieldEmail, FieldTextarea, FieldDate, FieldDropdown, FieldRadio, FieldCheckbox:
		return true
	}
	return false
}

type FieldOption struct {
	Value      string `json:"value" yaml:"value"`
	Label      string `json:"label" yaml:"label"`
	DataTestID string `json:"dataTestId,omitempty" yaml:"dataTestId,omitempty"`
}

type FieldValidation struct {
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// FormField is a single input. MinLength and MaxLength of zero mean
// the constraint is not set.
type FormField struct {
	FieldID     string           `json:"fieldId" yaml:"fieldId"`
	Type        FieldType        `json:"type" yaml:"type"`
	Label       string           `json:"label" yaml:"label"`
	Placeholder string           `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Required    bool             `json:"required" yaml:"required"`
	DataTestID  string           `json:"dataTestId,omitempty" yaml:"dataTestId,omitempty"`
	MinLength   int              `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength   int              `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Options     []FieldOption    `json:"options,omitempty" yaml:"options,omitempty"`
	Validation  *FieldValidation `json:"validation,omitempty" yaml:"validation,omitempty"`
}

// CustomMessage returns the schema-supplied error text, if any.
func (f FormField) CustomMessage() string {
	if f.Validation == nil {
		return ""
	}
	return f.Validation.Message
}

type FormSection struct {
	SectionID   int         `json:"sectionId" yaml:"sectionId"`
	Title       string      `json:"title" yaml:"title"`
	Description string      `json:"description" yaml:"description"`
	Fields      []FormField `json:"fields" yaml:"fields"`
}

type FormSchema struct {
	FormTitle string        `json:"formTitle" yaml:"formTitle"`
	FormID    string        `json:"formId" yaml:"formId"`
	Version   string        `json:"version,omitempty" yaml:"version,omitempty"`
	Sections  []FormSection `json:"sections" yaml:"sections"`
}

// Field looks a field up by id across all sections.
func (s *FormSchema) Field(fieldID string) (FormField, bool) {
	for _, sec := range s.Sections {
		for _, f := range sec.Fields {
			if f.FieldID == fieldID {
				return f, true
			}
		}
	}
	return FormField{}, false
}

// Validate checks the structural rules the runtime relies on: at least one
// section, and field ids that are non-empty and unique across the schema.
// Field types are open; unrecognized ones render as plain inputs.
func (s *FormSchema) Validate() error {
	if len(s.Sections) == 0 {
		return fmt.Errorf("%w: form %q has no sections", ErrInvalidSchema, s.FormID)
	}
	seen := make(map[string]bool)
	for i, sec := range s.Sections {
		for _, f := range sec.Fields {
			if f.FieldID == "" {
				return fmt.Errorf("%w: section %d has a field without id", ErrInvalidSchema, i)
			}
			if seen[f.FieldID] {
				return fmt.Errorf("%w: duplicate field id %q", ErrInvalidSchema, f.FieldID)
			}
			if f.MinLength < 0 || f.MaxLength < 0 || (f.MaxLength > 0 && f.MinLength > f.MaxLength) {
				return fmt.Errorf("%w: field %q has inconsistent length bounds", ErrInvalidSchema, f.FieldID)
			}
			seen[f.FieldID] = true
		}
	}
	return nil
}

// CheckTypes rejects field types outside the built-in set. Registry
// definitions are held to it; fetched schemas are not.
func (s *FormSchema) CheckTypes() error {
	for _, sec := range s.Sections {
		for _, f := range sec.Fields {
			if !f.Type.known() {
				return fmt.Errorf("%w: field %q has unknown type %q", ErrInvalidSchema, f.FieldID, f.Type)
			}
		}
	}
	return nil
}

// FormResponse is the body returned by the get-form endpoint.
type FormResponse struct {
	Message string     `json:"message,omitempty"`
	Form    FormSchema `json:"form"`
}

// UserData identifies a student at login.
type UserData struct {
	RollNumber string `json:"rollNumber" form:"rollNumber" binding:"required"`
	Name       string `json:"name" form:"name" binding:"required"`
}

// FormData maps field ids to the values entered so far.
type FormData map[string]FieldValue

// Clone returns a copy that shares no list storage with d.
func (d FormData) Clone() FormData {
	out := make(FormData, len(d))
	for k, v := range d {
		out[k] = v.clone()
	}
	return out
}

// ErrorMap maps field ids to a human-readable validation message.
type ErrorMap map[string]string

func (m ErrorMap) Clone() ErrorMap {
	out := make(ErrorMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
