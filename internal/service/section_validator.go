package service

import (
	"fmt"
	"student_forms/internal/model"

	"github.com/go-playground/validator/v10"
)

const msgRequired = "This field is required"

var lengthValidator = validator.New()

// ValidateSection checks the fields of one section against the current
// values and returns a fresh error map. Rules are tried in the order
// required, minimum length, maximum length; the first failing rule is the
// only error reported for a field. Length rules apply to single string
// values that are present, counted in characters.
func ValidateSection(fields []model.FormField, data model.FormData) (model.ErrorMap, bool) {
	errs := make(model.ErrorMap)

	for _, field := range fields {
		if msg, failed := checkField(field, data); failed {
			errs[field.FieldID] = msg
		}
	}

	return errs, len(errs) == 0
}

func checkField(field model.FormField, data model.FormData) (string, bool) {
	value, present := data[field.FieldID]
	custom := field.CustomMessage()
	pick := func(def string) string {
		if custom != "" {
			return custom
		}
		return def
	}

	if field.Required && (!present || value.IsEmpty()) {
		return pick(msgRequired), true
	}

	if !present || value.IsList() {
		return "", false
	}
	text := value.String()

	if field.MinLength > 0 && lengthValidator.Var(text, fmt.Sprintf("min=%d", field.MinLength)) != nil {
		return pick(fmt.Sprintf("Minimum length is %d characters", field.MinLength)), true
	}
	if field.MaxLength > 0 && lengthValidator.Var(text, fmt.Sprintf("max=%d", field.MaxLength)) != nil {
		return pick(fmt.Sprintf("Maximum length is %d characters", field.MaxLength)), true
	}
	return "", false
}
