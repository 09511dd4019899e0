package service

import (
	"context"
	"fmt"
	"student_forms/internal/model"
	"student_forms/internal/repository"
	"student_forms/internal/util"
	"student_forms/pkg/logger"
	"student_forms/pkg/monitoring"

	"go.uber.org/zap"
)

type FormState string

const (
	StateLoading   FormState = "loading"
	StateError     FormState = "error"
	StateReady     FormState = "ready"
	StateSubmitted FormState = "submitted"
	// StateRedirect is terminal: the session has no roll number, or the
	// student returned to login. The caller sends the user to the login page.
	StateRedirect FormState = "redirect"
)

// FormFetcher loads the schema assigned to a student.
type FormFetcher interface {
	GetForm(ctx context.Context, rollNumber string) (*model.FormSchema, error)
}

// FormRuntime is the per-session state machine of a multi-section form:
// loading -> error | ready, and within ready the section cursor advances
// until the last section is submitted. It is not safe for concurrent use;
// FormService serializes access per session.
type FormRuntime struct {
	store   repository.LocalStore
	fetcher FormFetcher

	state   FormState
	schema  *model.FormSchema
	cursor  int
	data    model.FormData
	errors  model.ErrorMap
	loadErr error
}

func NewFormRuntime(store repository.LocalStore, fetcher FormFetcher) *FormRuntime {
	return &FormRuntime{
		store:   store,
		fetcher: fetcher,
		state:   StateLoading,
		data:    make(model.FormData),
		errors:  make(model.ErrorMap),
	}
}

func (r *FormRuntime) State() FormState { return r.state }

func (r *FormRuntime) Cursor() int { return r.cursor }

// Mount reads the stored roll number and fetches its form. Without a roll
// number no fetch is made and the runtime moves to StateRedirect.
func (r *FormRuntime) Mount(ctx context.Context) error {
	if r.state != StateLoading {
		return fmt.Errorf("%w: mount from %s", util.ErrInvalidState, r.state)
	}

	rollNumber, ok, err := r.store.Get(ctx, util.KeyRollNumber)
	if err != nil {
		r.fail(err)
		return fmt.Errorf("%w: read session: %v", util.ErrFormLoad, err)
	}
	if !ok || rollNumber == "" {
		r.state = StateRedirect
		return util.ErrNoSession
	}

	schema, err := r.fetcher.GetForm(ctx, rollNumber)
	if err == nil {
		err = schema.Validate()
	}
	if err != nil {
		r.fail(err)
		logger.Log.Warn("Form load failed", zap.String("roll_number", rollNumber), zap.Error(err))
		return fmt.Errorf("%w: %v", util.ErrFormLoad, err)
	}

	r.schema = schema
	r.cursor = 0
	r.state = StateReady
	monitoring.FormEvents.WithLabelValues(schema.FormID, "mounted").Inc()
	logger.Log.Debug("Form mounted",
		zap.String("form_id", schema.FormID),
		zap.Int("sections", len(schema.Sections)),
	)
	return nil
}

func (r *FormRuntime) fail(err error) {
	r.state = StateError
	r.loadErr = err
	monitoring.FormEvents.WithLabelValues("", "load_failed").Inc()
}

// SetField records a value and drops any error the field currently shows.
func (r *FormRuntime) SetField(fieldID string, value model.FieldValue) error {
	if r.state != StateReady {
		return fmt.Errorf("%w: edit in %s", util.ErrInvalidState, r.state)
	}
	field, ok := r.schema.Field(fieldID)
	if !ok {
		return fmt.Errorf("%w: %q", util.ErrUnknownField, fieldID)
	}
	if field.Type.IsMulti() != value.IsList() {
		return fmt.Errorf("%w: %q is %s", util.ErrInvalidFieldValue, fieldID, field.Type)
	}

	r.data[fieldID] = value
	delete(r.errors, fieldID)
	return nil
}

// Value returns the current value of a field and whether one was entered.
func (r *FormRuntime) Value(fieldID string) (model.FieldValue, bool) {
	v, ok := r.data[fieldID]
	return v, ok
}

// Next validates the displayed section. On success it moves the cursor
// forward, or submits when the section is the last one. The returned bool
// reports whether validation passed.
func (r *FormRuntime) Next(ctx context.Context) (bool, error) {
	if r.state != StateReady {
		return false, fmt.Errorf("%w: next in %s", util.ErrInvalidState, r.state)
	}

	section := r.schema.Sections[r.cursor]
	errs, valid := ValidateSection(section.Fields, r.data)
	r.errors = errs
	if !valid {
		monitoring.FormEvents.WithLabelValues(r.schema.FormID, "rejected").Inc()
		return false, nil
	}

	if r.cursor == len(r.schema.Sections)-1 {
		r.state = StateSubmitted
		monitoring.FormEvents.WithLabelValues(r.schema.FormID, "submitted").Inc()
		logger.Log.Info("Form submitted",
			zap.String("form_id", r.schema.FormID),
			zap.Any("form_data", r.data),
		)
		return true, nil
	}

	r.cursor++
	monitoring.FormEvents.WithLabelValues(r.schema.FormID, "advanced").Inc()
	return true, nil
}

// Previous moves back one section without validating anything.
func (r *FormRuntime) Previous() error {
	if r.state != StateReady {
		return fmt.Errorf("%w: previous in %s", util.ErrInvalidState, r.state)
	}
	if r.cursor == 0 {
		return util.ErrAtFirstSection
	}
	r.cursor--
	return nil
}

// ReturnToLogin clears the stored identity once the form is submitted.
func (r *FormRuntime) ReturnToLogin(ctx context.Context) error {
	if r.state != StateSubmitted {
		return fmt.Errorf("%w: return to login in %s", util.ErrInvalidState, r.state)
	}
	if err := r.store.Remove(ctx, util.KeyRollNumber, util.KeyUserName); err != nil {
		return err
	}
	r.state = StateRedirect
	return nil
}

// FormView is a render-ready snapshot of the runtime.
type FormView struct {
	State        FormState          `json:"state"`
	Message      string             `json:"message,omitempty"`
	FormTitle    string             `json:"formTitle,omitempty"`
	FormID       string             `json:"formId,omitempty"`
	Section      *model.FormSection `json:"section,omitempty"`
	SectionIndex int                `json:"sectionIndex"`
	SectionCount int                `json:"sectionCount"`
	Progress     float64            `json:"progress"`
	IsLast       bool               `json:"isLast"`
	CanGoBack    bool               `json:"canGoBack"`
	Values       model.FormData     `json:"values,omitempty"`
	Errors       model.ErrorMap     `json:"errors,omitempty"`
}

func (r *FormRuntime) View() FormView {
	v := FormView{State: r.state}

	switch r.state {
	case StateError:
		v.Message = util.MsgFormLoadFailed
		return v
	case StateReady, StateSubmitted:
	default:
		return v
	}

	n := len(r.schema.Sections)
	section := r.schema.Sections[r.cursor]
	v.FormTitle = r.schema.FormTitle
	v.FormID = r.schema.FormID
	v.SectionIndex = r.cursor
	v.SectionCount = n
	v.Progress = float64(r.cursor+1) / float64(n) * 100
	v.IsLast = r.cursor == n-1
	v.CanGoBack = r.state == StateReady && r.cursor > 0
	if r.state == StateReady {
		v.Section = &section
		v.Values = r.data.Clone()
		v.Errors = r.errors.Clone()
	}
	return v
}
