package service

import (
	"html"
	"strings"
	"student_forms/internal/model"
	"student_forms/internal/repository"
	"student_forms/internal/util"

	"github.com/microcosm-cc/bluemonday"
)

// RegistryService is the built-in implementation of the upstream API:
// it records students and assigns them a form definition.
type RegistryService struct {
	Students    *repository.StudentRepository
	Forms       *repository.FormRepository
	DefaultForm string

	strict *bluemonday.Policy
	rich   *bluemonday.Policy
}

func NewRegistryService(students *repository.StudentRepository, forms *repository.FormRepository, defaultForm string) *RegistryService {
	return &RegistryService{
		Students:    students,
		Forms:       forms,
		DefaultForm: defaultForm,
		strict:      bluemonday.StrictPolicy(),
		rich:        bluemonday.UGCPolicy(),
	}
}

func (s *RegistryService) RegisterStudent(user model.UserData) (*model.Student, error) {
	user.RollNumber = strings.TrimSpace(user.RollNumber)
	user.Name = strings.TrimSpace(user.Name)
	if user.RollNumber == "" || user.Name == "" {
		return nil, util.ErrMissingCredentials
	}

	student := &model.Student{
		RollNumber: user.RollNumber,
		Name:       user.Name,
	}
	if err := s.Students.Upsert(student); err != nil {
		return nil, err
	}
	return student, nil
}

// FormFor returns the form assigned to a registered student. Every student
// currently gets the default form. Text is sanitized before it leaves the
// registry: titles and labels become plain text, descriptions keep basic
// markup.
func (s *RegistryService) FormFor(rollNumber string) (*model.FormSchema, error) {
	if _, err := s.Students.FindByRollNumber(strings.TrimSpace(rollNumber)); err != nil {
		return nil, err
	}
	form, err := s.Forms.FindByID(s.DefaultForm)
	if err != nil {
		return nil, err
	}
	return s.sanitize(form), nil
}

func (s *RegistryService) sanitize(in *model.FormSchema) *model.FormSchema {
	out := *in
	out.FormTitle = s.plain(in.FormTitle)
	out.Sections = make([]model.FormSection, len(in.Sections))
	for i, sec := range in.Sections {
		sec.Title = s.plain(sec.Title)
		sec.Description = s.rich.Sanitize(sec.Description)
		fields := make([]model.FormField, len(sec.Fields))
		for j, f := range sec.Fields {
			f.Label = s.plain(f.Label)
			f.Placeholder = s.plain(f.Placeholder)
			if len(f.Options) > 0 {
				opts := make([]model.FieldOption, len(f.Options))
				for k, o := range f.Options {
					o.Label = s.plain(o.Label)
					opts[k] = o
				}
				f.Options = opts
			}
			fields[j] = f
		}
		sec.Fields = fields
		out.Sections[i] = sec
	}
	return &out
}

func (s *RegistryService) plain(text string) string {
	return html.UnescapeString(s.strict.Sanitize(text))
}
