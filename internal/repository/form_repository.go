package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"student_forms/internal/model"
	"student_forms/internal/util"
	"sync"

	"gopkg.in/yaml.v3"
)

// FormRepository serves form definitions read from YAML files in a directory,
// one form per file.
type FormRepository struct {
	dir   string
	mu    sync.RWMutex
	forms map[string]*model.FormSchema
}

func NewFormRepository(dir string) (*FormRepository, error) {
	r := &FormRepository{dir: dir}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FormRepository) Dir() string { return r.dir }

// Reload parses every definition file again. The previous set stays in place
// if any file fails to parse or validate.
func (r *FormRepository) Reload() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("read forms dir: %w", err)
	}

	forms := make(map[string]*model.FormSchema)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		schema, err := loadFormFile(filepath.Join(r.dir, e.Name()))
		if err != nil {
			return err
		}
		if _, dup := forms[schema.FormID]; dup {
			return fmt.Errorf("%s: duplicate form id %q", e.Name(), schema.FormID)
		}
		forms[schema.FormID] = schema
	}

	r.mu.Lock()
	r.forms = forms
	r.mu.Unlock()
	return nil
}

func loadFormFile(path string) (*model.FormSchema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var schema model.FormSchema
	if err := yaml.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if schema.FormID == "" {
		return nil, fmt.Errorf("%s: %w: missing formId", filepath.Base(path), model.ErrInvalidSchema)
	}
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if err := schema.CheckTypes(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return &schema, nil
}

func (r *FormRepository) FindByID(formID string) (*model.FormSchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.forms[formID]
	if !ok {
		return nil, util.ErrFormNotFound
	}
	return f, nil
}

func (r *FormRepository) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.forms))
	for id := range r.forms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
