package external

import (
	"encoding/json"
	"fmt"

	"github.com/gdc-multiomics-manifest/internal/domain"
)

// GDC filter field names.
const (
	FieldExperimentalStrategy = "files.experimental_strategy"
	FieldDataCategory         = "files.data_category"
	FieldProject              = "cases.project.project_id"
)

// Filter is one node of the GDC filter language.
type Filter struct {
	Op      string      `json:"op"`
	Content interface{} `json:"content"`
}

// FieldValues is the content of an "in" filter.
type FieldValues struct {
	Field string   `json:"field"`
	Value []string `json:"value"`
}

// In builds a membership filter.
func In(field string, values ...string) Filter {
	return Filter{Op: "in", Content: FieldValues{Field: field, Value: values}}
}

// And joins filters.
func And(filters ...Filter) Filter {
	return Filter{Op: "and", Content: filters}
}

// Encode renders the filter as the JSON the API expects in the filters parameter.
func (f Filter) Encode() (string, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("failed to encode filter: %w", err)
	}
	return string(b), nil
}

// FilesFilter builds the /files filter for one modality.
func FilesFilter(mf domain.ModalityFilter) Filter {
	var clauses []Filter
	if mf.ExperimentalStrategy != "" {
		clauses = append(clauses, In(FieldExperimentalStrategy, mf.ExperimentalStrategy))
	}
	if mf.DataCategory != "" {
		clauses = append(clauses, In(FieldDataCategory, mf.DataCategory))
	}
	clauses = append(clauses, In(FieldProject, mf.Project))
	return And(clauses...)
}

// CasesFilter builds the /cases filter for a project.
func CasesFilter(project string) Filter {
	return In(FieldProject, project)
}
