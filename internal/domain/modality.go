package domain

import (
	"fmt"
	"strings"
)

// Modality identifies one assay/data type tracked per patient.
type Modality string

const (
	ModalityWSI  Modality = "wsi"  // whole slide imaging
	ModalityRNA  Modality = "rna"  // transcriptomic
	ModalityMeth Modality = "meth" // DNA methylation
	ModalityMut  Modality = "mut"  // simple nucleotide variation
)

// Modalities is the fixed tag order used for column layout and iteration.
var Modalities = []Modality{ModalityWSI, ModalityRNA, ModalityMeth, ModalityMut}

// ParseModality converts a tag into a Modality
func ParseModality(s string) (Modality, error) {
	m := Modality(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Modalities {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown modality %q", s)
}

// Column returns the manifest column holding this modality's file ids.
func (m Modality) Column() string {
	return string(m) + "_file_ids"
}

// ModalityFilter selects one modality from the remote catalog. The
// recognized options are exactly experimental_strategy, data_category and
// project.
type ModalityFilter struct {
	Modality             Modality `json:"modality" mapstructure:"-"`
	ExperimentalStrategy string   `json:"experimental_strategy,omitempty" mapstructure:"experimental_strategy"`
	DataCategory         string   `json:"data_category,omitempty" mapstructure:"data_category"`
	Project              string   `json:"project,omitempty" mapstructure:"project"`
}

// Validate checks that the filter actually narrows the catalog to a modality.
func (f ModalityFilter) Validate() error {
	if f.ExperimentalStrategy == "" && f.DataCategory == "" {
		return NewValidationError(
			fmt.Sprintf("cohort.modalities.%s", f.Modality),
			"experimental_strategy or data_category is required",
			f,
		)
	}
	if f.Project == "" {
		return NewValidationError(fmt.Sprintf("cohort.modalities.%s.project", f.Modality), "project is required", f.Project)
	}
	return nil
}
