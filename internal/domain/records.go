package domain

import (
	"encoding/json"
	"strings"
)

// CatalogRecord is one flattened (patient, file) pair from a modality query.
// An empty PatientID or FileID means the identifier was absent in the source.
type CatalogRecord struct {
	PatientID string `json:"patient_id"`
	FileID    string `json:"file_id"`
}

// HasPatient reports whether the record carries its join key.
func (r CatalogRecord) HasPatient() bool {
	return strings.TrimSpace(r.PatientID) != ""
}

// HasFile reports whether the record carries a file reference.
func (r CatalogRecord) HasFile() bool {
	return strings.TrimSpace(r.FileID) != ""
}

// Clinical attribute names understood by the catalog collaborator.
const (
	AttributePrimaryDiagnosis    = "primary_diagnosis"
	AttributeAJCCPathologicStage = "ajcc_pathologic_stage"
	AttributeAgeAtDiagnosis      = "age_at_diagnosis"
	AttributeGender              = "gender"
	AttributeDiseaseType         = "disease_type"
)

// DefaultClinicalAttributes is the attribute list emitted when none is configured.
var DefaultClinicalAttributes = []string{
	AttributePrimaryDiagnosis,
	AttributeAJCCPathologicStage,
	AttributeAgeAtDiagnosis,
	AttributeGender,
}

// KnownClinicalAttributes lists every attribute a clinical row can carry.
var KnownClinicalAttributes = []string{
	AttributePrimaryDiagnosis,
	AttributeAJCCPathologicStage,
	AttributeAgeAtDiagnosis,
	AttributeGender,
	AttributeDiseaseType,
}

// IsKnownClinicalAttribute reports whether name is a supported attribute.
func IsKnownClinicalAttribute(name string) bool {
	for _, a := range KnownClinicalAttributes {
		if a == name {
			return true
		}
	}
	return false
}

// AttributeValue is a clinical value that may be ABSENT. The zero value is
// ABSENT, which is distinct from a present empty string.
type AttributeValue struct {
	value   string
	present bool
}

// Absent is the explicit "no value found" marker.
var Absent = AttributeValue{}

// Present wraps a value found in the source, including "".
func Present(v string) AttributeValue {
	return AttributeValue{value: v, present: true}
}

// IsAbsent reports whether no value was found.
func (v AttributeValue) IsAbsent() bool {
	return !v.present
}

// Value returns the value and whether it is present.
func (v AttributeValue) Value() (string, bool) {
	return v.value, v.present
}

// Render returns the value, or placeholder when ABSENT.
func (v AttributeValue) Render(placeholder string) string {
	if !v.present {
		return placeholder
	}
	return v.value
}

// String renders ABSENT as an empty string.
func (v AttributeValue) String() string {
	return v.Render("")
}

// MarshalJSON encodes ABSENT as null.
func (v AttributeValue) MarshalJSON() ([]byte, error) {
	if !v.present {
		return []byte("null"), nil
	}
	return json.Marshal(v.value)
}

// UnmarshalJSON decodes null as ABSENT.
func (v *AttributeValue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Absent
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*v = Present(s)
	return nil
}

// ClinicalRow is one raw clinical record. Attributes missing from the map
// are ABSENT for this row.
type ClinicalRow struct {
	PatientID  string                    `json:"patient_id"`
	Attributes map[string]AttributeValue `json:"attributes"`
}

// Get returns the row's value for attribute, ABSENT if missing.
func (r ClinicalRow) Get(attribute string) AttributeValue {
	if r.Attributes == nil {
		return Absent
	}
	return r.Attributes[attribute]
}
