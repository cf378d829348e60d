package service

import (
	"github.com/gdc-multiomics-manifest/internal/domain"
)

// ClinicalRecordSet holds clinical rows in their native source order,
// indexed by patient. Rows are not assumed unique per patient.
type ClinicalRecordSet struct {
	rows      []domain.ClinicalRow
	byPatient map[string][]int
}

// NewClinicalRecordSet indexes rows without reordering them. Rows without a
// patient id are kept for counting but can never match.
func NewClinicalRecordSet(rows []domain.ClinicalRow) *ClinicalRecordSet {
	set := &ClinicalRecordSet{
		rows:      rows,
		byPatient: make(map[string][]int),
	}
	for i, row := range rows {
		if row.PatientID == "" {
			continue
		}
		set.byPatient[row.PatientID] = append(set.byPatient[row.PatientID], i)
	}
	return set
}

// Len returns the number of raw rows.
func (s *ClinicalRecordSet) Len() int {
	return len(s.rows)
}

// Patients returns the number of distinct patients with at least one row.
func (s *ClinicalRecordSet) Patients() int {
	return len(s.byPatient)
}

// Rows returns the patient's rows in source order.
func (s *ClinicalRecordSet) Rows(patient string) []domain.ClinicalRow {
	idx := s.byPatient[patient]
	rows := make([]domain.ClinicalRow, len(idx))
	for i, j := range idx {
		rows[i] = s.rows[j]
	}
	return rows
}

// first returns the first matching row, if any.
func (s *ClinicalRecordSet) first(patient string) (domain.ClinicalRow, bool) {
	if s == nil {
		return domain.ClinicalRow{}, false
	}
	idx, ok := s.byPatient[patient]
	if !ok || len(idx) == 0 {
		return domain.ClinicalRow{}, false
	}
	return s.rows[idx[0]], true
}

// ClinicalResolver reduces a patient's clinical rows to one value per attribute.
//
// Policy: each attribute takes the value held by the first matching row in
// source order, even when later rows disagree, and even when that first row
// lacks the attribute (which yields ABSENT). No matching row yields ABSENT for
// every attribute. Conflicting duplicates are absorbed, never reported.
type ClinicalResolver struct {
	records *ClinicalRecordSet
}

// NewClinicalResolver creates a resolver over a record set
func NewClinicalResolver(records *ClinicalRecordSet) *ClinicalResolver {
	return &ClinicalResolver{records: records}
}

// Resolve returns exactly one value or ABSENT per requested attribute.
func (r *ClinicalResolver) Resolve(patient string, attributes []string) domain.ResolvedClinicalProfile {
	profile := make(domain.ResolvedClinicalProfile, len(attributes))
	row, ok := r.records.first(patient)
	for _, a := range attributes {
		if !ok {
			profile[a] = domain.Absent
			continue
		}
		profile[a] = row.Get(a)
	}
	return profile
}
