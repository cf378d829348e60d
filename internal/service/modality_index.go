package service

import (
	"sort"
	"strings"

	"github.com/gdc-multiomics-manifest/internal/domain"
)

// ModalityIndex maps patient ids to the set of file ids one modality holds
// for them. It is immutable once built.
type ModalityIndex struct {
	modality domain.Modality
	files    map[string]map[string]struct{}
}

// BuildModalityIndex collapses the records of one modality into an index.
// Duplicate pairs collapse; a record without a file id contributes nothing;
// a record without a patient id fails the whole build.
func BuildModalityIndex(modality domain.Modality, records []domain.CatalogRecord) (*ModalityIndex, error) {
	files := make(map[string]map[string]struct{})
	for i, rec := range records {
		if !rec.HasPatient() {
			return nil, &domain.MalformedRecordError{Modality: modality, Index: i, FileID: rec.FileID}
		}
		if !rec.HasFile() {
			continue
		}
		set, ok := files[rec.PatientID]
		if !ok {
			set = make(map[string]struct{})
			files[rec.PatientID] = set
		}
		set[rec.FileID] = struct{}{}
	}
	return &ModalityIndex{modality: modality, files: files}, nil
}

// NewModalityIndex builds an index from pre-grouped file ids. Patients whose
// list is empty are kept as keys but never count as present.
func NewModalityIndex(modality domain.Modality, sets map[string][]string) *ModalityIndex {
	files := make(map[string]map[string]struct{}, len(sets))
	for patient, ids := range sets {
		set := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			if strings.TrimSpace(id) == "" {
				continue
			}
			set[id] = struct{}{}
		}
		files[patient] = set
	}
	return &ModalityIndex{modality: modality, files: files}
}

// Modality returns the tag this index was built for.
func (x *ModalityIndex) Modality() domain.Modality {
	return x.modality
}

// Has reports whether the patient owns at least one file. A missing key and
// an empty set are the same condition.
func (x *ModalityIndex) Has(patient string) bool {
	return len(x.files[patient]) > 0
}

// Len returns the number of patients with at least one file.
func (x *ModalityIndex) Len() int {
	n := 0
	for _, set := range x.files {
		if len(set) > 0 {
			n++
		}
	}
	return n
}

// Patients returns the patients with at least one file, lexically sorted.
func (x *ModalityIndex) Patients() []string {
	patients := make([]string, 0, len(x.files))
	for p, set := range x.files {
		if len(set) > 0 {
			patients = append(patients, p)
		}
	}
	sort.Strings(patients)
	return patients
}

// Files returns the patient's file ids, lexically sorted. Unknown patients
// yield an empty slice.
func (x *ModalityIndex) Files(patient string) []string {
	set := x.files[patient]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FileCount returns the number of distinct (patient, file) pairs.
func (x *ModalityIndex) FileCount() int {
	n := 0
	for _, set := range x.files {
		n += len(set)
	}
	return n
}

// JoinedFiles serializes the patient's files for a manifest cell: sorted,
// joined with domain.FileIDSeparator, "" for an empty set.
func (x *ModalityIndex) JoinedFiles(patient string) string {
	return strings.Join(x.Files(patient), domain.FileIDSeparator)
}
