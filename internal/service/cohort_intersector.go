package service

import (
	"sort"
)

// Cohort is the set of patients present in every supplied modality index.
type Cohort map[string]struct{}

// Contains reports cohort membership.
func (c Cohort) Contains(patient string) bool {
	_, ok := c[patient]
	return ok
}

// Size returns the number of qualifying patients.
func (c Cohort) Size() int {
	return len(c)
}

// Sorted returns the members in lexical order, the total order used for
// manifest rows.
func (c Cohort) Sorted() []string {
	patients := make([]string, 0, len(c))
	for p := range c {
		patients = append(patients, p)
	}
	sort.Strings(patients)
	return patients
}

// IntersectCohort returns the patients that have a non-empty file set in
// every index. Any empty index, or no index at all, yields an empty cohort.
func IntersectCohort(indices ...*ModalityIndex) Cohort {
	cohort := make(Cohort)
	if len(indices) == 0 {
		return cohort
	}
	for _, idx := range indices {
		if idx == nil || idx.Len() == 0 {
			return cohort
		}
	}

	// Walk the smallest index and probe the rest.
	smallest := indices[0]
	for _, idx := range indices[1:] {
		if idx.Len() < smallest.Len() {
			smallest = idx
		}
	}

	for _, patient := range smallest.Patients() {
		member := true
		for _, idx := range indices {
			if !idx.Has(patient) {
				member = false
				break
			}
		}
		if member {
			cohort[patient] = struct{}{}
		}
	}
	return cohort
}
