package service

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/gdc-multiomics-manifest/internal/domain"
)

func TestIntersectCohort(t *testing.T) {
	tests := []struct {
		name    string
		indices []*ModalityIndex
		want    []string
	}{
		{
			name: "Strict_AND_Across_Four",
			indices: []*ModalityIndex{
				NewModalityIndex(domain.ModalityWSI, map[string][]string{"p1": {"a"}, "p2": {"b"}}),
				NewModalityIndex(domain.ModalityRNA, map[string][]string{"p1": {"c"}}),
				NewModalityIndex(domain.ModalityMeth, map[string][]string{"p1": {"d"}, "p3": {"e"}}),
				NewModalityIndex(domain.ModalityMut, map[string][]string{"p1": {"f"}}),
			},
			want: []string{"p1"},
		},
		{
			name: "Empty_Set_Same_As_Missing_Key",
			indices: []*ModalityIndex{
				NewModalityIndex(domain.ModalityWSI, map[string][]string{"p1": {"a"}, "p2": {"b"}}),
				NewModalityIndex(domain.ModalityRNA, map[string][]string{"p1": {"c"}, "p2": {}}),
			},
			want: []string{"p1"},
		},
		{
			name: "Empty_Index_Yields_Empty_Cohort",
			indices: []*ModalityIndex{
				NewModalityIndex(domain.ModalityWSI, map[string][]string{"p1": {"a"}}),
				NewModalityIndex(domain.ModalityRNA, map[string][]string{}),
			},
			want: []string{},
		},
		{
			name:    "No_Indices",
			indices: nil,
			want:    []string{},
		},
		{
			name: "Nil_Index",
			indices: []*ModalityIndex{
				NewModalityIndex(domain.ModalityWSI, map[string][]string{"p1": {"a"}}),
				nil,
			},
			want: []string{},
		},
		{
			name: "Lexical_Order",
			indices: []*ModalityIndex{
				NewModalityIndex(domain.ModalityWSI, map[string][]string{"TCGA-B": {"a"}, "TCGA-A": {"b"}, "TCGA-C": {"c"}}),
				NewModalityIndex(domain.ModalityRNA, map[string][]string{"TCGA-C": {"d"}, "TCGA-A": {"e"}, "TCGA-B": {"f"}}),
			},
			want: []string{"TCGA-A", "TCGA-B", "TCGA-C"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cohort := IntersectCohort(tt.indices...)
			if diff := cmp.Diff(tt.want, cohort.Sorted()); diff != "" {
				t.Errorf("IntersectCohort() mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, len(tt.want), cohort.Size())
		})
	}
}

func TestIntersectCohort_Commutative(t *testing.T) {
	a := NewModalityIndex(domain.ModalityWSI, map[string][]string{"p1": {"a"}, "p2": {"b"}, "p4": {"x"}})
	b := NewModalityIndex(domain.ModalityRNA, map[string][]string{"p1": {"c"}, "p4": {"y"}})
	c := NewModalityIndex(domain.ModalityMeth, map[string][]string{"p1": {"d"}, "p3": {"e"}, "p4": {"z"}})

	first := IntersectCohort(a, b, c).Sorted()
	second := IntersectCohort(c, a, b).Sorted()
	third := IntersectCohort(b, c, a).Sorted()

	assert.Equal(t, []string{"p1", "p4"}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, first, third)
}

func TestCohort_Contains(t *testing.T) {
	cohort := IntersectCohort(
		NewModalityIndex(domain.ModalityWSI, map[string][]string{"p1": {"a"}}),
		NewModalityIndex(domain.ModalityRNA, map[string][]string{"p1": {"b"}, "p2": {"c"}}),
	)

	assert.True(t, cohort.Contains("p1"))
	assert.False(t, cohort.Contains("p2"))
}
