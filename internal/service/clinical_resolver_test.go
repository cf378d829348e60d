package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gdc-multiomics-manifest/internal/domain"
)

func clinicalRow(patient string, attrs map[string]string) domain.ClinicalRow {
	values := make(map[string]domain.AttributeValue, len(attrs))
	for k, v := range attrs {
		values[k] = domain.Present(v)
	}
	return domain.ClinicalRow{PatientID: patient, Attributes: values}
}

func TestClinicalResolver_FirstRowWins(t *testing.T) {
	set := NewClinicalRecordSet([]domain.ClinicalRow{
		clinicalRow("p1", map[string]string{domain.AttributeAJCCPathologicStage: "Stage I"}),
		clinicalRow("p1", map[string]string{domain.AttributeAJCCPathologicStage: "Stage II"}),
	})
	resolver := NewClinicalResolver(set)
	attrs := []string{domain.AttributeAJCCPathologicStage}

	for i := 0; i < 5; i++ {
		profile := resolver.Resolve("p1", attrs)
		v, ok := profile[domain.AttributeAJCCPathologicStage].Value()
		assert.True(t, ok)
		assert.Equal(t, "Stage I", v)
	}
}

func TestClinicalResolver_NoMatchYieldsAbsent(t *testing.T) {
	set := NewClinicalRecordSet([]domain.ClinicalRow{
		clinicalRow("p2", map[string]string{domain.AttributeGender: "female"}),
	})
	resolver := NewClinicalResolver(set)

	profile := resolver.Resolve("p1", domain.DefaultClinicalAttributes)

	assert.Len(t, profile, len(domain.DefaultClinicalAttributes))
	for _, a := range domain.DefaultClinicalAttributes {
		assert.True(t, profile[a].IsAbsent(), "attribute %s should be absent", a)
	}
}

func TestClinicalResolver_FirstRowLacksAttribute(t *testing.T) {
	set := NewClinicalRecordSet([]domain.ClinicalRow{
		clinicalRow("p1", map[string]string{domain.AttributeGender: "female"}),
		clinicalRow("p1", map[string]string{
			domain.AttributeGender:           "female",
			domain.AttributePrimaryDiagnosis: "Infiltrating duct carcinoma, NOS",
		}),
	})
	resolver := NewClinicalResolver(set)

	profile := resolver.Resolve("p1", []string{domain.AttributeGender, domain.AttributePrimaryDiagnosis})

	assert.Equal(t, domain.Present("female"), profile[domain.AttributeGender])
	assert.True(t, profile[domain.AttributePrimaryDiagnosis].IsAbsent())
}

func TestClinicalResolver_EmptyStringIsNotAbsent(t *testing.T) {
	set := NewClinicalRecordSet([]domain.ClinicalRow{
		clinicalRow("p1", map[string]string{domain.AttributeAgeAtDiagnosis: ""}),
	})
	profile := NewClinicalResolver(set).Resolve("p1", []string{domain.AttributeAgeAtDiagnosis})

	assert.False(t, profile[domain.AttributeAgeAtDiagnosis].IsAbsent())
	assert.Equal(t, "", profile[domain.AttributeAgeAtDiagnosis].String())
}

func TestClinicalResolver_NilRecordSet(t *testing.T) {
	profile := NewClinicalResolver(nil).Resolve("p1", []string{domain.AttributeGender})
	assert.True(t, profile[domain.AttributeGender].IsAbsent())
}

func TestClinicalRecordSet(t *testing.T) {
	set := NewClinicalRecordSet([]domain.ClinicalRow{
		clinicalRow("p1", map[string]string{domain.AttributeGender: "female"}),
		clinicalRow("", map[string]string{domain.AttributeGender: "male"}),
		clinicalRow("p2", nil),
		clinicalRow("p1", map[string]string{domain.AttributeGender: "male"}),
	})

	assert.Equal(t, 4, set.Len())
	assert.Equal(t, 2, set.Patients())

	rows := set.Rows("p1")
	assert.Len(t, rows, 2)
	assert.Equal(t, domain.Present("female"), rows[0].Get(domain.AttributeGender))
	assert.Empty(t, set.Rows(""))
}
