package service

import (
	"github.com/sirupsen/logrus"

	"github.com/gdc-multiomics-manifest/internal/domain"
)

// ModalityIndices holds one index per modality tag.
type ModalityIndices map[domain.Modality]*ModalityIndex

// missing returns the required tags without an index, in tag order.
func (m ModalityIndices) missing() []domain.Modality {
	var missing []domain.Modality
	for _, tag := range domain.Modalities {
		if m[tag] == nil {
			missing = append(missing, tag)
		}
	}
	return missing
}

// ordered returns the indices in tag order.
func (m ModalityIndices) ordered() []*ModalityIndex {
	out := make([]*ModalityIndex, 0, len(domain.Modalities))
	for _, tag := range domain.Modalities {
		out = append(out, m[tag])
	}
	return out
}

// ManifestAssembler turns the four modality indices and the clinical set
// into the patient-keyed manifest.
type ManifestAssembler struct {
	logger *logrus.Logger
}

// NewManifestAssembler creates a new manifest assembler
func NewManifestAssembler(logger *logrus.Logger) *ManifestAssembler {
	return &ManifestAssembler{logger: logger}
}

// Assemble intersects the indices, orders the cohort lexically, and emits one
// row per patient. Any missing modality index fails the whole assembly with
// an IncompleteCohortSourceError; an empty cohort is a valid result.
func (a *ManifestAssembler) Assemble(indices ModalityIndices, clinical *ClinicalRecordSet, attributes []string) (*domain.Manifest, error) {
	if missing := indices.missing(); len(missing) > 0 {
		return nil, &domain.IncompleteCohortSourceError{Missing: missing}
	}

	cohort := IntersectCohort(indices.ordered()...)
	patients := cohort.Sorted()
	resolver := NewClinicalResolver(clinical)

	attrs := append([]string(nil), attributes...)
	rows := make([]domain.ManifestRow, 0, len(patients))
	for _, patient := range patients {
		files := make(map[domain.Modality]string, len(domain.Modalities))
		for _, tag := range domain.Modalities {
			files[tag] = indices[tag].JoinedFiles(patient)
		}
		rows = append(rows, domain.ManifestRow{
			PatientBarcode: patient,
			FileIDs:        files,
			Clinical:       resolver.Resolve(patient, attrs),
		})
	}

	a.logger.WithFields(logrus.Fields{
		"cohort_size": cohort.Size(),
		"wsi":         indices[domain.ModalityWSI].Len(),
		"rna":         indices[domain.ModalityRNA].Len(),
		"meth":        indices[domain.ModalityMeth].Len(),
		"mut":         indices[domain.ModalityMut].Len(),
	}).Info("Total patients with all modalities")

	return &domain.Manifest{
		CohortSize: cohort.Size(),
		Attributes: attrs,
		Rows:       rows,
	}, nil
}
