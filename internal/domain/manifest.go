package domain

import (
	"encoding/json"
	"regexp"
	"time"
)

// FileIDSeparator joins the sorted file ids of one modality in a manifest cell.
const FileIDSeparator = ";"

// PatientColumn is the first manifest column.
const PatientColumn = "patient_barcode"

// ResolvedClinicalProfile holds exactly one value (or ABSENT) per requested attribute.
type ResolvedClinicalProfile map[string]AttributeValue

// ManifestRow is one qualifying patient. Rows are never mutated after assembly.
type ManifestRow struct {
	PatientBarcode string                  `json:"patient_barcode"`
	FileIDs        map[Modality]string     `json:"file_ids"`
	Clinical       ResolvedClinicalProfile `json:"clinical"`
}

// Record lays the row out in column order: patient, modalities in tag
// order, then the attributes in the order given.
func (r ManifestRow) Record(attributes []string, absentPlaceholder string) []string {
	record := make([]string, 0, 1+len(Modalities)+len(attributes))
	record = append(record, r.PatientBarcode)
	for _, m := range Modalities {
		record = append(record, r.FileIDs[m])
	}
	for _, a := range attributes {
		record = append(record, r.Clinical[a].Render(absentPlaceholder))
	}
	return record
}

// Manifest is the assembled patient-keyed table for one run.
type Manifest struct {
	CohortSize int           `json:"cohort_size"`
	Attributes []string      `json:"attributes"`
	Rows       []ManifestRow `json:"rows"`
}

// Header returns the column names in output order.
func (m Manifest) Header() []string {
	return ManifestHeader(m.Attributes)
}

// ManifestHeader builds the header for the given attribute order.
func ManifestHeader(attributes []string) []string {
	header := make([]string, 0, 1+len(Modalities)+len(attributes))
	header = append(header, PatientColumn)
	for _, m := range Modalities {
		header = append(header, m.Column())
	}
	return append(header, attributes...)
}

// MarshalJSON keeps clinical attributes in the requested order by emitting
// rows as ordered records.
func (m Manifest) MarshalJSON() ([]byte, error) {
	type row struct {
		PatientBarcode string              `json:"patient_barcode"`
		FileIDs        map[Modality]string `json:"file_ids"`
		Clinical       []AttributeValue    `json:"clinical"`
	}
	rows := make([]row, len(m.Rows))
	for i, r := range m.Rows {
		values := make([]AttributeValue, len(m.Attributes))
		for j, a := range m.Attributes {
			values[j] = r.Clinical[a]
		}
		rows[i] = row{PatientBarcode: r.PatientBarcode, FileIDs: r.FileIDs, Clinical: values}
	}
	return json.Marshal(struct {
		CohortSize int      `json:"cohort_size"`
		Attributes []string `json:"attributes"`
		Rows       []row    `json:"rows"`
	}{m.CohortSize, m.Attributes, rows})
}

// projectIDPattern matches GDC project ids such as TCGA-BRCA or CPTAC-3.
var projectIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateProjectID rejects anything but a plain GDC project id. The id is
// substituted into output paths.
func ValidateProjectID(project string) error {
	if !projectIDPattern.MatchString(project) {
		return NewValidationError("project", "invalid project id: "+project, project)
	}
	return nil
}

// BuildRequest parameterizes one manifest build. Empty fields fall back to configuration.
type BuildRequest struct {
	Project    string `json:"project,omitempty"`
	OutputPath string `json:"output_path,omitempty"`
}

// BuildResult summarizes a completed build.
type BuildResult struct {
	RunID      string        `json:"run_id,omitempty"`
	Project    string        `json:"project"`
	CohortSize int           `json:"cohort_size"`
	RowCount   int           `json:"row_count"`
	OutputPath string        `json:"output_path,omitempty"`
	Duration   time.Duration `json:"duration"`
	Manifest   *Manifest     `json:"-"`
}
