package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/gdc-multiomics-manifest/internal/domain"
)

// Field lists requested from the GDC endpoints.
const (
	FilesFields    = "file_id,cases.case_id,cases.submitter_id"
	ClinicalFields = "case_id,submitter_id,disease_type,diagnoses.primary_diagnosis," +
		"diagnoses.ajcc_pathologic_stage,diagnoses.age_at_diagnosis,demographic.gender"
	defaultPageSize = 5000
)

type filesResponse struct {
	Data struct {
		Hits       []fileHit  `json:"hits"`
		Pagination Pagination `json:"pagination"`
	} `json:"data"`
}

type fileHit struct {
	FileID string    `json:"file_id"`
	Cases  []caseRef `json:"cases"`
}

type caseRef struct {
	CaseID      string `json:"case_id"`
	SubmitterID string `json:"submitter_id"`
}

type casesResponse struct {
	Data struct {
		Hits       []caseHit  `json:"hits"`
		Pagination Pagination `json:"pagination"`
	} `json:"data"`
}

type caseHit struct {
	CaseID      string          `json:"case_id"`
	SubmitterID string          `json:"submitter_id"`
	DiseaseType json.RawMessage `json:"disease_type"`
	Diagnoses   []diagnosis     `json:"diagnoses"`
	Demographic *demographic    `json:"demographic"`
}

type diagnosis struct {
	PrimaryDiagnosis    json.RawMessage `json:"primary_diagnosis"`
	AJCCPathologicStage json.RawMessage `json:"ajcc_pathologic_stage"`
	AgeAtDiagnosis      json.RawMessage `json:"age_at_diagnosis"`
}

type demographic struct {
	Gender json.RawMessage `json:"gender"`
}

// GDCClient turns GDC /files and /cases responses into flat catalog records
// and clinical rows. It implements domain.CatalogSource.
type GDCClient struct {
	api        CatalogAPI
	pageSize   int
	patientKey string
	logger     *logrus.Logger
}

// NewGDCClient creates a new GDC catalog client over api
func NewGDCClient(api CatalogAPI, config domain.GDCConfig, patientKey string, logger *logrus.Logger) *GDCClient {
	if config.PageSize <= 0 {
		config.PageSize = defaultPageSize
	}
	if patientKey == "" {
		patientKey = domain.PatientKeySubmitterID
	}
	return &GDCClient{
		api:        api,
		pageSize:   config.PageSize,
		patientKey: patientKey,
		logger:     logger,
	}
}

// FetchFiles returns one record per (file hit, case) pair in response order.
// A hit without cases contributes nothing.
func (c *GDCClient) FetchFiles(ctx context.Context, filter domain.ModalityFilter) ([]domain.CatalogRecord, error) {
	encoded, err := FilesFilter(filter).Encode()
	if err != nil {
		return nil, err
	}

	params := c.params(encoded, FilesFields)
	body, err := c.api.Query(ctx, EndpointFiles, params)
	if err != nil {
		return nil, err
	}

	var resp filesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse files response: %w", err)
	}
	c.warnTruncated(EndpointFiles, string(filter.Modality), resp.Data.Pagination)

	records := make([]domain.CatalogRecord, 0, len(resp.Data.Hits))
	for _, hit := range resp.Data.Hits {
		for _, cs := range hit.Cases {
			records = append(records, domain.CatalogRecord{
				PatientID: c.patientID(cs.CaseID, cs.SubmitterID),
				FileID:    hit.FileID,
			})
		}
	}
	return records, nil
}

// FetchClinical returns one row per (case, diagnosis) pair in response order.
// A case with no diagnoses yields a single row. Case-level attributes repeat
// on every row of the case.
func (c *GDCClient) FetchClinical(ctx context.Context, project string, attributes []string) ([]domain.ClinicalRow, error) {
	encoded, err := CasesFilter(project).Encode()
	if err != nil {
		return nil, err
	}

	params := c.params(encoded, ClinicalFields)
	body, err := c.api.Query(ctx, EndpointCases, params)
	if err != nil {
		return nil, err
	}

	var resp casesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse cases response: %w", err)
	}
	c.warnTruncated(EndpointCases, project, resp.Data.Pagination)

	var rows []domain.ClinicalRow
	for _, hit := range resp.Data.Hits {
		patient := c.patientID(hit.CaseID, hit.SubmitterID)

		diagnoses := hit.Diagnoses
		if len(diagnoses) == 0 {
			diagnoses = []diagnosis{{}}
		}
		for _, dx := range diagnoses {
			rows = append(rows, domain.ClinicalRow{
				PatientID:  patient,
				Attributes: clinicalAttributes(hit, dx, attributes),
			})
		}
	}
	return rows, nil
}

func (c *GDCClient) params(filters, fields string) url.Values {
	return url.Values{
		"filters": {filters},
		"fields":  {fields},
		"format":  {"JSON"},
		"size":    {strconv.Itoa(c.pageSize)},
	}
}

func (c *GDCClient) patientID(caseID, submitterID string) string {
	if c.patientKey == domain.PatientKeyCaseID {
		return caseID
	}
	return submitterID
}

func (c *GDCClient) warnTruncated(endpoint, scope string, p Pagination) {
	if !p.Truncated() {
		return
	}
	c.logger.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"scope":    scope,
		"count":    p.Count,
		"total":    p.Total,
	}).Warn("GDC response truncated to a single page")
}

func clinicalAttributes(hit caseHit, dx diagnosis, attributes []string) map[string]domain.AttributeValue {
	var gender json.RawMessage
	if hit.Demographic != nil {
		gender = hit.Demographic.Gender
	}
	raw := map[string]json.RawMessage{
		domain.AttributePrimaryDiagnosis:    dx.PrimaryDiagnosis,
		domain.AttributeAJCCPathologicStage: dx.AJCCPathologicStage,
		domain.AttributeAgeAtDiagnosis:      dx.AgeAtDiagnosis,
		domain.AttributeGender:              gender,
		domain.AttributeDiseaseType:         hit.DiseaseType,
	}

	values := make(map[string]domain.AttributeValue, len(attributes))
	for _, a := range attributes {
		values[a] = attributeValue(raw[a])
	}
	return values
}

// attributeValue maps a raw JSON value to an attribute. Missing and null are
// ABSENT; strings are kept verbatim; numbers and booleans keep their JSON text.
func attributeValue(raw json.RawMessage) domain.AttributeValue {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return domain.Absent
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return domain.Absent
		}
		return domain.Present(s)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return domain.Absent
	}
	switch t := v.(type) {
	case json.Number:
		return domain.Present(t.String())
	case bool:
		return domain.Present(strconv.FormatBool(t))
	default:
		return domain.Present(string(raw))
	}
}
