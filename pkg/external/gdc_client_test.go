package external

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdc-multiomics-manifest/internal/domain"
)

const filesFixture = `{
  "data": {
    "hits": [
      {"file_id": "f1", "cases": [{"case_id": "c1", "submitter_id": "TCGA-A1"}]},
      {"file_id": "f2", "cases": [{"case_id": "c1", "submitter_id": "TCGA-A1"}, {"case_id": "c2", "submitter_id": "TCGA-A2"}]},
      {"file_id": "f3", "cases": []},
      {"file_id": "f4", "cases": [{"case_id": "c3"}]}
    ],
    "pagination": {"count": 4, "total": 4, "size": 5000, "from": 0, "page": 1, "pages": 1}
  },
  "warnings": {}
}`

const casesFixture = `{
  "data": {
    "hits": [
      {
        "case_id": "c1", "submitter_id": "TCGA-A1", "disease_type": "Ductal and Lobular Neoplasms",
        "diagnoses": [
          {"primary_diagnosis": "Infiltrating duct carcinoma, NOS", "ajcc_pathologic_stage": "Stage IIA", "age_at_diagnosis": 19358},
          {"primary_diagnosis": "Lobular carcinoma, NOS", "ajcc_pathologic_stage": null, "age_at_diagnosis": 19400.5}
        ],
        "demographic": {"gender": "female"}
      },
      {"case_id": "c2", "submitter_id": "TCGA-A2", "demographic": {"gender": ""}}
    ],
    "pagination": {"count": 2, "total": 10, "size": 2, "from": 0, "page": 1, "pages": 5}
  }
}`

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func newTestGDCServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *GDCAPI) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	api := NewGDCAPI(domain.GDCConfig{BaseURL: server.URL, RateLimit: 100})
	return server, api
}

func TestGDCClient_FetchFiles(t *testing.T) {
	var gotQuery url.Values
	_, api := newTestGDCServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files", r.URL.Path)
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(filesFixture))
	})

	client := NewGDCClient(api, domain.GDCConfig{PageSize: 5000}, domain.PatientKeySubmitterID, quietLogger())

	records, err := client.FetchFiles(context.Background(), domain.ModalityFilter{
		Modality:             domain.ModalityWSI,
		ExperimentalStrategy: "Tissue Slide",
		Project:              "TCGA-BRCA",
	})
	require.NoError(t, err)

	assert.Equal(t, []domain.CatalogRecord{
		{PatientID: "TCGA-A1", FileID: "f1"},
		{PatientID: "TCGA-A1", FileID: "f2"},
		{PatientID: "TCGA-A2", FileID: "f2"},
		{PatientID: "", FileID: "f4"},
	}, records)

	assert.Equal(t, FilesFields, gotQuery.Get("fields"))
	assert.Equal(t, "JSON", gotQuery.Get("format"))
	assert.Equal(t, "5000", gotQuery.Get("size"))

	var filter map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(gotQuery.Get("filters")), &filter))
	assert.Equal(t, "and", filter["op"])
	assert.Len(t, filter["content"], 2)
}

func TestGDCClient_FetchFiles_CaseIDKey(t *testing.T) {
	_, api := newTestGDCServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(filesFixture))
	})
	client := NewGDCClient(api, domain.GDCConfig{}, domain.PatientKeyCaseID, quietLogger())

	records, err := client.FetchFiles(context.Background(), domain.ModalityFilter{Modality: domain.ModalityRNA, ExperimentalStrategy: "RNA-Seq", Project: "TCGA-BRCA"})
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "c1", records[0].PatientID)
	assert.Equal(t, "c3", records[3].PatientID)
}

func TestGDCClient_FetchClinical(t *testing.T) {
	_, api := newTestGDCServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cases", r.URL.Path)
		assert.Equal(t, ClinicalFields, r.URL.Query().Get("fields"))
		w.Write([]byte(casesFixture))
	})
	client := NewGDCClient(api, domain.GDCConfig{}, domain.PatientKeySubmitterID, quietLogger())

	attrs := append(append([]string{}, domain.DefaultClinicalAttributes...), domain.AttributeDiseaseType)
	rows, err := client.FetchClinical(context.Background(), "TCGA-BRCA", attrs)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	first := rows[0]
	assert.Equal(t, "TCGA-A1", first.PatientID)
	assert.Equal(t, domain.Present("Stage IIA"), first.Get(domain.AttributeAJCCPathologicStage))
	assert.Equal(t, domain.Present("19358"), first.Get(domain.AttributeAgeAtDiagnosis))
	assert.Equal(t, domain.Present("female"), first.Get(domain.AttributeGender))
	assert.Equal(t, domain.Present("Ductal and Lobular Neoplasms"), first.Get(domain.AttributeDiseaseType))

	second := rows[1]
	assert.True(t, second.Get(domain.AttributeAJCCPathologicStage).IsAbsent())
	assert.Equal(t, domain.Present("19400.5"), second.Get(domain.AttributeAgeAtDiagnosis))
	assert.Equal(t, domain.Present("female"), second.Get(domain.AttributeGender))

	third := rows[2]
	assert.Equal(t, "TCGA-A2", third.PatientID)
	assert.True(t, third.Get(domain.AttributePrimaryDiagnosis).IsAbsent())
	assert.False(t, third.Get(domain.AttributeGender).IsAbsent())
	assert.Equal(t, "", third.Get(domain.AttributeGender).String())
	assert.True(t, third.Get(domain.AttributeDiseaseType).IsAbsent())
}

func TestGDCClient_WarnsOnTruncatedPage(t *testing.T) {
	_, api := newTestGDCServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(casesFixture))
	})
	logger, hook := logtest.NewNullLogger()
	client := NewGDCClient(api, domain.GDCConfig{PageSize: 2}, "", logger)

	_, err := client.FetchClinical(context.Background(), "TCGA-BRCA", domain.DefaultClinicalAttributes)
	require.NoError(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, 10, entry.Data["total"])
	assert.Equal(t, 2, entry.Data["count"])
}

func TestGDCClient_Errors(t *testing.T) {
	t.Run("Non_200_Status", func(t *testing.T) {
		_, api := newTestGDCServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("maintenance"))
		})
		client := NewGDCClient(api, domain.GDCConfig{}, "", quietLogger())

		_, err := client.FetchFiles(context.Background(), domain.ModalityFilter{Modality: domain.ModalityMut, DataCategory: "Simple Nucleotide Variation", Project: "TCGA-BRCA"})
		require.Error(t, err)

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
		assert.Contains(t, err.Error(), "maintenance")
	})

	t.Run("Malformed_Body", func(t *testing.T) {
		_, api := newTestGDCServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("{not json"))
		})
		client := NewGDCClient(api, domain.GDCConfig{}, "", quietLogger())

		_, err := client.FetchClinical(context.Background(), "TCGA-BRCA", domain.DefaultClinicalAttributes)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse cases response")
	})

	t.Run("Cancelled_Context", func(t *testing.T) {
		var calls int32
		_, api := newTestGDCServer(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
		})
		client := NewGDCClient(api, domain.GDCConfig{}, "", quietLogger())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := client.FetchFiles(ctx, domain.ModalityFilter{Modality: domain.ModalityMeth, DataCategory: "DNA Methylation", Project: "TCGA-BRCA"})
		require.Error(t, err)
		assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
	})
}

func TestAttributeValue(t *testing.T) {
	tests := []struct {
		raw  string
		want domain.AttributeValue
	}{
		{raw: ``, want: domain.Absent},
		{raw: `null`, want: domain.Absent},
		{raw: `""`, want: domain.Present("")},
		{raw: `"Stage IV"`, want: domain.Present("Stage IV")},
		{raw: `12345`, want: domain.Present("12345")},
		{raw: `1.5e3`, want: domain.Present("1.5e3")},
		{raw: `true`, want: domain.Present("true")},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, attributeValue(json.RawMessage(tt.raw)))
		})
	}
}

func TestFilters(t *testing.T) {
	encoded, err := FilesFilter(domain.ModalityFilter{DataCategory: "DNA Methylation", Project: "TCGA-BRCA"}).Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"op":"and","content":[
		{"op":"in","content":{"field":"files.data_category","value":["DNA Methylation"]}},
		{"op":"in","content":{"field":"cases.project.project_id","value":["TCGA-BRCA"]}}
	]}`, encoded)

	encoded, err = CasesFilter("TCGA-LUAD").Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"op":"in","content":{"field":"cases.project.project_id","value":["TCGA-LUAD"]}}`, encoded)
}
