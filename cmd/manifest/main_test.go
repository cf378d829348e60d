package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdc-multiomics-manifest/internal/setup"
	"github.com/gdc-multiomics-manifest/internal/store"
)

var modalityHits = map[string]string{
	"Tissue Slide": `[
		{"file_id": "f-w1", "cases": [{"case_id": "c1", "submitter_id": "TCGA-A1"}]},
		{"file_id": "f-w0", "cases": [{"case_id": "c1", "submitter_id": "TCGA-A1"}]},
		{"file_id": "f-w3", "cases": [{"case_id": "c3", "submitter_id": "TCGA-A3"}]},
		{"file_id": "f-w2", "cases": [{"case_id": "c2", "submitter_id": "TCGA-A2"}]}
	]`,
	"RNA-Seq": `[
		{"file_id": "r1", "cases": [{"case_id": "c1", "submitter_id": "TCGA-A1"}]},
		{"file_id": "r2", "cases": [{"case_id": "c2", "submitter_id": "TCGA-A2"}]},
		{"file_id": "r3", "cases": [{"case_id": "c3", "submitter_id": "TCGA-A3"}]}
	]`,
	"DNA Methylation": `[
		{"file_id": "m1", "cases": [{"case_id": "c1", "submitter_id": "TCGA-A1"}]},
		{"file_id": "m3", "cases": [{"case_id": "c3", "submitter_id": "TCGA-A3"}]}
	]`,
	"Simple Nucleotide Variation": `[
		{"file_id": "s1", "cases": [{"case_id": "c1", "submitter_id": "TCGA-A1"}]},
		{"file_id": "s2", "cases": [{"case_id": "c2", "submitter_id": "TCGA-A2"}]},
		{"file_id": "s3", "cases": [{"case_id": "c3", "submitter_id": "TCGA-A3"}]}
	]`,
}

const casesHits = `[
	{
		"case_id": "c1", "submitter_id": "TCGA-A1",
		"diagnoses": [{"primary_diagnosis": "Infiltrating duct carcinoma, NOS", "ajcc_pathologic_stage": "Stage IIA", "age_at_diagnosis": 19358}],
		"demographic": {"gender": "female"}
	},
	{"case_id": "c3", "submitter_id": "TCGA-A3", "diagnoses": [], "demographic": {"gender": "male"}}
]`

func respond(w http.ResponseWriter, hits string) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"data": {"hits": ` + hits + `, "pagination": {"count": 1, "total": 1}}}`))
}

// fakeGDC answers files queries by the modality named in the filter and
// fails the modalities listed in failing.
func fakeGDC(t *testing.T, failing ...string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		filters := r.URL.Query().Get("filters")
		switch r.URL.Path {
		case "/cases":
			respond(w, casesHits)
		case "/files":
			for _, f := range failing {
				if strings.Contains(filters, f) {
					http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
					return
				}
			}
			for value, hits := range modalityHits {
				if strings.Contains(filters, value) {
					respond(w, hits)
					return
				}
			}
			respond(w, "[]")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

// setupCLI isolates configuration and points the CLI at a fake catalog.
func setupCLI(t *testing.T, gdcURL string) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)

	t.Setenv("MANIFEST_DATA_DIR", dir)
	t.Setenv("MANIFEST_GDC_BASE_URL", gdcURL)
	t.Setenv("MANIFEST_GDC_RATE_LIMIT", "1000")
	t.Setenv("MANIFEST_STORE_DRIVER", "sqlite")
	t.Setenv("MANIFEST_STORE_SQLITE_PATH", filepath.Join(dir, "runs.db"))
	t.Setenv("MANIFEST_LOGGING_LEVEL", "error")

	configFile, logLevel = "", ""
	buildProject, buildOutput, buildNoStore = "", "", false
	runsLimit, runsOffset, runsJSON = 20, 0, false
	clientConfigPath, serverName, installDataDir = "", setup.DefaultServerName, ""
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestBuildCommand(t *testing.T) {
	gdc := fakeGDC(t)
	dir := setupCLI(t, gdc.URL)
	path := filepath.Join(dir, "out", "{project}.csv")

	out, err := execute(t, "build", "--project", "TCGA-BRCA", "--output", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Total patients with all modalities: 2\n")

	data, err := os.ReadFile(filepath.Join(dir, "out", "TCGA-BRCA.csv"))
	require.NoError(t, err)
	assert.Equal(t,
		"patient_barcode,wsi_file_ids,rna_file_ids,meth_file_ids,mut_file_ids,primary_diagnosis,ajcc_pathologic_stage,age_at_diagnosis,gender\n"+
			`TCGA-A1,f-w0;f-w1,r1,m1,s1,"Infiltrating duct carcinoma, NOS",Stage IIA,19358,female`+"\n"+
			"TCGA-A3,f-w3,r3,m3,s3,,,,male\n",
		string(data))

	out, err = execute(t, "runs", "--json")
	require.NoError(t, err)
	var runs []*store.Run
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, store.RunStatusSucceeded, runs[0].Status)
	assert.Equal(t, 2, runs[0].CohortSize)
}

func TestBuildCommand_ModalityFailureWritesNothing(t *testing.T) {
	gdc := fakeGDC(t, "DNA Methylation")
	dir := setupCLI(t, gdc.URL)
	path := filepath.Join(dir, "manifest.csv")

	_, err := execute(t, "build", "--output", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "meth")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no manifest may be written")

	out, err := execute(t, "runs")
	require.NoError(t, err)
	assert.Contains(t, out, "failed")
}

func TestRunsCommand_RequiresStore(t *testing.T) {
	gdc := fakeGDC(t)
	setupCLI(t, gdc.URL)
	t.Setenv("MANIFEST_STORE_DRIVER", "none")

	_, err := execute(t, "runs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no run store configured")
}

func TestMigrateCommand_RequiresDSN(t *testing.T) {
	gdc := fakeGDC(t)
	setupCLI(t, gdc.URL)

	_, err := execute(t, "migrate", "up")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres_dsn")
}

func TestMCPInstallAndStatus(t *testing.T) {
	gdc := fakeGDC(t)
	dir := setupCLI(t, gdc.URL)
	clientConfig := filepath.Join(dir, "client.json")

	out, err := execute(t, "mcp", "install", "--client-config", clientConfig, "--data-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Registered gdc-multiomics-manifest in "+clientConfig)

	cfg, err := setup.LoadClientConfig(clientConfig)
	require.NoError(t, err)
	entry := cfg.MCPServers[setup.DefaultServerName]
	assert.Equal(t, []string{"mcp"}, entry.Args)
	assert.Equal(t, dir, entry.Env["MANIFEST_DATA_DIR"])

	out, err = execute(t, "mcp", "status", "--client-config", clientConfig)
	require.NoError(t, err)
	assert.Contains(t, out, "Registered:    true")
}
