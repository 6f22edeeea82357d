package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"drug-info/models"
	"drug-info/providers"
	"drug-info/services"
	"drug-info/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	db     *gorm.DB
	runner *services.BatchRunner
	router *gin.Engine
}

func newTestEnv(t *testing.T, apiKey string) *testEnv {
	t.Helper()
	db := testutil.OpenDB(t)
	logger := zap.NewNop()
	pipeline := services.NewPipeline(db, logger, 5*time.Second, 1, services.NewRunRecorder(db, logger))
	runner := services.NewBatchRunner(pipeline, func() (providers.Source, error) {
		return &providers.Static{Label: "default", Records: []models.RawRecord{{
			Identity:        "CCN",
			CrossReferences: []models.RawCrossReference{{Source: "pubchem-compound", ExternalID: "6341"}},
		}}}, nil
	}, logger)
	return &testEnv{
		db:     db,
		runner: runner,
		router: NewRouter(&Server{DB: db, Runner: runner, Logger: logger, APIKey: apiKey}),
	}
}

func (e *testEnv) do(method, target, body string, header http.Header) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) seed(t *testing.T) *services.Report {
	t.Helper()
	pipeline := services.NewPipeline(e.db, zap.NewNop(), 5*time.Second, 1)
	report, err := pipeline.Run(context.Background(), &providers.Static{Records: []models.RawRecord{{
		Identity:        "CCO",
		CrossReferences: []models.RawCrossReference{{Source: "drugbank", ExternalID: "DB00898"}},
		GeneActions: []models.RawGeneAction{
			{Gene: "ADH1B", Action: testutil.StrPtr("inhibitor")},
			{Gene: "CYP2E1"},
		},
	}}})
	require.NoError(t, err)
	return report
}

func drugIDBySmiles(t *testing.T, db *gorm.DB, smiles string) string {
	t.Helper()
	var drug models.Drug
	require.NoError(t, db.Where("smiles = ?", smiles).Take(&drug).Error)
	return drug.DrugID
}

func TestDrugEndpoints(t *testing.T) {
	env := newTestEnv(t, "")
	env.seed(t)
	id := drugIDBySmiles(t, env.db, "CCO")

	w := env.do(http.MethodGet, "/drugs", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Drug
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].DrugID)

	w = env.do(http.MethodGet, "/drugs/"+id, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var drug models.Drug
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &drug))
	assert.Equal(t, "CCO", drug.Smiles)
	assert.Len(t, drug.AlternateIdentifiers, 1)
	require.Len(t, drug.GeneActions, 2)
	assert.Equal(t, "ADH1B", drug.GeneActions[0].GeneName)
	assert.Nil(t, drug.GeneActions[1].Action)

	w = env.do(http.MethodGet, "/drugs/lookup?smiles=CCO", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id)

	w = env.do(http.MethodGet, "/alternate-identifiers/drugbank/DB00898", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id)

	w = env.do(http.MethodGet, "/drugs?gene=CYP2E1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id)

	w = env.do(http.MethodGet, "/drugs?gene=EGFR", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestDrugEndpointsNotFound(t *testing.T) {
	env := newTestEnv(t, "")

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/drugs/missing", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/drugs/lookup?smiles=CCO", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/drugs/lookup", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/alternate-identifiers/drugbank/DB0", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/runs/missing", "", nil).Code)
}

func TestIngestWithBody(t *testing.T) {
	env := newTestEnv(t, "")

	body := `{"identity":"CCO","cross_references":[{"source":"drugbank","external_id":"DB00898"}],"gene_actions":[]}
{"identity":"","cross_references":[{"source":"drugbank","external_id":"DB0"}],"gene_actions":[]}`
	w := env.do(http.MethodPost, "/ingest", body, nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		RunID string `json:"run_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.RunID)
	env.runner.Wait()

	w = env.do(http.MethodGet, "/runs/"+resp.RunID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var run models.IngestionRun
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.Equal(t, "api", run.Source)
	assert.Equal(t, "completed", run.State)
	assert.Equal(t, 1, run.Ingested)
	assert.Equal(t, 1, run.RejectedByValidation)
	assert.Contains(t, string(run.Rejections), "missing identity string")

	w = env.do(http.MethodGet, "/runs", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), resp.RunID)
}

func TestIngestDefaultSource(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(http.MethodPost, "/ingest", "", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	env.runner.Wait()

	drugIDBySmiles(t, env.db, "CCN")
}

func TestIngestRejectsMalformedBody(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(http.MethodPost, "/ingest", `[{"identity":"CCO","smiles":"CCO"}]`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/ingest", "[]", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.runner.Running())
}

func TestAPIKeyMiddleware(t *testing.T) {
	env := newTestEnv(t, "secret")

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/drugs", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/drugs", "", http.Header{"X-Api-Key": {"wrong"}}).Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/drugs", "", http.Header{"X-Api-Key": {"secret"}}).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, "")
	env.seed(t)

	w := env.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "drug_ingestion_runs_total")
}
