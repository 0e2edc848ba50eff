package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"riskcalc/internal/cache"
	"riskcalc/internal/composer"
	"riskcalc/internal/history"
	"riskcalc/internal/recommend"
	"riskcalc/internal/risk"
	"riskcalc/internal/score"
	"riskcalc/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gailBody = `{
	"personal": {"age": 50, "sex": "female", "race": "white"},
	"medical_history": {"menarche_age": 12, "first_birth_age": 25, "biopsy_count": 0},
	"family_history": {"first_degree_relatives": 1}
}`

func newTestComposer(t *testing.T) *composer.Composer {
	t.Helper()
	tables, err := score.DefaultTables()
	require.NoError(t, err)
	engine, err := score.NewEngine(tables)
	require.NoError(t, err)
	recommender, err := recommend.Default()
	require.NoError(t, err)
	results, err := cache.NewResultCache(cache.DefaultSize, cache.DefaultTTL)
	require.NoError(t, err)

	c, err := composer.NewComposer(composer.Components{
		Validator:      validation.NewValidator(),
		Engine:         engine,
		Recommender:    recommender,
		Cache:          results,
		History:        history.NewLedger(history.DefaultLength, nil),
		ModifiedModels: []risk.ModelID{risk.ModelGail},
	})
	require.NoError(t, err)
	return c
}

func serve(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestApiV1Router_Assess(t *testing.T) {
	mux := NewApiV1Router(newTestComposer(t)).Mux()

	rec := serve(mux, http.MethodPost, "/api/v1/assessments/gail", gailBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var result risk.RiskResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, risk.ModelGail, result.Metadata.Model)
	assert.LessOrEqual(t, result.FiveYearRisk, result.LifetimeRisk)
	assert.NotEmpty(t, result.Recommendations)

	rec = serve(mux, http.MethodGet, "/api/v1/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []risk.RiskResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, result.ID, list[0].ID)
}

func TestApiV1Router_Assess_CacheQuery(t *testing.T) {
	mux := NewApiV1Router(newTestComposer(t)).Mux()

	first := serve(mux, http.MethodPost, "/api/v1/assessments/gail", gailBody)
	second := serve(mux, http.MethodPost, "/api/v1/assessments/gail", gailBody)
	uncached := serve(mux, http.MethodPost, "/api/v1/assessments/gail?cache=false&history=false", gailBody)
	require.Equal(t, http.StatusOK, uncached.Code)

	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.NotEqual(t, first.Body.String(), uncached.Body.String())

	rec := serve(mux, http.MethodGet, "/api/v1/cache", "")
	var stats cache.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, 1, stats.Entries)

	rec = serve(mux, http.MethodDelete, "/api/v1/cache", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestApiV1Router_Assess_BadQuery(t *testing.T) {
	mux := NewApiV1Router(newTestComposer(t)).Mux()

	rec := serve(mux, http.MethodPost, "/api/v1/assessments/gail?cache=maybe", gailBody)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApiV1Router_Assess_ValidationError(t *testing.T) {
	mux := NewApiV1Router(newTestComposer(t)).Mux()
	body := strings.Replace(gailBody, `"age": 50`, `"age": 10`, 1)

	rec := serve(mux, http.MethodPost, "/api/v1/assessments/gail", body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Fields, 1)
	assert.Equal(t, "age", resp.Fields[0].Field)
}

func TestApiV1Router_Assess_UnknownModel(t *testing.T) {
	mux := NewApiV1Router(newTestComposer(t)).Mux()

	rec := serve(mux, http.MethodPost, "/api/v1/assessments/framingham", gailBody)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApiV1Router_Assess_MalformedBody(t *testing.T) {
	mux := NewApiV1Router(newTestComposer(t)).Mux()

	rec := serve(mux, http.MethodPost, "/api/v1/assessments/gail", `{"personal": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type failingEngine struct {
	*composer.Composer
}

func (failingEngine) Assess(context.Context, risk.ModelID, *risk.RiskInput, composer.Options) (risk.RiskResult, error) {
	return risk.RiskResult{}, risk.NewComputationError("scoring", assert.AnError)
}

func TestApiV1Router_Assess_ComputationFailure(t *testing.T) {
	mux := NewApiV1Router(failingEngine{newTestComposer(t)}).Mux()

	rec := serve(mux, http.MethodPost, "/api/v1/assessments/gail", gailBody)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, risk.ErrCalculationFailed.Error(), resp.Error)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}

func TestApiV1Router_ClearHistory(t *testing.T) {
	mux := NewApiV1Router(newTestComposer(t)).Mux()
	serve(mux, http.MethodPost, "/api/v1/assessments/gail", gailBody)

	rec := serve(mux, http.MethodDelete, "/api/v1/history", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(mux, http.MethodGet, "/api/v1/history", "")
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestApiV1Router_Models(t *testing.T) {
	mux := NewApiV1Router(newTestComposer(t)).Mux()

	rec := serve(mux, http.MethodGet, "/api/v1/models", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var models []composer.ModelInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &models))
	require.Len(t, models, 4)
	assert.Equal(t, risk.ModelQRISK, models[3].Model)
	assert.Equal(t, "ten_year", string(models[3].Anchor))
}
