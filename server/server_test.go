package server_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/The-Politico/crosswalk/config"
	"github.com/The-Politico/crosswalk/entity"
	"github.com/The-Politico/crosswalk/server"
	"github.com/The-Politico/crosswalk/storage"
	cwtest "github.com/The-Politico/crosswalk/internal/testing"
)

type testAPI struct {
	ts     *httptest.Server
	token  string
	userID string
	db     *sql.DB
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db := cwtest.CreateTestDB(t)

	users := storage.NewUserStore(db)
	user, err := users.Create(context.Background(), "test-user")
	require.NoError(t, err)

	domains := storage.NewDomainStore(db, nil)
	_, err = domains.Create(context.Background(), "Companies", nil, nil)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Server.AuthEnabled = true
	cfg.Server.AllowedOrigins = []string{"http://localhost:8000"}

	srv := server.NewServer(db, cfg, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testAPI{ts: ts, token: user.Token, userID: user.ID, db: db}
}

func (a *testAPI) request(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, a.ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Token "+a.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload
}

func TestHealthNeedsNoAuth(t *testing.T) {
	api := newTestAPI(t)

	resp, err := http.Get(api.ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	api := newTestAPI(t)

	resp, err := http.Get(api.ts.URL + "/api/domains/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthRejectsUnknownToken(t *testing.T) {
	api := newTestAPI(t)

	req, err := http.NewRequest(http.MethodGet, api.ts.URL+"/api/domains/", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Token bogus")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestClientCheck(t *testing.T) {
	api := newTestAPI(t)

	resp := api.request(t, http.MethodGet, "/api/client-check/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	payload := decode(t, resp)
	assert.Equal(t, true, payload["ok"])
	assert.Equal(t, "test-user", payload["user"])
}

func TestCreateAndListDomains(t *testing.T) {
	api := newTestAPI(t)

	resp := api.request(t, http.MethodPost, "/api/domains/", map[string]interface{}{"name": "Vendors"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode(t, resp)
	assert.Equal(t, "vendors", created["slug"])

	resp = api.request(t, http.MethodGet, "/api/domains/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var domains []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&domains))
	assert.Len(t, domains, 2)
}

func TestDuplicateDomainConflicts(t *testing.T) {
	api := newTestAPI(t)

	resp := api.request(t, http.MethodPost, "/api/domains/", map[string]interface{}{"name": "Companies"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestMatchOrCreateFlow(t *testing.T) {
	api := newTestAPI(t)

	body := map[string]interface{}{
		"query_field": "name",
		"query_value": "Acme Corp",
		"create_attrs": map[string]interface{}{
			"state": "KS",
		},
	}
	resp := api.request(t, http.MethodPost, "/api/domains/companies/entities/match-or-create/", body)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	payload := decode(t, resp)
	assert.Equal(t, true, payload["created"])
	ent := payload["entity"].(map[string]interface{})
	assert.Equal(t, "Acme Corp", ent["name"])
	assert.Equal(t, "KS", ent["state"])
	assert.NotEmpty(t, ent["uuid"])

	// Repeating the call matches instead of creating
	resp = api.request(t, http.MethodPost, "/api/domains/companies/entities/match-or-create/", body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	payload = decode(t, resp)
	assert.Equal(t, false, payload["created"])
}

func TestAuthenticatedCreateRecordsUserID(t *testing.T) {
	api := newTestAPI(t)

	// created_by references api_users(id), so an authenticated create must
	// persist the user's ID, not the username
	resp := api.request(t, http.MethodPost, "/api/domains/companies/entities/", entity.Attributes{
		"name": "Acme Corp", "uuid": "fixed-uuid",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	stored, err := storage.NewEntityStore(api.db, nil).GetByUUID(context.Background(), "fixed-uuid")
	require.NoError(t, err)
	require.NotNil(t, stored.CreatedBy)
	assert.Equal(t, api.userID, *stored.CreatedBy)

	resp = api.request(t, http.MethodPost, "/api/domains/", map[string]interface{}{"name": "Vendors"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	domains := storage.NewDomainStore(api.db, nil)
	d, err := domains.GetBySlug(context.Background(), "vendors")
	require.NoError(t, err)
	require.NotNil(t, d.CreatedBy)
	assert.Equal(t, api.userID, *d.CreatedBy)
}

func TestMatchNotFound(t *testing.T) {
	api := newTestAPI(t)

	resp := api.request(t, http.MethodPost, "/api/domains/companies/entities/match/", map[string]interface{}{
		"query_field": "name",
		"query_value": "Initech",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMatchAmbiguousIsForbidden(t *testing.T) {
	api := newTestAPI(t)

	for _, state := range []string{"KS", "MO"} {
		resp := api.request(t, http.MethodPost, "/api/domains/companies/entities/", entity.Attributes{
			"name": "Acme Corp", "state": state,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := api.request(t, http.MethodPost, "/api/domains/companies/entities/match/", map[string]interface{}{
		"query_field": "name",
		"query_value": "Acme Corp",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestUnknownScorerIsBadRequest(t *testing.T) {
	api := newTestAPI(t)

	resp := api.request(t, http.MethodPost, "/api/domains/companies/entities/", entity.Attributes{"name": "Acme Corp"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = api.request(t, http.MethodPost, "/api/domains/companies/entities/best-match/", map[string]interface{}{
		"query_field": "name",
		"query_value": "Acme Corp",
		"scorer":      "nope",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReservedKeyIsBadRequest(t *testing.T) {
	api := newTestAPI(t)

	resp := api.request(t, http.MethodPost, "/api/domains/companies/entities/match/", map[string]interface{}{
		"query_field": "entity",
		"query_value": "anything",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBestMatchReturnsScore(t *testing.T) {
	api := newTestAPI(t)

	resp := api.request(t, http.MethodPost, "/api/domains/companies/entities/", entity.Attributes{"name": "Acme Corp"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = api.request(t, http.MethodPost, "/api/domains/companies/entities/best-match/", map[string]interface{}{
		"query_field": "name",
		"query_value": "Acme Corp.",
		"scorer":      "token_set_ratio",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	payload := decode(t, resp)
	score, ok := payload["match_score"].(float64)
	require.True(t, ok, "match_score missing from %v", payload)
	assert.GreaterOrEqual(t, score, float64(80))
}

func TestAliasOrCreateConflict(t *testing.T) {
	api := newTestAPI(t)

	resp := api.request(t, http.MethodPost, "/api/domains/companies/entities/", entity.Attributes{"name": "Acme Corp"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = api.request(t, http.MethodPost, "/api/domains/companies/entities/alias-or-create/", map[string]interface{}{
		"query_field": "name",
		"query_value": "Acme Corp",
		"threshold":   80,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestOmittedThresholdIsBadRequest(t *testing.T) {
	api := newTestAPI(t)

	resp := api.request(t, http.MethodPost, "/api/domains/companies/entities/", entity.Attributes{"name": "Acme Corp"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = api.request(t, http.MethodPost, "/api/domains/companies/entities/alias-or-create/", map[string]interface{}{
		"query_field": "name",
		"query_value": "Acme Corp.",
		"scorer":      "token_set_ratio",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEntityDetailLifecycle(t *testing.T) {
	api := newTestAPI(t)

	resp := api.request(t, http.MethodPost, "/api/domains/companies/entities/", entity.Attributes{
		"name": "Acme Corp", "uuid": "fixed-uuid",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = api.request(t, http.MethodGet, "/api/domains/companies/entities/fixed-uuid/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	ent := decode(t, resp)
	assert.Equal(t, "Acme Corp", ent["name"])

	resp = api.request(t, http.MethodPatch, "/api/domains/companies/entities/fixed-uuid/", entity.Attributes{"state": "KS"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	ent = decode(t, resp)
	assert.Equal(t, "KS", ent["state"])

	resp = api.request(t, http.MethodDelete, "/api/domains/companies/entities/fixed-uuid/", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = api.request(t, http.MethodGet, "/api/domains/companies/entities/fixed-uuid/", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEntityWrongDomainIsNotFound(t *testing.T) {
	api := newTestAPI(t)

	resp := api.request(t, http.MethodPost, "/api/domains/", map[string]interface{}{"name": "Vendors"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = api.request(t, http.MethodPost, "/api/domains/companies/entities/", entity.Attributes{
		"name": "Acme Corp", "uuid": "fixed-uuid",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = api.request(t, http.MethodGet, "/api/domains/vendors/entities/fixed-uuid/", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEntityListFiltersByQuery(t *testing.T) {
	api := newTestAPI(t)

	for i, state := range []string{"KS", "MO"} {
		resp := api.request(t, http.MethodPost, "/api/domains/companies/entities/", entity.Attributes{
			"name": fmt.Sprintf("Company %d", i), "state": state,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := api.request(t, http.MethodGet, "/api/domains/companies/entities/?state=KS", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var found []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&found))
	require.Len(t, found, 1)
	assert.Equal(t, "Company 0", found[0]["name"])
}

func TestBulkCreate(t *testing.T) {
	api := newTestAPI(t)

	resp := api.request(t, http.MethodPost, "/api/domains/companies/entities/bulk-create/", map[string]interface{}{
		"entities": []entity.Attributes{
			{"name": "Acme Corp"},
			{"name": "Globex Inc"},
		},
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	payload := decode(t, resp)
	assert.Equal(t, float64(2), payload["created"])
}

func TestDeleteMatch(t *testing.T) {
	api := newTestAPI(t)

	resp := api.request(t, http.MethodPost, "/api/domains/companies/entities/", entity.Attributes{"name": "Acme Corp"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = api.request(t, http.MethodPost, "/api/domains/companies/entities/delete-match/", map[string]interface{}{
		"block_attrs": entity.Attributes{"name": "Acme Corp"},
	})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = api.request(t, http.MethodGet, "/api/domains/companies/entities/", nil)
	var found []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&found))
	assert.Empty(t, found)
}

func TestUnknownDomainIs404(t *testing.T) {
	api := newTestAPI(t)

	resp := api.request(t, http.MethodGet, "/api/domains/nope/", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	api := newTestAPI(t)

	req, err := http.NewRequest(http.MethodOptions, api.ts.URL+"/api/domains/", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:8000")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://localhost:8000", resp.Header.Get("Access-Control-Allow-Origin"))
}
