package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/textile-ops/allocation"
	"github.com/warp/textile-ops/backend"
	"github.com/warp/textile-ops/config"
)

func newServer(t *testing.T, handler http.HandlerFunc) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return backend.NewClient(config.UpstreamConfig{BaseURL: srv.URL + "/", Token: "secret"})
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func TestListBatches_Envelope(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/workflow/batches/", r.URL.Path)
		assert.Equal(t, "25", r.URL.Query().Get("page_size"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"count":2,"results":[
			{"id":7,"batch_code":"WV-007","description":"Denim","status":"in_progress"},
			{"id":"b-8","batch_code":"DY-008","description":"","status":"planned"}
		]}}`)
	})

	batches, err := client.ListBatches(context.Background(), 25)
	require.NoError(t, err)

	require.Len(t, batches, 2)
	assert.Equal(t, "7", batches[0].ID)
	assert.Equal(t, "WV-007", batches[0].BatchCode)
	assert.Equal(t, "b-8", batches[1].ID)
}

func TestListUsers_BareArrayFallback(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[{"id":1,"username":"asha","first_name":"Asha","last_name":"Rao","role":"technician"}]`)
	})

	users, err := client.ListUsers(context.Background(), 100)
	require.NoError(t, err)

	require.Len(t, users, 1)
	assert.Equal(t, "Asha Rao", users[0].FullName())
	assert.Equal(t, "technician", users[0].Role)
}

func TestListUsers_EmptyData(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true}`)
	})

	users, err := client.ListUsers(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestListBatches_ServerError(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"success":false,"message":"Invalid token"}`)
	})

	_, err := client.ListBatches(context.Background(), 10)

	var apiErr *backend.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid token", apiErr.Envelope.ErrorMessage())
}

func TestCreateWorkforceAllocation(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/allocations/workforce/", r.URL.Path)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "b1", body["batch"])
		assert.Equal(t, "2025-06-01", body["start_date"])
		assert.NotContains(t, body, "end_date")

		writeJSON(w, http.StatusCreated, `{"success":true,"data":{"id":"w1"},"message":"created"}`)
	})

	start := "2025-06-01"
	env, err := client.CreateWorkforceAllocation(context.Background(), backend.WorkforcePayload{
		Batch: "b1", User: "u1", RoleAssigned: "operator", StartDate: &start,
	})
	require.NoError(t, err)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"id":"w1"}`, string(env.Data))
}

func TestCreateMaterialAllocation_FieldErrors(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"success":false,"errors":{
			"quantity":"Ensure this value is greater than or equal to 0.",
			"unit":["\"bales\" is not a valid choice."]
		}}`)
	})

	env, err := client.CreateMaterialAllocation(context.Background(), backend.MaterialPayload{
		Batch: "b1", MaterialName: "Cotton", Unit: "bales",
		Quantity: decimal.NewNullDecimal(decimal.NewFromInt(-1)),
	})

	require.Error(t, err)
	assert.True(t, allocation.IsClientError(err))
	assert.Equal(t,
		`quantity: Ensure this value is greater than or equal to 0.; unit: "bales" is not a valid choice.`,
		env.ErrorMessage())
}

func TestEnvelope_ErrorMessage(t *testing.T) {
	assert.Equal(t, "request failed", backend.Envelope{}.ErrorMessage())
	assert.Equal(t, "Batch is closed", backend.Envelope{Message: "Batch is closed"}.ErrorMessage())
}

func TestMessages_RejectsObjects(t *testing.T) {
	var env backend.Envelope
	err := json.Unmarshal([]byte(`{"success":false,"errors":{"batch":{"code":1}}}`), &env)
	assert.Error(t, err)
}
