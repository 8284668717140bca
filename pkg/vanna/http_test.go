package vanna

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL, "test-key")
}

func TestGenerateSQL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v0/generate_sql", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "how many users", req["question"])

		_ = json.NewEncoder(w).Encode(map[string]string{"sql": "SELECT COUNT(*) FROM users"})
	})

	sql, err := client.GenerateSQL(context.Background(), "how many users")

	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM users", sql)
}

func TestGenerateSQL_NonOKStatusIsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.GenerateSQL(context.Background(), "q")

	assert.ErrorContains(t, err, "status 500")
}

func TestIsSQLValid(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v0/is_sql_valid", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]bool{"valid": false})
	})

	valid, err := client.IsSQLValid(context.Background(), "SELECT 1")

	require.NoError(t, err)
	assert.False(t, valid)
}

func TestTrain_RejectionIsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "message": "bad ddl"})
	})

	err := client.Train(context.Background(), TrainingItem{Type: TypeDDL, Content: "CREATE ..."})

	assert.ErrorContains(t, err, "bad ddl")
}

func TestGetTrainingData_RecordList(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"1","training_data_type":"ddl","content":"CREATE TABLE t (id INT)"}]`))
	})

	records, err := client.GetTrainingData(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ddl", records[0].Type)
}

func TestGetTrainingData_TabularShape(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"columns": ["id", "training_data_type", "question", "content"],
			"rows": [[42, "sql", "how many users", "SELECT COUNT(*) FROM users"]]
		}`))
	})

	records, err := client.GetTrainingData(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "42", records[0].ID, "numeric ids become strings")
	assert.Equal(t, "sql", records[0].Type)
	assert.Equal(t, "how many users", records[0].Question)
}

func TestGetTrainingData_WrappedShape(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [{"id":"1","training_data_type":"documentation","content":"doc"}]}`))
	})

	records, err := client.GetTrainingData(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "documentation", records[0].Type)
}

func TestGetTrainingData_UnknownShapeIsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`"just a string"`))
	})

	_, err := client.GetTrainingData(context.Background())

	assert.ErrorContains(t, err, "unrecognized training data shape")
}

func TestRemoveTrainingData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v0/remove_training_data", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "item-1", req["id"])

		_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
	})

	assert.NoError(t, client.RemoveTrainingData(context.Background(), "item-1"))
}
