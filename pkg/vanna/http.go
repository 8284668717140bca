package vanna

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// HTTPClient calls a vanna-flask style HTTP API.
type HTTPClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

var _ Client = &HTTPClient{}

func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// --- Request/Response structs (internal to this package) ---

type generateSQLRequest struct {
	Question string `json:"question"`
}

type generateSQLResponse struct {
	SQL string `json:"sql"`
}

type isSQLValidRequest struct {
	SQL string `json:"sql"`
}

type isSQLValidResponse struct {
	Valid bool `json:"valid"`
}

type removeTrainingDataRequest struct {
	ID string `json:"id"`
}

type statusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// --- Interface implementation ---

func (c *HTTPClient) GenerateSQL(ctx context.Context, question string) (string, error) {
	var res generateSQLResponse
	if err := c.post(ctx, "/api/v0/generate_sql", generateSQLRequest{Question: question}, &res); err != nil {
		return "", err
	}
	return res.SQL, nil
}

func (c *HTTPClient) IsSQLValid(ctx context.Context, sql string) (bool, error) {
	var res isSQLValidResponse
	if err := c.post(ctx, "/api/v0/is_sql_valid", isSQLValidRequest{SQL: sql}, &res); err != nil {
		return false, err
	}
	return res.Valid, nil
}

func (c *HTTPClient) Train(ctx context.Context, item TrainingItem) error {
	var res statusResponse
	if err := c.post(ctx, "/api/v0/train", item, &res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("train rejected: %s", res.Message)
	}
	return nil
}

func (c *HTTPClient) GetTrainingData(ctx context.Context) ([]TrainingRecord, error) {
	body, err := c.get(ctx, "/api/v0/get_training_data")
	if err != nil {
		return nil, err
	}
	return normalizeTrainingData(body)
}

func (c *HTTPClient) RemoveTrainingData(ctx context.Context, id string) error {
	var res statusResponse
	if err := c.post(ctx, "/api/v0/remove_training_data", removeTrainingDataRequest{ID: id}, &res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("remove training data %s: %s", id, res.Message)
	}
	return nil
}

// --- Transport helpers ---

func (c *HTTPClient) post(ctx context.Context, path string, payload, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewBuffer(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("vanna request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("vanna error: status %d, body: %s", resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func (c *HTTPClient) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vanna request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vanna error: status %d, body: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// --- Normalization ---

// tabularTrainingData is the dataframe-shaped representation some service
// versions return instead of a plain record list.
type tabularTrainingData struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

type wrappedTrainingData struct {
	Data json.RawMessage `json:"data"`
}

// normalizeTrainingData converts every known wire shape into the canonical
// record list. The rest of the system never sees the raw representation.
func normalizeTrainingData(body []byte) ([]TrainingRecord, error) {
	var records []TrainingRecord
	if err := json.Unmarshal(body, &records); err == nil {
		return records, nil
	}

	var tabular tabularTrainingData
	if err := json.Unmarshal(body, &tabular); err == nil && len(tabular.Columns) > 0 {
		return tabularToRecords(tabular), nil
	}

	var wrapped wrappedTrainingData
	if err := json.Unmarshal(body, &wrapped); err == nil && len(wrapped.Data) > 0 {
		return normalizeTrainingData(wrapped.Data)
	}

	return nil, fmt.Errorf("unrecognized training data shape: %s", truncate(string(body), 200))
}

func tabularToRecords(t tabularTrainingData) []TrainingRecord {
	index := make(map[string]int, len(t.Columns))
	for i, col := range t.Columns {
		index[col] = i
	}

	field := func(row []interface{}, names ...string) string {
		for _, name := range names {
			i, ok := index[name]
			if !ok || i >= len(row) || row[i] == nil {
				continue
			}
			switch v := row[i].(type) {
			case string:
				return v
			case float64:
				return strconv.FormatFloat(v, 'f', -1, 64)
			default:
				return fmt.Sprintf("%v", v)
			}
		}
		return ""
	}

	records := make([]TrainingRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		records = append(records, TrainingRecord{
			ID:       field(row, "id"),
			Type:     field(row, "training_data_type", "type"),
			Question: field(row, "question"),
			Content:  field(row, "content"),
		})
	}
	return records
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
