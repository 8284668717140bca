package dto

import "github.com/lxhmx/text2sql/pkg/projector"

type QueryRequest struct {
	Question  string `json:"question" validate:"required"`
	SessionID string `json:"session_id,omitempty"` // empty => stateless request
}

type QueryResponse struct {
	Question string           `json:"question"`
	Answer   string           `json:"answer"`
	SQL      string           `json:"sql,omitempty"`
	Table    *projector.Table `json:"table,omitempty"`
	RowCount int              `json:"row_count"`
	// Rejected marks a pipeline rejection: Answer holds the user-facing
	// message and the envelope reports success=false.
	Rejected bool `json:"-"`
}
