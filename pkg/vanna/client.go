// Package vanna talks to the external SQL generation service: the component
// that maps natural language to SQL and holds the trained knowledge base.
package vanna

import (
	"context"
)

// Training data types understood by the service.
const (
	TypeDDL           = "ddl"
	TypeSQL           = "sql"
	TypeDocumentation = "documentation"
)

// TrainingItem is one unit of trainable knowledge.
type TrainingItem struct {
	Type     string `json:"type"`
	Content  string `json:"content"`
	Question string `json:"question,omitempty"` // set for question/SQL pairs
}

// TrainingRecord is a stored knowledge item as reported by the service.
type TrainingRecord struct {
	ID       string `json:"id"`
	Type     string `json:"training_data_type"`
	Question string `json:"question,omitempty"`
	Content  string `json:"content"`
}

// Client is the contract for the SQL generation service. All implementations
// must return training data as one canonical []TrainingRecord regardless of
// the wire representation; callers never branch on shape.
type Client interface {
	GenerateSQL(ctx context.Context, question string) (string, error)
	IsSQLValid(ctx context.Context, sql string) (bool, error)
	Train(ctx context.Context, item TrainingItem) error
	GetTrainingData(ctx context.Context) ([]TrainingRecord, error)
	RemoveTrainingData(ctx context.Context, id string) error
}
