package sqlguard

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnintelligible means the generated SQL is empty or not a SELECT. A non-SELECT
// statement is indistinguishable, at this layer, from a misunderstood question, so
// both are surfaced the same way to the end user.
var ErrUnintelligible = errors.New("unintelligible question")

// ErrUnsupported means the semantic check reported the statement as invalid,
// typically because it touches something other than plain read access.
var ErrUnsupported = errors.New("unsupported operation")

// SemanticChecker is the external validity check of the SQL generation service.
type SemanticChecker interface {
	IsSQLValid(ctx context.Context, sql string) (bool, error)
}

// Guard rejects generated SQL before it can reach the database.
// The SELECT-prefix check is cheap and catches obvious mutation attempts even
// when the semantic checker is unavailable or wrong.
type Guard struct {
	checker SemanticChecker
}

func New(checker SemanticChecker) *Guard {
	return &Guard{checker: checker}
}

// Validate returns nil only when both layers accept the statement.
// No SQL may be executed without passing Validate.
func (g *Guard) Validate(ctx context.Context, sql string) error {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return ErrUnintelligible
	}

	if !strings.HasPrefix(strings.ToUpper(trimmed), "SELECT") {
		return ErrUnintelligible
	}

	valid, err := g.checker.IsSQLValid(ctx, trimmed)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if !valid {
		return ErrUnsupported
	}

	return nil
}
