package canvas

import (
	"context"

	"github.com/common-fate/canvas/pkg/dialect"
)

// Use a specified canvas dialect.
func Use(parent context.Context, d dialect.Dialect) context.Context {
	return dialect.Context(parent, d)
}
