package repository

import (
	"sort"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 100
	MaxLimit     = 500
)

// Page selects a window of rows. A non-positive Limit means DefaultLimit.
type Page struct {
	Offset int
	Limit  int
}

func (p Page) normalize() Page {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Filters is a conjunction of column equality conditions keyed by column
// name. A nil value matches NULL.
type Filters map[string]any

func (f Filters) names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fields is a partial update keyed by column name.
type Fields map[string]any

// Order sorts results by a single column.
type Order struct {
	Field string
	Desc  bool
}

// Query describes a filtered, paginated read.
type Query struct {
	Page
	IncludeDeleted bool
	Filters        Filters
	Order          Order
}

// Change is one item of a bulk update.
type Change struct {
	ID     uuid.UUID
	Fields Fields
}
