package storage

import (
	"context"

	"github.com/cronii/crikeyooo/internal/model"
)

// Journal defines a sink for dispatched command records.
type Journal interface {
	PutCommandRecords(ctx context.Context, records []model.CommandRecord) error
}

// Discard is a Journal that drops every record.
type Discard struct{}

func (Discard) PutCommandRecords(context.Context, []model.CommandRecord) error { return nil }
