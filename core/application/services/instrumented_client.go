package services

import (
	"context"
	"time"

	"github.com/semlayer/semlayer/core/domain"
	"github.com/semlayer/semlayer/core/domain/interfaces"
	"github.com/semlayer/semlayer/core/observability"
)

// instrumentedClient records a span and call metrics around every client call
type instrumentedClient struct {
	backend     string
	projectUUID string
	next        interfaces.SemanticLayerClient
}

func instrument(backend, projectUUID string, next interfaces.SemanticLayerClient) interfaces.SemanticLayerClient {
	return &instrumentedClient{backend: backend, projectUUID: projectUUID, next: next}
}

func (c *instrumentedClient) observe(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	ctx, span := observability.StartSpan(ctx, "semantic_layer."+operation, map[string]string{
		observability.AttrBackend:     c.backend,
		observability.AttrOperation:   operation,
		observability.AttrProjectUUID: c.projectUUID,
	})
	start := time.Now()
	err := fn(ctx)
	observability.RecordClientCall(ctx, c.backend, operation, err, float64(time.Since(start).Microseconds())/1000)
	observability.EndSpan(span, err)
	return err
}

func (c *instrumentedClient) GetViews(ctx context.Context) ([]domain.SemanticLayerView, error) {
	var views []domain.SemanticLayerView
	err := c.observe(ctx, "getViews", func(ctx context.Context) error {
		var err error
		views, err = c.next.GetViews(ctx)
		return err
	})
	return views, err
}

func (c *instrumentedClient) GetFields(ctx context.Context, view string, selected domain.SemanticLayerSelectedFields) ([]domain.SemanticLayerField, error) {
	var fields []domain.SemanticLayerField
	err := c.observe(ctx, "getFields", func(ctx context.Context) error {
		var err error
		fields, err = c.next.GetFields(ctx, view, selected)
		return err
	})
	return fields, err
}

func (c *instrumentedClient) GetSQL(ctx context.Context, query domain.SemanticLayerQuery) (string, error) {
	var sql string
	err := c.observe(ctx, "getSql", func(ctx context.Context) error {
		var err error
		sql, err = c.next.GetSQL(ctx, query)
		return err
	})
	return sql, err
}

func (c *instrumentedClient) StreamResults(ctx context.Context, query domain.SemanticLayerQuery, fn interfaces.RowsHandler) (int, error) {
	var rows int
	err := c.observe(ctx, "streamResults", func(ctx context.Context) error {
		var err error
		rows, err = c.next.StreamResults(ctx, query, fn)
		return err
	})
	observability.RecordResultRows(ctx, c.backend, rows)
	return rows, err
}
