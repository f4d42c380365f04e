package interfaces

import (
	"context"

	"github.com/semlayer/semlayer/core/domain"
)

// RowsHandler receives one page of result rows at a time
type RowsHandler = func(rows []domain.SemanticLayerResultRow) error

// SemanticLayerClient is implemented by every semantic layer backend
type SemanticLayerClient interface {
	// GetViews lists the views the backend exposes
	GetViews(ctx context.Context) ([]domain.SemanticLayerView, error)

	// GetFields lists the fields of a view that are compatible with the selection
	GetFields(ctx context.Context, view string, selected domain.SemanticLayerSelectedFields) ([]domain.SemanticLayerField, error)

	// GetSQL compiles a query without running it
	GetSQL(ctx context.Context, query domain.SemanticLayerQuery) (string, error)

	// StreamResults runs a query and hands the rows to fn page by page.
	// It returns the number of rows streamed.
	StreamResults(ctx context.Context, query domain.SemanticLayerQuery, fn RowsHandler) (int, error)
}

// SemanticLayerClientFactory builds backend clients from connection settings
type SemanticLayerClientFactory interface {
	NewDbtCloudClient(conn domain.DbtCloudConnection) (SemanticLayerClient, error)
	NewCubeClient(conn domain.CubeConnection) (SemanticLayerClient, error)
}
