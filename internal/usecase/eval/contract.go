package eval

import (
	"context"

	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
)

// Retriever answers single retrieval requests. The evaluator is strictly
// read-only over the index behind it.
type Retriever interface {
	Retrieve(ctx context.Context, req *request.Request) ([]result.Result, error)
}

// ReportStore persists rendered evaluation reports.
type ReportStore interface {
	SaveEvalReport(v any) error
	SaveEvalReportMarkdown(data []byte) error
	SaveEvalReportHTML(data []byte) error
}
