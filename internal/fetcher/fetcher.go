package fetcher

import (
	"context"

	"github.com/rohmanhakim/docs-link-crawler/pkg/failure"
	"github.com/rohmanhakim/docs-link-crawler/pkg/retry"
)

type Fetcher interface {
	Fetch(
		ctx context.Context,
		crawlDepth int,
		fetchParam FetchParam,
		retryParam retry.RetryParam,
	) (FetchResult, failure.ClassifiedError)
}
