package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/lox/headcount/internal/httputil"
)

// MaxFetchElapsed bounds retries of a remote document fetch.
var MaxFetchElapsed = 2 * time.Minute

// FetchDocument downloads a structured district document, retrying rate
// limits and server errors with exponential backoff.
func FetchDocument(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if client == nil {
		client = httputil.NewClient()
	}

	var body []byte
	operation := func() error {
		req, err := httputil.NewRequest(ctx, url)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("fetch document: %w", err)
		}
		defer resp.Body.Close()

		if httputil.Retryable(resp.StatusCode) {
			return fmt.Errorf("fetch document: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return backoff.Permanent(fmt.Errorf("fetch document: status %d: %s", resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("read body: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = MaxFetchElapsed
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}
