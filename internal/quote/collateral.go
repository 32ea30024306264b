package quote

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

const (
	collateralTimeout  = 10 * time.Second
	collateralAttempts = 3
)

// collateralChecker contacts the certification service to confirm quote
// collateral is retrievable. It covers the subset of the service the
// verifier actually needs, so tests can substitute a fake.
type collateralChecker interface {
	Check(ctx context.Context, endpoint string) error
}

type httpCollateralChecker struct {
	client *http.Client
}

func newHTTPCollateralChecker() *httpCollateralChecker {
	return &httpCollateralChecker{
		client: &http.Client{Timeout: collateralTimeout},
	}
}

// Check probes the certification service's root CA CRL, the cheapest object
// in the collateral chain. Transient failures are retried with exponential
// backoff; this is a read, so retrying is safe.
func (c *httpCollateralChecker) Check(ctx context.Context, endpoint string) error {
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/rootcacrl", nil)
		if err != nil {
			return backoff.Permanent(errors.Wrap(err, "build collateral request"))
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return errors.Wrap(err, "contact collateral service")
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("collateral service returned status %d", resp.StatusCode)
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), collateralAttempts-1), ctx)
	return backoff.Retry(op, policy)
}
