// Package fetchers provides the federation roster collaborators for
// the sync pipeline. Each fetcher pulls a normalized JSON export; the
// scraping that produces those exports lives outside this service.
package fetchers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"

	"github.com/openmat/gymlink/pkg/models"
	"github.com/openmat/gymlink/pkg/tracing"
)

// HTTPFetcher pulls a federation's gym roster from a JSON endpoint.
type HTTPFetcher struct {
	org    models.Org
	url    string
	client *http.Client
	logger ectologger.Logger
}

// NewIBJJF creates the IBJJF roster fetcher
func NewIBJJF(baseURL string, logger ectologger.Logger) *HTTPFetcher {
	return newHTTPFetcher(models.OrgIBJJF, baseURL+"/api/v1/academies", logger)
}

// NewJJWL creates the JJWL roster fetcher
func NewJJWL(baseURL string, logger ectologger.Logger) *HTTPFetcher {
	return newHTTPFetcher(models.OrgJJWL, baseURL+"/api/gyms", logger)
}

func newHTTPFetcher(org models.Org, url string, logger ectologger.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		org:    org,
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// Org returns the federation this fetcher serves
func (f *HTTPFetcher) Org() models.Org {
	return f.org
}

// FetchGyms pulls the current roster. Records with an empty name or
// external id are dropped at this boundary so the matching engine
// never sees an invalid record.
func (f *HTTPFetcher) FetchGyms(ctx context.Context) ([]models.SourceGym, error) {
	ctx, span := tracing.StartSpan(ctx, "fetchers.HTTPFetcher.FetchGyms")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build roster request")
	}

	res, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s roster request failed", f.org)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, errors.Errorf("%s roster returned status %d", f.org, res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read roster response")
	}

	var gyms []models.SourceGym
	if err := json.Unmarshal(body, &gyms); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s roster", f.org)
	}

	valid := make([]models.SourceGym, 0, len(gyms))
	dropped := 0
	for _, gym := range gyms {
		if gym.ExternalID == "" || gym.Name == "" {
			dropped++
			continue
		}
		gym.Org = f.org
		valid = append(valid, gym)
	}

	if dropped > 0 {
		f.logger.WithContext(ctx).WithFields(map[string]any{
			"org":     f.org,
			"dropped": dropped,
		}).Warn("Dropped malformed roster records")
	}

	return valid, nil
}
