// Package gtex resolves population median expression baselines from the
// GTEx portal and classifies tumour expression against them.
package gtex

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the public GTEx portal API.
	DefaultBaseURL = "https://gtexportal.org/api/v2"

	// Dataset is the GTEx release queried for baselines.
	Dataset = "gtex_v8"

	// DefaultTissue is the tissue site used when none is configured.
	DefaultTissue = "Lung"
)

// Client queries the GTEx portal REST API. Lookups distinguish "the portal
// answered with no record" from transport failure, so callers can cache
// negative results but retry broken ones.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retries    int
	retryUnit  time.Duration
	logger     *zap.Logger
}

// NewClient creates a client against the public portal.
func NewClient() *Client {
	return &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		retries:   3,
		retryUnit: time.Second,
		logger:    zap.NewNop(),
	}
}

// SetBaseURL points the client at a different portal endpoint.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// SetRetry overrides the retry count and backoff unit.
func (c *Client) SetRetry(retries int, unit time.Duration) {
	c.retries = retries
	c.retryUnit = unit
}

// SetLogger replaces the default no-op logger.
func (c *Client) SetLogger(l *zap.Logger) {
	if l != nil {
		c.logger = l
	}
}

// ResolveGencodeID maps a version-stripped Ensembl gene ID to the versioned
// GENCODE ID the expression endpoints key on. The second return value is
// false when the portal has no record of the gene.
func (c *Client) ResolveGencodeID(geneID string) (string, bool, error) {
	params := url.Values{}
	params.Set("geneId", geneID)
	params.Set("datasetId", Dataset)

	var resp struct {
		Data []struct {
			GencodeID string `json:"gencodeId"`
		} `json:"data"`
	}
	if err := c.getJSON("/reference/gene", params, &resp); err != nil {
		return "", false, err
	}
	if len(resp.Data) == 0 || resp.Data[0].GencodeID == "" {
		return "", false, nil
	}
	return resp.Data[0].GencodeID, true, nil
}

// MedianExpression fetches the median TPM for a GENCODE ID in a tissue.
// The second return value is false when the portal has no expression row.
func (c *Client) MedianExpression(gencodeID, tissue string) (float64, bool, error) {
	params := url.Values{}
	params.Set("gencodeId", gencodeID)
	params.Set("datasetId", Dataset)
	params.Set("tissueSiteDetailId", tissue)

	var resp struct {
		Data []struct {
			Median float64 `json:"median"`
		} `json:"data"`
	}
	if err := c.getJSON("/expression/medianGeneExpression", params, &resp); err != nil {
		return 0, false, err
	}
	if len(resp.Data) == 0 {
		return 0, false, nil
	}
	return resp.Data[0].Median, true, nil
}

// getJSON fetches a portal endpoint, retrying with doubling backoff.
func (c *Client) getJSON(path string, params url.Values, out any) error {
	endpoint := c.baseURL + path + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			delay := c.retryUnit << (attempt - 1)
			c.logger.Warn("GTEx request failed, retrying",
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			time.Sleep(delay)
		}

		lastErr = c.fetchOnce(endpoint, out)
		if lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("GTEx request failed after %d attempts: %w", c.retries, lastErr)
}

func (c *Client) fetchOnce(endpoint string, out any) error {
	resp, err := c.httpClient.Get(endpoint)
	if err != nil {
		return fmt.Errorf("GTEx request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GTEx API error %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode GTEx response: %w", err)
	}
	return nil
}
