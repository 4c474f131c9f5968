// Package predict drives the remote expression-prediction service: one
// HTTP call per variant, summed RNA-seq coverage for the reference and
// alternate haplotypes over a fixed genomic window.
package predict

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// WindowLength is the genomic span the model scores around each variant,
// in base pairs.
const WindowLength = 1048576

// Window returns the scoring interval centered on pos, clamped to the
// start of the chromosome.
func Window(pos int64) (start, end int64) {
	half := int64(WindowLength / 2)
	start = pos - half
	if start < 1 {
		start = 1
	}
	return start, pos + half
}

// Request identifies one variant to score.
type Request struct {
	Chrom  string
	Pos    int64
	Ref    string
	Alt    string
	Tissue string
}

// Result holds the summed expression signal for both haplotypes.
type Result struct {
	RefSum float64
	AltSum float64
}

// Client calls the prediction service. Failed calls are retried with a
// doubling delay before giving up.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	logger     *zap.Logger
}

// NewClient creates a prediction client for the given endpoint.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		maxRetries: 3,
		baseDelay:  2 * time.Second,
		logger:     zap.NewNop(),
	}
}

// SetLogger replaces the default no-op logger.
func (c *Client) SetLogger(l *zap.Logger) {
	if l != nil {
		c.logger = l
	}
}

// SetRetry overrides the retry count and initial delay.
func (c *Client) SetRetry(maxRetries int, baseDelay time.Duration) {
	c.maxRetries = maxRetries
	c.baseDelay = baseDelay
}

type predictRequest struct {
	Interval struct {
		Chromosome string `json:"chromosome"`
		Start      int64  `json:"start"`
		End        int64  `json:"end"`
	} `json:"interval"`
	Variant struct {
		Chromosome string `json:"chromosome"`
		Position   int64  `json:"position"`
		Reference  string `json:"reference"`
		Alternate  string `json:"alternate"`
	} `json:"variant"`
	OntologyTerms    []string `json:"ontology_terms"`
	RequestedOutputs []string `json:"requested_outputs"`
}

type predictResponse struct {
	Reference struct {
		RNASeqSum float64 `json:"rna_seq_sum"`
	} `json:"reference"`
	Alternate struct {
		RNASeqSum float64 `json:"rna_seq_sum"`
	} `json:"alternate"`
}

// PredictVariant scores one variant, retrying transient failures with a
// doubling delay between attempts.
func (c *Client) PredictVariant(req Request) (Result, error) {
	var lastErr error
	delay := c.baseDelay

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		res, err := c.predictOnce(req)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if attempt < c.maxRetries {
			c.logger.Warn("prediction attempt failed, retrying",
				zap.String("chrom", req.Chrom),
				zap.Int64("pos", req.Pos),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err))
			time.Sleep(delay)
			delay *= 2
		}
	}

	return Result{}, fmt.Errorf("prediction failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) predictOnce(req Request) (Result, error) {
	start, end := Window(req.Pos)

	var body predictRequest
	body.Interval.Chromosome = req.Chrom
	body.Interval.Start = start
	body.Interval.End = end
	body.Variant.Chromosome = req.Chrom
	body.Variant.Position = req.Pos
	body.Variant.Reference = req.Ref
	body.Variant.Alternate = req.Alt
	body.OntologyTerms = []string{req.Tissue}
	body.RequestedOutputs = []string{"RNA_SEQ"}

	payload, err := json.Marshal(body)
	if err != nil {
		return Result{}, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.baseURL+"/predict_variant", bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("prediction request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return Result{}, fmt.Errorf("prediction API error %d: %s", resp.StatusCode, string(msg))
	}

	var pr predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return Result{}, fmt.Errorf("decode prediction response: %w", err)
	}

	return Result{
		RefSum: pr.Reference.RNASeqSum,
		AltSum: pr.Alternate.RNASeqSum,
	}, nil
}
