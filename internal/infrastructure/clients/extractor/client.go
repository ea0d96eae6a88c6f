package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/caldermed/chartsync/internal/domain/entities"
	"github.com/caldermed/chartsync/internal/domain/providers"
	"github.com/caldermed/chartsync/pkg/config"
	apperrors "github.com/caldermed/chartsync/pkg/errors"
)

// HTTPClient calls the external fact extraction service. One request per
// category; the service is treated as opaque and only its output contract
// (candidate facts with a confidence score) is consumed.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient creates a new extraction service client
func NewHTTPClient(cfg *config.ExtractorConfig) providers.FactProducer {
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type extractRequest struct {
	Content         string  `json:"content"`
	SourceType      string  `json:"sourceType"`
	SourceReference *string `json:"sourceReference,omitempty"`
	PatientID       string  `json:"patientId"`
	EncounterID     *string `json:"encounterId,omitempty"`
}

type extractResponse struct {
	Facts []candidatePayload `json:"facts"`
}

type candidatePayload struct {
	Fields     map[string]fieldPayload `json:"fields"`
	Confidence float64                 `json:"confidence"`
}

type fieldPayload struct {
	Number *float64 `json:"number,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// Extract returns the candidate facts of one category found in the content
func (c *HTTPClient) Extract(ctx context.Context, content entities.SubmissionContent, pctx entities.ProcessingContext, category entities.Category) ([]entities.CandidateFact, error) {
	endpoint := fmt.Sprintf("%s/extract/%s", c.baseURL, url.PathEscape(string(category)))

	payload := extractRequest{
		Content:         content.Text,
		SourceType:      string(content.SourceType),
		SourceReference: content.SourceReference,
		PatientID:       pctx.PatientID,
		EncounterID:     pctx.EncounterID,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.NewProducerError("failed to encode extraction request", err)
	}

	out := &extractResponse{}
	if err := c.doJSON(ctx, http.MethodPost, endpoint, bytes.NewReader(body), out); err != nil {
		return nil, apperrors.NewProducerError(fmt.Sprintf("extraction failed for category %s", category), err)
	}

	facts := make([]entities.CandidateFact, 0, len(out.Facts))
	for _, f := range out.Facts {
		if len(f.Fields) == 0 {
			return nil, apperrors.NewProducerError(fmt.Sprintf("extractor returned a candidate with no fields for category %s", category), nil)
		}
		fields := make(map[string]entities.FieldValue, len(f.Fields))
		for name, v := range f.Fields {
			fields[name] = entities.FieldValue{Number: v.Number, Text: v.Text}
		}
		facts = append(facts, entities.CandidateFact{
			Category:        category,
			Fields:          fields,
			SourceType:      content.SourceType,
			SourceReference: content.SourceReference,
			Confidence:      f.Confidence,
		})
	}

	return facts, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, endpoint string, body io.Reader, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("extraction service returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return err
	}

	return nil
}
