// Package gemini implements the whole-document classification strategy: the
// entire multi-page source is handed to a model that can reason over all
// pages at once, so adjacency informs the grouping and no separate OCR pass
// is needed.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/weiliang-ho/dealerdocs/constants"
	"github.com/weiliang-ho/dealerdocs/internal/oracle"
)

// Config holds settings for the Gemini-backed whole-document oracle.
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
}

// Client implements oracle.WholeDocumentClassifier.
type Client struct {
	cfg    Config
	client *genai.Client
	log    *slog.Logger
}

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{cfg: cfg, client: client, log: logger}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// ClassifyWholeDocument submits the raw document bytes in a single call and
// returns per-page types, a page grouping, the customer name and the per-page
// texts the model read.
func (c *Client) ClassifyWholeDocument(ctx context.Context, document []byte, mimeType string) (oracle.BatchClassification, error) {
	rid := uuid.New().String()
	start := time.Now()

	if len(document) == 0 {
		return oracle.BatchClassification{}, fmt.Errorf("empty document")
	}
	if mimeType == "" {
		mimeType = "application/pdf"
	}

	allowed := constants.AsStringSlice()
	schema := oracle.BuildBatchSchema(allowed)

	model := c.client.GenerativeModel(c.cfg.Model)
	model.SetTemperature(c.cfg.Temperature)
	model.ResponseMIMEType = "application/json"

	c.log.Info("oracle.whole_document.start",
		"req_id", rid, "model", c.cfg.Model, "bytes", len(document), "mime", mimeType)

	resp, err := model.GenerateContent(ctx,
		genai.Blob{MIMEType: mimeType, Data: document},
		genai.Text(buildPrompt(allowed, schema)),
	)
	if err != nil {
		c.log.Error("oracle.whole_document.failed",
			"req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return oracle.BatchClassification{}, fmt.Errorf("generate content: %w", err)
	}

	content, err := textPart(resp)
	if err != nil {
		return oracle.BatchClassification{}, err
	}

	cleaned, _, err := oracle.NormalizeBatchJSON([]byte(content), c.log)
	if err != nil {
		return oracle.BatchClassification{}, fmt.Errorf("sanitize whole-document response: %w", err)
	}
	if err := oracle.ValidateJSONAgainstSchema(schema, cleaned); err != nil {
		c.log.Error("oracle.whole_document.schema_failed",
			"req_id", rid, "error", err, "content", content)
		return oracle.BatchClassification{}, err
	}

	var out oracle.BatchClassification
	if err := json.Unmarshal(cleaned, &out); err != nil {
		return oracle.BatchClassification{}, fmt.Errorf("unmarshal whole-document response: %w", err)
	}

	c.log.Info("oracle.whole_document.ok",
		"req_id", rid,
		"groups", len(out.Groups),
		"page_types", len(out.PageTypes),
		"page_texts", len(out.PageTexts),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func textPart(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from gemini")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("empty content returned from gemini")
	}
	if txt, ok := candidate.Content.Parts[0].(genai.Text); ok {
		return string(txt), nil
	}
	return "", fmt.Errorf("unexpected response format from gemini")
}

func buildPrompt(allowedTypes []string, schema map[string]any) string {
	schemaJSON, _ := json.MarshalIndent(schema, "", "  ")
	parts := []string{
		"You are a document filing assistant for a vehicle dealership.",
		"The attached scan may contain several distinct documents.",
		"For every page: assign a document type and extract its text.",
		"Allowed document types (enum): " + strings.Join(allowedTypes, ", ") + ". Use 'other' when no type fits.",
		"Group pages into documents under 'groups'; pages of one document are usually adjacent and must not repeat across groups.",
		"Put each page's extracted raw text into 'page_texts' (index 0 is page 1).",
		"Extract the customer's full name into 'customer_name' when visible.",
		"Return ONLY JSON matching this schema:",
		string(schemaJSON),
	}
	return strings.Join(parts, "\n")
}
