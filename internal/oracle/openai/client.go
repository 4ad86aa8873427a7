package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/weiliang-ho/dealerdocs/constants"
	"github.com/weiliang-ho/dealerdocs/internal/common"
	"github.com/weiliang-ho/dealerdocs/internal/oracle"
	"github.com/weiliang-ho/dealerdocs/internal/resilience"
)

// Config holds settings for the OpenAI-compatible oracle client.
type Config struct {
	BaseURL         string
	APIKey          string
	Model           string
	Temperature     float32
	Timeout         time.Duration
	LenientOptional bool
}

// Client implements oracle.Classifier and oracle.BatchClassifier using
// text-only chat/completions with json_object output.
type Client struct {
	cfg        Config
	httpClient *http.Client
	exec       *resilience.Executor
	log        *slog.Logger
}

func NewClient(cfg Config, exec *resilience.Executor, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if exec == nil {
		exec = resilience.NewExecutor(resilience.DefaultConfig(), logger)
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		exec:       exec,
		log:        logger,
	}
}

// Classify classifies one document's extracted text.
func (c *Client) Classify(ctx context.Context, rawText, typeHint string) (oracle.Classification, error) {
	rid := uuid.New().String()
	start := time.Now()

	if strings.TrimSpace(rawText) == "" {
		return oracle.Classification{}, fmt.Errorf("empty raw text")
	}

	allowed := constants.AsStringSlice()
	schema := oracle.BuildClassificationSchema(allowed)

	c.log.Info("oracle.classify.start",
		"req_id", rid, "model", c.cfg.Model, "text_len", len(rawText), "hint", typeHint)

	content, err := c.complete(ctx, "oracle.classify",
		buildClassifySystemPrompt(allowed),
		buildClassifyUserPrompt(rawText, typeHint, schema))
	if err != nil {
		c.log.Error("oracle.classify.failed",
			"req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return oracle.Classification{}, err
	}

	cleaned, err := c.validateLenient(content, schema, oracle.NormalizeClassificationJSON)
	if err != nil {
		c.log.Error("oracle.classify.schema_failed",
			"req_id", rid, "error", err, "content", string(content),
			"elapsed_ms", time.Since(start).Milliseconds())
		return oracle.Classification{}, err
	}

	var out oracle.Classification
	if err := json.Unmarshal(cleaned, &out); err != nil {
		return oracle.Classification{}, fmt.Errorf("unmarshal classification: %w", err)
	}

	c.log.Info("oracle.classify.ok",
		"req_id", rid,
		"document_type", out.DocumentType,
		"confidence", out.Confidence,
		"customer", out.CustomerName,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// ClassifyBatchText classifies the concatenated per-page texts in one call,
// asking for both per-page types and a page grouping.
func (c *Client) ClassifyBatchText(ctx context.Context, pageTexts []string) (oracle.BatchClassification, error) {
	rid := uuid.New().String()
	start := time.Now()

	if len(pageTexts) == 0 {
		return oracle.BatchClassification{}, fmt.Errorf("no page texts")
	}

	allowed := constants.AsStringSlice()
	schema := oracle.BuildBatchSchema(allowed)

	c.log.Info("oracle.batch.start",
		"req_id", rid, "model", c.cfg.Model, "pages", len(pageTexts))

	content, err := c.complete(ctx, "oracle.batch",
		buildBatchSystemPrompt(allowed),
		buildBatchUserPrompt(pageTexts, schema))
	if err != nil {
		c.log.Error("oracle.batch.failed",
			"req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return oracle.BatchClassification{}, err
	}

	cleaned, err := c.validateLenient(content, schema, oracle.NormalizeBatchJSON)
	if err != nil {
		c.log.Error("oracle.batch.schema_failed",
			"req_id", rid, "error", err, "content", string(content),
			"elapsed_ms", time.Since(start).Milliseconds())
		return oracle.BatchClassification{}, err
	}

	var out oracle.BatchClassification
	if err := json.Unmarshal(cleaned, &out); err != nil {
		return oracle.BatchClassification{}, fmt.Errorf("unmarshal batch classification: %w", err)
	}

	c.log.Info("oracle.batch.ok",
		"req_id", rid,
		"groups", len(out.Groups),
		"page_types", len(out.PageTypes),
		"customer", out.CustomerName,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

type normalizer func([]byte, *slog.Logger) ([]byte, []string, error)

// validateLenient validates strictly first; when lenient mode is on and
// strict validation fails, a sanitize pass runs and the result is
// re-validated.
func (c *Client) validateLenient(content []byte, schema map[string]any, normalize normalizer) ([]byte, error) {
	trimmed := oracle.ExtractJSONBlock(content)
	if err := oracle.ValidateJSONAgainstSchema(schema, trimmed); err == nil {
		return trimmed, nil
	} else if !c.cfg.LenientOptional {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	cleaned, dropped, sErr := normalize(content, c.log)
	if sErr != nil {
		return nil, fmt.Errorf("sanitize failed: %w", sErr)
	}
	if vErr := oracle.ValidateJSONAgainstSchema(schema, cleaned); vErr != nil {
		return nil, fmt.Errorf("schema validation failed after sanitize: %w", vErr)
	}
	if len(dropped) > 0 {
		c.log.Warn("oracle.lenient_sanitize_applied", "dropped", dropped)
	}
	return cleaned, nil
}

func (c *Client) complete(ctx context.Context, operation, system, user string) ([]byte, error) {
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	}

	var raw []byte
	err := c.exec.Do(ctx, operation, func(ctx context.Context) error {
		var postErr error
		raw, postErr = c.post(ctx, body)
		return postErr
	})
	if err != nil {
		return nil, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, fmt.Errorf("%w: decode oracle response: %v", common.ErrParseResponse, err)
	}
	if len(cc.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in oracle response", common.ErrParseResponse)
	}
	return []byte(strings.TrimSpace(cc.Choices[0].Message.Content)), nil
}

func (c *Client) post(ctx context.Context, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, resilience.MarkRetryable(fmt.Errorf("oracle http error: %w", err))
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.log.Warn("oracle response body close error", "error", err)
		}
	}(resp.Body)

	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("%w: oracle status %d: %s", common.ErrExternalCall, resp.StatusCode, buf.String())
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, resilience.MarkRetryable(err)
		}
		return nil, err
	}
	return buf.Bytes(), nil
}
