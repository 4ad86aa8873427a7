package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/weiliang-ho/dealerdocs/internal/common"
	"github.com/weiliang-ho/dealerdocs/internal/resilience"
)

const extractPrompt = "Extract ALL text from this document image. " +
	"Return the raw text only, preserving line breaks. Do not summarize, " +
	"do not add commentary. If the image contains no legible text, return " +
	"an empty response."

// Config holds settings for the vision-backed OCR engine.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxImageMB int
}

// VisionClient implements Engine against an OpenAI-compatible
// chat/completions endpoint with image input.
type VisionClient struct {
	cfg        Config
	httpClient *http.Client
	exec       *resilience.Executor
	log        *slog.Logger
}

func NewVisionClient(cfg Config, exec *resilience.Executor, logger *slog.Logger) *VisionClient {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 25 * time.Second
	}
	if cfg.MaxImageMB <= 0 {
		cfg.MaxImageMB = 20
	}
	if exec == nil {
		exec = resilience.NewExecutor(resilience.DefaultConfig(), logger)
	}
	return &VisionClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		exec:       exec,
		log:        logger,
	}
}

// ExtractText sends the image to the vision model and returns the raw text.
func (c *VisionClient) ExtractText(ctx context.Context, image []byte, mimeType string) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	if len(image) == 0 {
		return "", fmt.Errorf("empty image payload")
	}
	if len(image) > c.cfg.MaxImageMB*1024*1024 {
		return "", fmt.Errorf("image exceeds %dMB limit", c.cfg.MaxImageMB)
	}

	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)
	body := map[string]any{
		"model": c.cfg.Model,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": extractPrompt},
					{"type": "image_url", "image_url": map[string]any{"url": dataURL}},
				},
			},
		},
	}

	c.log.Debug("ocr.extract.start",
		"req_id", rid, "model", c.cfg.Model, "mime", mimeType, "bytes", len(image))

	var raw []byte
	err := c.exec.Do(ctx, "ocr.extract", func(ctx context.Context) error {
		var postErr error
		raw, postErr = c.post(ctx, body)
		return postErr
	})
	if err != nil {
		c.log.Error("ocr.extract.failed",
			"req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("%w: decode ocr response: %v", common.ErrParseResponse, err)
	}
	if len(cc.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in ocr response", common.ErrParseResponse)
	}

	text := strings.TrimSpace(cc.Choices[0].Message.Content)
	c.log.Info("ocr.extract.ok",
		"req_id", rid, "text_len", len(text), "elapsed_ms", time.Since(start).Milliseconds())
	return text, nil
}

func (c *VisionClient) post(ctx context.Context, body map[string]any) ([]byte, error) {
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
		return nil, resilience.MarkRetryable(fmt.Errorf("ocr http error: %w", err))
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.log.Warn("ocr response body close error", "error", err)
		}
	}(resp.Body)

	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("%w: ocr status %d: %s", common.ErrExternalCall, resp.StatusCode, buf.String())
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, resilience.MarkRetryable(err)
		}
		return nil, err
	}
	return buf.Bytes(), nil
}
