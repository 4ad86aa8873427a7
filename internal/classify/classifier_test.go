package classify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/weiliang-ho/dealerdocs/constants"
	"github.com/weiliang-ho/dealerdocs/internal/entity"
	"github.com/weiliang-ho/dealerdocs/internal/oracle"
)

type fakeEngine struct {
	text  string
	err   error
	block bool
	calls int
}

func (f *fakeEngine) ExtractText(ctx context.Context, image []byte, mimeType string) (string, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.text, f.err
}

type fakeOracle struct {
	cls   oracle.Classification
	err   error
	calls int
}

func (f *fakeOracle) Classify(ctx context.Context, rawText, typeHint string) (oracle.Classification, error) {
	f.calls++
	return f.cls, f.err
}

func TestClassifyImageViaOCR(t *testing.T) {
	engine := &fakeEngine{text: "VEHICLE SALES AGREEMENT between dealer and Tan Ah Kow"}
	orc := &fakeOracle{cls: oracle.Classification{
		DocumentType: "Vehicle Sales Agreement",
		Confidence:   92,
		CustomerName: "Tan Ah Kow",
		Signed:       true,
	}}
	c := NewClassifier(engine, orc, Config{}, nil, nil)

	res := c.Classify(context.Background(), entity.NewFileDescriptor("a.jpg", []byte("img")))

	if res.DocumentType != constants.VSA {
		t.Errorf("document type = %q, want %q", res.DocumentType, constants.VSA)
	}
	if res.Confidence != 92 {
		t.Errorf("confidence = %d, want 92", res.Confidence)
	}
	if res.Folder != "agreements" {
		t.Errorf("folder = %q, want %q", res.Folder, "agreements")
	}
	if res.CustomerName != "Tan Ah Kow" {
		t.Errorf("customer = %q", res.CustomerName)
	}
	if !res.Signed {
		t.Error("signed not carried through")
	}
	if res.Source != entity.SourceAI {
		t.Errorf("source = %q, want ai", res.Source)
	}
	if !res.UsedNetwork {
		t.Error("UsedNetwork should be true for OCR path")
	}
}

func TestClassifyNeverReturnsError(t *testing.T) {
	tests := []struct {
		name    string
		fd      entity.FileDescriptor
		engine  *fakeEngine
		oracle  *fakeOracle
		wantSrc entity.ClassificationSource
	}{
		{
			name:    "engine failure",
			fd:      entity.NewFileDescriptor("b.pdf", []byte("pdf")),
			engine:  &fakeEngine{err: errors.New("ocr provider down")},
			oracle:  &fakeOracle{},
			wantSrc: entity.SourceAI,
		},
		{
			name:    "oracle failure",
			fd:      entity.NewFileDescriptor("b.pdf", []byte("pdf")),
			engine:  &fakeEngine{text: "some text"},
			oracle:  &fakeOracle{err: errors.New("schema validation failed")},
			wantSrc: entity.SourceAI,
		},
		{
			name:    "empty payload",
			fd:      entity.NewFileDescriptor("empty.jpg", nil),
			engine:  &fakeEngine{},
			oracle:  &fakeOracle{},
			wantSrc: entity.SourceAI,
		},
		{
			name:    "unsupported extension",
			fd:      entity.NewFileDescriptor("readme.txt", []byte("hello")),
			engine:  &fakeEngine{},
			oracle:  &fakeOracle{},
			wantSrc: entity.SourceNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(tt.engine, tt.oracle, Config{}, nil, nil)
			res := c.Classify(context.Background(), tt.fd)

			if res.DocumentType != constants.Other {
				t.Errorf("document type = %q, want other", res.DocumentType)
			}
			if res.Confidence != 0 {
				t.Errorf("confidence = %d, want 0", res.Confidence)
			}
			if res.Folder != "review" {
				t.Errorf("folder = %q, want review", res.Folder)
			}
			if res.Source != tt.wantSrc {
				t.Errorf("source = %q, want %q", res.Source, tt.wantSrc)
			}
			if res.Summary == "" {
				t.Error("fallback should explain itself in the summary")
			}
		})
	}
}

func TestClassifyTimeout(t *testing.T) {
	engine := &fakeEngine{block: true}
	c := NewClassifier(engine, &fakeOracle{}, Config{ItemTimeout: 30 * time.Millisecond}, nil, nil)

	start := time.Now()
	res := c.Classify(context.Background(), entity.NewFileDescriptor("slow.jpg", []byte("img")))
	elapsed := time.Since(start)

	if res.DocumentType != constants.Other || res.Confidence != 0 {
		t.Errorf("timeout should degrade to other/0, got %s/%d", res.DocumentType, res.Confidence)
	}
	if !strings.Contains(res.Summary, "timed out") {
		t.Errorf("summary = %q, want timeout explanation", res.Summary)
	}
	if elapsed > 2*time.Second {
		t.Errorf("classify took %s, timeout not enforced", elapsed)
	}
}

func TestClassifySpreadsheetHeuristic(t *testing.T) {
	engine := &fakeEngine{}
	orc := &fakeOracle{}
	c := NewClassifier(engine, orc, Config{SpreadsheetMode: SpreadsheetHeuristic}, nil, nil)

	res := c.Classify(context.Background(), entity.NewFileDescriptor("car_loan_application.xlsx", []byte("x")))

	if res.DocumentType != constants.LoanApplication {
		t.Errorf("document type = %q, want loan_application", res.DocumentType)
	}
	if res.Confidence != 80 {
		t.Errorf("confidence = %d, want 80", res.Confidence)
	}
	if res.Source != entity.SourceHeuristic {
		t.Errorf("source = %q, want heuristic", res.Source)
	}
	if res.UsedNetwork {
		t.Error("heuristic path must not be marked as networked")
	}
	if engine.calls != 0 || orc.calls != 0 {
		t.Errorf("heuristic path called engine %d / oracle %d times, want 0", engine.calls, orc.calls)
	}
}

func TestNeedsNetwork(t *testing.T) {
	tests := []struct {
		name string
		mode SpreadsheetMode
		file string
		want bool
	}{
		{name: "image", mode: SpreadsheetHeuristic, file: "a.jpg", want: true},
		{name: "pdf", mode: SpreadsheetHeuristic, file: "a.pdf", want: true},
		{name: "spreadsheet heuristic", mode: SpreadsheetHeuristic, file: "a.xlsx", want: false},
		{name: "spreadsheet extract", mode: SpreadsheetExtract, file: "a.xlsx", want: true},
		{name: "unsupported", mode: SpreadsheetHeuristic, file: "a.txt", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(&fakeEngine{}, &fakeOracle{}, Config{SpreadsheetMode: tt.mode}, nil, nil)
			fd := entity.NewFileDescriptor(tt.file, []byte("x"))
			if got := c.NeedsNetwork(fd); got != tt.want {
				t.Errorf("NeedsNetwork(%s) = %v, want %v", tt.file, got, tt.want)
			}
		})
	}
}

func TestFromOracleClampsConfidence(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{in: -5, want: 0},
		{in: 0, want: 0},
		{in: 55, want: 55},
		{in: 100, want: 100},
		{in: 250, want: 100},
	}
	for _, tt := range tests {
		res := fromOracle(oracle.Classification{DocumentType: "nric", Confidence: tt.in}, "")
		if res.Confidence != tt.want {
			t.Errorf("fromOracle confidence %d = %d, want %d", tt.in, res.Confidence, tt.want)
		}
	}
}
