package pagesplit

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/weiliang-ho/dealerdocs/constants"
	"github.com/weiliang-ho/dealerdocs/internal/oracle"
)

type fakeWholeOracle struct {
	bc    oracle.BatchClassification
	err   error
	calls int
}

func (f *fakeWholeOracle) ClassifyWholeDocument(ctx context.Context, document []byte, mimeType string) (oracle.BatchClassification, error) {
	f.calls++
	return f.bc, f.err
}

type fakeBatchOracle struct {
	bc    oracle.BatchClassification
	err   error
	calls int
}

func (f *fakeBatchOracle) ClassifyBatchText(ctx context.Context, pageTexts []string) (oracle.BatchClassification, error) {
	f.calls++
	return f.bc, f.err
}

type fakeRenderer struct {
	pages  [][]byte
	thumbs [][]byte
	err    error
}

func (f *fakeRenderer) RenderPages(ctx context.Context, source []byte) ([][]byte, error) {
	return f.pages, f.err
}

func (f *fakeRenderer) RenderThumbnails(ctx context.Context, source []byte) ([][]byte, error) {
	return f.thumbs, f.err
}

func TestClassifyPrefersWholeDocument(t *testing.T) {
	whole := &fakeWholeOracle{bc: oracle.BatchClassification{
		CustomerName: "Lim Mei Ling",
		PageTypes: []oracle.PageType{
			{PageNumber: 1, DocumentType: "nric", Confidence: 95},
			{PageNumber: 2, DocumentType: "vsa", Confidence: 88},
		},
		Groups: []oracle.PageGroup{
			{DocumentType: "nric", Confidence: 95, Pages: []int{1}},
			{DocumentType: "vsa", Confidence: 88, Pages: []int{2}},
		},
		PageTexts: []string{"NRIC S1234567A", "VEHICLE SALES AGREEMENT"},
	}}
	batch := &fakeBatchOracle{}
	a := NewAnalyzer(whole, batch, nil, nil, AnalyzerConfig{}, nil, nil)

	bc, texts, strategy := a.classify(context.Background(), []byte("not-a-real-pdf"), 2)

	if strategy != "whole_document" {
		t.Fatalf("strategy = %q, want whole_document", strategy)
	}
	if whole.calls != 1 || batch.calls != 0 {
		t.Errorf("whole called %d, batch called %d; want 1 and 0", whole.calls, batch.calls)
	}
	if bc.CustomerName != "Lim Mei Ling" {
		t.Errorf("customer = %q", bc.CustomerName)
	}
	if len(texts) != 2 || texts[0] != "NRIC S1234567A" {
		t.Errorf("texts = %v, want oracle-provided page texts", texts)
	}
}

func TestClassifySkipsOversizedWholeDocument(t *testing.T) {
	whole := &fakeWholeOracle{}
	batch := &fakeBatchOracle{err: errors.New("oracle down")}
	a := NewAnalyzer(whole, batch, nil, nil, AnalyzerConfig{MaxUploadBytes: 4}, nil, nil)

	_, _, strategy := a.classify(context.Background(), []byte("bigger than four bytes"), 3)

	if whole.calls != 0 {
		t.Errorf("whole-document oracle was called for an oversized source")
	}
	if strategy != "fallback" {
		t.Errorf("strategy = %q, want fallback", strategy)
	}
}

func TestClassifyTotalFailureFallsBackToAllPagesOther(t *testing.T) {
	whole := &fakeWholeOracle{err: errors.New("quota exceeded")}
	batch := &fakeBatchOracle{err: errors.New("oracle down")}
	a := NewAnalyzer(whole, batch, nil, nil, AnalyzerConfig{}, nil, nil)

	bc, _, strategy := a.classify(context.Background(), []byte("not-a-real-pdf"), 4)

	if strategy != "fallback" {
		t.Fatalf("strategy = %q, want fallback", strategy)
	}
	if len(bc.Groups) != 1 {
		t.Fatalf("got %d fallback groups, want 1", len(bc.Groups))
	}
	g := bc.Groups[0]
	if g.DocumentType != string(constants.Other) || g.Confidence != 0 {
		t.Errorf("fallback group = %s/%d, want other/0", g.DocumentType, g.Confidence)
	}
	if !reflect.DeepEqual(g.Pages, []int{1, 2, 3, 4}) {
		t.Errorf("fallback pages = %v, want all pages", g.Pages)
	}
}

func TestClassifyWithoutWholeOracleUsesNextStrategy(t *testing.T) {
	batch := &fakeBatchOracle{err: errors.New("oracle down")}
	a := NewAnalyzer(nil, batch, nil, nil, AnalyzerConfig{}, nil, nil)

	// nil whole-document oracle must be skipped cleanly, not panic
	_, _, strategy := a.classify(context.Background(), []byte("not-a-real-pdf"), 2)
	if strategy != "fallback" {
		t.Errorf("strategy = %q, want fallback", strategy)
	}
}

func TestAssemble(t *testing.T) {
	a := NewAnalyzer(nil, &fakeBatchOracle{}, nil, nil, AnalyzerConfig{}, nil, nil)

	bc := oracle.BatchClassification{
		CustomerName: "Tan Ah Kow",
		PageTypes: []oracle.PageType{
			{PageNumber: 1, DocumentType: "Vehicle Sales Agreement", Confidence: 90},
			{PageNumber: 2, DocumentType: "insurance quote", Confidence: 140},
			{PageNumber: 9, DocumentType: "nric", Confidence: 99}, // out of range
		},
		Groups: []oracle.PageGroup{
			{DocumentType: "vsa", Confidence: 90, Pages: []int{1, 7}},
			{DocumentType: "insurance_quote", Confidence: 80, Pages: []int{1, 2}}, // page 1 already claimed
			{DocumentType: "nric", Confidence: 70, Pages: []int{11}},              // fully out of range
		},
	}
	texts := []string{"agreement text", "quote text", ""}
	thumbs := [][]byte{{0x1}, {0x2}, {0x3}}

	res := a.assemble(bc, texts, thumbs, 3)

	if len(res.Pages) != 3 {
		t.Fatalf("got %d pages, want 3", len(res.Pages))
	}
	if res.Pages[0].DocumentType != constants.VSA || res.Pages[0].Confidence != 90 {
		t.Errorf("page 1 = %s/%d", res.Pages[0].DocumentType, res.Pages[0].Confidence)
	}
	if res.Pages[1].DocumentType != constants.InsuranceQuote {
		t.Errorf("page 2 type = %s, synonym not canonicalized", res.Pages[1].DocumentType)
	}
	if res.Pages[1].Confidence != 100 {
		t.Errorf("page 2 confidence = %d, want clamped 100", res.Pages[1].Confidence)
	}
	if res.Pages[2].DocumentType != constants.Other || res.Pages[2].Confidence != 0 {
		t.Errorf("untyped page 3 = %s/%d, want other/0", res.Pages[2].DocumentType, res.Pages[2].Confidence)
	}
	if res.Pages[0].RawText != "agreement text" {
		t.Errorf("page 1 raw text = %q", res.Pages[0].RawText)
	}
	if len(res.Pages[1].Thumbnail) == 0 {
		t.Error("page 2 thumbnail missing")
	}

	// grouping is a partition: page 1 stays with the first group, the
	// fully out-of-range group disappears
	if len(res.Groups) != 2 {
		t.Fatalf("got %d groups, want 2: %+v", len(res.Groups), res.Groups)
	}
	if !reflect.DeepEqual(res.Groups[0].Pages, []int{1}) {
		t.Errorf("group 1 pages = %v, want [1]", res.Groups[0].Pages)
	}
	if !reflect.DeepEqual(res.Groups[1].Pages, []int{2}) {
		t.Errorf("group 2 pages = %v, want [2]", res.Groups[1].Pages)
	}
	if res.CustomerName != "Tan Ah Kow" {
		t.Errorf("customer = %q", res.CustomerName)
	}
}

func TestAnalyzeRejectsEmptySource(t *testing.T) {
	a := NewAnalyzer(nil, &fakeBatchOracle{}, nil, &fakeRenderer{}, AnalyzerConfig{}, nil, nil)
	if _, err := a.Analyze(context.Background(), nil); err == nil {
		t.Error("Analyze(nil) should fail")
	}
	if _, err := a.Analyze(context.Background(), []byte("not a pdf at all")); err == nil {
		t.Error("Analyze on an unreadable source should fail")
	}
}
