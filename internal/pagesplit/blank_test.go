package pagesplit

import (
	"reflect"
	"testing"

	"github.com/weiliang-ho/dealerdocs/constants"
	"github.com/weiliang-ho/dealerdocs/internal/entity"
)

func TestIsBlankPage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "empty", text: "", want: true},
		{name: "whitespace only", text: "   \n\t  ", want: true},
		{name: "below threshold", text: "page 3", want: true},
		{name: "marker token", text: "  [BLANK]  ", want: true},
		{name: "intentionally blank", text: "This page is intentionally blank for duplex printing.", want: true},
		{name: "intentionally left blank", text: "THIS PAGE IS INTENTIONALLY LEFT BLANK", want: true},
		{name: "real content", text: "VEHICLE SALES AGREEMENT entered into on 12 Jan 2026", want: false},
		{name: "exactly at threshold", text: "12345678901234567890", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBlankPage(tt.text, DefaultBlankThreshold); got != tt.want {
				t.Errorf("IsBlankPage(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestIsBlankPageCustomThreshold(t *testing.T) {
	if IsBlankPage("hi", 3) != true {
		t.Error("2 chars under threshold 3 should be blank")
	}
	if IsBlankPage("hello", 3) != false {
		t.Error("5 chars over threshold 3 should not be blank")
	}
	// non-positive threshold falls back to the default
	if IsBlankPage("short", 0) != true {
		t.Error("threshold 0 should use the default threshold")
	}
}

func TestFilterBlankPages(t *testing.T) {
	longText := "VEHICLE SALES AGREEMENT between the dealer and the customer"

	tests := []struct {
		name      string
		groups    []entity.SplitDocument
		pageTexts []string
		want      [][]int
	}{
		{
			name: "blank page removed mid group",
			groups: []entity.SplitDocument{
				{DocumentType: constants.VSA, Pages: []int{1, 2, 3}},
			},
			pageTexts: []string{longText, "[blank]", longText},
			want:      [][]int{{1, 3}},
		},
		{
			name: "group emptied by filtering is dropped",
			groups: []entity.SplitDocument{
				{DocumentType: constants.VSA, Pages: []int{1}},
				{DocumentType: constants.Other, Pages: []int{2, 3}},
			},
			pageTexts: []string{longText, "", "   "},
			want:      [][]int{{1}},
		},
		{
			name: "all blank yields no groups",
			groups: []entity.SplitDocument{
				{DocumentType: constants.Other, Pages: []int{1, 2}},
			},
			pageTexts: []string{"", "[empty page]"},
			want:      [][]int{},
		},
		{
			name: "pages beyond text range are kept",
			groups: []entity.SplitDocument{
				{DocumentType: constants.LogCard, Pages: []int{1, 5}},
			},
			pageTexts: []string{longText},
			want:      [][]int{{1, 5}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterBlankPages(tt.groups, tt.pageTexts, DefaultBlankThreshold)
			pages := make([][]int, 0, len(got))
			for _, g := range got {
				pages = append(pages, g.Pages)
			}
			if !reflect.DeepEqual(pages, tt.want) {
				t.Errorf("retained pages = %v, want %v", pages, tt.want)
			}
		})
	}
}

func TestFilterBlankPagesIsIdempotentAndPure(t *testing.T) {
	longText := "LOAN APPLICATION FORM with enough text to pass the threshold"
	groups := []entity.SplitDocument{
		{DocumentType: constants.LoanApplication, Pages: []int{1, 2, 3}},
	}
	texts := []string{longText, "[blank]", longText}

	once := FilterBlankPages(groups, texts, DefaultBlankThreshold)
	twice := FilterBlankPages(once, texts, DefaultBlankThreshold)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("second pass changed output: %v vs %v", once, twice)
	}

	if !reflect.DeepEqual(groups[0].Pages, []int{1, 2, 3}) {
		t.Errorf("input groups were mutated: %v", groups[0].Pages)
	}
}
