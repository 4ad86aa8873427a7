package classify

import (
	"testing"

	"github.com/weiliang-ho/dealerdocs/constants"
)

func TestClassifyByFilename(t *testing.T) {
	tests := []struct {
		name       string
		file       string
		want       constants.DocumentType
		confidence int
		matched    bool
	}{
		{name: "loan keyword", file: "car_loan_application.xlsx", want: constants.LoanApplication, confidence: 80, matched: true},
		{name: "hire purchase", file: "Hire-Purchase Summary.xlsx", want: constants.LoanApplication, confidence: 80, matched: true},
		{name: "insurance", file: "INSURANCE_quote_2026.csv", want: constants.InsuranceQuote, confidence: 80, matched: true},
		{name: "agreement", file: "vsa_signed.xlsx", want: constants.VSA, confidence: 85, matched: true},
		{name: "bank statement", file: "ocbc_statement_jan.xlsx", want: constants.BankStatement, confidence: 75, matched: true},
		{name: "cheque", file: "payment-record.csv", want: constants.Cheque, confidence: 70, matched: true},
		{name: "handover", file: "delivery list.xlsx", want: constants.HandoverChecklist, confidence: 75, matched: true},
		{name: "no match", file: "workbook1.xlsx", want: constants.Other, confidence: 0, matched: false},
		{name: "path is ignored", file: "/deals/2026/loan/workbook1.xlsx", want: constants.Other, confidence: 0, matched: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, conf, matched := classifyByFilename(tt.file)
			if got != tt.want || conf != tt.confidence || matched != tt.matched {
				t.Errorf("classifyByFilename(%q) = (%q, %d, %v), want (%q, %d, %v)",
					tt.file, got, conf, matched, tt.want, tt.confidence, tt.matched)
			}
		})
	}
}

func TestClassifyByFilenameIsDeterministic(t *testing.T) {
	// "loan_statement" matches both the loan and the statement rule; the
	// first rule in the table must always win.
	first, conf, _ := classifyByFilename("loan_statement.xlsx")
	for i := 0; i < 50; i++ {
		got, c, _ := classifyByFilename("loan_statement.xlsx")
		if got != first || c != conf {
			t.Fatalf("run %d returned (%q, %d), first run returned (%q, %d)", i, got, c, first, conf)
		}
	}
	if first != constants.LoanApplication {
		t.Errorf("ambiguous name resolved to %q, want first-rule winner loan_application", first)
	}
}
