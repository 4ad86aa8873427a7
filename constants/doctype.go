package constants

import (
	"strings"
)

// DocumentType is the canonical label for a classified business document.
type DocumentType string

const (
	NRIC              DocumentType = "nric"
	VSA               DocumentType = "vsa" // vehicle sales agreement
	InsuranceQuote    DocumentType = "insurance_quote"
	LoanApplication   DocumentType = "loan_application"
	LogCard           DocumentType = "log_card"
	HandoverChecklist DocumentType = "handover_checklist"
	Cheque            DocumentType = "cheque"
	BankStatement     DocumentType = "bank_statement"
	Other             DocumentType = "other"
)

// TypeMeta carries the filing metadata derived from a document type.
type TypeMeta struct {
	Label     string
	Folder    string
	Milestone string
}

// typeTable is the closed taxonomy. Built once, read-only afterwards.
var typeTable = map[DocumentType]TypeMeta{
	NRIC:              {Label: "NRIC / Identity Document", Folder: "identity", Milestone: "customer_onboarding"},
	VSA:               {Label: "Vehicle Sales Agreement", Folder: "agreements", Milestone: "deal_signed"},
	InsuranceQuote:    {Label: "Insurance Quote", Folder: "insurance", Milestone: "insurance_arranged"},
	LoanApplication:   {Label: "Loan Application", Folder: "financing", Milestone: "loan_submitted"},
	LogCard:           {Label: "Vehicle Log Card", Folder: "vehicle", Milestone: "vehicle_registered"},
	HandoverChecklist: {Label: "Handover Checklist", Folder: "delivery", Milestone: "vehicle_delivered"},
	Cheque:            {Label: "Cheque", Folder: "payments", Milestone: "payment_received"},
	BankStatement:     {Label: "Bank Statement", Folder: "financing", Milestone: "loan_submitted"},
	Other:             {Label: "Unclassified", Folder: "review", Milestone: ""},
}

var allTypes = []DocumentType{
	NRIC,
	VSA,
	InsuranceQuote,
	LoanApplication,
	LogCard,
	HandoverChecklist,
	Cheque,
	BankStatement,
	Other,
}

// AsStringSlice returns the taxonomy as plain strings, for prompt enums.
func AsStringSlice() []string {
	result := make([]string, len(allTypes))
	for i, dt := range allTypes {
		result[i] = string(dt)
	}
	return result
}

// Lookup resolves filing metadata for a type. Unknown types resolve to Other.
func Lookup(dt DocumentType) TypeMeta {
	if meta, ok := typeTable[dt]; ok {
		return meta
	}
	return typeTable[Other]
}

// IsKnown reports whether dt is a member of the closed taxonomy.
func IsKnown(dt DocumentType) bool {
	_, ok := typeTable[dt]
	return ok
}

// Canonicalize maps a free-form label from the oracle onto the closed set.
// The second return is false when the label had to fall back to Other.
func Canonicalize(input string) (DocumentType, bool) {
	if input == "" {
		return Other, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")

	// synonyms map
	synonyms := map[string]DocumentType{
		"identity_card":            NRIC,
		"ic":                       NRIC,
		"identification":           NRIC,
		"passport":                 NRIC,
		"vehicle_sales_agreement":  VSA,
		"sales_agreement":          VSA,
		"purchase_agreement":       VSA,
		"insurance":                InsuranceQuote,
		"insurance_quotation":      InsuranceQuote,
		"motor_insurance":          InsuranceQuote,
		"loan":                     LoanApplication,
		"hire_purchase":            LoanApplication,
		"financing_application":    LoanApplication,
		"vehicle_log_card":         LogCard,
		"logcard":                  LogCard,
		"delivery_checklist":       HandoverChecklist,
		"handover":                 HandoverChecklist,
		"check":                    Cheque,
		"cashier_order":            Cheque,
		"statement":                BankStatement,
		"account_statement":        BankStatement,
		"unknown":                  Other,
		"unclassified":             Other,
		"miscellaneous":            Other,
	}

	if dt, ok := synonyms[normalized]; ok {
		return dt, dt != Other
	}

	for _, dt := range allTypes {
		if normalized == string(dt) {
			return dt, true
		}
	}

	return Other, false
}
