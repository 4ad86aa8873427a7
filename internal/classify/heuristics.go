package classify

import (
	"path/filepath"
	"strings"

	"github.com/weiliang-ho/dealerdocs/constants"
)

// filenameRule maps filename keywords to a document type. Rules are checked
// in order; the first match wins, which keeps the strategy deterministic for
// identical filenames.
type filenameRule struct {
	keywords   []string
	docType    constants.DocumentType
	confidence int
}

var filenameRules = []filenameRule{
	{keywords: []string{"loan", "financing", "hire_purchase", "hire-purchase"}, docType: constants.LoanApplication, confidence: 80},
	{keywords: []string{"insurance", "quote", "quotation"}, docType: constants.InsuranceQuote, confidence: 80},
	{keywords: []string{"vsa", "sales_agreement", "sales-agreement", "agreement"}, docType: constants.VSA, confidence: 85},
	{keywords: []string{"statement", "bank"}, docType: constants.BankStatement, confidence: 75},
	{keywords: []string{"cheque", "payment"}, docType: constants.Cheque, confidence: 70},
	{keywords: []string{"logcard", "log_card", "log-card"}, docType: constants.LogCard, confidence: 80},
	{keywords: []string{"handover", "checklist", "delivery"}, docType: constants.HandoverChecklist, confidence: 75},
}

// classifyByFilename matches a spreadsheet filename against the keyword
// table. No external call is made. The second return is false when nothing
// matched.
func classifyByFilename(name string) (constants.DocumentType, int, bool) {
	base := strings.ToLower(filepath.Base(name))
	base = strings.TrimSuffix(base, filepath.Ext(base))

	for _, rule := range filenameRules {
		for _, kw := range rule.keywords {
			if strings.Contains(base, kw) {
				return rule.docType, rule.confidence, true
			}
		}
	}
	return constants.Other, 0, false
}
