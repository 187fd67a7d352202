package workflow

import "strings"

// DocumentType is a compliance document category.
type DocumentType string

// Monthly documents, required for every upload period.
const (
	DocMusterRoll         DocumentType = "Form T Combined Muster Roll cum Register of Wages"
	DocAttendanceRegister DocumentType = "Attendance Register"
	DocOvertimeRegister   DocumentType = "Register of Overtime"
	DocSalarySlips        DocumentType = "Salary Slips"
	DocBankStatement      DocumentType = "Bank Statement for Salary Credit"
	DocPFECR              DocumentType = "PF ECR"
	DocPFChallan          DocumentType = "PF Combined Challan"
	DocESIChallan         DocumentType = "ESI Contribution Challan"
	DocPTChallan          DocumentType = "Professional Tax Challan"
)

// DocLabourWelfareFund is only due with the December upload.
const DocLabourWelfareFund DocumentType = "Labour Welfare Fund"

// One-time documents: uploadable in any single period, never repeated.
const (
	DocShopEstablishment DocumentType = "Shop and Establishment Registration"
	DocPFRegistration    DocumentType = "PF Registration Certificate"
	DocESIRegistration   DocumentType = "ESI Registration Certificate"
	DocPTRegistration    DocumentType = "Professional Tax Registration Certificate"
	DocLabourLicense     DocumentType = "Contract Labour License"
	DocGSTRegistration   DocumentType = "GST Registration Certificate"
	DocPANCard           DocumentType = "Company PAN Card"
)

var (
	monthlyMandatory = []DocumentType{
		DocMusterRoll,
		DocAttendanceRegister,
		DocOvertimeRegister,
		DocSalarySlips,
		DocBankStatement,
		DocPFECR,
		DocPFChallan,
		DocESIChallan,
		DocPTChallan,
	}
	decemberOnly = []DocumentType{DocLabourWelfareFund}
	// Annual returns collected with the January upload. None are currently required.
	januaryAnnual   = []DocumentType{}
	oneTimeOptional = []DocumentType{
		DocShopEstablishment,
		DocPFRegistration,
		DocESIRegistration,
		DocPTRegistration,
		DocLabourLicense,
		DocGSTRegistration,
		DocPANCard,
	}
)

// Months are the accepted upload period codes, in calendar order.
var Months = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// ParseMonth normalizes a 3-letter month code ("jul", "JUL") to its canonical form.
func ParseMonth(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, m := range Months {
		if strings.EqualFold(m, s) {
			return m, true
		}
	}
	return "", false
}

// Requirements is the resolver output for one month.
type Requirements struct {
	Month     string         `json:"month"`
	Mandatory []DocumentType `json:"mandatory"`
	Optional  []DocumentType `json:"optional"`
}

// ResolveMandatory returns the mandatory and optional document types for a month.
// Unknown month codes get the monthly set only.
func ResolveMandatory(month string) Requirements {
	m, _ := ParseMonth(month)

	mandatory := make([]DocumentType, 0, len(monthlyMandatory)+len(decemberOnly))
	mandatory = append(mandatory, monthlyMandatory...)
	switch m {
	case "Dec":
		mandatory = append(mandatory, decemberOnly...)
	case "Jan":
		mandatory = append(mandatory, januaryAnnual...)
	}

	optional := make([]DocumentType, len(oneTimeOptional))
	copy(optional, oneTimeOptional)

	return Requirements{Month: m, Mandatory: mandatory, Optional: optional}
}

// IsMandatory reports whether a document type is required for the month.
func IsMandatory(t DocumentType, month string) bool {
	for _, m := range ResolveMandatory(month).Mandatory {
		if m == t {
			return true
		}
	}
	return false
}

// IsOneTime reports whether t belongs to the one-time optional set.
func IsOneTime(t DocumentType) bool {
	return containsType(oneTimeOptional, t)
}

// IsKnownDocumentType reports whether t is any recognised compliance category.
func IsKnownDocumentType(t DocumentType) bool {
	return containsType(monthlyMandatory, t) ||
		containsType(decemberOnly, t) ||
		containsType(januaryAnnual, t) ||
		containsType(oneTimeOptional, t)
}

// AllDocumentTypes lists every category in resolver order.
func AllDocumentTypes() []DocumentType {
	all := make([]DocumentType, 0, len(monthlyMandatory)+len(decemberOnly)+len(januaryAnnual)+len(oneTimeOptional))
	all = append(all, monthlyMandatory...)
	all = append(all, decemberOnly...)
	all = append(all, januaryAnnual...)
	all = append(all, oneTimeOptional...)
	return all
}

// MissingMandatory returns the mandatory types for month that are absent from present.
func MissingMandatory(month string, present []DocumentType) []DocumentType {
	var missing []DocumentType
	for _, t := range ResolveMandatory(month).Mandatory {
		if !containsType(present, t) {
			missing = append(missing, t)
		}
	}
	return missing
}

func containsType(list []DocumentType, t DocumentType) bool {
	for _, x := range list {
		if x == t {
			return true
		}
	}
	return false
}
