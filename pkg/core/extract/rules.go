package extract

import "strings"

// Field is the FinancialRecord figure a rule fills.
type Field int

const (
	FieldBookValue Field = iota
	FieldMarketValue
)

func (f Field) String() string {
	switch f {
	case FieldBookValue:
		return "bookValue"
	case FieldMarketValue:
		return "marketValue"
	}
	return "unknown"
}

// YenPerMillion converts raw yen into the pipeline's unit.
const YenPerMillion = 1_000_000

// Rule is one row of the extraction table. A line is a candidate when every
// keyword of at least one Domain group occurs in it; it is assigned to Field
// when it also contains one of the Classifier keywords. Keywords are matched
// against the NFKC-normalised, lower-cased line.
type Rule struct {
	Field      Field
	Domain     [][]string
	Classifier []string
	Divisor    int64
}

// RentalRealEstateDomain covers the J-GAAP note (賃貸等不動産), the IFRS note
// (投資不動産) and the XBRL element names used in EDINET CSVs.
var RentalRealEstateDomain = [][]string{
	{"賃貸等不動産"},
	{"投資不動産"},
	{"rentalrealestate"},
	{"investmentproperty"},
	{"rental", "real", "estate"},
	{"investment", "property"},
}

// DefaultRules is evaluated in order; the first matching rule owns the line.
var DefaultRules = []Rule{
	{
		Field:      FieldBookValue,
		Domain:     RentalRealEstateDomain,
		Classifier: []string{"帳簿", "貸借対照表計上額", "book", "carrying"},
		Divisor:    YenPerMillion,
	},
	{
		Field:      FieldMarketValue,
		Domain:     RentalRealEstateDomain,
		Classifier: []string{"時価", "公正価値", "fair", "market"},
		Divisor:    YenPerMillion,
	},
}

// CompanyNameLabels mark the row carrying the filer name.
var CompanyNameLabels = []string{"提出者名", "会社名", "filer name", "company name"}

// NameRule locates the filer name on a row. A rule with ElementIDs matches
// when the first field is one of them; otherwise it matches when the row
// contains one of Labels. Column is zero-based and counts from the end when
// negative.
type NameRule struct {
	ElementIDs []string
	Labels     []string
	Column     int
}

// DefaultNameRules is evaluated in order. EDINET CSV rows carry the value in
// the final column; a plain "label,value" row carries it in the second.
var DefaultNameRules = []NameRule{
	{
		ElementIDs: []string{"jpdei_cor:filernameinjapanesedei", "jpcrp_cor:companynamecoverpage"},
		Column:     -1,
	},
	{
		Labels: CompanyNameLabels,
		Column: 1,
	},
}

func (r NameRule) matches(line string, fields []string) bool {
	if len(r.ElementIDs) > 0 {
		if len(fields) == 0 {
			return false
		}
		id := strings.ToLower(strings.TrimSpace(fields[0]))
		for _, e := range r.ElementIDs {
			if id == e {
				return true
			}
		}
		return false
	}
	return containsAny(line, r.Labels)
}

func (r NameRule) value(fields []string) string {
	i := r.Column
	if i < 0 {
		i = len(fields) + i
	}
	if i < 0 || i >= len(fields) {
		return ""
	}
	return strings.Trim(strings.TrimSpace(fields[i]), `"'`)
}

func (r Rule) inDomain(line string) bool {
	for _, group := range r.Domain {
		if containsAll(line, group) {
			return true
		}
	}
	return false
}

func (r Rule) classifies(line string) bool {
	return containsAny(line, r.Classifier)
}
