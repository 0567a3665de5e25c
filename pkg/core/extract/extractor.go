// Package extract pulls rental real estate figures out of loosely structured
// registry text using a declarative keyword table.
package extract

import (
	"bufio"
	"encoding/csv"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"rental_valuation/pkg/models"
)

const (
	MessageExtracted    = "賃貸等不動産データを抽出しました。"
	MessageKeywordOnly  = "賃貸等不動産の記載が見つかりましたが、数値の抽出には詳細な解析が必要です。"
	MessageNoDisclosure = "この企業の有価証券報告書には賃貸等不動産の記載がない可能性があります。"
)

// numberPattern finds the first digit run that is not glued to a letter or an
// identifier separator, so "Prior1YearInstant", "第100期", "-000:" namespace
// suffixes and ISO dates never supply a figure. A trailing unit such as 円
// is allowed.
var numberPattern = regexp.MustCompile(`(?:^|[^\p{L}\p{N}_.\-])(\d{1,3}(?:,\d{3})+|\d+)(?:[^A-Za-z0-9_:\-]|$)`)

// Extractor applies a rule table line by line.
type Extractor struct {
	rules     []Rule
	nameRules []NameRule
}

// New returns an extractor using DefaultRules.
func New() *Extractor {
	return NewWithRules(DefaultRules)
}

// NewWithRules allows new disclosure vocabularies without touching control flow.
func NewWithRules(rules []Rule) *Extractor {
	return &Extractor{rules: rules, nameRules: DefaultNameRules}
}

// ExtractBytes decodes a raw payload and extracts from it.
func (e *Extractor) ExtractBytes(b []byte) models.Extraction {
	return e.Extract(DecodeText(b))
}

// Extract scans text and returns the first figure found per field. Finding
// nothing is not an error: RawDataAvailable is false and Message explains.
func (e *Extractor) Extract(text string) models.Extraction {
	values := make(map[Field]int64)
	var companyName string
	keywordFound := false

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		raw := normalizeLine(sc.Text())
		line := strings.ToLower(raw)

		if companyName == "" {
			companyName = e.companyName(raw, line)
		}

		for _, rule := range e.rules {
			if !rule.inDomain(line) {
				continue
			}
			keywordFound = true
			if !rule.classifies(line) {
				continue
			}
			if _, seen := values[rule.Field]; !seen {
				if v, ok := firstNumber(line); ok {
					divisor := rule.Divisor
					if divisor <= 0 {
						divisor = 1
					}
					values[rule.Field] = v / divisor
				}
			}
			// The first classifying rule owns the line.
			break
		}
	}

	out := models.Extraction{
		Properties:   []models.PropertyRecord{},
		CompanyName:  companyName,
		KeywordFound: keywordFound,
	}
	if v, ok := values[FieldBookValue]; ok {
		out.BookValue = decimal.NewNullDecimal(decimal.NewFromInt(v))
	}
	if v, ok := values[FieldMarketValue]; ok {
		out.MarketValue = decimal.NewNullDecimal(decimal.NewFromInt(v))
	}
	if out.BookValue.Valid && out.MarketValue.Valid {
		out.UnrealizedGain = decimal.NewNullDecimal(out.MarketValue.Decimal.Sub(out.BookValue.Decimal))
	}

	out.RawDataAvailable = out.BookValue.Valid || out.MarketValue.Valid
	switch {
	case out.RawDataAvailable:
		out.Message = MessageExtracted
	case keywordFound:
		out.Message = MessageKeywordOnly
	default:
		out.Message = MessageNoDisclosure
	}
	return out
}

// firstNumber returns the first separator-stripped integer on the line.
// Literals that overflow int64 are discarded.
func firstNumber(line string) (int64, bool) {
	m := numberPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// companyName applies the first matching name rule. A value that is itself
// a label, such as a header row, is ignored.
func (e *Extractor) companyName(raw, line string) string {
	if !strings.Contains(raw, ",") && !strings.Contains(raw, "\t") {
		return ""
	}
	fields := splitFields(raw)
	for _, r := range e.nameRules {
		if !r.matches(line, fields) {
			continue
		}
		name := r.value(fields)
		if name == "" || containsAny(strings.ToLower(name), CompanyNameLabels) {
			return ""
		}
		return name
	}
	return ""
}

func splitFields(row string) []string {
	r := csv.NewReader(strings.NewReader(row))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	if strings.Contains(row, "\t") {
		r.Comma = '\t'
	}
	fields, err := r.Read()
	if err != nil {
		sep := ","
		if strings.Contains(row, "\t") {
			sep = "\t"
		}
		return strings.Split(row, sep)
	}
	return fields
}

func containsAll(s string, keywords []string) bool {
	for _, k := range keywords {
		if !strings.Contains(s, k) {
			return false
		}
	}
	return len(keywords) > 0
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
