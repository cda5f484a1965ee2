package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	OriginBankStatement  = "bank_statement"
	OriginPayrollReceipt = "payroll_receipt"
	OriginReceipt        = "receipt"
)

// IncomeSignal holds what one income proof says about money and period.
type IncomeSignal struct {
	Amount          *float64          `json:"amount,omitempty"`
	PeriodMonthYear *string           `json:"period,omitempty"`
	OriginHint      *string           `json:"origin,omitempty"`
	Strategies      map[string]string `json:"strategies,omitempty"`
}

var incomeLabels = []string{
	"DEPOSITO", "ABONO", "NOMINA", "SUELDO", "SALARIO", "INGRESO", "PERCEPCION",
	"NETO A PAGAR", "NETO PAGADO", "TOTAL NETO",
}

var (
	amountRe       = regexp.MustCompile(`\d{1,3}(?:,\d{3})+(?:\.\d{2})?|\d+\.\d{2}`)
	markedAmountRe = regexp.MustCompile(`(?:\$|MXN|M\.N\.)\s*(\d[\d,]*(?:\.\d{2})?)`)
)

var amountStrategies = []Strategy[float64]{
	{Name: "labeled-max", Run: func(t Text) (float64, bool) {
		best, found := 0.0, false
		for _, l := range t.Lines {
			if !containsAny(l, incomeLabels) {
				continue
			}
			for _, m := range amountRe.FindAllString(l, -1) {
				if v, ok := parseAmount(m); ok && v > best {
					best, found = v, true
				}
			}
		}
		return best, found
	}},
	{Name: "currency-marker-max", Run: func(t Text) (float64, bool) {
		best, found := 0.0, false
		for _, m := range markedAmountRe.FindAllStringSubmatch(t.Joined(), -1) {
			if v, ok := parseAmount(m[1]); ok && v > best {
				best, found = v, true
			}
		}
		return best, found
	}},
}

func parseAmount(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

var monthNames = map[string]int{
	"ENERO": 1, "FEBRERO": 2, "MARZO": 3, "ABRIL": 4, "MAYO": 5, "JUNIO": 6, "JULIO": 7,
	"AGOSTO": 8, "SEPTIEMBRE": 9, "SETIEMBRE": 9, "OCTUBRE": 10, "NOVIEMBRE": 11, "DICIEMBRE": 12,
}

var monthAbbrevs = map[string]int{
	"ENE": 1, "FEB": 2, "MAR": 3, "ABR": 4, "MAY": 5, "JUN": 6, "JUL": 7, "AGO": 8,
	"SEP": 9, "SEPT": 9, "OCT": 10, "NOV": 11, "DIC": 12,
}

var (
	monthNameRe = regexp.MustCompile(`\b(ENERO|FEBRERO|MARZO|ABRIL|MAYO|JUNIO|JULIO|AGOSTO|SEPTIEMBRE|SETIEMBRE|OCTUBRE|NOVIEMBRE|DICIEMBRE)\s+(?:DE\s+|DEL\s+)?(\d{4})\b`)
	monthYearRe = regexp.MustCompile(`(?:^|[^\d/])(0?[1-9]|1[0-2])/(\d{4})\b`)
	dayMonthRe  = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4})\b`)
	isoDateRe   = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})`)
	abbrevRe    = regexp.MustCompile(`\b(ENE|FEB|MAR|ABR|MAY|JUN|JUL|AGO|SEPT|SEP|OCT|NOV|DIC)[\s./-]*(\d{4}|\d{2})\b`)
)

type monthYear struct {
	month, year int
}

func (m monthYear) ord() int { return m.year*12 + m.month }

func (m monthYear) String() string { return fmt.Sprintf("%02d-%04d", m.month, m.year) }

func validMonthYear(month, year int) bool {
	return month >= 1 && month <= 12 && year >= 2000 && year <= 2100
}

// dateFamily collects every date of one printed form.
type dateFamily struct {
	name    string
	collect func(string) []monthYear
}

var dateFamilies = []dateFamily{
	{"month-name", func(s string) []monthYear {
		var out []monthYear
		for _, m := range monthNameRe.FindAllStringSubmatch(s, -1) {
			y, _ := strconv.Atoi(m[2])
			out = append(out, monthYear{monthNames[m[1]], y})
		}
		return out
	}},
	{"mm/yyyy", func(s string) []monthYear {
		var out []monthYear
		for _, m := range monthYearRe.FindAllStringSubmatch(s, -1) {
			mo, _ := strconv.Atoi(m[1])
			y, _ := strconv.Atoi(m[2])
			out = append(out, monthYear{mo, y})
		}
		return out
	}},
	{"dd/mm/yyyy", func(s string) []monthYear {
		var out []monthYear
		for _, m := range dayMonthRe.FindAllStringSubmatch(s, -1) {
			d, _ := strconv.Atoi(m[1])
			mo, _ := strconv.Atoi(m[2])
			y, _ := strconv.Atoi(m[3])
			if d >= 1 && d <= 31 {
				out = append(out, monthYear{mo, y})
			}
		}
		return out
	}},
	{"yyyy-mm-dd", func(s string) []monthYear {
		var out []monthYear
		for _, m := range isoDateRe.FindAllStringSubmatch(s, -1) {
			y, _ := strconv.Atoi(m[1])
			mo, _ := strconv.Atoi(m[2])
			out = append(out, monthYear{mo, y})
		}
		return out
	}},
	{"month-abbrev", func(s string) []monthYear {
		var out []monthYear
		for _, m := range abbrevRe.FindAllStringSubmatch(s, -1) {
			y, _ := strconv.Atoi(m[2])
			if len(m[2]) == 2 {
				y += 2000
			}
			out = append(out, monthYear{monthAbbrevs[m[1]], y})
		}
		return out
	}},
}

// latestPeriod returns the most recent valid month/year across all families.
// Ties keep the family listed first.
func latestPeriod(t Text) (monthYear, string, bool) {
	text := t.Joined()
	var best monthYear
	family, found := "", false
	for _, f := range dateFamilies {
		for _, c := range f.collect(text) {
			if !validMonthYear(c.month, c.year) {
				continue
			}
			if !found || c.ord() > best.ord() {
				best, family, found = c, f.name, true
			}
		}
	}
	return best, family, found
}

var originStrategies = []Strategy[string]{
	{Name: "statement", Run: func(t Text) (string, bool) {
		return OriginBankStatement, strings.Contains(t.Joined(), "ESTADO DE CUENTA")
	}},
	{Name: "payroll", Run: func(t Text) (string, bool) {
		return OriginPayrollReceipt, containsAny(t.Joined(), []string{"RECIBO DE NOMINA", "NOMINA", "CFDI", "PERCEPCIONES", "SUELDO"})
	}},
	{Name: "bank", Run: func(t Text) (string, bool) {
		return OriginBankStatement, containsAny(t.Joined(), []string{"BBVA", "BANORTE", "SANTANDER", "BANAMEX", "HSBC", "SCOTIABANK", "BANCO", "CLABE"})
	}},
	{Name: "receipt", Run: func(t Text) (string, bool) {
		return OriginReceipt, containsAny(t.Joined(), []string{"RECIBO", "COMPROBANTE", "HONORARIOS"})
	}},
}

// ParseIncome reads amount, period and origin from normalized text.
func ParseIncome(t Text) IncomeSignal {
	out := IncomeSignal{Strategies: map[string]string{}}
	if v, name, ok := firstMatch(t, amountStrategies); ok {
		out.Amount = &v
		out.Strategies["amount"] = name
	}
	if p, family, ok := latestPeriod(t); ok {
		s := p.String()
		out.PeriodMonthYear = &s
		out.Strategies["period"] = family
	}
	if v, name, ok := firstMatch(t, originStrategies); ok {
		out.OriginHint = &v
		out.Strategies["origin"] = name
	}
	if len(out.Strategies) == 0 {
		out.Strategies = nil
	}
	return out
}
