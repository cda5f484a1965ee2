package parser

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	SourceLabeled   = "labeled"
	SourceHeuristic = "heuristic"
)

// Validity is the year range printed on an ID. From is zero when only the
// end year is present.
type Validity struct {
	From  int `json:"from,omitempty"`
	Until int `json:"until"`
}

// ParsedIdentity holds fields read from an identity document. Nil means the
// field was not found.
type ParsedIdentity struct {
	CURPLike        *string           `json:"curp,omitempty"`
	CertificateCode *string           `json:"certificateCode,omitempty"`
	ValidityYears   *Validity         `json:"validity,omitempty"`
	GivenNames      *string           `json:"givenNames,omitempty"`
	PaternalSurname *string           `json:"paternalSurname,omitempty"`
	MaternalSurname *string           `json:"maternalSurname,omitempty"`
	Source          string            `json:"source,omitempty"`
	Strategies      map[string]string `json:"strategies,omitempty"`
}

// HasAny reports whether at least one field was parsed.
func (p ParsedIdentity) HasAny() bool {
	return p.CURPLike != nil || p.CertificateCode != nil || p.ValidityYears != nil ||
		p.GivenNames != nil || p.PaternalSurname != nil || p.MaternalSurname != nil
}

var (
	curpRe     = regexp.MustCompile(`[A-Z]{4}\d{6}[HMX][A-Z]{2}[B-DF-HJ-NP-TV-Z]{3}[A-Z0-9]\d`)
	validityRe = regexp.MustCompile(`VIGENCIA\s*:?\s*(\d{4})(?:\s*[-/]\s*(\d{4}))?`)
	yearPairRe = regexp.MustCompile(`^(\d{4})(?:\s*[-/]\s*(\d{4}))?$`)
)

// certificatePrefixes are tried in priority order.
var certificatePrefixes = []string{"CIC", "IDMEX", "OCR", "NUMERO DE CERTIFICADO", "FOLIO"}

var certificateRes = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(certificatePrefixes))
	for i, p := range certificatePrefixes {
		out[i] = regexp.MustCompile(regexp.QuoteMeta(p) + `\s*[:#.]?\s*(\d{9,13})\b`)
	}
	return out
}()

var (
	paternalLabels = []string{"APELLIDO PATERNO", "PRIMER APELLIDO", "PATERNO"}
	maternalLabels = []string{"APELLIDO MATERNO", "SEGUNDO APELLIDO", "MATERNO"}
	givenLabels    = []string{"NOMBRE(S)", "NOMBRES", "NOMBRE DE PILA", "GIVEN NAMES"}
	allNameLabels  = append(append(append([]string{}, paternalLabels...), maternalLabels...), givenLabels...)
)

// nameNoise is dropped by the heuristic before tokenizing.
var nameNoise = map[string]bool{
	"NOMBRE": true, "SEXO": true, "H": true, "M": true, "FECHA": true, "NACIMIENTO": true,
	"INSTITUTO": true, "NACIONAL": true, "ELECTORAL": true, "MEXICO": true, "ESTADOS": true,
	"UNIDOS": true, "MEXICANOS": true, "CLAVE": true, "ELECTOR": true, "CURP": true,
}

// nameStop ends the heuristic name block. Voter cards print these labels after
// the names, and DOMICILIO is often missing from the OCR.
var nameStop = map[string]bool{
	"DOMICILIO": true, "VIGENCIA": true, "SECCION": true, "EMISION": true, "REGISTRO": true,
	"ESTADO": true, "MUNICIPIO": true, "LOCALIDAD": true, "CLAVE": true, "CURP": true,
}

var nameNoisePhrases = []string{"FECHA DE NACIMIENTO", "CREDENCIAL PARA VOTAR", "CLAVE DE ELECTOR"}

var curpStrategies = []Strategy[string]{
	{Name: "labeled-line", Run: func(t Text) (string, bool) {
		for _, l := range t.Lines {
			if strings.Contains(l, "CURP") {
				if m := curpRe.FindString(strings.ReplaceAll(l, " ", "")); m != "" {
					return m, true
				}
			}
		}
		return "", false
	}},
	{Name: "form", Run: func(t Text) (string, bool) {
		for _, p := range t.Forms {
			if m := curpRe.FindString(strings.ReplaceAll(p.Value, " ", "")); m != "" {
				return m, true
			}
		}
		return "", false
	}},
	{Name: "anywhere", Run: func(t Text) (string, bool) {
		m := curpRe.FindString(t.Joined())
		return m, m != ""
	}},
}

var certificateStrategies = func() []Strategy[string] {
	out := make([]Strategy[string], len(certificatePrefixes))
	for i := range certificatePrefixes {
		re := certificateRes[i]
		out[i] = Strategy[string]{Name: "label:" + certificatePrefixes[i], Run: func(t Text) (string, bool) {
			for _, l := range t.Lines {
				if m := re.FindStringSubmatch(l); m != nil {
					return m[1], true
				}
			}
			for _, p := range t.Forms {
				if m := re.FindStringSubmatch(p.Key + " " + p.Value); m != nil {
					return m[1], true
				}
			}
			return "", false
		}}
	}
	return out
}()

var validityStrategies = []Strategy[Validity]{
	{Name: "labeled-line", Run: func(t Text) (Validity, bool) {
		for _, l := range t.Lines {
			if m := validityRe.FindStringSubmatch(l); m != nil {
				return validityFrom(m[1], m[2])
			}
		}
		return Validity{}, false
	}},
	{Name: "form", Run: func(t Text) (Validity, bool) {
		for _, p := range t.Forms {
			if !strings.Contains(p.Key, "VIGENCIA") {
				continue
			}
			if m := yearPairRe.FindStringSubmatch(p.Value); m != nil {
				return validityFrom(m[1], m[2])
			}
		}
		return Validity{}, false
	}},
}

func validityFrom(a, b string) (Validity, bool) {
	first, err := strconv.Atoi(a)
	if err != nil {
		return Validity{}, false
	}
	if b == "" {
		return Validity{Until: first}, true
	}
	second, err := strconv.Atoi(b)
	if err != nil || second < first {
		return Validity{}, false
	}
	return Validity{From: first, Until: second}, true
}

// nameStrategies builds the labeled strategies for one name field.
func nameStrategies(labels []string) []Strategy[string] {
	return []Strategy[string]{
		{Name: "form", Run: func(t Text) (string, bool) {
			for _, label := range labels {
				for _, p := range t.Forms {
					if strings.Contains(p.Key, label) {
						if v, ok := cleanName(p.Value); ok {
							return v, true
						}
					}
				}
			}
			return "", false
		}},
		{Name: "inline-label", Run: func(t Text) (string, bool) {
			for _, label := range labels {
				for _, l := range t.Lines {
					idx := strings.Index(l, label)
					if idx < 0 {
						continue
					}
					rest := strings.TrimLeft(l[idx+len(label):], " :")
					if v, ok := cleanName(rest); ok {
						return v, true
					}
				}
			}
			return "", false
		}},
		{Name: "next-line", Run: func(t Text) (string, bool) {
			for _, label := range labels {
				for i, l := range t.Lines {
					if !strings.Contains(l, label) || i+1 >= len(t.Lines) {
						continue
					}
					next := t.Lines[i+1]
					if containsAny(next, allNameLabels) {
						continue
					}
					if v, ok := cleanName(next); ok {
						return v, true
					}
				}
			}
			return "", false
		}},
	}
}

var (
	paternalStrategies = nameStrategies(paternalLabels)
	maternalStrategies = nameStrategies(maternalLabels)
	givenStrategies    = nameStrategies(givenLabels)
)

// cleanName accepts values made only of letters and spaces.
func cleanName(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, r := range s {
		if r != ' ' && (r < 'A' || r > 'Z') {
			return "", false
		}
	}
	return s, true
}

// ParseIdentity reads identity fields from normalized text.
func ParseIdentity(t Text) ParsedIdentity {
	out := ParsedIdentity{Strategies: map[string]string{}}

	if v, name, ok := firstMatch(t, curpStrategies); ok {
		out.CURPLike = &v
		out.Strategies["curp"] = name
	}
	if v, name, ok := firstMatch(t, certificateStrategies); ok {
		out.CertificateCode = &v
		out.Strategies["certificateCode"] = name
	}
	if v, name, ok := firstMatch(t, validityStrategies); ok {
		out.ValidityYears = &v
		out.Strategies["validity"] = name
	}

	fields := []struct {
		key        string
		strategies []Strategy[string]
		dst        **string
	}{
		{"paternalSurname", paternalStrategies, &out.PaternalSurname},
		{"maternalSurname", maternalStrategies, &out.MaternalSurname},
		{"givenNames", givenStrategies, &out.GivenNames},
	}
	for _, f := range fields {
		if v, name, ok := firstMatch(t, f.strategies); ok {
			*f.dst = &v
			out.Strategies[f.key] = name
			out.Source = SourceLabeled
		}
	}

	if out.Source == "" && hasCombinedNameLabel(t) {
		paternal, maternal, given, ok := heuristicNames(t)
		out.Source = SourceHeuristic
		if ok {
			out.PaternalSurname, out.MaternalSurname, out.GivenNames = &paternal, &maternal, &given
			out.Strategies["paternalSurname"] = "combined-nombre"
			out.Strategies["maternalSurname"] = "combined-nombre"
			out.Strategies["givenNames"] = "combined-nombre"
		}
	}
	if len(out.Strategies) == 0 {
		out.Strategies = nil
	}
	return out
}

func hasCombinedNameLabel(t Text) bool {
	for _, l := range t.Lines {
		if isCombinedLabel(l) {
			return true
		}
	}
	for _, p := range t.Forms {
		if isCombinedLabel(p.Key) {
			return true
		}
	}
	return false
}

func isCombinedLabel(s string) bool {
	for _, tok := range strings.Fields(s) {
		if tok == "NOMBRE" {
			return true
		}
	}
	return false
}

// heuristicNames reads the block that follows a bare NOMBRE label, as printed
// on voter cards: paternal surname, maternal surname, then given names.
func heuristicNames(t Text) (paternal, maternal, given string, ok bool) {
	var block []string
	collecting := false
	for _, l := range t.Lines {
		if !collecting {
			if isCombinedLabel(l) {
				collecting = true
				block = append(block, l)
			}
			continue
		}
		block = append(block, l)
	}
	if !collecting {
		for _, p := range t.Forms {
			if isCombinedLabel(p.Key) {
				block = append(block, p.Value)
				break
			}
		}
	}

	text := strings.Join(block, " ")
	if idx := strings.Index(text, "DOMICILIO"); idx >= 0 {
		text = text[:idx]
	}
	for _, phrase := range nameNoisePhrases {
		text = strings.ReplaceAll(text, phrase, " ")
	}
	var tokens []string
	for _, tok := range strings.Fields(text) {
		if nameStop[tok] {
			break
		}
		if nameNoise[tok] || strings.ContainsAny(tok, "0123456789") {
			continue
		}
		if _, ok := cleanName(tok); !ok {
			continue
		}
		tokens = append(tokens, tok)
	}
	if len(tokens) < 3 {
		return "", "", "", false
	}
	return tokens[0], tokens[1], strings.Join(tokens[2:], " "), true
}
