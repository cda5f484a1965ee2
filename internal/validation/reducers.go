package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"tenant-validation/internal/documents"
	"tenant-validation/internal/face"
	"tenant-validation/internal/ocr"
	"tenant-validation/internal/parser"
)

// MinIncomeProofs is how many distinct recent months income needs.
const MinIncomeProofs = 3

// IncomeWindowMonths is how far back, counting the evaluation month, a proof
// period still counts.
const IncomeWindowMonths = 6

// LowSalaryRatio flags proofs whose average amount falls below this share of
// the declared monthly income.
const LowSalaryRatio = 0.8

// Reducer turns a stored payload into a verdict and summary. Reducers are
// pure: same payload, same answer.
type Reducer func(payload json.RawMessage) (Verdict, string, error)

var reducers = map[Category]Reducer{
	CategoryFiles:           reduceFiles,
	CategoryIdentity:        reduceIdentity,
	CategoryFace:            reduceFace,
	CategoryDocuments:       reduceDocuments,
	CategoryIncome:          reduceIncome,
	CategoryDeposit:         reduceDeposit,
	CategoryLegalSearch:     reduceLegalSearch,
	CategoryExternalIDCheck: reduceExternalIDCheck,
}

// Reduce runs the reducer registered for c.
func Reduce(c Category, payload json.RawMessage) (Verdict, string, error) {
	r, ok := reducers[c]
	if !ok {
		return VerdictFail, "", fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
	return r(payload)
}

func decode(payload json.RawMessage, dst any) error {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

func reduceFiles(raw json.RawMessage) (Verdict, string, error) {
	var p FilesPayload
	if err := decode(raw, &p); err != nil {
		return VerdictFail, "", err
	}
	var selfie, identity bool
	income, known := 0, 0
	for _, d := range p.Documents {
		switch documents.Role(d.Role) {
		case documents.RoleSelfie:
			selfie = true
		case documents.RoleIDFront, documents.RolePassport, documents.RoleImmigrationFormFront:
			identity = true
		case documents.RoleIncomeProof:
			income++
		case documents.RoleOther, "":
			continue
		}
		known++
	}

	if known == 0 {
		return VerdictFail, "No se han cargado documentos.", nil
	}
	if selfie && identity && income > 0 {
		return VerdictOK, fmt.Sprintf("Expediente completo: selfie, identificación y %d comprobante(s) de ingresos.", income), nil
	}
	var missing []string
	if !selfie {
		missing = append(missing, "selfie")
	}
	if !identity {
		missing = append(missing, "identificación")
	}
	if income == 0 {
		missing = append(missing, "comprobantes de ingresos")
	}
	return VerdictPending, "Expediente incompleto, falta: " + strings.Join(missing, ", ") + ".", nil
}

func reduceFace(raw json.RawMessage) (Verdict, string, error) {
	var p FacePayload
	if err := decode(raw, &p); err != nil {
		return VerdictFail, "", err
	}
	switch {
	case len(p.Missing) >= 2:
		return VerdictFail, "Faltan la selfie y la identificación para comparar rostros.", nil
	case len(p.Missing) == 1:
		return VerdictPending, fmt.Sprintf("Falta %s para comparar rostros.", missingLabel(p.Missing[0])), nil
	case p.ErrorCode != "":
		return VerdictPending, fmt.Sprintf("No fue posible comparar rostros (%s).", p.ErrorCode), nil
	case p.Result == nil:
		return VerdictPending, "Comparación facial sin resultado.", nil
	}

	r := p.Result
	state := face.Classify(r.Similarity, r.MatchCount, r.Threshold)
	switch state {
	case face.StateOK:
		return VerdictOK, fmt.Sprintf("Coincidencia facial de %.1f%% (umbral %.0f%%).", r.Similarity, r.Threshold), nil
	case face.StateWarn:
		return VerdictPending, fmt.Sprintf("Coincidencia facial de %.1f%%, por debajo del umbral de %.0f%%; requiere revisión.", r.Similarity, r.Threshold), nil
	}
	if r.MatchCount == 0 {
		return VerdictFail, "No se encontró coincidencia entre la selfie y la identificación.", nil
	}
	return VerdictFail, fmt.Sprintf("Coincidencia facial insuficiente: %.1f%% (umbral %.0f%%).", r.Similarity, r.Threshold), nil
}

const (
	MissingSelfie     = "selfie"
	MissingIDDocument = "id_document"
)

func missingLabel(code string) string {
	switch code {
	case MissingSelfie:
		return "la selfie"
	case MissingIDDocument:
		return "la identificación"
	}
	return code
}

// parseIdentity replays the parser over a stored extraction.
func parseIdentity(ex *ocr.ExtractionResult) parser.ParsedIdentity {
	if ex == nil {
		return parser.ParsedIdentity{}
	}
	return parser.ParseIdentity(parser.NewText(ex.Lines(), ex.FormKeyValues))
}

func extractionBroken(ex *ocr.ExtractionResult) (bool, string) {
	if ex == nil {
		return true, "sin extracción"
	}
	switch ex.Status {
	case ocr.StatusTimeout:
		return true, "tiempo de espera agotado"
	case ocr.StatusFailed:
		if ex.ErrorCode != "" {
			return true, ex.ErrorCode
		}
		return true, "error de lectura"
	}
	return false, ""
}

func reduceIdentity(raw json.RawMessage) (Verdict, string, error) {
	var p IdentityPayload
	if err := decode(raw, &p); err != nil {
		return VerdictFail, "", err
	}
	if p.DocumentID == "" {
		return VerdictFail, "No hay documento de identidad cargado.", nil
	}

	parsed := parseIdentity(p.Extraction)
	if broken, reason := extractionBroken(p.Extraction); broken && !parsed.HasAny() {
		return VerdictPending, fmt.Sprintf("No se pudo leer la identificación (%s).", reason), nil
	}

	declaredCURP := parser.Normalize(p.Declared.CURP)
	if parsed.CURPLike != nil && declaredCURP != "" {
		if *parsed.CURPLike != declaredCURP {
			return VerdictFail, fmt.Sprintf("La CURP del documento (%s) no coincide con la declarada (%s).", *parsed.CURPLike, declaredCURP), nil
		}
		return VerdictOK, "La CURP del documento coincide con la declarada.", nil
	}

	if namesMatch(parsed, p.Declared) {
		return VerdictOK, "Nombre y apellidos coinciden con los declarados.", nil
	}
	if parsed.HasAny() {
		return VerdictPending, "Se leyó la identificación pero no fue posible confirmar la identidad.", nil
	}
	return VerdictPending, "No se encontraron datos de identidad en el documento.", nil
}

func namesMatch(parsed parser.ParsedIdentity, declared DeclaredIdentity) bool {
	pairs := []struct {
		got  *string
		want string
	}{
		{parsed.GivenNames, declared.GivenNames},
		{parsed.PaternalSurname, declared.PaternalSurname},
		{parsed.MaternalSurname, declared.MaternalSurname},
	}
	for _, p := range pairs {
		want := parser.Normalize(p.want)
		if p.got == nil || want == "" || parser.Normalize(*p.got) != want {
			return false
		}
	}
	return true
}

func reduceDocuments(raw json.RawMessage) (Verdict, string, error) {
	var p DocumentsPayload
	if err := decode(raw, &p); err != nil {
		return VerdictFail, "", err
	}
	if p.DocumentID == "" {
		return VerdictFail, "No hay documento de identidad cargado.", nil
	}

	parsed := parseIdentity(p.Extraction)
	year := p.EvaluatedAt.Year()
	if v := parsed.ValidityYears; v != nil && v.Until < year {
		return VerdictFail, fmt.Sprintf("El documento está vencido (vigencia %d).", v.Until), nil
	}
	hasCode := parsed.CURPLike != nil || parsed.CertificateCode != nil
	if hasCode && parsed.ValidityYears != nil {
		return VerdictOK, fmt.Sprintf("Documento vigente hasta %d con clave legible.", parsed.ValidityYears.Until), nil
	}
	if broken, reason := extractionBroken(p.Extraction); broken && !parsed.HasAny() {
		return VerdictPending, fmt.Sprintf("No se pudo leer el documento (%s).", reason), nil
	}
	var missing []string
	if !hasCode {
		missing = append(missing, "clave")
	}
	if parsed.ValidityYears == nil {
		missing = append(missing, "vigencia")
	}
	return VerdictPending, "No se pudo confirmar el documento, falta: " + strings.Join(missing, ", ") + ".", nil
}

func reduceIncome(raw json.RawMessage) (Verdict, string, error) {
	var p IncomePayload
	if err := decode(raw, &p); err != nil {
		return VerdictFail, "", err
	}
	if len(p.Proofs) == 0 {
		return VerdictFail, "No hay comprobantes de ingresos.", nil
	}

	readable, dated := 0, 0
	var latest string
	var latestOrd int
	var sum float64
	var amounts int
	var periods []int
	for _, proof := range p.Proofs {
		if proof.Extraction == nil || !proof.Extraction.HasText() {
			continue
		}
		readable++
		sig := parser.ParseIncome(parser.NewText(proof.Extraction.Lines(), proof.Extraction.FormKeyValues))
		if sig.Amount != nil {
			sum += *sig.Amount
			amounts++
		}
		if sig.PeriodMonthYear != nil {
			dated++
			ord := periodOrd(*sig.PeriodMonthYear)
			periods = append(periods, ord)
			if ord > latestOrd {
				latestOrd, latest = ord, *sig.PeriodMonthYear
			}
		}
	}

	if readable == 0 {
		return VerdictFail, "No se pudo leer texto de ningún comprobante de ingresos.", nil
	}
	if dated == 0 {
		return VerdictPending, fmt.Sprintf("%d comprobante(s) legibles pero sin fechas válidas.", readable), nil
	}

	lowSalary := false
	if p.DeclaredMonthlyIncome != nil && *p.DeclaredMonthlyIncome > 0 && amounts > 0 {
		lowSalary = sum/float64(amounts) < *p.DeclaredMonthlyIncome*LowSalaryRatio
	}
	if lowSalary {
		return VerdictPending, fmt.Sprintf("Los montos de los comprobantes (promedio %.2f) son menores al ingreso declarado (%.2f).", sum/float64(amounts), *p.DeclaredMonthlyIncome), nil
	}

	anchor := latestOrd
	if !p.EvaluatedAt.IsZero() {
		anchor = p.EvaluatedAt.Year()*12 + int(p.EvaluatedAt.Month())
	}
	recent := recentMonths(periods, anchor)
	if recent >= MinIncomeProofs {
		return VerdictOK, fmt.Sprintf("%d meses distintos en los últimos %d; periodo más reciente %s.", recent, IncomeWindowMonths, latest), nil
	}
	return VerdictPending, fmt.Sprintf("Solo %d de %d meses requeridos en los últimos %d (%d comprobantes con fecha); periodo más reciente %s.", recent, MinIncomeProofs, IncomeWindowMonths, dated, latest), nil
}

// recentMonths counts distinct periods in the window ending at anchor.
func recentMonths(periods []int, anchor int) int {
	seen := make(map[int]struct{}, len(periods))
	for _, ord := range periods {
		if ord > anchor || ord <= anchor-IncomeWindowMonths {
			continue
		}
		seen[ord] = struct{}{}
	}
	return len(seen)
}

// periodOrd orders "MM-YYYY" strings.
func periodOrd(p string) int {
	var m, y int
	if _, err := fmt.Sscanf(p, "%02d-%04d", &m, &y); err != nil {
		return 0
	}
	return y*12 + m
}

func reduceDeposit(raw json.RawMessage) (Verdict, string, error) {
	var p DepositPayload
	if err := decode(raw, &p); err != nil {
		return VerdictFail, "", err
	}
	switch {
	case p.empty():
		return VerdictFail, "Sin información del depósito.", nil
	case p.Rejected:
		return VerdictFail, "El depósito fue rechazado.", nil
	case p.Confirmed && p.Amount != nil && p.Expected != nil && *p.Amount >= *p.Expected:
		return VerdictOK, fmt.Sprintf("Depósito confirmado por %.2f (esperado %.2f).", *p.Amount, *p.Expected), nil
	case p.Confirmed && p.Amount != nil && p.Expected != nil:
		return VerdictPending, fmt.Sprintf("Depósito confirmado por %.2f, menor al esperado (%.2f).", *p.Amount, *p.Expected), nil
	case p.Confirmed:
		return VerdictPending, "Depósito confirmado sin monto comparable.", nil
	}
	return VerdictPending, "Depósito pendiente de confirmación.", nil
}

func reduceLegalSearch(raw json.RawMessage) (Verdict, string, error) {
	var p LegalSearchPayload
	if err := decode(raw, &p); err != nil {
		return VerdictFail, "", err
	}
	switch {
	case p.Hits > 0:
		return VerdictFail, fmt.Sprintf("La búsqueda legal encontró %d resultado(s).", p.Hits), nil
	case p.Searched:
		return VerdictOK, "Búsqueda legal sin resultados.", nil
	}
	return VerdictPending, "Búsqueda legal pendiente.", nil
}

func reduceExternalIDCheck(raw json.RawMessage) (Verdict, string, error) {
	var p ExternalIDCheckPayload
	if err := decode(raw, &p); err != nil {
		return VerdictFail, "", err
	}
	switch strings.ToLower(strings.TrimSpace(p.Status)) {
	case ExternalApproved:
		return VerdictOK, "Verificación externa de identidad aprobada.", nil
	case ExternalRejected:
		return VerdictFail, "Verificación externa de identidad rechazada.", nil
	}
	return VerdictPending, "Verificación externa de identidad pendiente.", nil
}
