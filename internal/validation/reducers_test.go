package validation

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenant-validation/internal/face"
	"tenant-validation/internal/ocr"
)

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func floatPtr(v float64) *float64 { return &v }

func lines(status ocr.Status, l ...string) *ocr.ExtractionResult {
	return &ocr.ExtractionResult{Mode: ocr.ModeSync, RawLines: l, Status: status}
}

var evaluated = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func TestReduceFiles(t *testing.T) {
	tests := []struct {
		name string
		docs []DocumentRef
		want Verdict
	}{
		{"none", nil, VerdictFail},
		{"only other", []DocumentRef{{ID: "x", Role: "other"}}, VerdictFail},
		{"selfie only", []DocumentRef{{ID: "s", Role: "selfie"}}, VerdictPending},
		{"complete", []DocumentRef{
			{ID: "s", Role: "selfie"},
			{ID: "p", Role: "passport"},
			{ID: "i", Role: "income_proof"},
		}, VerdictOK},
		{"no income", []DocumentRef{{ID: "s", Role: "selfie"}, {ID: "f", Role: "id_front"}}, VerdictPending},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, summary, err := Reduce(CategoryFiles, mustJSON(t, FilesPayload{Documents: tt.docs}))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got, summary)
			assert.NotEmpty(t, summary)
		})
	}
}

func TestReduceFaceThresholdBoundary(t *testing.T) {
	const threshold = face.DefaultThreshold
	tests := []struct {
		name       string
		similarity float64
		matches    int
		want       Verdict
	}{
		{"at threshold", threshold, 1, VerdictOK},
		{"above threshold", 99.2, 1, VerdictOK},
		{"at warn margin", threshold - face.WarnMargin, 1, VerdictPending},
		{"inside warn band", threshold - 2.5, 1, VerdictPending},
		{"below warn margin", threshold - face.WarnMargin - 0.01, 1, VerdictFail},
		{"no match", 0, 0, VerdictFail},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := FacePayload{
				SelfieDocumentID: "s",
				IDDocumentID:     "f",
				Result:           &face.Result{Similarity: tt.similarity, MatchCount: tt.matches, Threshold: threshold},
			}
			got, _, err := Reduce(CategoryFace, mustJSON(t, p))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReduceFaceMissingAndErrors(t *testing.T) {
	got, _, err := Reduce(CategoryFace, mustJSON(t, FacePayload{Missing: []string{MissingSelfie, MissingIDDocument}}))
	require.NoError(t, err)
	assert.Equal(t, VerdictFail, got)

	got, summary, err := Reduce(CategoryFace, mustJSON(t, FacePayload{Missing: []string{MissingSelfie}}))
	require.NoError(t, err)
	assert.Equal(t, VerdictPending, got)
	assert.Contains(t, summary, "selfie")

	got, summary, err = Reduce(CategoryFace, mustJSON(t, FacePayload{SelfieDocumentID: "s", IDDocumentID: "f", ErrorCode: face.ErrorCodeService}))
	require.NoError(t, err)
	assert.Equal(t, VerdictPending, got)
	assert.Contains(t, summary, face.ErrorCodeService)
}

func TestReduceIdentity(t *testing.T) {
	declared := DeclaredIdentity{GivenNames: "Juan Carlos", PaternalSurname: "Gómez", MaternalSurname: "Pérez", CURP: "GOPJ800101HDFMRN09"}
	card := []string{
		"CREDENCIAL PARA VOTAR",
		"NOMBRE",
		"GOMEZ",
		"PEREZ",
		"JUAN CARLOS",
		"DOMICILIO",
		"CURP GOPJ800101HDFMRN09",
		"VIGENCIA 2020 - 2030",
	}

	tests := []struct {
		name string
		p    IdentityPayload
		want Verdict
	}{
		{"no document", IdentityPayload{Declared: declared}, VerdictFail},
		{"timeout with nothing read", IdentityPayload{DocumentID: "f", Extraction: lines(ocr.StatusTimeout), Declared: declared}, VerdictPending},
		{"curp matches", IdentityPayload{DocumentID: "f", Extraction: lines(ocr.StatusSucceeded, card...), Declared: declared}, VerdictOK},
		{"curp differs", IdentityPayload{
			DocumentID: "f",
			Extraction: lines(ocr.StatusSucceeded, card...),
			Declared:   DeclaredIdentity{CURP: "XXXX800101HDFMRN01"},
		}, VerdictFail},
		{"names match without declared curp", IdentityPayload{
			DocumentID: "f",
			Extraction: lines(ocr.StatusSucceeded, card...),
			Declared:   DeclaredIdentity{GivenNames: "juan carlos", PaternalSurname: "Gómez", MaternalSurname: "Pérez"},
		}, VerdictOK},
		{"unreadable text", IdentityPayload{DocumentID: "f", Extraction: lines(ocr.StatusSucceeded, "lorem ipsum"), Declared: declared}, VerdictPending},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, summary, err := Reduce(CategoryIdentity, mustJSON(t, tt.p))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got, summary)
		})
	}
}

func TestReduceDocuments(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  Verdict
	}{
		{"current with curp", []string{"CURP GOPJ800101HDFMRN09", "VIGENCIA 2020 - 2030"}, VerdictOK},
		{"current with certificate", []string{"CIC 123456789", "VIGENCIA 2021 - 2031"}, VerdictOK},
		{"expired", []string{"CURP GOPJ800101HDFMRN09", "VIGENCIA 2014 - 2024"}, VerdictFail},
		{"no validity", []string{"CURP GOPJ800101HDFMRN09"}, VerdictPending},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := DocumentsPayload{DocumentID: "f", Extraction: lines(ocr.StatusSucceeded, tt.lines...), EvaluatedAt: evaluated}
			got, summary, err := Reduce(CategoryDocuments, mustJSON(t, p))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got, summary)
		})
	}

	got, _, err := Reduce(CategoryDocuments, mustJSON(t, DocumentsPayload{EvaluatedAt: evaluated}))
	require.NoError(t, err)
	assert.Equal(t, VerdictFail, got)
}

func incomeProof(id string, l ...string) IncomeProof {
	return IncomeProof{DocumentID: id, FileName: id + ".pdf", Extraction: lines(ocr.StatusSucceeded, l...)}
}

func TestReduceIncome(t *testing.T) {
	three := []IncomeProof{
		incomeProof("a", "RECIBO DE NOMINA", "Periodo 03/2025", "NETO A PAGAR $25,000.00"),
		incomeProof("b", "RECIBO DE NOMINA", "Periodo 04/2025", "NETO A PAGAR $25,000.00"),
		incomeProof("c", "RECIBO DE NOMINA", "Periodo 05/2025", "NETO A PAGAR $26,000.00"),
	}

	tests := []struct {
		name     string
		p        IncomePayload
		want     Verdict
		contains string
	}{
		{"no proofs", IncomePayload{EvaluatedAt: evaluated}, VerdictFail, "No hay"},
		{"no text", IncomePayload{Proofs: []IncomeProof{{DocumentID: "a", Extraction: lines(ocr.StatusTimeout)}}, EvaluatedAt: evaluated}, VerdictFail, "texto"},
		{"text without dates", IncomePayload{Proofs: []IncomeProof{incomeProof("a", "NOMINA $1,000.00")}, EvaluatedAt: evaluated}, VerdictPending, "sin fechas"},
		{"three dated", IncomePayload{Proofs: three, DeclaredMonthlyIncome: floatPtr(26000), EvaluatedAt: evaluated}, VerdictOK, "3 meses distintos"},
		{"low salary", IncomePayload{Proofs: three, DeclaredMonthlyIncome: floatPtr(40000), EvaluatedAt: evaluated}, VerdictPending, "menores"},
		{"two dated", IncomePayload{Proofs: three[:2], EvaluatedAt: evaluated}, VerdictPending, "Solo 2"},
		{"duplicate months", IncomePayload{Proofs: []IncomeProof{
			incomeProof("a", "Periodo 05/2025", "NETO A PAGAR $25,500.00"),
			incomeProof("b", "Periodo 05/2025", "NETO A PAGAR $25,500.00"),
			incomeProof("c", "Periodo 05/2025", "NETO A PAGAR $25,500.00"),
		}, EvaluatedAt: evaluated}, VerdictPending, "Solo 1 de 3"},
		{"stale months", IncomePayload{Proofs: []IncomeProof{
			incomeProof("a", "Periodo 01/2019", "NETO A PAGAR $25,500.00"),
			incomeProof("b", "Periodo 02/2019", "NETO A PAGAR $25,500.00"),
			incomeProof("c", "Periodo 03/2019", "NETO A PAGAR $25,500.00"),
		}, EvaluatedAt: evaluated}, VerdictPending, "Solo 0 de 3"},
		{"future month ignored", IncomePayload{Proofs: []IncomeProof{
			incomeProof("a", "Periodo 04/2025", "NETO A PAGAR $25,500.00"),
			incomeProof("b", "Periodo 05/2025", "NETO A PAGAR $25,500.00"),
			incomeProof("c", "Periodo 09/2025", "NETO A PAGAR $25,500.00"),
		}, EvaluatedAt: evaluated}, VerdictPending, "Solo 2 de 3"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, summary, err := Reduce(CategoryIncome, mustJSON(t, tt.p))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got, summary)
			assert.Contains(t, summary, tt.contains)
		})
	}
}

func TestReduceManualCategories(t *testing.T) {
	tests := []struct {
		name     string
		category Category
		payload  string
		want     Verdict
	}{
		{"deposit empty", CategoryDeposit, `{}`, VerdictFail},
		{"deposit rejected", CategoryDeposit, `{"rejected":true}`, VerdictFail},
		{"deposit enough", CategoryDeposit, `{"confirmed":true,"amount":15000,"expected":15000}`, VerdictOK},
		{"deposit short", CategoryDeposit, `{"confirmed":true,"amount":9000,"expected":15000}`, VerdictPending},
		{"deposit unconfirmed", CategoryDeposit, `{"reference":"SPEI-1"}`, VerdictPending},
		{"legal clean", CategoryLegalSearch, `{"searched":true,"hits":0}`, VerdictOK},
		{"legal hits", CategoryLegalSearch, `{"searched":true,"hits":2}`, VerdictFail},
		{"legal pending", CategoryLegalSearch, `{}`, VerdictPending},
		{"external approved", CategoryExternalIDCheck, `{"status":"Approved"}`, VerdictOK},
		{"external rejected", CategoryExternalIDCheck, `{"status":"rejected"}`, VerdictFail},
		{"external pending", CategoryExternalIDCheck, `{"status":"sent"}`, VerdictPending},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, _, err := Reduce(tt.category, json.RawMessage(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReduceRejectsUnknownFields(t *testing.T) {
	_, _, err := Reduce(CategoryDeposit, json.RawMessage(`{"confirmed":true,"bogus":1}`))
	require.ErrorIs(t, err, ErrInvalidPayload)

	_, _, err = Reduce(Category("credit_score"), json.RawMessage(`{}`))
	require.ErrorIs(t, err, ErrUnknownCategory)
}

func TestReducersArePure(t *testing.T) {
	p := mustJSON(t, IncomePayload{Proofs: []IncomeProof{incomeProof("a", "NOMINA $9,000.00 agosto 2024", "08/2025")}})
	v1, s1, err := Reduce(CategoryIncome, p)
	require.NoError(t, err)
	v2, s2, err := Reduce(CategoryIncome, p)
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Equal(t, s1, s2)
	assert.Contains(t, s1, "08-2025")
}
