package validation

import (
	"time"

	"tenant-validation/internal/face"
	"tenant-validation/internal/ocr"
)

// DocumentRef is the slice of a document stored in payloads.
type DocumentRef struct {
	ID       string `json:"id"`
	Role     string `json:"role"`
	FileName string `json:"fileName"`
}

type FilesPayload struct {
	Documents []DocumentRef `json:"documents"`
}

type FacePayload struct {
	SelfieDocumentID string       `json:"selfieDocumentId,omitempty"`
	IDDocumentID     string       `json:"idDocumentId,omitempty"`
	Missing          []string     `json:"missing,omitempty"`
	Result           *face.Result `json:"result,omitempty"`
	Error            string       `json:"error,omitempty"`
	ErrorCode        string       `json:"errorCode,omitempty"`
}

// DeclaredIdentity is what the owner declared, copied at run time.
type DeclaredIdentity struct {
	GivenNames      string `json:"givenNames"`
	PaternalSurname string `json:"paternalSurname"`
	MaternalSurname string `json:"maternalSurname"`
	CURP            string `json:"curp"`
}

// IdentityPayload keeps the raw extraction so parsing can be replayed.
type IdentityPayload struct {
	DocumentID  string                `json:"documentId,omitempty"`
	Role        string                `json:"role,omitempty"`
	Extraction  *ocr.ExtractionResult `json:"extraction,omitempty"`
	Declared    DeclaredIdentity      `json:"declared"`
	EvaluatedAt time.Time             `json:"evaluatedAt"`
}

type DocumentsPayload struct {
	DocumentID  string                `json:"documentId,omitempty"`
	Role        string                `json:"role,omitempty"`
	Extraction  *ocr.ExtractionResult `json:"extraction,omitempty"`
	EvaluatedAt time.Time             `json:"evaluatedAt"`
}

type IncomeProof struct {
	DocumentID string                `json:"documentId"`
	FileName   string                `json:"fileName"`
	Extraction *ocr.ExtractionResult `json:"extraction,omitempty"`
}

type IncomePayload struct {
	Proofs                []IncomeProof `json:"proofs"`
	DeclaredMonthlyIncome *float64      `json:"declaredMonthlyIncome,omitempty"`
	EvaluatedAt           time.Time     `json:"evaluatedAt"`
}

type DepositPayload struct {
	Confirmed bool     `json:"confirmed"`
	Rejected  bool     `json:"rejected"`
	Amount    *float64 `json:"amount,omitempty"`
	Expected  *float64 `json:"expected,omitempty"`
	Reference string   `json:"reference,omitempty"`
	Notes     string   `json:"notes,omitempty"`
}

func (p DepositPayload) empty() bool {
	return !p.Confirmed && !p.Rejected && p.Amount == nil && p.Reference == ""
}

type LegalSearchPayload struct {
	Searched bool   `json:"searched"`
	Hits     int    `json:"hits"`
	Source   string `json:"source,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

const (
	ExternalApproved = "approved"
	ExternalRejected = "rejected"
)

type ExternalIDCheckPayload struct {
	Status    string `json:"status"`
	Provider  string `json:"provider,omitempty"`
	Reference string `json:"reference,omitempty"`
	Notes     string `json:"notes,omitempty"`
}
