package validation

import (
	"fmt"
	"strings"

	"tenant-validation/internal/owners"
)

// GlobalStatus is the combined badge over an owner's categories.
type GlobalStatus struct {
	Estado     string            `json:"estado"`
	Resumen    string            `json:"resumen"`
	Categorias map[string]string `json:"categorias"`
	verdict    Verdict
}

// Verdict returns the combined verdict behind Estado.
func (g GlobalStatus) Verdict() Verdict { return g.verdict }

var categoryLabels = map[Category]string{
	CategoryFiles:           "expediente",
	CategoryIdentity:        "identidad",
	CategoryFace:            "rostro",
	CategoryDocuments:       "documentos",
	CategoryIncome:          "ingresos",
	CategoryDeposit:         "depósito",
	CategoryLegalSearch:     "búsqueda legal",
	CategoryExternalIDCheck: "verificación externa",
}

// Aggregate combines per-category verdicts. Missing categories count as
// PENDING. external_id_check only appears when the ID type requires it or a
// verdict for it exists.
func Aggregate(verdicts map[Category]Verdict, idType owners.IDType) GlobalStatus {
	owner := owners.Owner{IDType: idType}
	out := GlobalStatus{Categorias: make(map[string]string), verdict: VerdictOK}

	var failed, pending []string
	for _, c := range Categories {
		v, ok := verdicts[c]
		if c == CategoryExternalIDCheck && !ok && !owner.RequiresExternalCheck() {
			continue
		}
		if !ok || !v.Valid() {
			v = VerdictPending
		}
		out.Categorias[string(c)] = v.String()
		switch v {
		case VerdictFail:
			failed = append(failed, categoryLabels[c])
		case VerdictPending:
			pending = append(pending, categoryLabels[c])
		}
	}

	switch {
	case len(failed) > 0:
		out.verdict = VerdictFail
		out.Resumen = fmt.Sprintf("Rechazado en: %s.", strings.Join(failed, ", "))
		if len(pending) > 0 {
			out.Resumen += fmt.Sprintf(" Pendiente: %s.", strings.Join(pending, ", "))
		}
	case len(pending) > 0:
		out.verdict = VerdictPending
		out.Resumen = fmt.Sprintf("Pendiente: %s.", strings.Join(pending, ", "))
	default:
		out.Resumen = fmt.Sprintf("Todas las validaciones aprobadas (%d).", len(out.Categorias))
	}
	out.Estado = out.verdict.String()
	return out
}
