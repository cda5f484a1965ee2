// Package validation reduces extracted evidence into per-category verdicts,
// stores them and rebuilds summaries from stored payloads.
package validation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Category is one independently validated aspect of a tenant file.
type Category string

const (
	CategoryFiles           Category = "files"
	CategoryIdentity        Category = "identity"
	CategoryFace            Category = "face"
	CategoryDocuments       Category = "documents"
	CategoryIncome          Category = "income"
	CategoryDeposit         Category = "deposit"
	CategoryLegalSearch     Category = "legal_search"
	CategoryExternalIDCheck Category = "external_id_check"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryFiles,
	CategoryIdentity,
	CategoryFace,
	CategoryDocuments,
	CategoryIncome,
	CategoryDeposit,
	CategoryLegalSearch,
	CategoryExternalIDCheck,
}

// Automatic reports whether the pipeline gathers the evidence itself.
// The rest take an admin-supplied payload.
func (c Category) Automatic() bool {
	switch c {
	case CategoryFiles, CategoryIdentity, CategoryFace, CategoryDocuments, CategoryIncome:
		return true
	}
	return false
}

func ParseCategory(raw string) (Category, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	for _, c := range Categories {
		if string(c) == raw {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, raw)
}

// ParseCategories reads a comma-separated list. Empty input means none.
func ParseCategories(csv string) ([]Category, error) {
	var out []Category
	seen := make(map[Category]bool)
	for _, part := range strings.Split(csv, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		c, err := ParseCategory(part)
		if err != nil {
			return nil, err
		}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out, nil
}

// Verdict is the tri-state outcome. Values are stored as-is.
type Verdict int

const (
	VerdictFail    Verdict = 0
	VerdictOK      Verdict = 1
	VerdictPending Verdict = 2
)

func (v Verdict) String() string {
	switch v {
	case VerdictOK:
		return "OK"
	case VerdictPending:
		return "PENDING"
	default:
		return "FAIL"
	}
}

// Rank orders verdicts FAIL < PENDING < OK.
func (v Verdict) Rank() int {
	switch v {
	case VerdictOK:
		return 2
	case VerdictPending:
		return 1
	default:
		return 0
	}
}

func (v Verdict) Valid() bool {
	return v == VerdictFail || v == VerdictOK || v == VerdictPending
}

// Record is the stored result for one (owner, category). Verdict and Summary
// are always what the reducer returns for Payload.
type Record struct {
	OwnerID   string          `json:"ownerId"`
	Category  Category        `json:"category"`
	Verdict   Verdict         `json:"verdict"`
	Payload   json.RawMessage `json:"payload"`
	Summary   string          `json:"summary"`
	UpdatedAt time.Time       `json:"updatedAt"`
	UpdatedBy string          `json:"updatedBy"`
}
