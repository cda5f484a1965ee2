package documents

import (
	"sort"
)

// Classifier maps free-text tags to roles.
type Classifier struct {
	aliases map[string]Role
}

// NewClassifier validates table and builds a Classifier.
func NewClassifier(table AliasTable) (*Classifier, error) {
	if err := ValidateAliases(table); err != nil {
		return nil, err
	}
	return &Classifier{aliases: table.index()}, nil
}

// RoleFor resolves a tag. Unknown tags are RoleOther.
func (c *Classifier) RoleFor(tag string) Role {
	if role, ok := c.aliases[NormalizeTag(tag)]; ok {
		return role
	}
	return RoleOther
}

// Classified is an owner's document set grouped by role.
type Classified struct {
	Singular     map[Role]Document `json:"singular"`
	IncomeProofs []Document        `json:"incomeProofs"`
	Other        []Document        `json:"other"`
}

// Classify groups docs by role. Documents are ordered by (CreatedAt, ID)
// first so the outcome does not depend on slice order: the earliest document
// wins each singular role and income proofs keep that order.
func (c *Classifier) Classify(docs []Document) Classified {
	sorted := append([]Document(nil), docs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	out := Classified{Singular: make(map[Role]Document)}
	for _, doc := range sorted {
		role := c.RoleFor(doc.TypeTag)
		doc.Role = role
		switch {
		case role == RoleIncomeProof:
			out.IncomeProofs = append(out.IncomeProofs, doc)
		case role == RoleOther:
			out.Other = append(out.Other, doc)
		default:
			if !out.Has(role) {
				out.Singular[role] = doc
			}
		}
	}
	return out
}

func (c Classified) Get(role Role) (Document, bool) {
	doc, ok := c.Singular[role]
	return doc, ok
}

// Has reports whether a document already holds role.
func (c Classified) Has(role Role) bool {
	_, ok := c.Singular[role]
	return ok
}

// identityRoles are the fronts that can prove identity, in preference order.
var identityRoles = []Role{RoleIDFront, RolePassport, RoleImmigrationFormFront}

// IdentityDocument returns the preferred identity document.
func (c Classified) IdentityDocument() (Document, bool) {
	for _, role := range identityRoles {
		if doc, ok := c.Singular[role]; ok {
			return doc, true
		}
	}
	return Document{}, false
}

// Empty reports whether no document, known or not, was provided.
func (c Classified) Empty() bool {
	return len(c.Singular) == 0 && len(c.IncomeProofs) == 0 && len(c.Other) == 0
}
