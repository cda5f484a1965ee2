package documents

import "time"

// Role is the canonical purpose of an uploaded document.
type Role string

const (
	RoleSelfie               Role = "selfie"
	RoleIDFront              Role = "id_front"
	RoleIDBack               Role = "id_back"
	RolePassport             Role = "passport"
	RoleImmigrationFormFront Role = "immigration_form_front"
	RoleImmigrationFormBack  Role = "immigration_form_back"
	RoleIncomeProof          Role = "income_proof"
	RoleOther                Role = "other"
)

// Roles lists every role in a stable order.
var Roles = []Role{
	RoleSelfie,
	RoleIDFront,
	RoleIDBack,
	RolePassport,
	RoleImmigrationFormFront,
	RoleImmigrationFormBack,
	RoleIncomeProof,
	RoleOther,
}

func ParseRole(raw string) (Role, bool) {
	for _, r := range Roles {
		if string(r) == raw {
			return r, true
		}
	}
	return "", false
}

// Singular reports whether only one current document may hold the role.
func (r Role) Singular() bool {
	return r != RoleIncomeProof && r != RoleOther
}

// Document is a stored tenant file. Rows are never edited; a replacement
// creates a new row and sets SupersededAt on the old one.
type Document struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"ownerId"`
	Role         Role       `json:"role"`
	TypeTag      string     `json:"typeTag"`
	FileName     string     `json:"fileName"`
	StorageKey   string     `json:"storageKey"`
	MimeType     string     `json:"mimeType"`
	SizeBytes    int64      `json:"sizeBytes"`
	CreatedAt    time.Time  `json:"createdAt"`
	SupersededAt *time.Time `json:"supersededAt,omitempty"`
}

func (d Document) IsPDF() bool {
	return d.MimeType == "application/pdf"
}
