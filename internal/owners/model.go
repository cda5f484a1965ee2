package owners

import "time"

// IDType is the kind of identity document the owner declared.
type IDType string

const (
	IDTypeNational    IDType = "national_id"
	IDTypePassport    IDType = "passport"
	IDTypeImmigration IDType = "immigration_form"
)

// Owner is the declared data the validations compare documents against.
type Owner struct {
	ID                    string    `json:"id"`
	GivenNames            string    `json:"givenNames"`
	PaternalSurname       string    `json:"paternalSurname"`
	MaternalSurname       string    `json:"maternalSurname"`
	CURP                  string    `json:"curp"`
	DeclaredMonthlyIncome *float64  `json:"declaredMonthlyIncome,omitempty"`
	ExpectedDeposit       *float64  `json:"expectedDeposit,omitempty"`
	IDType                IDType    `json:"idType"`
	CreatedAt             time.Time `json:"createdAt"`
}

// RequiresExternalCheck reports whether the owner's ID type needs an
// external verification record.
func (o Owner) RequiresExternalCheck() bool {
	return o.IDType == IDTypeImmigration
}

func ParseIDType(raw string) (IDType, bool) {
	switch IDType(raw) {
	case IDTypeNational, IDTypePassport, IDTypeImmigration:
		return IDType(raw), true
	case "":
		return IDTypeNational, true
	}
	return "", false
}
