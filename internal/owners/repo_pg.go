package owners

import (
	"context"
	"database/sql"
	"errors"
)

type PGDirectory struct {
	DB *sql.DB
}

func (d *PGDirectory) Upsert(ctx context.Context, owner Owner) error {
	if owner.ID == "" {
		return ErrInvalidInput
	}
	const query = `
INSERT INTO owners (id, given_names, paternal_surname, maternal_surname, curp, declared_monthly_income, expected_deposit, id_type)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
  given_names = EXCLUDED.given_names,
  paternal_surname = EXCLUDED.paternal_surname,
  maternal_surname = EXCLUDED.maternal_surname,
  curp = EXCLUDED.curp,
  declared_monthly_income = EXCLUDED.declared_monthly_income,
  expected_deposit = EXCLUDED.expected_deposit,
  id_type = EXCLUDED.id_type`
	_, err := d.DB.ExecContext(ctx, query,
		owner.ID,
		owner.GivenNames,
		owner.PaternalSurname,
		owner.MaternalSurname,
		owner.CURP,
		nullableFloat(owner.DeclaredMonthlyIncome),
		nullableFloat(owner.ExpectedDeposit),
		string(owner.IDType),
	)
	return err
}

func (d *PGDirectory) Get(ctx context.Context, ownerID string) (Owner, error) {
	const query = `
SELECT id, given_names, paternal_surname, maternal_surname, curp, declared_monthly_income, expected_deposit, id_type, created_at
FROM owners
WHERE id = $1
LIMIT 1`
	var owner Owner
	var income, deposit sql.NullFloat64
	var idType string
	err := d.DB.QueryRowContext(ctx, query, ownerID).Scan(
		&owner.ID,
		&owner.GivenNames,
		&owner.PaternalSurname,
		&owner.MaternalSurname,
		&owner.CURP,
		&income,
		&deposit,
		&idType,
		&owner.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Owner{}, ErrNotFound
		}
		return Owner{}, err
	}
	owner.IDType = IDType(idType)
	if income.Valid {
		owner.DeclaredMonthlyIncome = &income.Float64
	}
	if deposit.Valid {
		owner.ExpectedDeposit = &deposit.Float64
	}
	return owner, nil
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
