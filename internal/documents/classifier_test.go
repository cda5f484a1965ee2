package documents

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier(DefaultAliases())
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	return c
}

func TestRoleForNormalizesTags(t *testing.T) {
	c := newTestClassifier(t)
	tests := []struct {
		tag  string
		want Role
	}{
		{"INE_Frontal", RoleIDFront},
		{"  identificación frontal ", RoleIDFront},
		{"ine-frente", RoleIDFront},
		{"Pasaporte", RolePassport},
		{"Recibo de Nómina", RoleIncomeProof},
		{"selfie", RoleSelfie},
		{"acta_nacimiento", RoleOther},
		{"", RoleOther},
	}
	for _, tt := range tests {
		if got := c.RoleFor(tt.tag); got != tt.want {
			t.Errorf("RoleFor(%q) = %s, want %s", tt.tag, got, tt.want)
		}
	}
}

func TestClassifyDeterministicUnderReordering(t *testing.T) {
	c := newTestClassifier(t)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	docs := []Document{
		{ID: "b", TypeTag: "ine_frontal", CreatedAt: base},
		{ID: "a", TypeTag: "id_front", CreatedAt: base},
		{ID: "c", TypeTag: "ine_frente", CreatedAt: base.Add(-time.Minute)},
		{ID: "i1", TypeTag: "nomina", CreatedAt: base.Add(time.Minute)},
		{ID: "i2", TypeTag: "estado_de_cuenta", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "i0", TypeTag: "comprobante_ingresos", CreatedAt: base},
		{ID: "x", TypeTag: "acta", CreatedAt: base},
	}

	want := c.Classify(docs)
	if got := want.Singular[RoleIDFront].ID; got != "c" {
		t.Fatalf("expected earliest id_front c, got %s", got)
	}
	if len(want.IncomeProofs) != 3 || want.IncomeProofs[0].ID != "i0" || want.IncomeProofs[2].ID != "i2" {
		t.Fatalf("unexpected income order %+v", want.IncomeProofs)
	}
	if len(want.Other) != 1 || want.Other[0].Role != RoleOther {
		t.Fatalf("unexpected other %+v", want.Other)
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]Document(nil), docs...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := c.Classify(shuffled)
		if got.Singular[RoleIDFront].ID != want.Singular[RoleIDFront].ID {
			t.Fatalf("id_front changed under reordering")
		}
		for j := range want.IncomeProofs {
			if got.IncomeProofs[j].ID != want.IncomeProofs[j].ID {
				t.Fatalf("income order changed under reordering")
			}
		}
	}
}

func TestClassifyTiesBrokenByID(t *testing.T) {
	c := newTestClassifier(t)
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	got := c.Classify([]Document{
		{ID: "z", TypeTag: "selfie", CreatedAt: at},
		{ID: "m", TypeTag: "foto", CreatedAt: at},
	})
	if got.Singular[RoleSelfie].ID != "m" {
		t.Fatalf("expected lowest id to win the tie, got %s", got.Singular[RoleSelfie].ID)
	}
}

func TestIdentityDocumentPreference(t *testing.T) {
	c := newTestClassifier(t)
	got := c.Classify([]Document{
		{ID: "p", TypeTag: "pasaporte"},
		{ID: "f", TypeTag: "forma_migratoria"},
	})
	doc, ok := got.IdentityDocument()
	if !ok || doc.ID != "p" {
		t.Fatalf("expected passport, got %+v", doc)
	}
	if _, ok := c.Classify(nil).IdentityDocument(); ok {
		t.Fatalf("expected no identity document")
	}
}

func TestClassifiedHasAndEmpty(t *testing.T) {
	c := newTestClassifier(t)
	empty := c.Classify(nil)
	if !empty.Empty() || empty.Has(RoleSelfie) {
		t.Fatalf("expected empty classification, got %+v", empty)
	}

	onlyOther := c.Classify([]Document{{ID: "a", TypeTag: "acta_nacimiento"}})
	if onlyOther.Empty() {
		t.Fatalf("unknown documents still count as provided")
	}

	got := c.Classify([]Document{{ID: "s", TypeTag: "selfie"}, {ID: "n", TypeTag: "recibo de nomina"}})
	if !got.Has(RoleSelfie) || got.Has(RoleIDFront) || got.Has(RoleIncomeProof) {
		t.Fatalf("unexpected roles %+v", got.Singular)
	}
}

func TestValidateAliases(t *testing.T) {
	if err := ValidateAliases(DefaultAliases()); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	missing := DefaultAliases()
	delete(missing, RolePassport)
	if err := ValidateAliases(missing); !errors.Is(err, ErrAliasTable) {
		t.Fatalf("expected missing role error, got %v", err)
	}

	dup := DefaultAliases().Merge(AliasTable{RoleIDBack: {"INE Frontal"}})
	if err := ValidateAliases(dup); !errors.Is(err, ErrAliasTable) {
		t.Fatalf("expected duplicate alias error, got %v", err)
	}

	unknown := DefaultAliases().Merge(AliasTable{"licencia": {"licencia"}})
	if err := ValidateAliases(unknown); !errors.Is(err, ErrAliasTable) {
		t.Fatalf("expected unknown role error, got %v", err)
	}
}

func TestLoadAliasFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aliases.yaml")
	content := "aliases:\n  id_front: credencial_votar\n  income_proof: [recibo_honorarios, constancia_ingresos]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	table, err := LoadAliasFile(path)
	if err != nil {
		t.Fatalf("LoadAliasFile: %v", err)
	}
	c, err := NewClassifier(table)
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	if c.RoleFor("Credencial Votar") != RoleIDFront || c.RoleFor("recibo_honorarios") != RoleIncomeProof {
		t.Fatalf("file aliases not applied")
	}
	if c.RoleFor("ine_frontal") != RoleIDFront {
		t.Fatalf("defaults lost after merge")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("aliases:\n  id_back: ine\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadAliasFile(bad); !errors.Is(err, ErrAliasTable) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}
