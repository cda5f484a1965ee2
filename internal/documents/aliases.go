package documents

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"tenant-validation/internal/parser"
)

// AliasTable maps each role to the free-text tags that mean it.
type AliasTable map[Role][]string

// DefaultAliases is the built-in tag vocabulary.
func DefaultAliases() AliasTable {
	return AliasTable{
		RoleSelfie:               {"selfie", "foto", "fotografia", "foto_rostro", "rostro"},
		RoleIDFront:              {"id_front", "ine_frontal", "identificacion_frontal", "ine_frente", "ine", "identificacion"},
		RoleIDBack:               {"id_back", "ine_reverso", "identificacion_reverso", "ine_atras"},
		RolePassport:             {"passport", "pasaporte"},
		RoleImmigrationFormFront: {"immigration_form_front", "fm_frontal", "forma_migratoria", "forma_migratoria_frente", "residencia_frente"},
		RoleImmigrationFormBack:  {"immigration_form_back", "fm_reverso", "forma_migratoria_reverso", "residencia_reverso"},
		RoleIncomeProof:          {"income_proof", "comprobante_ingresos", "comprobante_de_ingresos", "estado_de_cuenta", "recibo_nomina", "recibo_de_nomina", "nomina"},
	}
}

// NormalizeTag lowercases, strips accents and joins words with underscores.
func NormalizeTag(tag string) string {
	n := strings.ToLower(parser.Normalize(tag))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(n)
}

// ValidateAliases checks that every role except other has an alias and that
// no alias belongs to two roles.
func ValidateAliases(table AliasTable) error {
	seen := make(map[string]Role)
	for _, role := range Roles {
		aliases := table[role]
		if role == RoleOther {
			if len(aliases) > 0 {
				return fmt.Errorf("%w: role other takes no aliases", ErrAliasTable)
			}
			continue
		}
		if len(aliases) == 0 {
			return fmt.Errorf("%w: role %s has no aliases", ErrAliasTable, role)
		}
		for _, a := range aliases {
			key := NormalizeTag(a)
			if key == "" {
				return fmt.Errorf("%w: empty alias for %s", ErrAliasTable, role)
			}
			if prev, ok := seen[key]; ok && prev != role {
				return fmt.Errorf("%w: alias %q maps to %s and %s", ErrAliasTable, key, prev, role)
			}
			seen[key] = role
		}
	}
	for role := range table {
		if _, ok := ParseRole(string(role)); !ok {
			return fmt.Errorf("%w: unknown role %q", ErrAliasTable, role)
		}
	}
	return nil
}

// Merge returns a copy of t with extra appended per role.
func (t AliasTable) Merge(extra AliasTable) AliasTable {
	out := make(AliasTable, len(t))
	for role, aliases := range t {
		out[role] = append([]string(nil), aliases...)
	}
	for role, aliases := range extra {
		out[role] = append(out[role], aliases...)
	}
	return out
}

// UnmarshalYAML accepts either a single tag or a list per role:
//
//	id_front: ine_v2
//	income_proof: [recibo_honorarios, constancia_ingresos]
func (t *AliasTable) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: aliases must be a mapping", ErrAliasTable)
	}
	out := make(AliasTable, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		role := Role(strings.TrimSpace(value.Content[i].Value))
		v := value.Content[i+1]
		switch v.Kind {
		case yaml.ScalarNode:
			if s := strings.TrimSpace(v.Value); s != "" {
				out[role] = append(out[role], s)
			}
		case yaml.SequenceNode:
			var items []string
			if err := v.Decode(&items); err != nil {
				return err
			}
			out[role] = append(out[role], items...)
		default:
			return fmt.Errorf("%w: bad value for %s", ErrAliasTable, role)
		}
	}
	*t = out
	return nil
}

type aliasFile struct {
	Aliases AliasTable `yaml:"aliases"`
}

// LoadAliasFile reads extra aliases from a YAML file and merges them into the
// defaults. The merged table is validated.
func LoadAliasFile(path string) (AliasTable, error) {
	table := DefaultAliases()
	if strings.TrimSpace(path) == "" {
		return table, ValidateAliases(table)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alias file: %w", err)
	}
	var f aliasFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse alias file: %w", err)
	}
	table = table.Merge(f.Aliases)
	if err := ValidateAliases(table); err != nil {
		return nil, err
	}
	return table, nil
}

// index builds the alias lookup. Callers validate first.
func (t AliasTable) index() map[string]Role {
	out := make(map[string]Role)
	roles := make([]Role, 0, len(t))
	for role := range t {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	for _, role := range roles {
		for _, a := range t[role] {
			out[NormalizeTag(a)] = role
		}
	}
	return out
}
