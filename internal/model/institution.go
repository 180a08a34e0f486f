package model

import (
	"fmt"
	"sort"
	"strings"

	"github.com/and161185/kesef/internal/errs"
)

// Institution identifies a supported bank or card issuer.
type Institution string

// Supported institutions. Values match the scraper's company identifiers.
const (
	Hapoalim         Institution = "hapoalim"
	Leumi            Institution = "leumi"
	Discount         Institution = "discount"
	Mizrahi          Institution = "mizrahi"
	Beinleumi        Institution = "beinleumi"
	OtsarHahayal     Institution = "otsarHahayal"
	VisaCal          Institution = "visaCal"
	Max              Institution = "max"
	Isracard         Institution = "isracard"
	Amex             Institution = "amex"
	BeyahadBishvilha Institution = "beyahadBishvilha"
)

type institutionSpec struct {
	name   string
	fields []string
}

var institutions = map[Institution]institutionSpec{
	Hapoalim:         {name: "בנק הפועלים", fields: []string{"userCode", "password"}},
	Leumi:            {name: "בנק לאומי", fields: []string{"username", "password"}},
	Discount:         {name: "בנק דיסקונט", fields: []string{"id", "password", "num"}},
	Mizrahi:          {name: "מזרחי טפחות", fields: []string{"username", "password"}},
	Beinleumi:        {name: "הבינלאומי", fields: []string{"username", "password"}},
	OtsarHahayal:     {name: "אוצר החייל", fields: []string{"username", "password"}},
	VisaCal:          {name: "כאל", fields: []string{"username", "password"}},
	Max:              {name: "מקס", fields: []string{"username", "password"}},
	Isracard:         {name: "ישראכרט", fields: []string{"id", "card6Digits", "password"}},
	Amex:             {name: "אמריקן אקספרס", fields: []string{"id", "card6Digits", "password"}},
	BeyahadBishvilha: {name: "ביחד בשבילך", fields: []string{"id", "password"}},
}

// Institutions returns all supported institutions in stable order.
func Institutions() []Institution {
	out := make([]Institution, 0, len(institutions))
	for id := range institutions {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Valid reports whether i belongs to the supported set.
func (i Institution) Valid() bool {
	_, ok := institutions[i]
	return ok
}

// DisplayName returns the institution's user-facing name.
func (i Institution) DisplayName() string { return institutions[i].name }

// CredentialFields lists the credential keys the institution's login requires.
func (i Institution) CredentialFields() []string {
	return append([]string(nil), institutions[i].fields...)
}

// Credentials is the login key-value set for one institution.
type Credentials map[string]string

// Validate checks c against the fixed field list of inst: every required field
// must be present and non-blank, and no other field is accepted.
func (c Credentials) Validate(inst Institution) error {
	spec, ok := institutions[inst]
	if !ok {
		return fmt.Errorf("%w: %w: %q", errs.ErrValidation, errs.ErrUnsupportedInstitution, string(inst))
	}
	var missing []string
	for _, f := range spec.fields {
		if strings.TrimSpace(c[f]) == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing credential fields for %s: %s", errs.ErrValidation, inst, strings.Join(missing, ", "))
	}
	allowed := make(map[string]struct{}, len(spec.fields))
	for _, f := range spec.fields {
		allowed[f] = struct{}{}
	}
	var unknown []string
	for k := range c {
		if _, ok := allowed[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: unknown credential fields for %s: %s", errs.ErrValidation, inst, strings.Join(unknown, ", "))
	}
	return nil
}
