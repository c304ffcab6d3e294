// Package catalog resolves the product references typed at the counter: an
// internal id, a display code with a trailing asterisk ("12*") or the full
// product label.
package catalog

import (
	"math"
	"strconv"
	"strings"

	"tebaspos/backend/internal/domain"
)

const (
	DefaultBrand = "Outros"
	noCode       = "—"
)

func FormatCode(code *int) string {
	if code == nil {
		return noCode
	}
	return strconv.Itoa(*code) + "*"
}

// Label renders "descricao • marca (12*)". The brand part is omitted when blank.
func Label(p domain.Product) string {
	var b strings.Builder
	b.WriteString(p.Description)
	if brand := strings.TrimSpace(p.Brand); brand != "" {
		b.WriteString(" • ")
		b.WriteString(brand)
	}
	b.WriteString(" (")
	b.WriteString(FormatCode(p.Code))
	b.WriteString(")")
	return b.String()
}

// ParseStrictCode accepts only "<number>*". Fractions are truncated.
func ParseStrictCode(raw string) (int, bool) {
	t := strings.TrimSpace(raw)
	if !strings.HasSuffix(t, "*") {
		return 0, false
	}
	num := strings.TrimSpace(strings.TrimSuffix(t, "*"))
	if num == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return int(math.Trunc(n)), true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParseMinimum reads a minimum stock field. Blank or "-" means no minimum;
// anything else is truncated and floored at zero.
func ParseMinimum(raw string) *int {
	t := strings.TrimSpace(raw)
	if t == "" || t == "-" {
		return nil
	}
	n, err := strconv.ParseFloat(strings.Replace(t, ",", ".", 1), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	v := int(math.Trunc(n))
	if v < 0 {
		v = 0
	}
	return &v
}

func NormalizeBrand(raw string) string {
	t := strings.TrimSpace(raw)
	if t == "" || strings.EqualFold(t, DefaultBrand) {
		return DefaultBrand
	}
	return t
}

type Index struct {
	byID    map[string]domain.Product
	byCode  map[int]domain.Product
	byLabel map[string]domain.Product
}

func NewIndex(products []domain.Product) *Index {
	idx := &Index{
		byID:    make(map[string]domain.Product, len(products)),
		byCode:  make(map[int]domain.Product, len(products)),
		byLabel: make(map[string]domain.Product, len(products)),
	}
	for _, p := range products {
		idx.byID[p.ID] = p
		if p.Code != nil {
			idx.byCode[*p.Code] = p
		}
		idx.byLabel[Label(p)] = p
	}
	return idx
}

func (x *Index) Len() int {
	return len(x.byID)
}

func (x *Index) ByID(id string) (domain.Product, bool) {
	p, ok := x.byID[id]
	return p, ok
}

func (x *Index) ByCode(code int) (domain.Product, bool) {
	p, ok := x.byCode[code]
	return p, ok
}

func (x *Index) ByLabel(label string) (domain.Product, bool) {
	p, ok := x.byLabel[strings.TrimSpace(label)]
	return p, ok
}

// Resolve tries the id, then a strict "N*" code, then the exact label.
func (x *Index) Resolve(ref string) (domain.Product, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.Product{}, false
	}
	if p, ok := x.byID[ref]; ok {
		return p, true
	}
	if code, ok := ParseStrictCode(ref); ok {
		return x.ByCode(code)
	}
	return x.ByLabel(ref)
}

// ResolveQuick is Resolve plus the quick-entry shortcut where a bare number
// picks the product with that code.
func (x *Index) ResolveQuick(ref string) (domain.Product, bool) {
	if p, ok := x.Resolve(ref); ok {
		return p, true
	}
	t := strings.TrimSpace(ref)
	if !isDigits(t) {
		return domain.Product{}, false
	}
	code, err := strconv.Atoi(t)
	if err != nil {
		return domain.Product{}, false
	}
	return x.ByCode(code)
}
