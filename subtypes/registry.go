package subtypes

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/mmdatafocus/cmdb_cleanser/models"
	"github.com/shopspring/decimal"
)

type Family string

const (
	FamilyString  Family = "string"
	FamilyNumber  Family = "number"
	FamilyDate    Family = "date"
	FamilyBoolean Family = "boolean"
)

// FamilyOf maps a column type to the subtype family that may refine it.
func FamilyOf(t models.ColumnType) Family {
	switch t {
	case models.ColumnTypeNumber:
		return FamilyNumber
	case models.ColumnTypeDate:
		return FamilyDate
	case models.ColumnTypeBoolean:
		return FamilyBoolean
	default:
		return FamilyString
	}
}

type FixStrategy string

const (
	FixClean         FixStrategy = "clean"
	FixCleanHostname FixStrategy = "clean-hostname"
	FixCleanFQDN     FixStrategy = "clean-fqdn"
	FixCleanPhone    FixStrategy = "clean-phone"
	FixFormatMAC     FixStrategy = "format-mac"
	FixAddProtocol   FixStrategy = "add-protocol"
	FixTruncate      FixStrategy = "truncate"
	FixReformat      FixStrategy = "reformat"
	FixManual        FixStrategy = "manual"
)

type SemanticCheck string

const (
	SemanticNone       SemanticCheck = ""
	SemanticIPv4Octets SemanticCheck = "ipv4-octets"
	SemanticPhone      SemanticCheck = "phone"
	SemanticUUID       SemanticCheck = "uuid"
)

// StringRule holds the string family constraints. Zero bounds mean unbounded.
type StringRule struct {
	MinLength int
	MaxLength int
	Pattern   *regexp.Regexp
	// Tag is a go-playground/validator tag checked after Pattern.
	Tag      string
	Semantic SemanticCheck
	TooShort string
	TooLong  string
	Format   string
}

type NumberRule struct {
	Min           decimal.NullDecimal
	Max           decimal.NullDecimal
	DecimalPlaces int // -1 allows any precision
	IntegerOnly   bool
	StripSymbols  bool
}

type DateRule struct {
	Layout  string
	Display string
}

type BooleanRule struct {
	True  string
	False string
}

// Rule is a tagged union: exactly one of the family payloads is set, matching Family.
type Rule struct {
	ID      string
	Name    string
	Family  Family
	Fix     FixStrategy
	String  *StringRule
	Number  *NumberRule
	Date    *DateRule
	Boolean *BooleanRule
}

// Describe renders the rule's bounds for action descriptions.
func (r *Rule) Describe() string {
	switch r.Family {
	case FamilyString:
		s := r.String
		switch {
		case s.MinLength > 0 && s.MaxLength > 0 && s.MinLength == s.MaxLength:
			return fmt.Sprintf("%s (exactly %d characters)", r.Name, s.MinLength)
		case s.MinLength > 0 && s.MaxLength > 0:
			return fmt.Sprintf("%s (%d-%d characters)", r.Name, s.MinLength, s.MaxLength)
		case s.MaxLength > 0:
			return fmt.Sprintf("%s (max %d characters)", r.Name, s.MaxLength)
		}
		return r.Name
	case FamilyNumber:
		n := r.Number
		var parts []string
		if n.Min.Valid && n.Max.Valid {
			parts = append(parts, fmt.Sprintf("range %s-%s", n.Min.Decimal, n.Max.Decimal))
		} else if n.Min.Valid {
			parts = append(parts, fmt.Sprintf("min %s", n.Min.Decimal))
		} else if n.Max.Valid {
			parts = append(parts, fmt.Sprintf("max %s", n.Max.Decimal))
		}
		if n.IntegerOnly {
			parts = append(parts, "whole numbers")
		} else if n.DecimalPlaces >= 0 {
			parts = append(parts, strconv.Itoa(n.DecimalPlaces)+" decimal places")
		}
		if len(parts) == 0 {
			return r.Name
		}
		return fmt.Sprintf("%s (%s)", r.Name, strings.Join(parts, ", "))
	case FamilyDate:
		return fmt.Sprintf("%s (%s)", r.Name, r.Date.Display)
	case FamilyBoolean:
		return fmt.Sprintf("%s (%s/%s)", r.Name, r.Boolean.True, r.Boolean.False)
	}
	return r.Name
}

func (r *Rule) valid() error {
	set := 0
	for _, ok := range []bool{r.String != nil, r.Number != nil, r.Date != nil, r.Boolean != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("subtype %q must carry exactly one family payload", r.ID)
	}
	switch r.Family {
	case FamilyString:
		if r.String == nil {
			return fmt.Errorf("subtype %q: string family without string rule", r.ID)
		}
	case FamilyNumber:
		if r.Number == nil {
			return fmt.Errorf("subtype %q: number family without number rule", r.ID)
		}
	case FamilyDate:
		if r.Date == nil {
			return fmt.Errorf("subtype %q: date family without date rule", r.ID)
		}
	case FamilyBoolean:
		if r.Boolean == nil {
			return fmt.Errorf("subtype %q: boolean family without boolean rule", r.ID)
		}
	default:
		return fmt.Errorf("subtype %q: unknown family %q", r.ID, r.Family)
	}
	return nil
}

// Registry is the immutable subtype catalog shared by the detector, validator and fix generator.
type Registry struct {
	byID     map[string]*Rule
	families map[Family][]*Rule
	keywords []keyword
	region   string
}

// NewRegistry indexes the given families. Ids must be unique across all of them.
func NewRegistry(families ...[]*Rule) (*Registry, error) {
	r := &Registry{
		byID:     make(map[string]*Rule),
		families: make(map[Family][]*Rule),
		keywords: defaultKeywords,
		region:   "US",
	}
	for _, fam := range families {
		for _, rule := range fam {
			if err := rule.valid(); err != nil {
				return nil, err
			}
			if _, exists := r.byID[rule.ID]; exists {
				return nil, fmt.Errorf("duplicate subtype id %q", rule.ID)
			}
			r.byID[rule.ID] = rule
			r.families[rule.Family] = append(r.families[rule.Family], rule)
		}
	}
	return r, nil
}

// WithPhoneRegion returns a copy of the registry that parses phone numbers for region.
func (r *Registry) WithPhoneRegion(region string) *Registry {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		return r
	}
	cp := *r
	cp.region = region
	return &cp
}

func (r *Registry) PhoneRegion() string {
	return r.region
}

func (r *Registry) Lookup(id string) (*Rule, bool) {
	rule, ok := r.byID[id]
	return rule, ok
}

// ForType lists the subtypes that may refine t, in catalog order.
func (r *Registry) ForType(t models.ColumnType) []*Rule {
	return r.families[FamilyOf(t)]
}

// Compatible reports whether subtype id may refine column type t.
func (r *Registry) Compatible(id string, t models.ColumnType) bool {
	rule, ok := r.byID[id]
	return ok && rule.Family == FamilyOf(t)
}

func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the built-in catalog, constructed once.
func Default() *Registry {
	defaultOnce.Do(func() {
		reg, err := NewRegistry(stringRules(), numberRules(), dateRules(), booleanRules())
		if err != nil {
			panic(err)
		}
		defaultRegistry = reg
	})
	return defaultRegistry
}
