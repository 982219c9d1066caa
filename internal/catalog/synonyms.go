package catalog

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Synonyms folds raw tag spellings onto canonical display labels.
// Lookups are case-insensitive; unknown tags are returned unchanged.
// A Synonyms value is immutable once built.
type Synonyms struct {
	canonical map[string]string   // folded alias -> label
	aliases   map[string][]string // label -> aliases as written
}

var folder = cases.Fold()

// foldKey is the comparison form of a label: NFC, case-folded, trimmed.
func foldKey(s string) string {
	return folder.String(norm.NFC.String(strings.TrimSpace(s)))
}

// NewSynonyms builds a table from label -> aliases. Every label also maps
// to itself, so differently cased spellings of a label fold onto it.
func NewSynonyms(table map[string][]string) (*Synonyms, error) {
	s := &Synonyms{
		canonical: make(map[string]string),
		aliases:   make(map[string][]string),
	}
	add := func(alias, label string) error {
		key := foldKey(alias)
		if key == "" {
			return fmt.Errorf("empty alias for %q", label)
		}
		if prev, ok := s.canonical[key]; ok && prev != label {
			return fmt.Errorf("alias %q maps to both %q and %q", alias, prev, label)
		}
		s.canonical[key] = label
		return nil
	}
	for label, aliases := range table {
		label = strings.TrimSpace(label)
		if label == "" {
			return nil, fmt.Errorf("empty label")
		}
		if err := add(label, label); err != nil {
			return nil, err
		}
		for _, alias := range aliases {
			if err := add(alias, label); err != nil {
				return nil, err
			}
			s.aliases[label] = append(s.aliases[label], strings.TrimSpace(alias))
		}
	}
	return s, nil
}

// Canonical returns the label tag folds onto.
func (s *Synonyms) Canonical(tag string) string {
	tag = strings.TrimSpace(tag)
	if s == nil {
		return tag
	}
	if label, ok := s.canonical[foldKey(tag)]; ok {
		return label
	}
	return tag
}

// Aliases returns every stored spelling that folds onto the same label as
// tag: the label, its lower-case form and its aliases, without duplicates.
// Unknown tags come back on their own.
func (s *Synonyms) Aliases(tag string) []string {
	label := s.Canonical(tag)
	if label == "" {
		return nil
	}
	out := []string{label}
	seen := map[string]bool{label: true}
	push := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	push(strings.TrimSpace(tag))
	push(strings.ToLower(label))
	if s != nil {
		for _, alias := range s.aliases[label] {
			push(alias)
		}
	}
	return out
}

// Len returns the number of aliases, labels included.
func (s *Synonyms) Len() int {
	if s == nil {
		return 0
	}
	return len(s.canonical)
}

// defaultTable covers the legacy English tag set and common spellings.
// "Budget" and "Minimal" have no German category and pass through.
var defaultTable = map[string][]string{
	"Niedlich":   {"cute", "süß", "suess", "kawaii"},
	"Skurril":    {"weird", "strange", "seltsam", "kurios"},
	"Geschenke":  {"gift", "gifts", "geschenk", "geschenkidee"},
	"Luxus":      {"luxury", "luxuriös", "premium"},
	"Lustig":     {"funny", "witzig", "humor"},
	"Nützliches": {"practical", "useful", "nützlich", "praktisch"},
	"Spielzeug":  {"toy", "toys", "spielzeuge"},
	"Pflege":     {"grooming", "care", "fellpflege"},
	"Fütterung":  {"feeding", "food", "futter"},
	"Kleidung":   {"clothing", "clothes", "apparel"},
	"für Mensch": {"for humans", "human", "für menschen"},
	"für Tier":   {"for cats", "for pets", "für tiere", "für katzen"},
}

// DefaultSynonyms returns the built-in table.
func DefaultSynonyms() *Synonyms {
	s, err := NewSynonyms(defaultTable)
	if err != nil {
		panic(err)
	}
	return s
}

// synonymsFile is the YAML shape of a synonyms file:
//
//	synonyms:
//	  Niedlich: [cute, süß]
//	  Spielzeug: [toy]
type synonymsFile struct {
	Synonyms map[string][]string `yaml:"synonyms"`
}

// LoadSynonyms reads a YAML synonyms file.
func LoadSynonyms(path string) (*Synonyms, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read synonyms: %w", err)
	}
	return ParseSynonyms(data)
}

// ParseSynonyms parses YAML synonyms data.
func ParseSynonyms(data []byte) (*Synonyms, error) {
	var f synonymsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse synonyms: %w", err)
	}
	if len(f.Synonyms) == 0 {
		return nil, fmt.Errorf("parse synonyms: no entries under \"synonyms\"")
	}
	return NewSynonyms(f.Synonyms)
}
