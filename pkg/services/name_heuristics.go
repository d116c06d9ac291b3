package services

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"
)

// NameHeuristics is the immutable vocabulary used to reason about column names:
// identifier keywords, generic column names, domain synonyms and FK name patterns.
// Each engine owns one value, so runs with different dictionaries can coexist.
type NameHeuristics struct {
	canonicalPKNames map[string]bool
	idKeywords       map[string]bool
	genericColumns   map[string]bool
	synonymGroups    map[string][]string
	wordGroups       map[string][]string
	fkPatterns       []*regexp.Regexp
}

// NameHeuristicsFile is the YAML shape of a heuristics file. Entries extend the
// built-in vocabulary unless Replace is true.
type NameHeuristicsFile struct {
	Replace        bool                `yaml:"replace"`
	IDKeywords     []string            `yaml:"id_keywords"`
	GenericColumns []string            `yaml:"generic_columns"`
	Synonyms       map[string][]string `yaml:"synonyms"`
	FKPatterns     []string            `yaml:"fk_patterns"`
}

// Default vocabulary.
var (
	defaultCanonicalPKNames = []string{"id", "uid", "uuid", "guid", "pk"}

	defaultIDKeywords = []string{
		"id", "key", "code", "number", "uid", "uuid", "guid",
		"pk", "identifier", "ident", "codigo", "cod", "num",
		"reference", "ref",
	}

	defaultGenericColumns = []string{
		"id", "uid", "uuid", "name", "description", "created_at",
		"updated_at", "status", "type", "date", "time", "timestamp",
		"active", "deleted", "enabled", "visible",
	}

	defaultSynonyms = map[string][]string{
		"patient":     {"patient", "person", "individual", "client", "paciente"},
		"appointment": {"appointment", "visit", "booking", "schedule", "cita"},
		"medication":  {"medication", "medicine", "drug", "prescription", "medicamento"},
		"doctor":      {"doctor", "physician", "provider", "staff", "medico"},
		"pet":         {"pet", "animal", "patient", "mascota"},
		"owner":       {"owner", "client", "customer", "dueño", "propietario"},
	}

	defaultFKPatterns = []string{
		`(?i)^.+_id$`, `(?i)^.+_key$`, `(?i)^.+_fk$`, `(?i)^.+_ref$`, `(?i)^.+_reference$`,
		`(?i)^id_.+`, `(?i)^fk_.+`, `(?i)^ref_.+`, `(?i)^.+_foreign$`, `(?i)^.+_link$`,
		`^.*[a-z](Id|ID)$`,
	}
)

// DefaultNameHeuristics returns the built-in vocabulary.
func DefaultNameHeuristics() *NameHeuristics {
	h, err := newNameHeuristics(NameHeuristicsFile{
		IDKeywords:     defaultIDKeywords,
		GenericColumns: defaultGenericColumns,
		Synonyms:       defaultSynonyms,
		FKPatterns:     defaultFKPatterns,
	})
	if err != nil {
		// Built-in patterns are constants; failing to compile them is a programming error.
		panic(err)
	}
	return h
}

// LoadNameHeuristics reads a YAML heuristics file and merges it with the defaults.
// An empty path returns the defaults.
func LoadNameHeuristics(path string) (*NameHeuristics, error) {
	if path == "" {
		return DefaultNameHeuristics(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read heuristics file: %w", err)
	}

	var file NameHeuristicsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse heuristics file: %w", err)
	}

	return MergeNameHeuristics(file)
}

// MergeNameHeuristics builds heuristics from the defaults extended (or replaced) by file.
func MergeNameHeuristics(file NameHeuristicsFile) (*NameHeuristics, error) {
	if file.Replace {
		return newNameHeuristics(file)
	}

	merged := NameHeuristicsFile{
		IDKeywords:     append(slices.Clone(defaultIDKeywords), file.IDKeywords...),
		GenericColumns: append(slices.Clone(defaultGenericColumns), file.GenericColumns...),
		Synonyms:       make(map[string][]string, len(defaultSynonyms)+len(file.Synonyms)),
		FKPatterns:     append(slices.Clone(defaultFKPatterns), file.FKPatterns...),
	}
	for concept, words := range defaultSynonyms {
		merged.Synonyms[concept] = slices.Clone(words)
	}
	for concept, words := range file.Synonyms {
		merged.Synonyms[concept] = append(merged.Synonyms[concept], words...)
	}

	return newNameHeuristics(merged)
}

func newNameHeuristics(file NameHeuristicsFile) (*NameHeuristics, error) {
	h := &NameHeuristics{
		canonicalPKNames: toSet(defaultCanonicalPKNames),
		idKeywords:       toSet(file.IDKeywords),
		genericColumns:   toSet(file.GenericColumns),
		synonymGroups:    make(map[string][]string, len(file.Synonyms)),
		wordGroups:       make(map[string][]string),
	}

	concepts := make([]string, 0, len(file.Synonyms))
	for concept := range file.Synonyms {
		concepts = append(concepts, concept)
	}
	slices.Sort(concepts)

	for _, concept := range concepts {
		concept = strings.ToLower(concept)
		var words []string
		for _, w := range file.Synonyms[concept] {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" && !slices.Contains(words, w) {
				words = append(words, w)
			}
		}
		h.synonymGroups[concept] = words
		for _, w := range words {
			if !slices.Contains(h.wordGroups[w], concept) {
				h.wordGroups[w] = append(h.wordGroups[w], concept)
			}
		}
	}

	for _, p := range file.FKPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("fk pattern %q: %w", p, err)
		}
		h.fkPatterns = append(h.fkPatterns, re)
	}

	return h, nil
}

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			set[w] = true
		}
	}
	return set
}

// ============================================================================
// Name components
// ============================================================================

// NameComponents is a column name decomposed into lowercase tokens.
type NameComponents struct {
	Original string
	// Words are all tokens in order.
	Words []string
	// BaseWords are tokens that are not identifier keywords, plus their singular forms.
	BaseWords []string
	// HasIDComponent is true when any token is an identifier keyword.
	HasIDComponent bool
}

var separatorPattern = regexp.MustCompile(`[_\-\s.]+`)

// Components splits a name on separators and camelCase boundaries.
func (h *NameHeuristics) Components(name string) NameComponents {
	c := NameComponents{Original: name}

	for _, part := range separatorPattern.Split(name, -1) {
		for _, word := range splitCamelCase(part) {
			word = strings.ToLower(word)
			if word == "" {
				continue
			}
			c.Words = append(c.Words, word)

			if h.idKeywords[word] {
				c.HasIDComponent = true
				continue
			}
			c.BaseWords = appendUnique(c.BaseWords, word)
			if strings.HasSuffix(word, "s") && len(word) > 2 {
				c.BaseWords = appendUnique(c.BaseWords, word[:len(word)-1])
			}
			if singular := inflection.Singular(word); singular != word {
				c.BaseWords = appendUnique(c.BaseWords, singular)
			}
		}
	}

	return c
}

// splitCamelCase breaks "patientID" into ["patient", "ID"] and "HTTPServer" into
// ["HTTP", "Server"]. Digits stay attached to the preceding token.
func splitCamelCase(s string) []string {
	runes := []rune(s)
	if len(runes) == 0 {
		return nil
	}

	var words []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := false
		switch {
		case unicode.IsLower(prev) && unicode.IsUpper(cur):
			boundary = true
		case unicode.IsDigit(prev) && unicode.IsUpper(cur):
			boundary = true
		case unicode.IsUpper(prev) && unicode.IsUpper(cur) &&
			i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			boundary = true
		}
		if boundary {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	return append(words, string(runes[start:]))
}

func appendUnique(list []string, s string) []string {
	if slices.Contains(list, s) {
		return list
	}
	return append(list, s)
}

// ============================================================================
// Vocabulary queries
// ============================================================================

// IsCanonicalPKName reports whether name is one of id, uid, uuid, guid, pk.
func (h *NameHeuristics) IsCanonicalPKName(name string) bool {
	return h.canonicalPKNames[strings.ToLower(name)]
}

// IsIDKeyword reports whether a single token is an identifier keyword.
func (h *NameHeuristics) IsIDKeyword(word string) bool {
	return h.idKeywords[strings.ToLower(word)]
}

// HasIDKeyword reports whether a name carries an identifier keyword, either as a
// token or glued to the end of the name ("patientid").
func (h *NameHeuristics) HasIDKeyword(name string) bool {
	c := h.Components(name)
	if c.HasIDComponent {
		return true
	}
	lower := strings.ToLower(name)
	for kw := range h.idKeywords {
		if len(kw) >= 2 && strings.HasSuffix(lower, kw) && len(lower) > len(kw) {
			return true
		}
	}
	return false
}

// IsGeneric reports whether a column name is too common to signal a relationship.
func (h *NameHeuristics) IsGeneric(name string) bool {
	return h.genericColumns[strings.ToLower(name)]
}

// MatchesFKPattern reports whether a column name looks like a foreign key.
func (h *NameHeuristics) MatchesFKPattern(name string) bool {
	for _, re := range h.fkPatterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Singular returns the lowercase singular form of a table name.
func (h *NameHeuristics) Singular(name string) string {
	return inflection.Singular(strings.ToLower(name))
}

// TableForms returns the lowercase name of a table, its singular form and the
// name with one trailing "s" removed, without duplicates.
func (h *NameHeuristics) TableForms(table string) []string {
	lower := strings.ToLower(table)
	forms := []string{lower}
	forms = appendUnique(forms, inflection.Singular(lower))
	if trimmed := strings.TrimSuffix(lower, "s"); trimmed != "" {
		forms = appendUnique(forms, trimmed)
	}
	return forms
}

// SynonymGroups returns the concepts a word belongs to.
func (h *NameHeuristics) SynonymGroups(word string) []string {
	return h.wordGroups[strings.ToLower(word)]
}

// Synonyms returns every word in the groups of word, including word itself.
func (h *NameHeuristics) Synonyms(word string) []string {
	var out []string
	for _, concept := range h.wordGroups[strings.ToLower(word)] {
		for _, w := range h.synonymGroups[concept] {
			out = appendUnique(out, w)
		}
	}
	return out
}

// WordsAreRelated reports whether two lowercase tokens name the same thing:
// equal, one containing the other (both at least 3 characters), plural of each
// other, character similarity above 0.85, or members of one synonym group.
func (h *NameHeuristics) WordsAreRelated(a, b string) bool {
	return h.lexicallyRelated(a, b) || h.sameSynonymGroup(a, b)
}

// StringSimilarity is the Ratcliff/Obershelp ratio 2*M/T over characters,
// in [0,1].
func StringSimilarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return m.Ratio()
}
