package vocabulary

import (
	"errors"
	"fmt"
	"gopkg.in/yaml.v3"
	"io/ioutil"
	"path/filepath"
	"strings"
)

// ErrTermNotFound is returned when a vocabulary has no term for an identifier.
var ErrTermNotFound = errors.New("term not found")

type Vocabulary interface {
	Term(id string) (Term, error)
}

type Term struct {
	ID        string   `yaml:"id" json:"id"`
	Name      string   `yaml:"name" json:"name"`
	Ancestors []string `yaml:"ancestors" json:"ancestors,omitempty"`
}

func (term Term) ToJSON() map[string]interface{} {
	result := map[string]interface{}{"id": term.ID}
	if term.Name != "" {
		result["name"] = term.Name
	}
	return result
}

// Catalog is a Vocabulary held in memory, usually loaded from a YAML file:
//
//	name: hpo
//	terms:
//	  - id: HP:0012891
//	    name: High posterior hairline
//	    ancestors: [HP:0000118, HP:0000152]
type Catalog struct {
	Name  string `yaml:"name"`
	Terms []Term `yaml:"terms"`
	index map[string]Term
}

// Load reads a catalog file. An empty path gives an empty catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return FromTerms(""), nil
	}
	content, err := ioutil.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	var catalog Catalog
	if err := yaml.Unmarshal(content, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary %s: %w", path, err)
	}
	if len(catalog.Terms) == 0 {
		return nil, fmt.Errorf("vocabulary %s has no terms", path)
	}
	catalog.buildIndex()
	return &catalog, nil
}

func FromTerms(name string, terms ...Term) *Catalog {
	catalog := Catalog{Name: name, Terms: terms}
	catalog.buildIndex()
	return &catalog
}

func (catalog *Catalog) buildIndex() {
	catalog.index = make(map[string]Term, len(catalog.Terms))
	for _, term := range catalog.Terms {
		catalog.index[strings.ToUpper(term.ID)] = term
	}
}

// Term looks an identifier up, ignoring case.
func (catalog *Catalog) Term(id string) (Term, error) {
	term, ok := catalog.index[strings.ToUpper(strings.TrimSpace(id))]
	if !ok {
		return Term{}, fmt.Errorf("%w: %q in %s vocabulary", ErrTermNotFound, id, catalog.Name)
	}
	return term, nil
}

func (catalog *Catalog) Len() int {
	return len(catalog.index)
}
