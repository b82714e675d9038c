package migration

import (
	"encoding/json"
	"errors"
	"phenotips.org/pedigree/pedigree"
)

const (
	pedigreeKey      = "pedigree"
	pedigreeDataKey  = "data"
	pedigreeImageKey = "image"
)

// storedPedigree is the pedigree kept under a record's "pedigree" object.
// Its data may be stored as an object or as JSON text; it is written back in
// the same form.
type storedPedigree struct {
	holder  map[string]interface{}
	encoded bool
	*pedigree.Pedigree
}

// loadPedigree returns nil without an error when the record has no pedigree.
func loadPedigree(record *Record) (*storedPedigree, error) {
	raw, ok := record.Data[pedigreeKey]
	if !ok || raw == nil {
		return nil, nil
	}
	holder, ok := raw.(map[string]interface{})
	if !ok {
		return nil, malformed("%s is %T, not an object", pedigreeKey, raw)
	}
	data := holder[pedigreeDataKey]
	if s, ok := data.(string); ok && s == "" {
		return nil, nil
	}
	image, _ := holder[pedigreeImageKey].(string)
	p, err := pedigree.FromValue(data, image)
	if errors.Is(err, pedigree.ErrEmptyPedigree) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	_, encoded := data.(string)
	return &storedPedigree{holder: holder, encoded: encoded, Pedigree: p}, nil
}

func (stored *storedPedigree) store() error {
	if !stored.encoded {
		stored.holder[pedigreeDataKey] = stored.Data()
		return nil
	}
	b, err := json.Marshal(stored.Data())
	if err != nil {
		return err
	}
	stored.holder[pedigreeDataKey] = string(b)
	return nil
}

// pedigreeStep runs rule sets over the pedigree data of a record, seen as a
// record of its own, and writes the pedigree back only when they changed it.
type pedigreeStep struct {
	stepInfo
	ruleSets []RuleSet
}

func newPedigreeStep(name string, version int, description string, ruleSets ...RuleSet) Step {
	return &pedigreeStep{
		stepInfo: stepInfo{name: name, version: version, description: description},
		ruleSets: ruleSets,
	}
}

func (step *pedigreeStep) Migrate(record *Record) error {
	stored, err := loadPedigree(record)
	if err != nil || stored == nil {
		return err
	}
	data := Record{ID: record.ID, Data: stored.Data()}
	modified := false
	for _, ruleSet := range step.ruleSets {
		changed, err := ruleSet.Apply(&data)
		if err != nil {
			return err
		}
		modified = modified || changed
	}
	if !modified {
		return nil
	}
	return stored.store()
}

// pedigreeNodes selects the node property objects of pedigree data.
func pedigreeNodes(data *Record) ([]map[string]interface{}, error) {
	p, err := pedigree.New(data.Data, "")
	if err != nil {
		return nil, err
	}
	return p.NodeProperties(), nil
}

// nestedObject selects the object found by following keys, if there is one.
func nestedObject(keys ...string) func(record *Record) ([]map[string]interface{}, error) {
	return func(record *Record) ([]map[string]interface{}, error) {
		obj := record.Data
		for _, key := range keys {
			next, ok := obj[key].(map[string]interface{})
			if !ok {
				return nil, nil
			}
			obj = next
		}
		return []map[string]interface{}{obj}, nil
	}
}
