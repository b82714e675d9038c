package maps

import (
	"encoding/json"
	"phenotips.org/pedigree/utils"
	"reflect"
)

// PartialDocument is a typed view over a stored JSON object. Only the tagged
// fields are decoded; everything else in the object survives a save untouched.
type PartialDocument interface {
	getRaw() map[string]interface{}
	setRaw(map[string]interface{})
	MarshalJSON() ([]byte, error)
}

type BaseDocument struct {
	rawMap map[string]interface{}
}

func (doc *BaseDocument) getRaw() map[string]interface{} {
	if doc.rawMap == nil {
		doc.rawMap = map[string]interface{}{}
	}
	return doc.rawMap
}

func (doc *BaseDocument) setRaw(raw map[string]interface{}) {
	doc.rawMap = raw
}

func (doc *BaseDocument) MarshalJSON() ([]byte, error) {
	return json.Marshal(doc.getRaw())
}

// Raw exposes the full backing object, including keys the typed view ignores.
func Raw(doc PartialDocument) map[string]interface{} {
	return doc.getRaw()
}

func Fill(doc PartialDocument, from map[string]interface{}) error {
	if from == nil {
		from = map[string]interface{}{}
	}
	if err := mapToStruct(from, doc); err != nil {
		return err
	}
	doc.setRaw(from)
	return nil
}

func FillFromJSON(doc PartialDocument, b []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	return Fill(doc, raw)
}

// Sync writes the typed fields back into the backing object.
func Sync(doc PartialDocument) error {
	return updateMapFromStruct(doc.getRaw(), doc)
}

// ApplyUpdates calls updateFunc, a func(*T) where *T is doc's concrete type,
// and syncs the result back into the backing object.
func ApplyUpdates(doc PartialDocument, updateFunc interface{}) (err error) {
	if updateFunc == nil {
		return nil
	}
	defer utils.RecoverWithError(&err)
	funcValue := reflect.ValueOf(updateFunc)
	docValue := reflect.ValueOf(doc)
	funcValue.Call([]reflect.Value{docValue})
	return Sync(doc)
}
