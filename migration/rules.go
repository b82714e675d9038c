package migration

import (
	"phenotips.org/pedigree/utils"
)

// Transform maps an old field value to the new one. Returning false discards
// the value: the old field is removed and the new one is not written.
type Transform func(value interface{}) (interface{}, bool)

// Rule moves Old to New through Transform. It applies only when Old is
// present and New is blank, which makes a second run a no-op. A rule with
// Old == New rewrites the value in place.
type Rule struct {
	Old       string
	New       string
	Transform Transform
	// Applies further restricts the objects the rule touches.
	Applies func(obj map[string]interface{}) bool
	// KeepOld leaves Old in place for a later rule reading the same field.
	KeepOld bool
}

type UnmappedPolicy int

const (
	// KeepUnmapped passes values missing from the table through unchanged.
	KeepUnmapped UnmappedPolicy = iota
	// DropUnmapped discards values missing from the table.
	DropUnmapped
)

func identity(value interface{}) (interface{}, bool) {
	return value, true
}

func Rename(oldField, newField string) Rule {
	return Rule{Old: oldField, New: newField, Transform: identity}
}

// Translate moves oldField to newField, translating string values (or each
// element of a list) through table. Values equal to one of discard are always
// dropped, whatever the policy.
func Translate(oldField, newField string, table map[string]string, policy UnmappedPolicy, discard ...string) Rule {
	return Rule{
		Old:       oldField,
		New:       newField,
		Transform: tableTransform(table, policy, discard),
	}
}

// TranslateInPlace substitutes the value of field through table. Unmapped
// values stay as they are.
func TranslateInPlace(field string, table map[string]string) Rule {
	return Rule{
		Old:       field,
		New:       field,
		Transform: tableTransform(table, KeepUnmapped, nil),
		Applies: func(obj map[string]interface{}) bool {
			return hasMappedValue(obj[field], table)
		},
	}
}

func tableTransform(table map[string]string, policy UnmappedPolicy, discard []string) Transform {
	translate := func(value interface{}) (interface{}, bool) {
		key := utils.AsString(value)
		if utils.ContainsString(discard, key) {
			return nil, false
		}
		if mapped, ok := table[key]; ok {
			return mapped, true
		}
		if policy == DropUnmapped {
			return nil, false
		}
		return value, true
	}
	return func(value interface{}) (interface{}, bool) {
		list, ok := value.([]interface{})
		if !ok {
			return translate(value)
		}
		result := make([]interface{}, 0, len(list))
		for _, item := range list {
			if translated, keep := translate(item); keep {
				result = append(result, translated)
			}
		}
		return result, len(result) > 0
	}
}

func hasMappedValue(value interface{}, table map[string]string) bool {
	if list, ok := value.([]interface{}); ok {
		for _, item := range list {
			if _, mapped := table[utils.AsString(item)]; mapped {
				return true
			}
		}
		return false
	}
	_, mapped := table[utils.AsString(value)]
	return mapped
}

// Apply runs the rule on one object and reports whether it changed it.
func (rule Rule) Apply(obj map[string]interface{}) bool {
	if obj == nil {
		return false
	}
	value, ok := obj[rule.Old]
	if !ok {
		return false
	}
	if rule.Applies != nil && !rule.Applies(obj) {
		return false
	}
	inPlace := rule.Old == rule.New
	if !inPlace && !utils.IsBlank(obj[rule.New]) {
		return false
	}
	transform := rule.Transform
	if transform == nil {
		transform = identity
	}
	if !inPlace && !rule.KeepOld {
		delete(obj, rule.Old)
	}
	newValue, keep := transform(value)
	if !keep {
		if inPlace {
			delete(obj, rule.Old)
		}
		return true
	}
	obj[rule.New] = newValue
	return true
}

// RuleSet applies rules to the objects Select picks from a record. Without
// Select the rules run on the record itself.
type RuleSet struct {
	Select func(record *Record) ([]map[string]interface{}, error)
	Rules  []Rule
}

func (ruleSet RuleSet) Apply(record *Record) (bool, error) {
	objects := []map[string]interface{}{record.Data}
	if ruleSet.Select != nil {
		var err error
		if objects, err = ruleSet.Select(record); err != nil {
			return false, err
		}
	}
	modified := false
	for _, obj := range objects {
		for _, rule := range ruleSet.Rules {
			if rule.Apply(obj) {
				modified = true
			}
		}
	}
	return modified, nil
}

// ListElements selects the objects of the list stored under field. A missing
// field selects nothing; anything but a list of objects is malformed.
func ListElements(field string) func(record *Record) ([]map[string]interface{}, error) {
	return func(record *Record) ([]map[string]interface{}, error) {
		raw, ok := record.Data[field]
		if !ok || raw == nil {
			return nil, nil
		}
		list, ok := raw.([]interface{})
		if !ok {
			return nil, malformed("%s is %T, not a list", field, raw)
		}
		objects := make([]map[string]interface{}, 0, len(list))
		for index, item := range list {
			obj, ok := item.(map[string]interface{})
			if !ok {
				return nil, malformed("%s[%d] is %T, not an object", field, index, item)
			}
			objects = append(objects, obj)
		}
		return objects, nil
	}
}
