package pedigree

import (
	"phenotips.org/pedigree/utils"
)

const flatProbandKey = "proband"

type flatSchema struct{}

func (flatSchema) elements(data map[string]interface{}) []map[string]interface{} {
	raw, _ := data[flatDataKey].([]interface{})
	elements := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		if obj, ok := item.(map[string]interface{}); ok {
			elements = append(elements, obj)
		}
	}
	return elements
}

func (flatSchema) members(map[string]interface{}) []Member {
	return nil
}

func (schema flatSchema) nodeProperties(data map[string]interface{}) []map[string]interface{} {
	return schema.elements(data)
}

func (schema flatSchema) proband(data map[string]interface{}) *ProbandRef {
	for _, element := range schema.elements(data) {
		if flag, _ := element[flatProbandKey].(bool); !flag {
			continue
		}
		patientID := utils.AsString(element[patientLinkKey])
		if patientID == "" {
			return nil
		}
		return &ProbandRef{PatientID: patientID, LastName: lastName(element)}
	}
	return nil
}

func (schema flatSchema) unlink(data map[string]interface{}, patientID string) int {
	unlinked := 0
	for _, element := range schema.elements(data) {
		if linked, ok := element[patientLinkKey].(string); ok && linked == patientID {
			delete(element, patientLinkKey)
			unlinked++
		}
	}
	return unlinked
}
