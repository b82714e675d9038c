package pedigree

import (
	"phenotips.org/pedigree/utils"
	"strings"
)

const (
	legacyPropertiesKey    = "prop"
	legacyPropertiesAltKey = "pedigreeProperties"
	legacyNodeIDKey        = "id"
	legacyProbandKey       = "proband"
	legacyProbandAltKey    = "probandNodeID"
)

type legacySchema struct{}

type legacyNode struct {
	id    int
	props map[string]interface{}
}

// nodes walks "members", falling back to "GG". Nodes without an id are
// numbered by their position.
func (legacySchema) nodes(data map[string]interface{}) []legacyNode {
	raw, ok := data[legacyMembersKey].([]interface{})
	if !ok {
		raw, _ = data[legacyGraphKey].([]interface{})
	}
	nodes := make([]legacyNode, 0, len(raw))
	for index, item := range raw {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		id, ok := utils.AsInt(obj[legacyNodeIDKey])
		if !ok {
			id = index
		}
		props, ok := obj[legacyPropertiesKey].(map[string]interface{})
		if !ok {
			props, _ = obj[legacyPropertiesAltKey].(map[string]interface{})
		}
		nodes = append(nodes, legacyNode{id: id, props: props})
	}
	return nodes
}

func (schema legacySchema) members(data map[string]interface{}) []Member {
	var members []Member
	for _, node := range schema.nodes(data) {
		if utils.AsString(node.props[patientLinkKey]) == "" {
			continue
		}
		members = append(members, newMember(node.id, node.props))
	}
	return members
}

func (schema legacySchema) nodeProperties(data map[string]interface{}) []map[string]interface{} {
	var result []map[string]interface{}
	for _, node := range schema.nodes(data) {
		if node.props != nil {
			result = append(result, node.props)
		}
	}
	return result
}

func (schema legacySchema) proband(data map[string]interface{}) *ProbandRef {
	raw, ok := data[legacyProbandKey]
	if !ok {
		raw = data[legacyProbandAltKey]
	}
	probandID, ok := utils.AsInt(raw)
	if !ok {
		return nil
	}
	for _, node := range schema.nodes(data) {
		if node.id != probandID {
			continue
		}
		patientID := utils.AsString(node.props[patientLinkKey])
		if patientID == "" {
			return nil
		}
		return &ProbandRef{PatientID: patientID, LastName: lastName(node.props)}
	}
	return nil
}

func (schema legacySchema) unlink(data map[string]interface{}, patientID string) int {
	unlinked := 0
	for _, node := range schema.nodes(data) {
		linked := utils.AsString(node.props[patientLinkKey])
		if linked != "" && strings.EqualFold(linked, patientID) {
			delete(node.props, patientLinkKey)
			unlinked++
		}
	}
	return unlinked
}
