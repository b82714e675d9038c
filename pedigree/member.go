package pedigree

import (
	"phenotips.org/pedigree/types"
	"phenotips.org/pedigree/utils"
)

const (
	patientLinkKey = "phenotipsId"

	externalIDKey    = "externalID"
	firstNameKey     = "fName"
	lastNameKey      = "lName"
	lastNameAltKey   = "lastName"
	patientNameKey   = "patient_name"
	sexKey           = "gender"
	sexAltKey        = "sex"
	birthDateKey     = "dob"
	deathDateKey     = "dod"
	featuresKey      = "features"
	nonstandardKey   = "nonstandard_features"
	disordersKey     = "disorders"
	genesKey         = "genes"
	candidateGeneKey = "candidateGenes"
	familyHistoryKey = "family_history"
)

// Member is one pedigree node linked to a patient record.
type Member struct {
	NodeID              int
	PatientID           string
	ExternalID          string
	FirstName           string
	LastName            string
	Sex                 string
	DateOfBirth         *types.DateEstimate
	DateOfDeath         *types.DateEstimate
	Features            []interface{}
	NonstandardFeatures []interface{}
	Disorders           []string
	Genes               []types.GeneRecord
	FamilyHistory       interface{}
	// Properties is the node's raw property object.
	Properties map[string]interface{}
}

func newMember(nodeID int, props map[string]interface{}) Member {
	member := Member{
		NodeID:              nodeID,
		PatientID:           utils.AsString(props[patientLinkKey]),
		ExternalID:          utils.AsString(props[externalIDKey]),
		FirstName:           utils.AsString(props[firstNameKey]),
		LastName:            lastName(props),
		Sex:                 firstString(props, sexKey, sexAltKey),
		DateOfBirth:         parseDate(props[birthDateKey]),
		DateOfDeath:         parseDate(props[deathDateKey]),
		Features:            asSlice(props[featuresKey]),
		NonstandardFeatures: asSlice(props[nonstandardKey]),
		FamilyHistory:       props[familyHistoryKey],
		Properties:          props,
	}
	if name, ok := props[patientNameKey].(map[string]interface{}); ok && member.FirstName == "" {
		member.FirstName = utils.AsString(name["first_name"])
	}
	for _, disorder := range asSlice(props[disordersKey]) {
		if id := utils.AsString(disorder); id != "" {
			member.Disorders = append(member.Disorders, id)
		}
	}
	member.Genes = genes(props)
	return member
}

func lastName(props map[string]interface{}) string {
	if name, ok := props[patientNameKey].(map[string]interface{}); ok {
		if last := utils.AsString(name["last_name"]); last != "" {
			return last
		}
	}
	return firstString(props, lastNameKey, lastNameAltKey)
}

func genes(props map[string]interface{}) []types.GeneRecord {
	var result []types.GeneRecord
	seen := map[string]bool{}
	for _, raw := range asSlice(props[genesKey]) {
		obj, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		gene, ok := types.ParseGeneRecord(obj)
		if !ok || seen[gene.Gene] {
			continue
		}
		seen[gene.Gene] = true
		result = append(result, gene)
	}
	for _, raw := range asSlice(props[candidateGeneKey]) {
		name := utils.AsString(raw)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		result = append(result, types.GeneRecord{Gene: name, Status: types.ClassificationCandidate})
	}
	return result
}

func parseDate(v interface{}) *types.DateEstimate {
	if v == nil {
		return nil
	}
	date := types.ParseDate(v)
	if date.IsEmpty() {
		return nil
	}
	return &date
}

func firstString(props map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s := utils.AsString(props[key]); s != "" {
			return s
		}
	}
	return ""
}

func asSlice(v interface{}) []interface{} {
	slice, _ := v.([]interface{})
	return slice
}
