package types

type PatientName struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// PatientRecord is the canonical patient shape exported from a pedigree.
type PatientRecord struct {
	ID                  string                   `json:"id,omitempty"`
	ExternalID          string                   `json:"external_id,omitempty"`
	Sex                 string                   `json:"sex,omitempty"`
	PatientName         *PatientName             `json:"patient_name,omitempty"`
	DateOfBirth         string                   `json:"date_of_birth,omitempty"`
	DateOfDeath         string                   `json:"date_of_death,omitempty"`
	Features            []interface{}            `json:"features,omitempty"`
	NonstandardFeatures []interface{}            `json:"nonstandard_features,omitempty"`
	Disorders           []map[string]interface{} `json:"disorders,omitempty"`
	Genes               []GeneRecord             `json:"genes,omitempty"`
	FamilyHistory       interface{}              `json:"family_history,omitempty"`
}

func (record PatientRecord) IsEmpty() bool {
	return record.ID == "" && record.ExternalID == "" && record.PatientName == nil
}
