package records

import (
	"context"
	"phenotips.org/pedigree/pedigree"
	"phenotips.org/pedigree/redis"
	"phenotips.org/pedigree/utils/maps"
)

type FamilyRecord struct {
	maps.BaseDocument
	Members   []string       `json:"members"`
	ProbandID string         `json:"proband_id"`
	Pedigree  PedigreeRecord `json:"pedigree"`
	Export    ExportInfo     `json:"export"`
}

// PedigreeRecord holds pedigree data either as an object or as JSON text.
type PedigreeRecord struct {
	Data  interface{} `json:"data"`
	Image string      `json:"image"`
}

type ExportInfo struct {
	Status        ExportStatus `json:"status"`
	Attempts      int          `json:"attempts"`
	StartedAt     *string      `json:"started_at"`
	CompletedAt   *string      `json:"completed_at"`
	FileKey       string       `json:"file_key"`
	PatientCount  int          `json:"patient_count"`
	ErrorMessages []string     `json:"error_messages"`
}

// FamilyExport is the view of a family record the export worker updates.
// Saving it leaves the rest of the record untouched.
type FamilyExport struct {
	maps.BaseDocument
	Export ExportInfo `json:"export"`
}

func (family *FamilyRecord) BuildPedigree() (*pedigree.Pedigree, error) {
	return pedigree.FromValue(family.Pedigree.Data, family.Pedigree.Image)
}

type FamilyRecords struct {
	client *redis.Client
}

func FamilyKey(familyID string) string {
	return familyPrefix + familyID
}

func (families FamilyRecords) Get(ctx context.Context, familyID string) (*FamilyRecord, error) {
	var family FamilyRecord
	err := families.client.GetPartialDocument(ctx, FamilyKey(familyID), &family)
	if err != nil {
		return nil, err
	}
	return &family, nil
}

func (families FamilyRecords) UpdateExport(ctx context.Context, familyID string, updateFunc func(family *FamilyExport)) error {
	var family FamilyExport
	return families.client.UpdatePartialDocument(ctx, FamilyKey(familyID), &family, updateFunc)
}
