package migration

import (
	"phenotips.org/pedigree/types"
	"phenotips.org/pedigree/utils"
)

const (
	genesField        = "genes"
	solvedGeneField   = "solved__gene_id"
	candidateGenesKey = "investigated_genes"
	rejectedGenesKey  = "rejected_genes"
)

// geneSources are read in this order; the first kind that names a gene keeps it.
var geneSources = []struct {
	field  string
	status types.Classification
}{
	{candidateGenesKey, types.ClassificationCandidate},
	{rejectedGenesKey, types.ClassificationRejected},
}

// genesStep collapses the solved gene, the investigated genes and the rejected
// genes into one classified "genes" list.
type genesStep struct {
	stepInfo
}

func newGenesStep() Step {
	return &genesStep{stepInfo{
		name:        "gene-classification",
		version:     71490,
		description: "Migrate all existing gene values to the classified gene list",
	}}
}

func (step *genesStep) Migrate(record *Record) error {
	data := record.Data
	_, hasSolved := data[solvedGeneField]
	_, hasCandidates := data[candidateGenesKey]
	_, hasRejected := data[rejectedGenesKey]
	if !hasSolved && !hasCandidates && !hasRejected {
		return nil
	}

	genes, err := objectList(data, genesField)
	if err != nil {
		return err
	}
	index := map[string]int{}
	for i, gene := range genes {
		index[utils.AsString(gene["gene"])] = i
	}

	if name := utils.AsString(data[solvedGeneField]); name != "" {
		if _, seen := index[name]; !seen {
			index[name] = len(genes)
			genes = append(genes, types.GeneRecord{Gene: name, Status: types.ClassificationSolved}.ToJSON())
		}
	}
	for _, source := range geneSources {
		entries, err := objectList(data, source.field)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			name := utils.AsString(entry["gene"])
			if name == "" {
				continue
			}
			comments := utils.AsString(entry["comments"])
			if i, seen := index[name]; seen {
				if comments != "" {
					appendDuplicateNote(genes[i], source.status, comments)
				}
				continue
			}
			index[name] = len(genes)
			genes = append(genes, types.GeneRecord{Gene: name, Status: source.status, Comments: comments}.ToJSON())
		}
	}

	delete(data, solvedGeneField)
	delete(data, candidateGenesKey)
	delete(data, rejectedGenesKey)
	if len(genes) > 0 {
		list := make([]interface{}, 0, len(genes))
		for _, gene := range genes {
			list = append(list, gene)
		}
		data[genesField] = list
	}
	return nil
}

func appendDuplicateNote(gene map[string]interface{}, status types.Classification, comments string) {
	note := "\nAutomatic migration: gene was duplicated in the " + string(status) + " gene section." +
		"\nOriginal comment: \n" + comments
	if existing, ok := gene["comments"].(string); ok {
		note = existing + note
	}
	gene["comments"] = note
}

func objectList(data map[string]interface{}, field string) ([]map[string]interface{}, error) {
	return ListElements(field)(&Record{Data: data})
}
