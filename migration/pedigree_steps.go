package migration

import (
	"phenotips.org/pedigree/types"
	"phenotips.org/pedigree/utils"
	"regexp"
)

var hpoTermPattern = regexp.MustCompile(`^HP:\d+$`)

const (
	observedYes   = "yes"
	phenotypeType = "phenotype"
)

func isList(field string) func(obj map[string]interface{}) bool {
	return func(obj map[string]interface{}) bool {
		_, ok := obj[field].([]interface{})
		return ok
	}
}

func isObject(field string) func(obj map[string]interface{}) bool {
	return func(obj map[string]interface{}) bool {
		_, ok := obj[field].(map[string]interface{})
		return ok
	}
}

// newPedigreeGenesStep turns the plain candidate gene names of pedigree nodes
// into classified gene records.
func newPedigreeGenesStep() Step {
	return newPedigreeStep(
		"pedigree-genes",
		71495,
		"Migrate pedigree data (support for new genes)",
		RuleSet{
			Select: nestedObject("settings", "colors"),
			Rules: []Rule{{
				Old:       "genes",
				New:       "candidateGenes",
				Transform: identity,
				Applies:   isObject("genes"),
			}},
		},
		RuleSet{
			Select: pedigreeNodes,
			Rules: []Rule{{
				Old:       "candidateGenes",
				New:       "genes",
				Transform: candidateGeneRecords,
				Applies:   isList("candidateGenes"),
			}},
		},
	)
}

func candidateGeneRecords(value interface{}) (interface{}, bool) {
	names, _ := value.([]interface{})
	genes := make([]interface{}, 0, len(names))
	for _, name := range names {
		if gene := utils.AsString(name); gene != "" {
			genes = append(genes, types.GeneRecord{Gene: gene, Status: types.ClassificationCandidate}.ToJSON())
		}
	}
	return genes, true
}

// newPedigreePhenotypesStep splits the HPO term list of pedigree nodes into
// standard and non-standard features.
func newPedigreePhenotypesStep() Step {
	return newPedigreeStep(
		"pedigree-phenotypes",
		71496,
		"Migrate pedigree data (support for negative phenotypes and phenotype details)",
		RuleSet{
			Select: pedigreeNodes,
			Rules: []Rule{
				{
					Old:       "hpoTerms",
					New:       "nonstandard_features",
					Transform: phenotypeFeatures(false),
					Applies:   isList("hpoTerms"),
					KeepOld:   true,
				},
				{
					Old:       "hpoTerms",
					New:       "features",
					Transform: phenotypeFeatures(true),
					Applies:   isList("hpoTerms"),
				},
			},
		},
	)
}

func phenotypeFeatures(standard bool) Transform {
	return func(value interface{}) (interface{}, bool) {
		terms, _ := value.([]interface{})
		features := make([]interface{}, 0, len(terms))
		for _, raw := range terms {
			term := utils.AsString(raw)
			if term == "" || hpoTermPattern.MatchString(term) != standard {
				continue
			}
			feature := map[string]interface{}{
				"observed": observedYes,
				"type":     phenotypeType,
			}
			if standard {
				feature["id"] = term
			} else {
				feature["label"] = term
			}
			features = append(features, feature)
		}
		return features, true
	}
}
