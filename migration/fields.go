package migration

// OnsetUnset is the stored onset code meaning "not entered". It is dropped
// rather than migrated.
const OnsetUnset = "-1"

var onsetTerms = map[string]string{
	"0": "HP:0003577", // congenital
	"1": "HP:0003623", // neonatal
	"2": "HP:0003593", // infantile
	"3": "HP:0011463", // childhood
	"4": "HP:0003621", // juvenile
	"5": "HP:0003581", // adult
}

var referenceGenomes = map[string]string{
	"hg18": "NCBI36",
	"hg19": "GRCh37",
	"b37":  "GRCh37",
	"hg38": "GRCh38",
}

func newOnsetStep() Step {
	return NewRuleStep(
		"onset",
		71491,
		"Migrate numeric age of onset codes to HPO onset terms",
		RuleSet{Rules: []Rule{
			Translate("age_of_onset", "global_age_of_onset", onsetTerms, KeepUnmapped, OnsetUnset),
		}},
	)
}

func newReferenceGenomeStep() Step {
	return NewRuleStep(
		"reference-genome",
		71509,
		"Use assembly names for variant reference genomes",
		RuleSet{
			Select: ListElements("variants"),
			Rules:  []Rule{TranslateInPlace("reference_genome", referenceGenomes)},
		},
	)
}
