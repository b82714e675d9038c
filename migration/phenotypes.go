package migration

import (
	"github.com/rs/zerolog"
	"phenotips.org/pedigree/logger"
	"phenotips.org/pedigree/utils"
	"phenotips.org/pedigree/vocabulary"
)

const (
	extendedPrefix = "extended_"
	obesityTerm    = "HP:0001513"
)

var prenatalTranslations = map[string]string{
	"HP:0004325": "HP:0001518",
	"HP:0004324": "HP:0001520",
	obesityTerm:  "HP:0001520",
	"HP:0004322": "HP:0003561",
	"HP:0000098": "HP:0003517",
	"HP:0000252": "HP:0011451",
	"HP:0000256": "HP:0004488",
}

var customTermTranslations = map[string]string{
	"_c_high_posterior_hairline": "HP:0012891",
	"_c_euryblepharon":           "HP:0012905",
	"_c_broad_chest":             "HP:0000914",
	"_c_posterior_anus":          "HP:0012890",
	"_c_decreased_rom":           "HP:0001376",
	"_c_sacral_sinus":            "HP:0000960",
	"_c_skin_cals":               "HP:0000957",
	"_c_peringuinal_fibroma":     "HP:0100804",
}

// termListStep replaces deprecated terms inside phenotype lists and keeps the
// matching "extended_" lists consistent.
type termListStep struct {
	stepInfo
	fields       []string
	translations map[string]string
	// extend lists what a replacement adds to the extended list.
	extend func(recordLogger *zerolog.Logger, newTerm string) []string
	// dropReplaced removes the replaced term from the extended list.
	dropReplaced bool
	// dropOnChange is removed from the extended list whenever the field changed.
	dropOnChange []string
	stepLogger   *zerolog.Logger
}

func newPrenatalPhenotypesStep() Step {
	stepLogger := logger.NewLogger("Migration:prenatal-phenotypes")
	return &termListStep{
		stepInfo: stepInfo{
			name:        "prenatal-phenotypes",
			version:     54594,
			description: "Update prenatal phenotypes to use the specific congenital terms instead of the generic adult ones",
		},
		fields:       []string{"prenatal_phenotype", "negative_prenatal_phenotype"},
		translations: prenatalTranslations,
		extend: func(_ *zerolog.Logger, newTerm string) []string {
			return []string{newTerm}
		},
		dropOnChange: []string{obesityTerm},
		stepLogger:   &stepLogger,
	}
}

func newCustomPhenotypesStep(hpo vocabulary.Vocabulary) Step {
	stepLogger := logger.NewLogger("Migration:custom-phenotypes")
	return &termListStep{
		stepInfo: stepInfo{
			name:        "custom-phenotypes",
			version:     54595,
			description: "Replace non-HPO custom terms from the detailed phenotype mapping with the equivalent new HPO terms",
		},
		fields:       []string{"phenotype", "negative_phenotype"},
		translations: customTermTranslations,
		extend: func(recordLogger *zerolog.Logger, newTerm string) []string {
			terms := []string{newTerm}
			if hpo == nil {
				return terms
			}
			term, err := hpo.Term(newTerm)
			if err != nil {
				recordLogger.Err(err).Str("term", newTerm).Msg("Could not resolve term ancestors")
				return terms
			}
			return append(terms, term.Ancestors...)
		},
		dropReplaced: true,
		stepLogger:   &stepLogger,
	}
}

func (step *termListStep) Migrate(record *Record) error {
	recordLogger := logger.NewRecordLogger(step.stepLogger, record.ID)
	for _, field := range step.fields {
		raw, ok := record.Data[field]
		if !ok || raw == nil {
			continue
		}
		values, ok := raw.([]interface{})
		if !ok {
			return malformed("%s is %T, not a list", field, raw)
		}
		extendedField := extendedPrefix + field
		var extended []interface{}
		extendedRaw, hasExtended := record.Data[extendedField].([]interface{})
		if hasExtended {
			extended = extendedRaw
		}

		kept := make([]interface{}, 0, len(values))
		var added []string
		replaced := false
		for _, value := range values {
			term := utils.AsString(value)
			newTerm, ok := step.translations[term]
			if !ok {
				kept = append(kept, value)
				continue
			}
			replaced = true
			recordLogger.Debug().Str("field", field).Msgf("Replacing %s with %s", term, newTerm)
			if step.dropReplaced {
				extended = removeTerms(extended, term)
			}
			if containsTerm(kept, newTerm) || utils.ContainsString(added, newTerm) || containsTerm(values, newTerm) {
				continue
			}
			added = append(added, newTerm)
			for _, extra := range step.extend(&recordLogger, newTerm) {
				if !containsTerm(extended, extra) {
					extended = append(extended, extra)
				}
			}
		}
		if !replaced {
			continue
		}
		for _, term := range added {
			kept = append(kept, term)
		}
		record.Data[field] = kept
		if hasExtended {
			record.Data[extendedField] = removeTerms(extended, step.dropOnChange...)
		}
	}
	return nil
}

func containsTerm(list []interface{}, term string) bool {
	for _, item := range list {
		if utils.AsString(item) == term {
			return true
		}
	}
	return false
}

func removeTerms(list []interface{}, terms ...string) []interface{} {
	if len(terms) == 0 {
		return list
	}
	result := make([]interface{}, 0, len(list))
	for _, item := range list {
		if !utils.ContainsString(terms, utils.AsString(item)) {
			result = append(result, item)
		}
	}
	return result
}
