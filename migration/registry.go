package migration

import (
	"phenotips.org/pedigree/types"
	"phenotips.org/pedigree/vocabulary"
	"sort"
)

// Steps returns every known step in version order. hpo resolves the ancestors
// of replacement terms and may be nil.
func Steps(hpo vocabulary.Vocabulary) []Step {
	steps := []Step{
		newPrenatalPhenotypesStep(),
		newCustomPhenotypesStep(hpo),
		newGenesStep(),
		newOnsetStep(),
		newDatesStep(),
		newPedigreeGenesStep(),
		newPedigreePhenotypesStep(),
		newReferenceGenomeStep(),
	}
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Version() < steps[j].Version() })
	return steps
}

// Select keeps the steps the plan enables.
func Select(steps []Step, plan types.MigrationPlan) []Step {
	selected := make([]Step, 0, len(steps))
	for _, step := range steps {
		if plan.Enabled(step.Name()) {
			selected = append(selected, step)
		}
	}
	return selected
}
