package types

import (
	"errors"
	"gopkg.in/yaml.v3"
	"io/ioutil"
	"os"
	"path"
	"phenotips.org/pedigree/logger"
	"sort"
	"strings"
	"sync"
)

// MigrationPlan selects which migration steps run against a store.
type MigrationPlan struct {
	Name     string   `yaml:"-" json:"name"`
	FilePath string   `yaml:"-" json:"file_path"`
	Store    string   `yaml:"store" json:"store"`
	Steps    []string `yaml:"steps" json:"steps"`
	DryRun   bool     `yaml:"dry_run" json:"dry_run"`
}

// Enabled reports whether step is part of the plan. An empty step list enables
// every step.
func (plan MigrationPlan) Enabled(step string) bool {
	if len(plan.Steps) == 0 {
		return true
	}
	for _, name := range plan.Steps {
		if name == step {
			return true
		}
	}
	return false
}

func LoadMigrationPlan(filePath string) (MigrationPlan, error) {
	plan := MigrationPlan{
		Name:     strings.TrimSuffix(path.Base(filePath), ".yaml"),
		FilePath: filePath,
	}
	buf, err := ioutil.ReadFile(filePath)
	if err != nil {
		return plan, err
	}
	if err := yaml.Unmarshal(buf, &plan); err != nil {
		return plan, err
	}
	if plan.Store == "" {
		return plan, errors.New("migration plan has no store")
	}
	return plan, nil
}

// LoadMigrationPlans reads every *.yaml file of dirPath. Broken files are
// logged and left out.
func LoadMigrationPlans(dirPath string) ([]MigrationPlan, error) {
	planLogger := logger.NewLogger("LoadMigrationPlans")

	files, err := ioutil.ReadDir(dirPath)
	if err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	planChan := make(chan MigrationPlan, len(files))
	for _, f := range files {
		// Skip dirs and non-yaml files
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".yaml") {
			continue
		}

		wg.Add(1)
		go func(file os.FileInfo) {
			defer wg.Done()
			plan, err := LoadMigrationPlan(path.Join(dirPath, file.Name()))
			if err != nil {
				planLogger.Err(err).Str("file", file.Name()).Msg("Could not load migration plan")
				return
			}
			planChan <- plan
		}(f)
	}

	go func() {
		wg.Wait()
		close(planChan)
	}()

	plans := make([]MigrationPlan, 0, len(planChan))
	for plan := range planChan {
		plans = append(plans, plan)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].Name < plans[j].Name })
	return plans, nil
}
