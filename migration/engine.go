package migration

import (
	"context"
	"encoding/json"
	"fmt"
	jsonpatch "github.com/evanphx/json-patch"
	"github.com/rs/zerolog"
	"phenotips.org/pedigree/logger"
	"phenotips.org/pedigree/utils"
	"sort"
)

// Report summarizes one step over one store.
type Report struct {
	Step      string   `json:"step"`
	Version   int      `json:"version"`
	DryRun    bool     `json:"dry_run"`
	Scanned   int      `json:"scanned"`
	Modified  int      `json:"modified"`
	Unchanged int      `json:"unchanged"`
	Failed    int      `json:"failed"`
	FailedIDs []string `json:"failed_ids,omitempty"`
	// Patches holds the merge patch of every modified record, dry runs only.
	Patches map[string]json.RawMessage `json:"patches,omitempty"`
}

type outcome int

const (
	outcomeUnchanged outcome = iota
	outcomeModified
)

// Engine runs steps record by record. A failing record is logged and skipped,
// it never stops the pass.
type Engine struct {
	store     Store
	applied   AppliedSet
	DryRun    bool
	engLogger *zerolog.Logger
}

// NewEngine creates an engine over store. applied may be nil, then RunAll
// runs every step it is given.
func NewEngine(store Store, applied AppliedSet) *Engine {
	engLogger := logger.NewLogger("Migration")
	return &Engine{
		store:     store,
		applied:   applied,
		engLogger: &engLogger,
	}
}

// Run applies step to every record of the store. Only a failure to enumerate
// the store is returned as an error.
func (engine *Engine) Run(ctx context.Context, step Step) (Report, error) {
	report := Report{
		Step:    step.Name(),
		Version: step.Version(),
		DryRun:  engine.DryRun,
	}
	if engine.DryRun {
		report.Patches = map[string]json.RawMessage{}
	}
	stepLogger := engine.engLogger.With().Str("step", step.Name()).Int("version", step.Version()).Logger()

	keys, err := engine.store.Keys(ctx)
	if err != nil {
		stepLogger.Err(err).Msg("Could not enumerate records")
		return report, fmt.Errorf("failed to enumerate records for %s: %w", step.Name(), err)
	}
	stepLogger.Info().Int("records", len(keys)).Msg(step.Description())

	for _, id := range keys {
		report.Scanned++
		recordLogger := logger.NewRecordLogger(&stepLogger, id)
		result, patch, err := engine.migrateRecord(ctx, step, id)
		if err != nil {
			recordLogger.Err(err).Msg("Could not migrate record, skipping")
			report.Failed++
			report.FailedIDs = append(report.FailedIDs, id)
			continue
		}
		switch result {
		case outcomeModified:
			report.Modified++
			if report.Patches != nil {
				report.Patches[id] = patch
			}
			recordLogger.Debug().RawJSON("patch", patch).Msg("Migrated record")
		default:
			report.Unchanged++
		}
	}
	stepLogger.Info().
		Int("scanned", report.Scanned).
		Int("modified", report.Modified).
		Int("failed", report.Failed).
		Msg("Finished migration step")
	return report, nil
}

func (engine *Engine) migrateRecord(ctx context.Context, step Step, id string) (result outcome, patch json.RawMessage, err error) {
	record, err := engine.store.Load(ctx, id)
	if err != nil {
		return outcomeUnchanged, nil, err
	}
	if record.Data == nil {
		return outcomeUnchanged, nil, malformed("record %s has no data", id)
	}
	before, err := json.Marshal(record.Data)
	if err != nil {
		return outcomeUnchanged, nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if err = migrate(step, &record); err != nil {
		return outcomeUnchanged, nil, err
	}
	after, err := json.Marshal(record.Data)
	if err != nil {
		return outcomeUnchanged, nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if utils.HashBytes(before) == utils.HashBytes(after) {
		return outcomeUnchanged, nil, nil
	}
	patch, err = jsonpatch.CreateMergePatch(before, after)
	if err != nil {
		return outcomeUnchanged, nil, err
	}
	if !engine.DryRun {
		if err = engine.store.Save(ctx, record); err != nil {
			return outcomeUnchanged, nil, fmt.Errorf("failed to save record: %w", err)
		}
	}
	return outcomeModified, patch, nil
}

func migrate(step Step, record *Record) (err error) {
	defer utils.RecoverWithError(&err)
	return step.Migrate(record)
}

// RunAll runs steps in version order, skipping those the applied set already
// holds and marking each completed one.
func (engine *Engine) RunAll(ctx context.Context, steps []Step) ([]Report, error) {
	ordered := make([]Step, len(steps))
	copy(ordered, steps)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Version() < ordered[j].Version() })

	reports := make([]Report, 0, len(ordered))
	for _, step := range ordered {
		if engine.applied != nil {
			done, err := engine.applied.IsApplied(ctx, step.Name())
			if err != nil {
				return reports, err
			}
			if done {
				engine.engLogger.Info().Str("step", step.Name()).Msg("Step already applied, skipping")
				continue
			}
		}
		report, err := engine.Run(ctx, step)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
		if engine.applied != nil && !engine.DryRun {
			if err := engine.applied.MarkApplied(ctx, step.Name()); err != nil {
				return reports, err
			}
		}
	}
	return reports, nil
}
