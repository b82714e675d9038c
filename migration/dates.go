package migration

import (
	"encoding/json"
	"github.com/rs/zerolog"
	"phenotips.org/pedigree/logger"
	"phenotips.org/pedigree/types"
	"phenotips.org/pedigree/utils"
)

// as-entered field -> date field
var asEnteredDateFields = [][2]string{
	{"date_of_birth_entered", "date_of_birth"},
	{"date_of_death_entered", "date_of_death"},
}

var pedigreeDateFields = []string{"dob", "dod"}

// datesStep re-encodes the as-entered dates of a patient and the dates of its
// pedigree nodes in the current date encoding.
type datesStep struct {
	stepInfo
	stepLogger *zerolog.Logger
}

func newDatesStep() Step {
	stepLogger := logger.NewLogger("Migration:dates")
	return &datesStep{
		stepInfo: stepInfo{
			name:        "dates",
			version:     71494,
			description: "Migrate JSON representations of dates",
		},
		stepLogger: &stepLogger,
	}
}

func (step *datesStep) Migrate(record *Record) error {
	recordLogger := logger.NewRecordLogger(step.stepLogger, record.ID)
	for _, fields := range asEnteredDateFields {
		step.migrateAsEntered(record.Data, fields[0], fields[1], &recordLogger)
	}
	if err := step.migratePedigree(record); err != nil {
		recordLogger.Err(err).Msg("Pedigree data is not valid, leaving pedigree dates as they are")
	}
	return nil
}

func (step *datesStep) migrateAsEntered(data map[string]interface{}, asEnteredField, dateField string, recordLogger *zerolog.Logger) {
	if asEntered := data[asEnteredField]; !utils.IsBlank(asEntered) {
		date := types.ParseDate(asEntered)
		if date.IsEmpty() {
			recordLogger.Error().Str("field", asEnteredField).Msg("Could not process date-as-entered field")
			return
		}
		data[asEnteredField] = date.String()
		return
	}
	value := data[dateField]
	if utils.IsBlank(value) {
		return
	}
	date := types.ParseDate(value)
	if date.IsEmpty() {
		return
	}
	recordLogger.Debug().Msgf("Using the value from the %s field to populate %s field", dateField, asEnteredField)
	data[asEnteredField] = date.String()
}

func (step *datesStep) migratePedigree(record *Record) error {
	stored, err := loadPedigree(record)
	if err != nil || stored == nil {
		return err
	}
	modified := false
	for _, props := range stored.NodeProperties() {
		for _, field := range pedigreeDateFields {
			obj, ok := props[field].(map[string]interface{})
			if !ok {
				continue
			}
			converted := types.ParseDateJSON(obj).ToJSON()
			if sameJSON(obj, converted) {
				continue
			}
			props[field] = converted
			modified = true
		}
	}
	if !modified {
		return nil
	}
	return stored.store()
}

func sameJSON(a, b interface{}) bool {
	aBytes, errA := json.Marshal(a)
	bBytes, errB := json.Marshal(b)
	return errA == nil && errB == nil && utils.HashBytes(aBytes) == utils.HashBytes(bBytes)
}
