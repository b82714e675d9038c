package converter

import (
	"errors"
	"fmt"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"phenotips.org/pedigree/logger"
	"phenotips.org/pedigree/pedigree"
	"phenotips.org/pedigree/types"
	"phenotips.org/pedigree/utils"
	"phenotips.org/pedigree/vocabulary"
	"strings"
)

const (
	versionKey      = "JSON_version"
	expectedVersion = "1.0"
)

// ErrMalformedMember is returned for a member whose properties have the wrong shape.
var ErrMalformedMember = errors.New("malformed pedigree member")

var listProperties = []string{"features", "nonstandard_features", "disorders"}

type Config struct {
	DateLayout string `envconfig:"PHENOTIPS_DATE_LAYOUT" default:"2006-01-02"`
}

func ReadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}

// Converter turns pedigree members into canonical patient records.
type Converter struct {
	disorders  vocabulary.Vocabulary
	config     Config
	convLogger *zerolog.Logger
}

func New(disorders vocabulary.Vocabulary, cfg Config) *Converter {
	convLogger := logger.NewLogger("Converter")
	if cfg.DateLayout == "" {
		cfg.DateLayout = "2006-01-02"
	}
	return &Converter{
		disorders:  disorders,
		config:     cfg,
		convLogger: &convLogger,
	}
}

// Convert returns one record per linked member. A member that cannot be
// converted yields an empty record; only a pedigree without a member list fails.
func (conv *Converter) Convert(p *pedigree.Pedigree) ([]types.PatientRecord, error) {
	if p == nil {
		return []types.PatientRecord{}, nil
	}
	if version, ok := p.Data()[versionKey]; ok && !strings.EqualFold(utils.AsString(version), expectedVersion) {
		conv.convLogger.Warn().
			Str("version", utils.AsString(version)).
			Msg("The version of the pedigree JSON differs from the expected")
	}
	members, err := p.Members()
	if err != nil {
		return nil, err
	}
	records := make([]types.PatientRecord, 0, len(members))
	for _, member := range members {
		record, err := conv.ConvertMember(member)
		if err != nil {
			conv.convLogger.Err(err).
				Str("patient_id", member.PatientID).
				Int("node_id", member.NodeID).
				Msg("Could not convert patient")
			record = types.PatientRecord{}
		}
		records = append(records, record)
	}
	return records, nil
}

func (conv *Converter) ConvertMember(member pedigree.Member) (record types.PatientRecord, err error) {
	defer utils.RecoverWithError(&err)
	memberLogger := logger.NewRecordLogger(conv.convLogger, member.PatientID)
	for _, key := range listProperties {
		if v, ok := member.Properties[key]; ok && v != nil {
			if _, isList := v.([]interface{}); !isList {
				return types.PatientRecord{}, fmt.Errorf("%w: %s is not a list", ErrMalformedMember, key)
			}
		}
	}

	record = types.PatientRecord{
		ID:                  member.PatientID,
		ExternalID:          member.ExternalID,
		Sex:                 member.Sex,
		Features:            member.Features,
		NonstandardFeatures: member.NonstandardFeatures,
		Genes:               member.Genes,
		FamilyHistory:       member.FamilyHistory,
	}
	if member.FirstName != "" || member.LastName != "" {
		record.PatientName = &types.PatientName{
			FirstName: member.FirstName,
			LastName:  member.LastName,
		}
	}
	if member.DateOfBirth != nil {
		record.DateOfBirth = member.DateOfBirth.Format(conv.config.DateLayout)
	}
	if member.DateOfDeath != nil {
		record.DateOfDeath = member.DateOfDeath.Format(conv.config.DateLayout)
	}
	for _, id := range member.Disorders {
		term, err := conv.lookupDisorder(id)
		if err != nil {
			memberLogger.Err(err).Str("disorder", id).Msg("Could not convert disorder from pedigree JSON to patient JSON")
			continue
		}
		record.Disorders = append(record.Disorders, term.ToJSON())
	}
	return record, nil
}

// lookupDisorder isolates a single term: a vocabulary that panics only loses that term.
func (conv *Converter) lookupDisorder(id string) (term vocabulary.Term, err error) {
	defer utils.RecoverWithError(&err)
	if conv.disorders == nil {
		return vocabulary.Term{}, errors.New("no disorder vocabulary configured")
	}
	return conv.disorders.Term(id)
}
