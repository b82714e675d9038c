package migration

import (
	"context"
	"errors"
	"fmt"
)

// ErrMalformedRecord marks a record whose JSON does not have the shape a step expects.
var ErrMalformedRecord = errors.New("malformed record")

// Record is one stored JSON object. Steps rewrite Data in place.
type Record struct {
	ID   string
	Data map[string]interface{}
}

type Store interface {
	Keys(ctx context.Context) ([]string, error)
	Load(ctx context.Context, id string) (Record, error)
	Save(ctx context.Context, record Record) error
}

// AppliedSet remembers which steps already ran against a store.
type AppliedSet interface {
	IsApplied(ctx context.Context, step string) (bool, error)
	MarkApplied(ctx context.Context, step string) error
}

// Step is one versioned, idempotent rewrite of stored records.
type Step interface {
	Name() string
	Version() int
	Description() string
	Migrate(record *Record) error
}

type stepInfo struct {
	name        string
	version     int
	description string
}

func (info stepInfo) Name() string {
	return info.name
}

func (info stepInfo) Version() int {
	return info.version
}

func (info stepInfo) Description() string {
	return info.description
}

// ruleStep runs rule sets in order over every record.
type ruleStep struct {
	stepInfo
	ruleSets []RuleSet
}

func NewRuleStep(name string, version int, description string, ruleSets ...RuleSet) Step {
	return &ruleStep{
		stepInfo: stepInfo{name: name, version: version, description: description},
		ruleSets: ruleSets,
	}
}

func (step *ruleStep) Migrate(record *Record) error {
	for _, ruleSet := range step.ruleSets {
		if _, err := ruleSet.Apply(record); err != nil {
			return err
		}
	}
	return nil
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedRecord, fmt.Sprintf(format, args...))
}
