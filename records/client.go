package records

import (
	"fmt"
	"phenotips.org/pedigree/migration"
	"phenotips.org/pedigree/redis"
)

const (
	FamiliesDB redis.DB = 0
	PatientsDB redis.DB = 1
)

const (
	familyPrefix  = "family:"
	patientPrefix = "patient:"
	// set of migration step names already applied to a database
	appliedMigrationsKey = "phenotips:migrations:applied"
)

// Store names accepted by a migration plan.
const (
	StoreFamilies = "families"
	StorePatients = "patients"
)

type Client struct {
	Families      FamilyRecords
	FamilyStore   RecordStore
	PatientStore  RecordStore
	familiesRedis *redis.Client
	patientsRedis *redis.Client
}

// NewClient is a preferred way for working with stored records
func NewClient() (Client, error) {
	familiesClient, err := redis.NewClient(FamiliesDB)
	if err != nil {
		return Client{}, err
	}
	patientsClient, err := redis.NewClient(PatientsDB)
	if err != nil {
		_ = familiesClient.Close()
		return Client{}, err
	}
	return newClient(&familiesClient, &patientsClient), nil
}

func newClient(familiesClient, patientsClient *redis.Client) Client {
	return Client{
		Families:      FamilyRecords{client: familiesClient},
		FamilyStore:   RecordStore{client: familiesClient, prefix: familyPrefix},
		PatientStore:  RecordStore{client: patientsClient, prefix: patientPrefix},
		familiesRedis: familiesClient,
		patientsRedis: patientsClient,
	}
}

// MigrationTarget returns the record store named by a migration plan and the
// set remembering which steps already ran against it.
func (client *Client) MigrationTarget(name string) (migration.Store, migration.AppliedSet, error) {
	switch name {
	case StoreFamilies:
		return client.FamilyStore, AppliedMigrations{client: client.familiesRedis, key: appliedMigrationsKey}, nil
	case StorePatients:
		return client.PatientStore, AppliedMigrations{client: client.patientsRedis, key: appliedMigrationsKey}, nil
	}
	return nil, nil, fmt.Errorf("unknown record store %q", name)
}

func (client *Client) Close() {
	_ = client.familiesRedis.Close()
	_ = client.patientsRedis.Close()
}
