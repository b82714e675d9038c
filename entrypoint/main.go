package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"net/http"
	"os"
	"phenotips.org/pedigree/api"
	"phenotips.org/pedigree/converter"
	"phenotips.org/pedigree/logger"
	"phenotips.org/pedigree/migration"
	"phenotips.org/pedigree/records"
	"phenotips.org/pedigree/types"
	"phenotips.org/pedigree/vocabulary"
	"phenotips.org/pedigree/worker"
	"time"
)

type Config struct {
	HPOVocabularyPath  string `envconfig:"PHENOTIPS_HPO_VOCABULARY" default:""`
	OMIMVocabularyPath string `envconfig:"PHENOTIPS_OMIM_VOCABULARY" default:""`
	MigrationPlansDir  string `envconfig:"PHENOTIPS_MIGRATION_PLANS_DIR" default:"/etc/phenotips/migrations"`
	RestAPIActive      bool   `envconfig:"PHENOTIPS_REST_API_ACTIVE" default:"false"`
	RestAPIPort        string `envconfig:"PHENOTIPS_REST_API_PORT" default:"10000"`
}

func main() {
	logger.SetupLogging()
	mainLogger := logger.NewLogger("Main")
	fatalErrLogger := mainLogger.Fatal().Caller()
	runMigrations := flag.Bool("migrate", false, "run the migration plans and exit")
	dryRun := flag.Bool("dry-run", false, "report migration changes without saving them")
	flag.Parse()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		fatalErrLogger.Err(err).Msg("Failed to read environment")
		os.Exit(1)
	}

	if *runMigrations {
		hpo, err := vocabulary.Load(config.HPOVocabularyPath)
		if err != nil {
			fatalErrLogger.Err(err).Msg("Failed to load HPO vocabulary")
			os.Exit(1)
		}
		if err = migrate(context.Background(), config, hpo, *dryRun, &mainLogger); err != nil {
			mainLogger.Fatal().Err(err).Msg("Migration failed")
			os.Exit(1)
		}
		mainLogger.Info().Msg("Migrations finished. Exit...")
		return
	}

	omim, err := vocabulary.Load(config.OMIMVocabularyPath)
	if err != nil {
		fatalErrLogger.Err(err).Msg("Failed to load OMIM vocabulary")
		os.Exit(1)
	}
	mainLogger.Info().Int("terms", omim.Len()).Msg("Loaded disorder vocabulary")
	convConfig, err := converter.ReadConfig()
	if err != nil {
		fatalErrLogger.Err(err).Msg("Failed to read converter config")
		os.Exit(1)
	}
	conv := converter.New(omim, convConfig)

	if config.RestAPIActive {
		go func() {
			mainLogger.Info().Msg("Starting API service")
			apiRequest := &api.Request{Converter: conv}
			host := fmt.Sprintf(":%s", config.RestAPIPort)
			mainLogger.Info().Msgf("REST API on %s", host)
			err := http.ListenAndServe(host, apiRequest.Handler())
			mainLogger.Fatal().Err(err).Msg("REST API stopped with error")
		}()
	}

	mainLogger.Info().Msg("Start pedigree export worker")
	for {
		rmqWorker, err := worker.New(conv)
		if err != nil {
			mainLogger.Fatal().Err(err).Msg("Could not initialize RMQ worker")
			os.Exit(1)
		}
		err = rmqWorker.StartWorker()
		if err != nil {
			mainLogger.Err(err).Msg("Worker returned with error. Launching new in 5 seconds")
			time.Sleep(5 * time.Second)
		}
	}
}

func migrate(ctx context.Context, config Config, hpo vocabulary.Vocabulary, dryRun bool, mainLogger *zerolog.Logger) error {
	plans, err := types.LoadMigrationPlans(config.MigrationPlansDir)
	if err != nil {
		return err
	}
	mainLogger.Info().Msgf("Loaded %d migration plans", len(plans))
	recordsClient, err := records.NewClient()
	if err != nil {
		return err
	}
	defer recordsClient.Close()

	steps := migration.Steps(hpo)
	for _, plan := range plans {
		planLogger := mainLogger.With().Str("plan", plan.Name).Str("store", plan.Store).Logger()
		store, applied, err := recordsClient.MigrationTarget(plan.Store)
		if err != nil {
			return fmt.Errorf("plan %s: %w", plan.Name, err)
		}
		engine := migration.NewEngine(store, applied)
		engine.DryRun = dryRun || plan.DryRun
		reports, err := engine.RunAll(ctx, migration.Select(steps, plan))
		for _, report := range reports {
			summary, _ := json.Marshal(report)
			planLogger.Info().RawJSON("report", summary).Msg("Migration step report")
		}
		if err != nil {
			return fmt.Errorf("plan %s: %w", plan.Name, err)
		}
	}
	return nil
}
