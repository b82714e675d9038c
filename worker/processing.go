package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
	"phenotips.org/pedigree/pedigree"
	"phenotips.org/pedigree/records"
	"phenotips.org/pedigree/types"
	"phenotips.org/pedigree/utils"
)

type Message struct {
	FamilyID string `json:"family_id"`
	Sender   string `json:"sender"`
	Version  string `json:"version"`
}

// Export is the document uploaded for every exported family.
type Export struct {
	FamilyID string                `json:"family_id"`
	Proband  *pedigree.ProbandRef  `json:"proband,omitempty"`
	Patients []types.PatientRecord `json:"patients"`
}

type Task struct {
	delivery     *amqp.Delivery
	family       *records.FamilyRecord
	message      *Message
	familyID     string
	patientCount int
	taskLogger   *zerolog.Logger
}

func (worker *Worker) processMessage(delivery *amqp.Delivery) {
	ctx, cancel := context.WithTimeout(context.Background(), worker.config.taskTimeout())
	defer cancel()

	rejectLogger := worker.workerLogger.With().Str("message_id", delivery.MessageId).Logger()
	task, err := worker.createTask(ctx, delivery)
	if err != nil {
		worker.workerLogger.Err(err).
			Str("message_id", delivery.MessageId).
			Str("body", string(delivery.Body)).
			Msg("Failed to create task for delivery")
		worker.rmq.rejectDelivery(delivery, &rejectLogger)
		return
	}
	if err = worker.processTask(ctx, task); err != nil {
		worker.rmq.rejectDelivery(delivery, &rejectLogger)
		return
	}
	if err = worker.rmq.pingSequencer(task, *task.message); err != nil {
		task.taskLogger.Err(err).Msg("Got error while sending message to sequencer queue")
		worker.rmq.rejectDelivery(delivery, &rejectLogger)
		return
	}
	if err = worker.rmq.acknowledgeDelivery(delivery); err != nil {
		task.taskLogger.Err(err).Msg("Failed to acknowledge delivery")
	}
	task.taskLogger.Info().Msg("Finished processing RMQ message")
}

func (worker *Worker) createTask(ctx context.Context, delivery *amqp.Delivery) (*Task, error) {
	var message Message
	err := json.Unmarshal(delivery.Body, &message)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal message, got error %w", err)
	}
	if message.FamilyID == "" {
		return nil, errors.New("message has no family id")
	}
	family, err := worker.redis.getFamily(ctx, message.FamilyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query family record for message, got error %w", err)
	}
	taskLogger := worker.workerLogger.With().Str("family", message.FamilyID).Logger()
	task := Task{
		delivery:   delivery,
		family:     family,
		familyID:   message.FamilyID,
		message:    &message,
		taskLogger: &taskLogger,
	}
	return &task, nil
}

func (worker *Worker) processTask(ctx context.Context, task *Task) error {
	shouldPerform, err := worker.shouldPerformTask(ctx, task)
	if err != nil {
		task.taskLogger.Err(err).
			Msg("Got error while trying to decide whether to run export")
		return err
	}
	if !shouldPerform {
		return nil
	}
	if err = worker.redis.onTaskStarted(ctx, task); err != nil {
		task.taskLogger.Err(err).Msg("Failed to update export status")
		return fmt.Errorf("failed to update export status: %w", err)
	}
	if err = worker.runExport(ctx, task); err != nil {
		task.taskLogger.Err(err).Msg("Got error while exporting family")
		return worker.redis.onTaskFailedWithError(ctx, task, err)
	}
	task.taskLogger.Info().Int("patients", task.patientCount).Msg("Saved results, marking export as complete")
	if err = worker.redis.onTaskComplete(ctx, task); err != nil {
		task.taskLogger.Err(err).Msg("Got error while trying to mark export as complete")
		return err
	}
	return nil
}

func (worker *Worker) runExport(ctx context.Context, task *Task) (err error) {
	defer utils.RecoverWithError(&err)
	task.taskLogger.Info().Msgf("Exporting family pedigree, attempt # %d", task.family.Export.Attempts+1)
	p, err := task.family.BuildPedigree()
	if err != nil {
		return fmt.Errorf("family has no usable pedigree: %w", err)
	}
	patients, err := worker.conv.Convert(p)
	if err != nil {
		return fmt.Errorf("failed to convert pedigree: %w", err)
	}
	result, err := json.Marshal(Export{
		FamilyID: task.familyID,
		Proband:  p.Proband(),
		Patients: patients,
	})
	if err != nil {
		return err
	}
	task.taskLogger.Info().Msg("Converted pedigree, saving results to s3")
	if err = worker.s3.saveResultsFile(ctx, task, result); err != nil {
		task.taskLogger.Err(err).Msg("Got error while trying to save results")
		return err
	}
	if image := p.Image(); image != "" {
		if err = worker.s3.saveImage(ctx, task, image); err != nil {
			task.taskLogger.Err(err).Msg("Got error while trying to save pedigree image")
			return err
		}
	}
	task.patientCount = len(patients)
	return nil
}

func (worker *Worker) shouldPerformTask(ctx context.Context, task *Task) (bool, error) {
	export := task.family.Export
	if export.Status.Complete() {
		task.taskLogger.Info().Msg("Export is already done. (might indicate issue acking message with RMQ). Sending back to Sequencer.")
		return false, nil
	}
	if export.Attempts >= worker.config.TaskMaxRetries {
		task.taskLogger.Info().Msg("Export has exceeded retries. Sending back to Sequencer.")
		return false, worker.redis.onTaskExceededRetries(ctx, task, worker.config.TaskMaxRetries)
	}
	return true, nil
}
