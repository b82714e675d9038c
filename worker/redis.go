package worker

import (
	"context"
	"fmt"
	"phenotips.org/pedigree/records"
)

type redisTransactions interface {
	getFamily(ctx context.Context, familyID string) (*records.FamilyRecord, error)
	onTaskStarted(ctx context.Context, task *Task) error
	onTaskExceededRetries(ctx context.Context, task *Task, maxRetries int) error
	onTaskFailedWithError(ctx context.Context, task *Task, err error) error
	onTaskComplete(ctx context.Context, task *Task) error
	close()
}

type redisClientWrapper struct {
	recordsClient *records.Client
}

func (wrapper *redisClientWrapper) close() {
	wrapper.recordsClient.Close()
}

func (wrapper *redisClientWrapper) getFamily(ctx context.Context, familyID string) (*records.FamilyRecord, error) {
	return wrapper.recordsClient.Families.Get(ctx, familyID)
}

func (wrapper *redisClientWrapper) onTaskStarted(ctx context.Context, task *Task) error {
	return wrapper.recordsClient.Families.UpdateExport(ctx, task.familyID, func(family *records.FamilyExport) {
		family.Export.Status = records.ExportStatusStarted
		family.Export.Attempts += 1
		family.Export.StartedAt = getFormattedNow()
		family.Export.CompletedAt = nil
	})
}

func (wrapper *redisClientWrapper) onTaskExceededRetries(ctx context.Context, task *Task, maxRetries int) error {
	return wrapper.recordsClient.Families.UpdateExport(ctx, task.familyID, func(family *records.FamilyExport) {
		family.Export.Status = records.ExportStatusCompletedFailure
		family.Export.CompletedAt = getFormattedNow()
		family.Export.ErrorMessages = append(
			family.Export.ErrorMessages,
			fmt.Sprintf(
				"Export has exceeded retries. (Attempts: %d, max retries: %d )",
				family.Export.Attempts,
				maxRetries,
			),
		)
	})
}

func (wrapper *redisClientWrapper) onTaskFailedWithError(ctx context.Context, task *Task, err error) error {
	return wrapper.recordsClient.Families.UpdateExport(ctx, task.familyID, func(family *records.FamilyExport) {
		family.Export.Status = records.ExportStatusFailed
		family.Export.CompletedAt = getFormattedNow()
		family.Export.ErrorMessages = append(family.Export.ErrorMessages, err.Error())
	})
}

func (wrapper *redisClientWrapper) onTaskComplete(ctx context.Context, task *Task) error {
	return wrapper.recordsClient.Families.UpdateExport(ctx, task.familyID, func(family *records.FamilyExport) {
		family.Export.Status = records.ExportStatusCompletedSuccess
		family.Export.CompletedAt = getFormattedNow()
		family.Export.FileKey = getResultsFileKey(task)
		family.Export.PatientCount = task.patientCount
	})
}
