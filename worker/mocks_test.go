package worker

import (
	"context"
	"errors"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
	"phenotips.org/pedigree/pedigree"
	"phenotips.org/pedigree/records"
	"phenotips.org/pedigree/types"
)

type failingMethod struct {
	fail bool
}

type withValue struct {
	fail          bool
	returnedValue interface{}
}

type converterMock struct {
	config converterMockConfig
	calls  converterCall
}

type converterMockConfig struct {
	fail   bool
	panic  bool
	result []types.PatientRecord
}

type converterCall struct {
	convert bool
}

type redisMock struct {
	config redisMockConfig
	calls  redisMockCalls
}

type redisMockConfig struct {
	getFamily             withValue
	onTaskStarted         failingMethod
	onTaskExceededRetries failingMethod
	onTaskFailedWithError failingMethod
	onTaskComplete        failingMethod
}

type redisMockCalls struct {
	getFamily             bool
	onTaskStarted         bool
	onTaskExceededRetries bool
	onTaskFailedWithError bool
	onTaskComplete        bool
}

type rmqMock struct {
	config rmqMockConfig
	calls  rmqMockCalls
}

type rmqMockConfig struct {
	pingSequencer       failingMethod
	acknowledgeDelivery failingMethod
}

type rmqMockCalls struct {
	pingSequencer       bool
	acknowledgeDelivery bool
	rejectDelivery      bool
}

type s3Mock struct {
	config s3MockConfig
	calls  s3MockCalls
	saved  []byte
}

type s3MockConfig struct {
	saveResultsFile failingMethod
	saveImage       failingMethod
}

type s3MockCalls struct {
	saveResultsFile bool
	saveImage       bool
}

func (mock *s3Mock) close() {}

func (mock *rmqMock) close() {}

func (mock *redisMock) close() {}

func (mock *converterMock) Convert(p *pedigree.Pedigree) ([]types.PatientRecord, error) {
	mock.calls.convert = true
	if mock.config.panic {
		panic("converter exploded")
	}
	if mock.config.fail {
		return nil, errors.New("failed to convert pedigree")
	}
	return mock.config.result, nil
}

func defaultFamily() records.FamilyRecord {
	return records.FamilyRecord{
		Members: []string{"P0000001"},
		Pedigree: records.PedigreeRecord{
			Data:  `{"members": [{"id": 1, "prop": {"phenotipsId": "P0000001", "lName": "Roe"}}], "proband": 1}`,
			Image: "<svg/>",
		},
	}
}

func (mock *redisMock) getFamily(_ context.Context, familyID string) (*records.FamilyRecord, error) {
	mock.calls.getFamily = true
	if mock.config.getFamily.fail {
		return nil, errors.New("failed to get family record")
	}
	switch family := mock.config.getFamily.returnedValue.(type) {
	case records.FamilyRecord:
		return &family, nil
	default:
		result := defaultFamily()
		return &result, nil
	}
}

func (mock *redisMock) onTaskStarted(context.Context, *Task) error {
	mock.calls.onTaskStarted = true
	if mock.config.onTaskStarted.fail {
		return errors.New("failed to update family on start")
	}
	return nil
}

func (mock *redisMock) onTaskExceededRetries(context.Context, *Task, int) error {
	mock.calls.onTaskExceededRetries = true
	if mock.config.onTaskExceededRetries.fail {
		return errors.New("failed to update family on exceeded retries")
	}
	return nil
}

func (mock *redisMock) onTaskFailedWithError(context.Context, *Task, error) error {
	mock.calls.onTaskFailedWithError = true
	if mock.config.onTaskFailedWithError.fail {
		return errors.New("failed to update family on fail with error")
	}
	return nil
}

func (mock *redisMock) onTaskComplete(context.Context, *Task) error {
	mock.calls.onTaskComplete = true
	if mock.config.onTaskComplete.fail {
		return errors.New("failed to update family on complete")
	}
	return nil
}

func (mock *rmqMock) rejectDelivery(*amqp.Delivery, *zerolog.Logger) {
	mock.calls.rejectDelivery = true
}

func (mock *rmqMock) getDeliveriesCh() <-chan amqp.Delivery {
	return nil
}

func (mock *rmqMock) getReqChanErrorsCh() <-chan *amqp.Error {
	return nil
}

func (mock *rmqMock) getRespChanErrorsCh() <-chan *amqp.Error {
	return nil
}

func (mock *rmqMock) pingSequencer(*Task, Message) error {
	mock.calls.pingSequencer = true
	if mock.config.pingSequencer.fail {
		return errors.New("failed to ping sequencer")
	}
	return nil
}

func (mock *rmqMock) acknowledgeDelivery(*amqp.Delivery) error {
	mock.calls.acknowledgeDelivery = true
	if mock.config.acknowledgeDelivery.fail {
		return errors.New("failed to acknowledge delivery")
	}
	return nil
}

func (mock *s3Mock) saveResultsFile(_ context.Context, _ *Task, result []byte) error {
	mock.calls.saveResultsFile = true
	if mock.config.saveResultsFile.fail {
		return errors.New("failed to upload results")
	}
	mock.saved = result
	return nil
}

func (mock *s3Mock) saveImage(context.Context, *Task, string) error {
	mock.calls.saveImage = true
	if mock.config.saveImage.fail {
		return errors.New("failed to upload image")
	}
	return nil
}
