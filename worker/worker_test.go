package worker

import (
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/require"
	"phenotips.org/pedigree/logger"
	"phenotips.org/pedigree/records"
	"phenotips.org/pedigree/types"
	"reflect"
	"testing"
)

const defaultBody = `{"family_id": "FAM0000001"}`

type mockedClientsConfig struct {
	body string
	rmqMockConfig
	redisMockConfig
	s3MockConfig
	converterMockConfig
}

type mockedClients struct {
	redis     *redisMock
	rmq       *rmqMock
	s3        *s3Mock
	converter *converterMock
}

type methodsCalls struct {
	redis     redisMockCalls
	rmq       rmqMockCalls
	s3        s3MockCalls
	converter converterCall
}

func testConfiguration(t *testing.T, config mockedClientsConfig, expectedCalls methodsCalls) *mockedClients {
	worker, mocks := configureWorker(config)
	body := config.body
	if body == "" {
		body = defaultBody
	}
	worker.processMessage(&amqp.Delivery{
		Body: []byte(body),
	})
	calls := methodsCalls{
		redis:     mocks.redis.calls,
		rmq:       mocks.rmq.calls,
		s3:        mocks.s3.calls,
		converter: mocks.converter.calls,
	}
	if !reflect.DeepEqual(calls, expectedCalls) {
		t.Errorf("Got unexpected called methods set.\nExpected:\n%+v\nGot:\n%+v", expectedCalls, calls)
	}
	return mocks
}

func configureWorker(config mockedClientsConfig) (*Worker, *mockedClients) {
	redis := &redisMock{config: config.redisMockConfig}
	s3 := &s3Mock{config: config.s3MockConfig}
	rmq := &rmqMock{config: config.rmqMockConfig}
	conv := &converterMock{config: config.converterMockConfig}

	workerLogger := logger.NewLogger("Test Worker")

	return &Worker{
			config:       Config{TaskMaxRetries: 3, TaskTimeoutSeconds: 5},
			redis:        redis,
			s3:           s3,
			rmq:          rmq,
			workerLogger: &workerLogger,
			conv:         conv,
		}, &mockedClients{
			redis:     redis,
			rmq:       rmq,
			s3:        s3,
			converter: conv,
		}
}

var successfulCalls = methodsCalls{
	redis:     redisMockCalls{getFamily: true, onTaskStarted: true, onTaskComplete: true},
	rmq:       rmqMockCalls{pingSequencer: true, acknowledgeDelivery: true},
	s3:        s3MockCalls{saveResultsFile: true, saveImage: true},
	converter: converterCall{true},
}

func TestWorker(t *testing.T) {
	t.Run("Successful", testSuccessfulTask)
	t.Run("Successful without image", testSuccessfulTaskWithoutImage)
	t.Run("Message without family id", testMessageWithoutFamily)
	t.Run("Message is not JSON", testMessageNotJSON)
	t.Run("Failed to get family", testGetFamilyFailed)
	t.Run("Already complete with success", testAlreadyCompletedSuccessfully)
	t.Run("Already complete with failure", testAlreadyCompletedWithFailure)
	t.Run("Exceeded attempts", testExceededAttempts)
	t.Run("Failed to update family in onTaskExceededRetries", testFailedToUpdateOnExceededRetries)
	t.Run("Failed to update family in onTaskStarted", testFailedToUpdateOnTaskStarted)
	t.Run("Family without pedigree", testFamilyWithoutPedigree)
	t.Run("Failed due to converter error", testConverterError)
	t.Run("Failed due to converter panic", testConverterPanic)
	t.Run("Failed to update family in onTaskFailedWithError", testFailedToUpdateOnTaskFailedWithError)
	t.Run("Failed to update family in onTaskComplete", testFailedToUpdateOnTaskComplete)
	t.Run("Failed to save result to S3", testFailedToSaveToS3)
	t.Run("Failed to save image to S3", testFailedToSaveImageToS3)
	t.Run("Failed to acknowledge delivery", testFailedAckDelivery)
	t.Run("Failed to ping sequencer", testFailedPingSequencer)
}

func testSuccessfulTask(t *testing.T) {
	mocks := testConfiguration(
		t,
		mockedClientsConfig{
			converterMockConfig: converterMockConfig{result: []types.PatientRecord{{ID: "P0000001", Sex: "F"}, {}}},
		},
		successfulCalls,
	)
	require.JSONEq(t, `{
		"family_id": "FAM0000001",
		"proband": {"patient_id": "P0000001", "last_name": "Roe"},
		"patients": [{"id": "P0000001", "sex": "F"}, {}]
	}`, string(mocks.s3.saved))
}

func testSuccessfulTaskWithoutImage(t *testing.T) {
	family := defaultFamily()
	family.Pedigree.Image = ""
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{getFamily: withValue{returnedValue: family}},
		},
		methodsCalls{
			redis:     successfulCalls.redis,
			rmq:       successfulCalls.rmq,
			s3:        s3MockCalls{saveResultsFile: true},
			converter: converterCall{true},
		},
	)
}

func testMessageWithoutFamily(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{body: "{}"},
		methodsCalls{rmq: rmqMockCalls{rejectDelivery: true}},
	)
}

func testMessageNotJSON(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{body: "FAM0000001"},
		methodsCalls{rmq: rmqMockCalls{rejectDelivery: true}},
	)
}

func testGetFamilyFailed(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{getFamily: withValue{fail: true}},
		},
		methodsCalls{
			redis: redisMockCalls{getFamily: true},
			rmq:   rmqMockCalls{rejectDelivery: true},
		},
	)
}

func familyWithExport(export records.ExportInfo) records.FamilyRecord {
	family := defaultFamily()
	family.Export = export
	return family
}

func testAlreadyCompletedSuccessfully(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{getFamily: withValue{
				returnedValue: familyWithExport(records.ExportInfo{Status: records.ExportStatusCompletedSuccess}),
			}},
		},
		methodsCalls{
			redis: redisMockCalls{getFamily: true},
			rmq:   rmqMockCalls{pingSequencer: true, acknowledgeDelivery: true},
		},
	)
}

func testAlreadyCompletedWithFailure(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{getFamily: withValue{
				returnedValue: familyWithExport(records.ExportInfo{Status: records.ExportStatusCompletedFailure}),
			}},
		},
		methodsCalls{
			redis: redisMockCalls{getFamily: true},
			rmq:   rmqMockCalls{pingSequencer: true, acknowledgeDelivery: true},
		},
	)
}

func testExceededAttempts(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{getFamily: withValue{
				returnedValue: familyWithExport(records.ExportInfo{Status: records.ExportStatusFailed, Attempts: 3}),
			}},
		},
		methodsCalls{
			redis: redisMockCalls{getFamily: true, onTaskExceededRetries: true},
			rmq:   rmqMockCalls{pingSequencer: true, acknowledgeDelivery: true},
		},
	)
}

func testFailedToUpdateOnExceededRetries(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{
				getFamily: withValue{
					returnedValue: familyWithExport(records.ExportInfo{Attempts: 5}),
				},
				onTaskExceededRetries: failingMethod{fail: true},
			},
		},
		methodsCalls{
			redis: redisMockCalls{getFamily: true, onTaskExceededRetries: true},
			rmq:   rmqMockCalls{rejectDelivery: true},
		},
	)
}

func testFailedToUpdateOnTaskStarted(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{onTaskStarted: failingMethod{fail: true}},
		},
		methodsCalls{
			redis: redisMockCalls{getFamily: true, onTaskStarted: true},
			rmq:   rmqMockCalls{rejectDelivery: true},
		},
	)
}

func testFamilyWithoutPedigree(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{getFamily: withValue{returnedValue: records.FamilyRecord{}}},
		},
		methodsCalls{
			redis: redisMockCalls{getFamily: true, onTaskStarted: true, onTaskFailedWithError: true},
			rmq:   rmqMockCalls{pingSequencer: true, acknowledgeDelivery: true},
		},
	)
}

var failedExportCalls = methodsCalls{
	redis:     redisMockCalls{getFamily: true, onTaskStarted: true, onTaskFailedWithError: true},
	rmq:       rmqMockCalls{pingSequencer: true, acknowledgeDelivery: true},
	converter: converterCall{true},
}

func testConverterError(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{converterMockConfig: converterMockConfig{fail: true}},
		failedExportCalls,
	)
}

func testConverterPanic(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{converterMockConfig: converterMockConfig{panic: true}},
		failedExportCalls,
	)
}

func testFailedToUpdateOnTaskFailedWithError(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			converterMockConfig: converterMockConfig{fail: true},
			redisMockConfig:     redisMockConfig{onTaskFailedWithError: failingMethod{fail: true}},
		},
		methodsCalls{
			redis:     failedExportCalls.redis,
			rmq:       rmqMockCalls{rejectDelivery: true},
			converter: converterCall{true},
		},
	)
}

func testFailedToUpdateOnTaskComplete(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{onTaskComplete: failingMethod{fail: true}},
		},
		methodsCalls{
			redis:     successfulCalls.redis,
			rmq:       rmqMockCalls{rejectDelivery: true},
			s3:        successfulCalls.s3,
			converter: converterCall{true},
		},
	)
}

func testFailedToSaveToS3(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			s3MockConfig: s3MockConfig{saveResultsFile: failingMethod{fail: true}},
		},
		methodsCalls{
			redis:     failedExportCalls.redis,
			rmq:       failedExportCalls.rmq,
			s3:        s3MockCalls{saveResultsFile: true},
			converter: converterCall{true},
		},
	)
}

func testFailedToSaveImageToS3(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			s3MockConfig: s3MockConfig{saveImage: failingMethod{fail: true}},
		},
		methodsCalls{
			redis:     failedExportCalls.redis,
			rmq:       failedExportCalls.rmq,
			s3:        s3MockCalls{saveResultsFile: true, saveImage: true},
			converter: converterCall{true},
		},
	)
}

func testFailedAckDelivery(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			rmqMockConfig: rmqMockConfig{acknowledgeDelivery: failingMethod{fail: true}},
		},
		successfulCalls,
	)
}

func testFailedPingSequencer(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			rmqMockConfig: rmqMockConfig{pingSequencer: failingMethod{fail: true}},
		},
		methodsCalls{
			redis:     successfulCalls.redis,
			rmq:       rmqMockCalls{pingSequencer: true, rejectDelivery: true},
			s3:        successfulCalls.s3,
			converter: converterCall{true},
		},
	)
}
