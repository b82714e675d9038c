package records

type ExportStatus string

const (
	ExportStatusSubmitted        ExportStatus = "submitted"
	ExportStatusStarted          ExportStatus = "started"
	ExportStatusFailed           ExportStatus = "failed"
	ExportStatusCompletedSuccess ExportStatus = "completed - success"
	ExportStatusCompletedFailure ExportStatus = "completed - failure"
)

func (s ExportStatus) Complete() bool {
	return s == ExportStatusCompletedSuccess || s == ExportStatusCompletedFailure
}
