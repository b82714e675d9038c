package worker

import (
	"path"
	"time"
)

func getResultsFileKey(task *Task) string {
	return path.Join("processed", "families", task.familyID, "patients.json")
}

func getImageFileKey(task *Task) string {
	return path.Join("processed", "families", task.familyID, "pedigree.svg")
}

const RFC3339Micro = "2006-01-02T15:04:05.000000-07:00"

func getFormattedNow() *string {
	now := time.Now().UTC().Format(RFC3339Micro)
	return &now
}
