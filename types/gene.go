package types

import (
	"fmt"
	"phenotips.org/pedigree/utils"
	"strings"
)

type Classification string

const (
	ClassificationCandidate Classification = "candidate"
	ClassificationRejected  Classification = "rejected"
	ClassificationSolved    Classification = "solved"
)

func ParseClassification(s string) (Classification, error) {
	switch c := Classification(strings.ToLower(strings.TrimSpace(s))); c {
	case ClassificationCandidate, ClassificationRejected, ClassificationSolved:
		return c, nil
	}
	return "", fmt.Errorf("unknown gene classification %q", s)
}

// GeneRecord is one gene finding of a patient.
type GeneRecord struct {
	Gene     string         `json:"gene"`
	Status   Classification `json:"status"`
	Comments string         `json:"comments,omitempty"`
}

// ParseGeneRecord reads {gene, status, comments}. A blank gene is not a record;
// an unknown status falls back to candidate.
func ParseGeneRecord(obj map[string]interface{}) (GeneRecord, bool) {
	gene := utils.AsString(obj["gene"])
	if gene == "" {
		return GeneRecord{}, false
	}
	status, err := ParseClassification(utils.AsString(obj["status"]))
	if err != nil {
		status = ClassificationCandidate
	}
	return GeneRecord{
		Gene:     gene,
		Status:   status,
		Comments: utils.AsString(obj["comments"]),
	}, true
}

func (gene GeneRecord) ToJSON() map[string]interface{} {
	result := map[string]interface{}{
		"gene":   gene.Gene,
		"status": string(gene.Status),
	}
	if gene.Comments != "" {
		result["comments"] = gene.Comments
	}
	return result
}
