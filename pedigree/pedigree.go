package pedigree

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ProbandRef identifies the index patient of a pedigree.
type ProbandRef struct {
	PatientID string `json:"patient_id"`
	LastName  string `json:"last_name,omitempty"`
}

type schema interface {
	members(data map[string]interface{}) []Member
	nodeProperties(data map[string]interface{}) []map[string]interface{}
	proband(data map[string]interface{}) *ProbandRef
	unlink(data map[string]interface{}, patientID string) int
}

// Pedigree is a pedigree JSON tree and its rendered image. The tree is owned
// by the Pedigree; changes are in memory until the caller stores Data().
type Pedigree struct {
	data   map[string]interface{}
	image  string
	format Format
	schema schema
}

func New(data map[string]interface{}, image string) (*Pedigree, error) {
	if len(data) == 0 {
		return nil, ErrEmptyPedigree
	}
	format, err := DetectFormat(data)
	if err != nil {
		return nil, err
	}
	p := Pedigree{
		data:   data,
		image:  image,
		format: format,
	}
	switch format {
	case FormatLegacy:
		p.schema = legacySchema{}
	case FormatFlat:
		p.schema = flatSchema{}
	}
	return &p, nil
}

func Parse(raw []byte, image string) (*Pedigree, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, ErrEmptyPedigree
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode pedigree data: %w", err)
	}
	return New(data, image)
}

// FromValue builds a pedigree from stored data, which is either an object or
// its JSON text.
func FromValue(v interface{}, image string) (*Pedigree, error) {
	switch value := v.(type) {
	case nil:
		return nil, ErrEmptyPedigree
	case map[string]interface{}:
		return New(value, image)
	case string:
		return Parse([]byte(value), image)
	case []byte:
		return Parse(value, image)
	}
	return nil, fmt.Errorf("%w: data is %T", ErrUnsupportedFormat, v)
}

func (p *Pedigree) Format() Format {
	return p.format
}

func (p *Pedigree) Data() map[string]interface{} {
	return p.data
}

func (p *Pedigree) Image() string {
	return p.image
}

// Members lists the pedigree nodes linked to a patient record.
func (p *Pedigree) Members() ([]Member, error) {
	if p.format != FormatLegacy {
		return nil, fmt.Errorf("%w: members of a %s pedigree", ErrUnsupportedOperation, p.format)
	}
	return p.schema.members(p.data), nil
}

func (p *Pedigree) PatientIDs() ([]string, error) {
	members, err := p.Members()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(members))
	for _, member := range members {
		ids = append(ids, member.PatientID)
	}
	return ids, nil
}

// NodeProperties returns the property object of every node, linked or not.
// The maps belong to the tree, so writes to them change the pedigree.
func (p *Pedigree) NodeProperties() []map[string]interface{} {
	return p.schema.nodeProperties(p.data)
}

// Proband returns nil when no proband is designated, the designation does not
// resolve, or the proband node is not linked to a patient.
func (p *Pedigree) Proband() *ProbandRef {
	return p.schema.proband(p.data)
}

// UnlinkPatient removes the patient link from every matching node and returns
// how many were unlinked. Legacy pedigrees match ids case-insensitively, flat
// ones exactly.
func (p *Pedigree) UnlinkPatient(patientID string) int {
	if patientID == "" {
		return 0
	}
	return p.schema.unlink(p.data, patientID)
}

func (p *Pedigree) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"data":  p.data,
		"image": p.image,
	})
}
