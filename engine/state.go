package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/calebres/thesis/shared"
)

// ExecutionState represents the persisted decision state of the orchestrator.
type ExecutionState struct {
	Phase            shared.Phase      `json:"phase"`
	ThesisDirection  shared.Direction  `json:"thesisDirection"`
	ThesisConfidence float64           `json:"thesisConfidence"`
	ThesisSetOn      time.Time         `json:"thesisSetOn"`
	PullbackHigh     float64           `json:"pullbackHigh"`
	PullbackLow      float64           `json:"pullbackLow"`
	EntryPrice       float64           `json:"entryPrice"`
	EnteredOn        time.Time         `json:"enteredOn"`
	Stop             float64           `json:"stop"`
	Targets          [2]float64        `json:"targets"`
	WaitReason       shared.WaitReason `json:"waitReason"`
}

// clearTrade resets all pullback and trade fields of the state.
func (s *ExecutionState) clearTrade() {
	s.PullbackHigh = 0
	s.PullbackLow = 0
	s.EntryPrice = 0
	s.EnteredOn = time.Time{}
	s.Stop = 0
	s.Targets = [2]float64{}
}

// clearThesis resets the thesis fields of the state.
func (s *ExecutionState) clearThesis() {
	s.ThesisDirection = shared.Unclear
	s.ThesisConfidence = 0
	s.ThesisSetOn = time.Time{}
}

// Snapshot represents a point-in-time capture of the orchestrator and advisory state
// for persistence.
type Snapshot struct {
	Market             string           `json:"market"`
	State              ExecutionState   `json:"state"`
	DebouncedDirection shared.Direction `json:"debouncedDirection"`
	ThesisAcceptedOn   time.Time        `json:"thesisAcceptedOn"`
	Governor           GovernorSnapshot `json:"governor"`
	CapturedOn         time.Time        `json:"capturedOn"`
}

// Encode serializes the snapshot for storage.
func (s *Snapshot) Encode() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}

	return data, nil
}

// DecodeSnapshot deserializes a snapshot from storage.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}

	return &snapshot, nil
}
