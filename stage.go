package pingpong

import "fmt"

// Stage is a state of the tick state machine.
//
//	Idle -> ComputeIssued -> FeedbackCaptured -> TextureSynced -> Rendered -> ReadBack -> Idle
type Stage int32

const (
	// StageIdle means no tick is in flight.
	StageIdle Stage = iota
	// StageComputeIssued means the compute pass has been submitted.
	StageComputeIssued
	// StageFeedbackCaptured means the next buffer holds the new vector.
	StageFeedbackCaptured
	// StageTextureSynced means the state texture mirrors the next buffer.
	StageTextureSynced
	// StageRendered means the present pass has drawn the visualization.
	StageRendered
	// StageReadBack means the frame has been copied to host memory.
	StageReadBack

	stageCount
)

var stageNames = [stageCount]string{
	StageIdle:             "Idle",
	StageComputeIssued:    "ComputeIssued",
	StageFeedbackCaptured: "FeedbackCaptured",
	StageTextureSynced:    "TextureSynced",
	StageRendered:         "Rendered",
	StageReadBack:         "ReadBack",
}

// String returns the stage name.
func (s Stage) String() string {
	if s >= 0 && s < stageCount {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", int32(s))
}

// Next returns the stage that follows s. ReadBack wraps to Idle.
func (s Stage) Next() Stage {
	if s >= StageReadBack || s < 0 {
		return StageIdle
	}
	return s + 1
}
