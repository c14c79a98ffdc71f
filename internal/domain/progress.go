package domain

type ProgressStage string

const (
	StageQueued     ProgressStage = "queued"
	StageResolving  ProgressStage = "resolving"
	StageExtracting ProgressStage = "extracting"
	StageConverting ProgressStage = "converting"
	StageDone       ProgressStage = "done"
	StageFailed     ProgressStage = "failed"
)

// ProgressEvent is broadcast over the event feed while a retrieval runs.
// Percent is -1 when the current stage reports no measurable progress.
type ProgressEvent struct {
	ID        string        `json:"id"`
	ContentID string        `json:"contentId,omitempty"`
	Stage     ProgressStage `json:"stage"`
	Percent   float64       `json:"percent"`
	FileName  string        `json:"fileName,omitempty"`
	ErrorCode string        `json:"errorCode,omitempty"`
}
