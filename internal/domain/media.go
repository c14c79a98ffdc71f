package domain

// MediaKind selects which elementary stream a retrieval targets.
type MediaKind string

const (
	KindVideo MediaKind = "video"
	KindAudio MediaKind = "audio"
)

func (k MediaKind) Valid() bool {
	return k == KindVideo || k == KindAudio
}

// Extension returns the container extension artifacts of this kind use.
func (k MediaKind) Extension() string {
	if k == KindAudio {
		return ".mp3"
	}
	return ".mp4"
}

// FormatDescriptor identifies one retrievable encoding of a piece of content.
// ID is the stable handle understood by the extraction tool; descriptors are
// immutable once produced by a lister.
type FormatDescriptor struct {
	ID        string    `json:"id"`
	Quality   string    `json:"quality"`
	Container string    `json:"container"`
	Kind      MediaKind `json:"kind"`
}

// Artifact is a successfully retrieved file on local storage.
type Artifact struct {
	Path      string `json:"path"`
	FileName  string `json:"fileName"`
	SizeBytes int64  `json:"sizeBytes"`
}

type MediaTrack struct {
	Index    int    `json:"index"`
	Type     string `json:"type"`
	Codec    string `json:"codec"`
	Language string `json:"language"`
}

// MediaInfo is the probe result for a retrieved artifact.
type MediaInfo struct {
	Tracks   []MediaTrack `json:"tracks"`
	Duration float64      `json:"duration"`
	Width    int          `json:"width"`
	Height   int          `json:"height"`
}
