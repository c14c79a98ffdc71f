package ports

import "mediagate/internal/domain"

// ProgressSink receives retrieval lifecycle events. Implementations must not
// block; drops under backpressure are acceptable.
type ProgressSink interface {
	Publish(ev domain.ProgressEvent)
}
