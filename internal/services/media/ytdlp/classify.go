package ytdlp

import (
	"strings"

	"mediagate/internal/domain"
)

// classifyRule maps diagnostic substrings to one taxonomy kind. Any listed
// substring matches the rule.
type classifyRule struct {
	substrings []string
	err        error
}

// classifyRules is matched top to bottom and the first hit wins. Diagnostics
// often carry several overlapping phrases, so the order is load-bearing: DRM
// before the generic 403, access faults before the catch-all "unavailable".
var classifyRules = []classifyRule{
	{[]string{"drm"}, domain.ErrNetworkFault},
	{[]string{"http error 403", "403: forbidden", "access denied"}, domain.ErrNetworkFault},
	{[]string{"available in your country", "geo restriction", "geo-restricted"}, domain.ErrNetworkFault},
	{[]string{"video unavailable", "content is not available"}, domain.ErrNetworkFault},
	{[]string{"requested format is not available", "requested format not available"}, domain.ErrFormatRejected},
	{[]string{"postprocessing", "ffmpeg exited with code"}, domain.ErrPostprocessFailure},
}

// Classify maps a subprocess diagnostic stream to the retrieval error
// taxonomy. Unmatched diagnostics fall through to domain.ErrExtractionFailed.
func Classify(diagnostic string) error {
	lower := strings.ToLower(diagnostic)
	for _, rule := range classifyRules {
		for _, sub := range rule.substrings {
			if strings.Contains(lower, sub) {
				return rule.err
			}
		}
	}
	return domain.ErrExtractionFailed
}
