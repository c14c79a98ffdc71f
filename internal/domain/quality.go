package domain

// QualityTier is the coarse user-facing quality preference.
type QualityTier string

const (
	TierHigh   QualityTier = "high"
	TierMedium QualityTier = "medium"
	TierLow    QualityTier = "low"
)

var tierLabels = map[QualityTier][]string{
	TierHigh:   {"1080p", "720p"},
	TierMedium: {"720p", "480p"},
	TierLow:    {"360p", "240p"},
}

// Labels resolves a tier to its ordered preference list of quality labels.
// The mapping is total: an unrecognized tier resolves to the high list.
func (t QualityTier) Labels() []string {
	labels, ok := tierLabels[t]
	if !ok {
		labels = tierLabels[TierHigh]
	}
	return append([]string(nil), labels...)
}

// PrimaryLabel is the first preference label for the tier, used as the
// quality suffix of video artifact names.
func (t QualityTier) PrimaryLabel() string {
	return t.Labels()[0]
}
