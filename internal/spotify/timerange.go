package spotify

// TimeRange is the look-back window for top-item queries.
type TimeRange string

// Time ranges accepted by the top-items endpoints.
const (
	RangeShortTerm  TimeRange = "short_term"
	RangeMediumTerm TimeRange = "medium_term"
	RangeLongTerm   TimeRange = "long_term"
)

// ParseTimeRange interprets a raw form/query value, defaulting empty input
// to short_term. Unrecognized values pass through untouched; the API rejects
// them and Description resolves them to an empty string.
func ParseTimeRange(s string) TimeRange {
	if s == "" {
		return RangeShortTerm
	}
	return TimeRange(s)
}

// Description returns the human-readable span for a time range, or an empty
// string for values outside the known set.
func (t TimeRange) Description() string {
	switch t {
	case RangeLongTerm:
		return "year"
	case RangeMediumTerm:
		return "6 months"
	case RangeShortTerm:
		return "4 weeks"
	default:
		return ""
	}
}
