package pipeline

import "time"

// Stats aggregates outcomes across a batch.
type Stats struct {
	Total        int
	Succeeded    int
	Failed       int
	Skipped      int
	Elapsed      time.Duration
	captionChars int
	summaryChars int
}

// Record folds one outcome into the totals.
func (s *Stats) Record(o Outcome) {
	s.Total++
	switch {
	case o.Skipped:
		s.Skipped++
	case o.Failure != nil:
		s.Failed++
	case o.Success != nil:
		s.Succeeded++
		s.captionChars += o.Success.CaptionChars
		s.summaryChars += o.Success.SummaryChars
	}
}

// SuccessRate is the percentage of attempted (non-skipped) videos that succeeded.
func (s Stats) SuccessRate() float64 {
	attempted := s.Succeeded + s.Failed
	if attempted == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(attempted) * 100
}

// AverageCaptionChars is the mean caption length over successful runs.
func (s Stats) AverageCaptionChars() int {
	if s.Succeeded == 0 {
		return 0
	}
	return s.captionChars / s.Succeeded
}

// AverageSummaryChars is the mean summary length over successful runs.
func (s Stats) AverageSummaryChars() int {
	if s.Succeeded == 0 {
		return 0
	}
	return s.summaryChars / s.Succeeded
}
