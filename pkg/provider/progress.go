package provider

// Refresh stages reported through ProgressFunc.
const (
	StageScan  = "scan"
	StageIndex = "index"
)

// Progress is one refresh progress update. Total is 0 while unknown.
type Progress struct {
	Provider string
	Stage    string
	Current  int
	Total    int
}

// Fraction returns Current/Total clamped to [0, 1], or 0 when Total is
// unknown.
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	return min(1, max(0, float64(p.Current)/float64(p.Total)))
}

// ProgressFunc receives refresh progress. It may be called from several
// goroutines and should return quickly.
type ProgressFunc func(Progress)

// ProgressReporter is implemented by providers whose Refresh reports
// progress. A nil fn disables reporting.
type ProgressReporter interface {
	SetProgress(fn ProgressFunc)
}
