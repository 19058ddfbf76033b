package content

// Terminal progress steps.
const (
	StepComplete  = "complete"
	StepError     = "error"
	StepCancelled = "cancelled"
)

// Progress is reported repeatedly while an install or sync runs.
type Progress struct {
	Step     string `json:"step"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
}

// ProgressFunc receives progress updates. A nil ProgressFunc is valid and ignored.
type ProgressFunc func(Progress)

// Report calls f when it is set.
func (f ProgressFunc) Report(step string, progress int, message string) {
	if f == nil {
		return
	}
	f(Progress{Step: step, Progress: progress, Message: message})
}

// IsTerminal reports whether the step ends a run.
func (p Progress) IsTerminal() bool {
	return p.Step == StepComplete || p.Step == StepError || p.Step == StepCancelled
}
