package job

// Status represents the lifecycle of a clipping job. It is the single
// canonical status vocabulary; queue- or transport-native states must
// be mapped into it at the boundary.
type Status string

const (
	StatusPending       Status = "pending"
	StatusDownloading   Status = "downloading"
	StatusTranscribing  Status = "transcribing"
	StatusAnalyzing     Status = "analyzing"
	StatusChaptersReady Status = "chapters_ready"
	StatusProcessing    Status = "processing"
	StatusCompleted     Status = "completed"
	StatusFailed        Status = "failed"
)

// transitions is the forward-only transition table. FAILED is reachable
// from any non-terminal state and is handled in CanTransition rather
// than listed per state.
var transitions = map[Status][]Status{
	StatusPending:       {StatusDownloading},
	StatusDownloading:   {StatusTranscribing},
	StatusTranscribing:  {StatusAnalyzing},
	StatusAnalyzing:     {StatusChaptersReady, StatusProcessing},
	StatusChaptersReady: {StatusProcessing},
	StatusProcessing:    {StatusCompleted},
	StatusCompleted:     {},
	StatusFailed:        {},
}

// Terminal reports whether the status has no outgoing transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next is allowed.
func (s Status) CanTransition(next Status) bool {
	if next == StatusFailed {
		return !s.Terminal()
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}
