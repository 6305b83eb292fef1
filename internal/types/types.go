package types

// Transcript is the ordered output of the transcription engine.
type Transcript struct {
	Language string    `json:"language,omitempty"`
	Segments []Segment `json:"segments"`
}

// Segment is a timed span of transcribed text. Segments are immutable
// once produced and ordered by non-decreasing start time.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Chapter is a time-bounded candidate detected by analysis. Only the
// Selected flag may change after creation; everything else is fixed.
type Chapter struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Duration   float64  `json:"duration"`
	Summary    string   `json:"summary,omitempty"`
	Confidence float64  `json:"confidence"`
	Keywords   []string `json:"keywords,omitempty"`
	Hooks      []string `json:"hooks,omitempty"`
	ViralScore int      `json:"viral_score"`
	Selected   bool     `json:"selected"`
}

// Clip is a rendered output file. Immutable after the render stage
// creates it; owned exclusively by the job directory.
type Clip struct {
	Filename  string            `json:"filename"`
	Title     string            `json:"title"`
	Start     float64           `json:"start"`
	End       float64           `json:"end"`
	Duration  float64           `json:"duration"`
	Thumbnail string            `json:"thumbnail,omitempty"`
	Subtitles string            `json:"subtitles,omitempty"`
	Score     int               `json:"score"`
	Formats   map[string]string `json:"formats,omitempty"`
}

// VideoInfo is the probe result for an acquired media file.
type VideoInfo struct {
	Path     string  `json:"path"`
	Duration float64 `json:"duration"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
}

// Metadata is the per-job summary persisted as metadata.json.
type Metadata struct {
	URL             string  `json:"url"`
	Duration        float64 `json:"duration"`
	SegmentCount    int     `json:"segment_count"`
	ChapterCount    int     `json:"chapter_count"`
	DetectionMethod string  `json:"detection_method,omitempty"`
	Language        string  `json:"language,omitempty"`
}
