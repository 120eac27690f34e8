package models

// TranscriptResult is the normalized output of a speech-to-text engine.
type TranscriptResult struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Words    []Word    `json:"words,omitempty"`
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
}

// Segment is a time-aligned portion of a transcript, in seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Word carries word-level timing when the engine provides it.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// TranscribeResponse is the success body of the transcribe endpoint.
type TranscribeResponse struct {
	Success       bool      `json:"success"`
	Transcription string    `json:"transcription"`
	Segments      []Segment `json:"segments"`
	Words         []Word    `json:"words,omitempty"`
	Language      string    `json:"language"`
	Duration      float64   `json:"duration"`
}

// NewTranscribeResponse flattens a result into the wire shape.
func NewTranscribeResponse(r *TranscriptResult) TranscribeResponse {
	segments := r.Segments
	if segments == nil {
		segments = []Segment{}
	}
	return TranscribeResponse{
		Success:       true,
		Transcription: r.Text,
		Segments:      segments,
		Words:         r.Words,
		Language:      r.Language,
		Duration:      r.Duration,
	}
}
