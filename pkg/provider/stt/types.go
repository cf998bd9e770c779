package stt

// Transcript represents a speech-to-text result from a provider. Both
// partial (interim) and final transcripts use this type.
type Transcript struct {
	// Text is the transcribed speech content.
	Text string

	// IsFinal indicates whether this is a final (authoritative) or partial
	// (interim) transcript. Only final transcripts may be committed to the
	// transcript buffer.
	IsFinal bool

	// Confidence is the overall confidence score (0.0–1.0). Zero when the
	// provider does not report confidence.
	Confidence float64
}
