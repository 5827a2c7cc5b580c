package stream

// Kind tags a chunk produced by the response reader.
type Kind string

const (
	// KindProgress carries status text that is never spoken.
	KindProgress Kind = "progress"
	// KindSentence carries one finalized clause of reply text.
	KindSentence Kind = "sentence"
	// KindDone marks the end of the reply stream.
	KindDone Kind = "done"
)

// Chunk is one unit of an agent reply stream.
type Chunk struct {
	Kind Kind
	Text string
}

func Progress(text string) Chunk { return Chunk{Kind: KindProgress, Text: text} }
func Sentence(text string) Chunk { return Chunk{Kind: KindSentence, Text: text} }
func Done() Chunk                { return Chunk{Kind: KindDone} }
