package quiver

// --- Domain types ---

// Document is an uploaded, already-converted document. Immutable after creation.
type Document struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Source    string `json:"source"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
}

// Chunk is a contiguous slice of document text. A flat chunk carries an
// embedding and no ParentID. In parent-child mode, parents are stored without
// embeddings and children reference their parent via ParentID; only children
// are embedded and searched.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	ParentID   string    `json:"parent_id,omitempty"`
	Content    string    `json:"content"`
	ChunkIndex int       `json:"chunk_index"`
	Embedding  []float32 `json:"-"`
}

// ScoredChunk is a search result. Score is cosine similarity for vector
// search results and a cross-encoder relevance score after re-ranking.
// The two scales are not comparable; a result set never mixes them.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float32 `json:"score"`
}

// ExpandedQuery holds a query and its generated variants. Ephemeral — never
// persisted.
type ExpandedQuery struct {
	Original string   `json:"original"`
	Variants []string `json:"variants"`
}

// ChunkMode selects the chunking strategy for a collection.
type ChunkMode int

const (
	// ModeFlat uses single-level chunking with overlap.
	ModeFlat ChunkMode = iota

	// ModeParentChild uses two-level hierarchical chunking. Small child
	// chunks are embedded for matching; large parent chunks provide rich
	// context. On retrieval: match children, return parents.
	ModeParentChild
)

// String returns the mode's wire name.
func (m ChunkMode) String() string {
	switch m {
	case ModeParentChild:
		return "parent_child"
	default:
		return "flat"
	}
}

// ParseChunkMode maps a wire name back to a ChunkMode.
func ParseChunkMode(s string) (ChunkMode, error) {
	switch s {
	case "flat", "":
		return ModeFlat, nil
	case "parent_child":
		return ModeParentChild, nil
	default:
		return ModeFlat, &ErrInvalidParameter{Param: "chunk_mode", Reason: "unknown mode " + s}
	}
}

// ChunkParams configures chunk windowing in characters.
type ChunkParams struct {
	ChunkSize     int `json:"chunk_size"`
	ChunkOverlap  int `json:"chunk_overlap"`
	ParentSize    int `json:"parent_size"`
	ParentOverlap int `json:"parent_overlap"`
	ChildSize     int `json:"child_size"`
	ChildOverlap  int `json:"child_overlap"`
}

// DefaultChunkParams returns the standard windowing configuration:
// 1000/200 for flat chunks, 2000/200 for parents, 400/50 for children.
func DefaultChunkParams() ChunkParams {
	return ChunkParams{
		ChunkSize:     1000,
		ChunkOverlap:  200,
		ParentSize:    2000,
		ParentOverlap: 200,
		ChildSize:     400,
		ChildOverlap:  50,
	}
}

// --- LLM protocol types ---

type ChatMessage struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

type ChatResponse struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// --- ChatMessage constructors ---

func UserMessage(text string) ChatMessage {
	return ChatMessage{Role: "user", Content: text}
}

func SystemMessage(text string) ChatMessage {
	return ChatMessage{Role: "system", Content: text}
}

func AssistantMessage(text string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: text}
}
