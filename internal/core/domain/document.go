package domain

import "time"

// StatusCode is the workspace-level processing status derived from the
// upload/result directory contents.
type StatusCode int

const (
	StatusNotStarted StatusCode = 0
	StatusInProgress StatusCode = 1
	StatusComplete   StatusCode = 2
)

// DocumentState is the persisted per-document lifecycle state. Unlike the
// directory-derived StatusCode it can distinguish a failed run from one
// that is still in flight.
type DocumentState string

const (
	StatePending    DocumentState = "pending"
	StateProcessing DocumentState = "processing"
	StateDone       DocumentState = "done"
	StateFailed     DocumentState = "failed"
)

// WorkspaceStatus is the full status payload for one user: the 0/1/2 code,
// a per-base-name completion flag for every uploaded document, and the
// persisted document states where known.
type WorkspaceStatus struct {
	Code      StatusCode               `json:"status_code"`
	Documents map[string]bool          `json:"documents,omitempty"`
	States    map[string]DocumentState `json:"states,omitempty"`
}

// OCRJob is one unit of background work: a stored source document awaiting
// conversion. FileName keeps its original extension; the base name without
// extension keys the result artifact and the ledger row.
type OCRJob struct {
	UserID   string `json:"user_id"`
	FileName string `json:"file_name"`
}

// PageFragment is the Markdown produced for a single rasterized page plus
// the tokens the model spent on it. Fragments concatenate in page order.
type PageFragment struct {
	Index    int
	Markdown string
	Tokens   int
}

// TokenRecord is one durable ledger row: total tokens consumed converting
// one document for one user.
type TokenRecord struct {
	UserID      string    `json:"user_id"`
	FileName    string    `json:"file_name"`
	TotalTokens int       `json:"total_tokens"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DocumentResult is a retrieved conversion artifact together with its
// recorded token cost.
type DocumentResult struct {
	FileName string `json:"file_name"`
	Markdown string `json:"markdown"`
	Tokens   int    `json:"tokens"`
}
