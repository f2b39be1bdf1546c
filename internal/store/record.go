package store

// Status tracks where a record is in its processing run.
type Status string

// Record statuses. Completed and Error are terminal for a run.
const (
	StatusPending    Status = "PENDING"
	StatusReading    Status = "READING"
	StatusConverting Status = "CONVERTING"
	StatusCompleted  Status = "COMPLETED"
	StatusError      Status = "ERROR"
)

// Terminal reports whether no further automatic transitions occur.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Page is one produced output unit: a rendered page or a whole document.
type Page struct {
	PageNum int    `json:"pageNum"`
	Data    []byte `json:"-"`
	MIME    string `json:"mime"`
}

// Record is the store's unit of state for one uploaded document. The
// original bytes live only as (Ciphertext, Nonce); plaintext exists
// transiently inside a strategy around each processing step.
type Record struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	Ciphertext []byte `json:"-"`
	Nonce      []byte `json:"-"`

	OriginalSize int64 `json:"originalSize"`
	// CompressedSize is -1 until a strategy produces output.
	CompressedSize int64 `json:"compressedSize"`

	Status     Status `json:"status"`
	Progress   int    `json:"progress"`
	TotalPages int    `json:"totalPages"`
	Pages      []Page `json:"pages"`

	Locked   bool   `json:"isLocked"`
	ErrorMsg string `json:"errorMessage,omitempty"`
}

// SavedBytes is original minus compressed size. Negative when the
// output grew (e.g. JPEG re-encoded at quality 1.0).
func (r *Record) SavedBytes() int64 {
	if r.CompressedSize < 0 {
		return 0
	}
	return r.OriginalSize - r.CompressedSize
}

// SavedPercent is the saved share of the original size, rounded to one
// decimal. The sign is preserved, not clamped.
func (r *Record) SavedPercent() float64 {
	if r.CompressedSize < 0 || r.OriginalSize == 0 {
		return 0
	}
	pct := float64(r.SavedBytes()) / float64(r.OriginalSize) * 100
	return float64(int64(pct*10+sign(pct)*0.5)) / 10
}

func sign(f float64) float64 {
	if f < 0 {
		return -1
	}
	return 1
}

func (r *Record) clone() *Record {
	c := *r
	c.Pages = append([]Page(nil), r.Pages...)
	c.Ciphertext = append([]byte(nil), r.Ciphertext...)
	c.Nonce = append([]byte(nil), r.Nonce...)
	return &c
}
