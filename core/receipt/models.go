package receipt

import (
	"time"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrNotFound   = errors.New("receipt not found")
	ErrNoDataRows = errors.New("the sheet contains no data rows")
	ErrEmptySheet = errors.New("the sheet is empty")
)

// StudentRecord is one parsed row of a fee sheet. All values are kept as
// the raw strings found in the sheet; interpretation happens in BuildContext.
type StudentRecord struct {
	Name         string `json:"name"`
	Date         string `json:"date"`
	Category     string `json:"category"`
	InWords      string `json:"in_words"`
	Course       string `json:"course"`
	TuitionFee   string `json:"tuition_fee"`
	DevFee       string `json:"dev_fee"`
	ExamFee      string `json:"exam_fee"`
	EnrollFee    string `json:"enroll_fee"`
	OtherFee     string `json:"other_fee"`
	Total        string `json:"total"`
	BankName     string `json:"bank_name"`
	PayOrderNo   string `json:"pay_order_no"`
	Email        string `json:"email"`
	EnrollmentID string `json:"enrollment_id"`
}

// Status of a receipt as it moves through a generation batch.
type Status string

const (
	StatusParsed     Status = "parsed"
	StatusGenerating Status = "generating"
	StatusUploading  Status = "uploading"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// next reports whether s -> target is a legal transition. Receipts only
// move forward; "failed" is terminal and reachable from any working state.
func (s Status) next(target Status) bool {
	if target == StatusFailed {
		return s != StatusCompleted
	}
	switch s {
	case StatusParsed:
		return target == StatusGenerating
	case StatusGenerating:
		return target == StatusUploading
	case StatusUploading:
		return target == StatusCompleted
	}
	return false
}

// Receipt is the persisted outcome of generating one student's document.
type Receipt struct {
	ID           string    `json:"id"`
	AccountID    string    `json:"account_id"`
	StudentName  string    `json:"student_name"`
	Email        string    `json:"email"`
	EnrollmentID string    `json:"enrollment_id"`
	PayOrderNo   string    `json:"pay_order_no"`
	Status       Status    `json:"status"`
	Error        string    `json:"error,omitempty"`
	Handle       string    `json:"-"`
	Sent         bool      `json:"sent"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

// BatchReport summarizes one generation run.
type BatchReport struct {
	Attempted  int       `json:"attempted"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Unresolved []string  `json:"unresolved,omitempty"`
	Receipts   []Receipt `json:"receipts"`
}
