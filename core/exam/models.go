package exam

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/educator/core"
)

// Mark is the marking state of a Submission.
type Mark string

const (
	MarkUnmarked  Mark = "unmarked"
	MarkTick      Mark = "tick"
	MarkCross     Mark = "cross"
	MarkAutoTick  Mark = "auto_tick"
	MarkAutoCross Mark = "auto_cross"
)

// IsManual reports whether a tutor set this mark.
func (m Mark) IsManual() bool { return m == MarkTick || m == MarkCross }

func (m Mark) IsTick() bool  { return m == MarkTick || m == MarkAutoTick }
func (m Mark) IsCross() bool { return m == MarkCross || m == MarkAutoCross }

func (m Mark) Valid() bool {
	switch m {
	case MarkUnmarked, MarkTick, MarkCross, MarkAutoTick, MarkAutoCross:
		return true
	}
	return false
}

type Exam struct {
	ID                string    `json:"id"`
	OwnerID           string    `json:"owner_id"`
	Name              string    `json:"name"`
	VideoTutorialName string    `json:"video_tutorial_name,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type Participant struct {
	ExamID    string    `json:"exam_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Question struct {
	ID          string    `json:"id"`
	ExamID      string    `json:"exam_id"`
	Number      int       `json:"number"`
	Text        string    `json:"text"`
	Marks       int       `json:"marks"`
	MultiChoice []string  `json:"multi_choice,omitempty"`
	Answer      string    `json:"answer,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsMultiChoice reports whether the question is auto-gradable.
func (q Question) IsMultiChoice() bool { return len(q.MultiChoice) > 0 }

// WithoutAnswer is the view of a Question shown to learners.
func (q Question) WithoutAnswer() Question {
	q.Answer = ""
	return q
}

type Submission struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	QuestionID    string    `json:"question_id"`
	ExamID        string    `json:"exam_id"`
	Answer        string    `json:"answer"`
	Mark          Mark      `json:"mark"`
	MarksObtained int       `json:"marks_obtained"`
	Comment       string    `json:"comment,omitempty"`
	MarkedBy      string    `json:"marked_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Performance is the derived scoring summary of one learner for one exam.
// TickCount and CrossCount include their auto counterparts.
type Performance struct {
	UserID         string    `json:"user_id"`
	ExamID         string    `json:"exam_id"`
	TickCount      int       `json:"tick_count"`
	CrossCount     int       `json:"cross_count"`
	UnmarkedCount  int       `json:"unmarked_count"`
	AutoTickCount  int       `json:"auto_tick_count"`
	AutoCrossCount int       `json:"auto_cross_count"`
	MarksObtained  int       `json:"marks_obtained"`
	TotalMarks     int       `json:"total_marks"`
	QuestionCount  int       `json:"question_count"`
	Percentage     int       `json:"percentage"`
	Grade          Grade     `json:"grade"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SameScore reports whether p and other hold the same derived values, ignoring timestamps.
func (p Performance) SameScore(other Performance) bool {
	p.UpdatedAt, other.UpdatedAt = time.Time{}, time.Time{}
	return p == other
}

// StalePerformance flags a (user, exam) pair whose Performance must be recomputed.
type StalePerformance struct {
	UserID    string    `json:"user_id"`
	ExamID    string    `json:"exam_id"`
	Reason    string    `json:"reason"`
	FlaggedAt time.Time `json:"flagged_at"`
}

// NewExam contains information needed to create a new Exam.
type NewExam struct {
	Name              string `json:"name" validate:"required,max=255"`
	VideoTutorialName string `json:"video_tutorial_name" validate:"omitempty,max=255,videoname"`
}

func (ne *NewExam) Validate(validate *validator.Validate) error {
	ne.Name = core.CleanString(ne.Name)
	ne.VideoTutorialName = core.CleanString(ne.VideoTutorialName)
	return validate.Struct(ne)
}

type NewParticipant struct {
	UserID string `json:"user_id" validate:"required"`
}

func (np *NewParticipant) Validate(validate *validator.Validate) error {
	np.UserID = core.CleanString(np.UserID)
	return validate.Struct(np)
}

// MaxQuestionMarks bounds a question's marks so exam totals stay within 32-bit store columns.
const MaxQuestionMarks = 1000

// NewQuestion contains information needed to create a new Question.
// Number is assigned automatically when nil.
type NewQuestion struct {
	ExamID      string   `json:"exam_id" validate:"required"`
	Number      *int     `json:"number" validate:"omitempty,min=1"`
	Text        string   `json:"text" validate:"required"`
	Marks       int      `json:"marks" validate:"required,min=1,max=1000"`
	MultiChoice []string `json:"multi_choice" validate:"omitempty,unique,dive,required"`
	Answer      string   `json:"answer"`
}

func (nq *NewQuestion) Validate(validate *validator.Validate) error {
	nq.ExamID = core.CleanString(nq.ExamID)
	nq.Text = core.CleanString(nq.Text)
	nq.Answer = core.CleanString(nq.Answer)
	for i, opt := range nq.MultiChoice {
		nq.MultiChoice[i] = core.CleanString(opt)
	}
	return validate.Struct(nq)
}

// NewSubmission accepts any answer, the empty one included: it is scored like any other.
type NewSubmission struct {
	QuestionID string `json:"question_id" validate:"required"`
	Answer     string `json:"answer"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	ns.QuestionID = core.CleanString(ns.QuestionID)
	return validate.Struct(ns)
}

// MarkRequest is a tutor's manual marking decision.
// OverrideMarks replaces the computed marks when set.
type MarkRequest struct {
	Decision      Mark   `json:"mark" validate:"required,markdecision"`
	OverrideMarks *int   `json:"marks_obtained" validate:"omitempty,min=0"`
	Comment       string `json:"comment" validate:"max=2000"`
}

func (mr *MarkRequest) Validate(validate *validator.Validate) error {
	mr.Decision = Mark(core.CleanString(string(mr.Decision), true /* lower */))
	mr.Comment = core.CleanString(mr.Comment)
	return validate.Struct(mr)
}

type QueryFilter struct {
	Search  string `query:"search"`
	OwnerID string `query:"owner_id"`
}
