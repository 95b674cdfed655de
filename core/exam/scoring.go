package exam

import (
	"github.com/pkg/errors"

	"github.com/trezcool/educator/core"
)

var (
	ErrAlreadyMarked   = core.NewConflictError("submission has already been marked")
	errInvalidDecision = errors.New("mark must be one of tick, cross")
)

// Score auto-grades an answer at submission time.
// Multiple choice answers are compared to the question's answer with exact string equality;
// free text answers stay unmarked until a tutor marks them.
func Score(q Question, answer string) (Mark, int) {
	if !q.IsMultiChoice() {
		return MarkUnmarked, 0
	}
	if answer == q.Answer {
		return MarkAutoTick, q.Marks
	}
	return MarkAutoCross, 0
}

// ApplyMark returns the state and marks of sub after a tutor's decision.
// Manual marks are terminal; unmarked and auto-marked submissions may be marked.
// override, when given, wins over the computed marks and must lie within [0, q.Marks].
func ApplyMark(sub Submission, q Question, decision Mark, override *int) (Mark, int, error) {
	if decision != MarkTick && decision != MarkCross {
		return "", 0, core.NewValidationError(errInvalidDecision, core.FieldError{Field: "mark", Error: errInvalidDecision.Error()})
	}
	if sub.Mark.IsManual() {
		return "", 0, ErrAlreadyMarked
	}

	if override != nil {
		if *override < 0 || *override > q.Marks {
			msg := "marks must be between 0 and the question's marks"
			return "", 0, core.NewValidationError(errors.New(msg), core.FieldError{Field: "marks_obtained", Error: msg})
		}
		return decision, *override, nil
	}
	if decision == MarkTick {
		return decision, q.Marks, nil
	}
	return decision, 0, nil
}
