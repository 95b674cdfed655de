package exam

import (
	"github.com/trezcool/educator/core"
)

var ErrNoMarksAvailable = core.NewInvalidStateError("exam has no marks available")

// Aggregate computes the Performance of one learner for one exam from scratch.
// questions are all the questions of the exam and subs all the learner's submissions to them.
// The returned Performance carries no user/exam ids nor timestamp; the caller sets them.
func Aggregate(questions []Question, subs []Submission, grades *GradeTable) (Performance, error) {
	var perf Performance
	for _, q := range questions {
		perf.TotalMarks += q.Marks
	}
	perf.QuestionCount = len(questions)

	for _, s := range subs {
		switch s.Mark {
		case MarkTick, MarkAutoTick:
			perf.TickCount++
			perf.MarksObtained += s.MarksObtained
			if s.Mark == MarkAutoTick {
				perf.AutoTickCount++
			}
		case MarkCross, MarkAutoCross:
			perf.CrossCount++
			if s.Mark == MarkAutoCross {
				perf.AutoCrossCount++
			}
		default:
			perf.UnmarkedCount++
		}
	}

	if perf.TotalMarks <= 0 {
		return Performance{}, ErrNoMarksAvailable
	}
	perf.Percentage = perf.MarksObtained * 100 / perf.TotalMarks

	grade, err := grades.Lookup(perf.Percentage)
	if err != nil {
		return Performance{}, err
	}
	perf.Grade = grade
	return perf, nil
}
