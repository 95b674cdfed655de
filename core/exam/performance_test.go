package exam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/educator/core"
)

func TestAggregate(t *testing.T) {
	grades := MustGradeTable(DefaultGrades)
	q1 := Question{ID: "q1", Marks: 5, MultiChoice: []string{"A", "B"}, Answer: "B"}
	q2 := Question{ID: "q2", Marks: 5}
	q3 := Question{ID: "q3", Marks: 10}
	sub := func(qID string, m Mark, marks int) Submission {
		return Submission{QuestionID: qID, Mark: m, MarksObtained: marks}
	}

	tests := []struct {
		name      string
		questions []Question
		subs      []Submission
		want      Performance
		wantKind  core.ErrorKind
	}{
		{
			name:      "no submissions",
			questions: []Question{q1, q2},
			want:      Performance{TotalMarks: 10, QuestionCount: 2, Grade: DefaultGrades[0]},
		},
		{
			name:      "auto tick and unmarked",
			questions: []Question{q1, q2},
			subs:      []Submission{sub("q1", MarkAutoTick, 5), sub("q2", MarkUnmarked, 0)},
			want: Performance{
				TickCount: 1, UnmarkedCount: 1, AutoTickCount: 1,
				MarksObtained: 5, TotalMarks: 10, QuestionCount: 2, Percentage: 50, Grade: DefaultGrades[0],
			},
		},
		{
			name:      "all ticked",
			questions: []Question{q1, q2},
			subs:      []Submission{sub("q1", MarkAutoTick, 5), sub("q2", MarkTick, 5)},
			want: Performance{
				TickCount: 2, AutoTickCount: 1,
				MarksObtained: 10, TotalMarks: 10, QuestionCount: 2, Percentage: 100, Grade: DefaultGrades[11],
			},
		},
		{
			name:      "crosses add no marks even with an override",
			questions: []Question{q1, q2},
			subs:      []Submission{sub("q1", MarkAutoCross, 0), sub("q2", MarkCross, 3)},
			want: Performance{
				CrossCount: 2, AutoCrossCount: 1,
				TotalMarks: 10, QuestionCount: 2, Grade: DefaultGrades[0],
			},
		},
		{
			name:      "percentage is floored",
			questions: []Question{q1, q2, q3},
			subs:      []Submission{sub("q3", MarkTick, 10), sub("q2", MarkTick, 3)},
			want: Performance{
				TickCount: 2, MarksObtained: 13, TotalMarks: 20, QuestionCount: 3, Percentage: 65, Grade: DefaultGrades[1],
			},
		},
		{
			name:      "partial override on tick",
			questions: []Question{q2, q3},
			subs:      []Submission{sub("q3", MarkTick, 7)},
			want: Performance{
				TickCount: 1, MarksObtained: 7, TotalMarks: 15, QuestionCount: 2, Percentage: 46, Grade: DefaultGrades[0],
			},
		},
		{name: "no questions", wantKind: core.KindInvalidState},
		{name: "zero marks", questions: []Question{{ID: "z"}}, wantKind: core.KindInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Aggregate(tt.questions, tt.subs, grades)
			if tt.wantKind != core.KindUnknown {
				assert.Equal(t, tt.wantKind, core.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.subs), got.TickCount+got.CrossCount+got.UnmarkedCount)
			assert.LessOrEqual(t, got.MarksObtained, got.TotalMarks)
		})
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	grades := MustGradeTable(DefaultGrades)
	questions := []Question{{ID: "q1", Marks: 4}, {ID: "q2", Marks: 6}}
	subs := []Submission{{QuestionID: "q1", Mark: MarkTick, MarksObtained: 4}, {QuestionID: "q2", Mark: MarkUnmarked}}

	first, err := Aggregate(questions, subs, grades)
	require.NoError(t, err)
	second, err := Aggregate(questions, subs, grades)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
