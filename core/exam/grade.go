package exam

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/educator/core"
)

// Grade maps a band of percentages to a letter grade and its 4.0 scale value.
// Bands are [StartingPercentage, EndingPercentage) except the top one which also includes 100.
type Grade struct {
	ID                 int     `json:"id"`
	StartingPercentage int     `json:"starting_percentage"`
	EndingPercentage   int     `json:"ending_percentage"`
	LetterGrade        string  `json:"letter_grade"`
	FourPointZeroGrade float64 `json:"four_point_zero_grade"`
}

// DefaultGrades is the grading scale seeded into the grades table.
var DefaultGrades = []Grade{
	{ID: 1, StartingPercentage: 0, EndingPercentage: 65, LetterGrade: "E/F", FourPointZeroGrade: 0.0},
	{ID: 2, StartingPercentage: 65, EndingPercentage: 67, LetterGrade: "D", FourPointZeroGrade: 1.0},
	{ID: 3, StartingPercentage: 67, EndingPercentage: 70, LetterGrade: "D+", FourPointZeroGrade: 1.3},
	{ID: 4, StartingPercentage: 70, EndingPercentage: 73, LetterGrade: "C-", FourPointZeroGrade: 1.7},
	{ID: 5, StartingPercentage: 73, EndingPercentage: 77, LetterGrade: "C", FourPointZeroGrade: 2.0},
	{ID: 6, StartingPercentage: 77, EndingPercentage: 80, LetterGrade: "C+", FourPointZeroGrade: 2.3},
	{ID: 7, StartingPercentage: 80, EndingPercentage: 83, LetterGrade: "B-", FourPointZeroGrade: 2.7},
	{ID: 8, StartingPercentage: 83, EndingPercentage: 87, LetterGrade: "B", FourPointZeroGrade: 3.0},
	{ID: 9, StartingPercentage: 87, EndingPercentage: 90, LetterGrade: "B+", FourPointZeroGrade: 3.3},
	{ID: 10, StartingPercentage: 90, EndingPercentage: 93, LetterGrade: "A-", FourPointZeroGrade: 3.7},
	{ID: 11, StartingPercentage: 93, EndingPercentage: 97, LetterGrade: "A", FourPointZeroGrade: 4.0},
	{ID: 12, StartingPercentage: 97, EndingPercentage: 100, LetterGrade: "A+", FourPointZeroGrade: 4.0},
}

var (
	errNoGrades        = errors.New("grade table is empty")
	errGradesNotFrom0  = errors.New("first grade band must start at 0")
	errGradesNotTo100  = errors.New("last grade band must end at 100")
	errGradeEmptyBand  = errors.New("grade band must start before it ends")
	errGradesNotContig = errors.New("grade bands must be contiguous and must not overlap")
)

// GradeTable is an immutable, validated grading scale. Safe for concurrent use.
type GradeTable struct {
	grades []Grade
}

// NewGradeTable validates grades and returns a GradeTable holding a sorted copy of them.
func NewGradeTable(grades []Grade) (*GradeTable, error) {
	if len(grades) == 0 {
		return nil, errNoGrades
	}
	sorted := append([]Grade(nil), grades...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartingPercentage < sorted[j].StartingPercentage
	})

	if sorted[0].StartingPercentage != 0 {
		return nil, errGradesNotFrom0
	}
	if sorted[len(sorted)-1].EndingPercentage != 100 {
		return nil, errGradesNotTo100
	}
	for i, g := range sorted {
		if g.StartingPercentage >= g.EndingPercentage {
			return nil, errors.Wrapf(errGradeEmptyBand, "%s [%d, %d)", g.LetterGrade, g.StartingPercentage, g.EndingPercentage)
		}
		if i > 0 && g.StartingPercentage != sorted[i-1].EndingPercentage {
			prev := sorted[i-1]
			return nil, errors.Wrapf(errGradesNotContig, "%s ends at %d but %s starts at %d",
				prev.LetterGrade, prev.EndingPercentage, g.LetterGrade, g.StartingPercentage)
		}
	}
	return &GradeTable{grades: sorted}, nil
}

// MustGradeTable is NewGradeTable that panics on invalid grades.
func MustGradeTable(grades []Grade) *GradeTable {
	gt, err := NewGradeTable(grades)
	if err != nil {
		panic(err)
	}
	return gt
}

// Lookup returns the unique band containing percentage.
func (gt *GradeTable) Lookup(percentage int) (Grade, error) {
	last := len(gt.grades) - 1
	i := sort.Search(len(gt.grades), func(i int) bool {
		return gt.grades[i].EndingPercentage > percentage
	})
	switch {
	case percentage < 0:
	case i <= last:
		return gt.grades[i], nil
	case percentage == gt.grades[last].EndingPercentage:
		return gt.grades[last], nil
	}
	return Grade{}, core.NewInvalidStateError("no grade band matches %d%%", percentage)
}

// Grades returns a copy of the bands, lowest first.
func (gt *GradeTable) Grades() []Grade {
	return append([]Grade(nil), gt.grades...)
}
