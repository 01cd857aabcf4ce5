// Package optimizer drives the generate/evaluate loop that produces four
// rubric-checked resume bullet points for a job title.
package optimizer

// BulletCount is the fixed number of bullet points produced per optimization.
const BulletCount = 4

// MaxIterations caps the generate/evaluate loop. Once reached, remaining
// failing grades are forced to pass so the loop always terminates.
const MaxIterations = 5

// Grade is the evaluator's verdict for a single bullet point.
type Grade string

// Grade values. The zero value means the bullet has not been evaluated yet.
const (
	GradePass  Grade = "pass"
	GradeFail  Grade = "fail"
	GradeUnset Grade = ""
)

// OptimizationState is the unit of work for one optimization request.
// BulletPoints, Grades and Feedback always have length BulletCount and are
// index-aligned: Feedback[i] explains Grades[i] explains BulletPoints[i].
// The state is created fresh per request, mutated in place across
// iterations, and discarded when the loop terminates.
type OptimizationState struct {
	Job            string   `json:"job"`
	Experience     string   `json:"experience"`
	BulletPoints   []string `json:"bullet_points"`
	Grades         []Grade  `json:"grades"`
	Feedback       []string `json:"feedback"`
	IterationCount int      `json:"iteration_count"`
}

// NewState creates an empty state for the given job title.
func NewState(job string) *OptimizationState {
	return &OptimizationState{
		Job:          job,
		BulletPoints: make([]string, BulletCount),
		Grades:       make([]Grade, BulletCount),
		Feedback:     make([]string, BulletCount),
	}
}

// AllPassed reports whether every bullet has grade pass.
func (s *OptimizationState) AllPassed() bool {
	for _, g := range s.Grades {
		if g != GradePass {
			return false
		}
	}
	return true
}

// FailedCount returns the number of bullets currently graded fail.
func (s *OptimizationState) FailedCount() int {
	count := 0
	for _, g := range s.Grades {
		if g == GradeFail {
			count++
		}
	}
	return count
}

// resetEvaluation clears grades and feedback ahead of a fresh evaluation.
func (s *OptimizationState) resetEvaluation() {
	s.Grades = make([]Grade, BulletCount)
	s.Feedback = make([]string, BulletCount)
}

// snapshot returns a deep copy, used for progress callbacks so observers
// never see later in-place mutation.
func (s *OptimizationState) snapshot() *OptimizationState {
	copied := &OptimizationState{
		Job:            s.Job,
		Experience:     s.Experience,
		BulletPoints:   make([]string, BulletCount),
		Grades:         make([]Grade, BulletCount),
		Feedback:       make([]string, BulletCount),
		IterationCount: s.IterationCount,
	}
	copy(copied.BulletPoints, s.BulletPoints)
	copy(copied.Grades, s.Grades)
	copy(copied.Feedback, s.Feedback)
	return copied
}
