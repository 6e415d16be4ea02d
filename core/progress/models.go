package progress

// Counts are the raw figures behind a student's progress in one course.
type Counts struct {
	Total     int     `db:"total"`     // assignments in the course
	Completed int     `db:"completed"` // graded submissions of the student
	GradeSum  float64 `db:"grade_sum"` // sum of those grades
}

// CourseCounts are the raw figures behind a course's statistics.
type CourseCounts struct {
	Students    int     `db:"students"`
	Assignments int     `db:"assignments"`
	Submissions int     `db:"submissions"`
	Graded      int     `db:"graded"`
	GradeSum    float64 `db:"grade_sum"`
}

type CourseRef struct {
	ID    int    `db:"id"`
	Title string `db:"title"`
}

type StudentRef struct {
	ID    int    `db:"id"`
	Name  string `db:"name"`
	Email string `db:"email"`
}

type CourseProgress struct {
	CourseID     int     `json:"course_id"`
	CourseTitle  string  `json:"course_title,omitempty"`
	Total        int     `json:"total"`
	Completed    int     `json:"completed"`
	Percentage   float64 `json:"percentage"`
	GradeAverage float64 `json:"grade_average"`
}

type OverallProgress struct {
	Courses      []CourseProgress `json:"courses"`
	Total        int              `json:"total"`
	Completed    int              `json:"completed"`
	Percentage   float64          `json:"percentage"`
	OverallGrade float64          `json:"overall_grade"`
}

type CourseStats struct {
	Students       int     `json:"students"`
	Assignments    int     `json:"assignments"`
	Submissions    int     `json:"submissions"`
	Pending        int     `json:"pending"`
	AverageGrade   float64 `json:"average_grade"`
	SubmissionRate float64 `json:"submission_rate"`
}

type StudentProgress struct {
	StudentID int    `json:"student_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CourseProgress
}
