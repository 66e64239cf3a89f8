package models

import "time"

// JournalGrade is the tier label driving the workload base score.
type JournalGrade string

const (
	GradeSCIQ1 JournalGrade = "SCI_Q1"
	GradeSCIQ2 JournalGrade = "SCI_Q2"
	GradeSCIQ3 JournalGrade = "SCI_Q3"
	GradeSCIQ4 JournalGrade = "SCI_Q4"
	GradeEI    JournalGrade = "EI"
	GradeOther JournalGrade = "OTHER"
)

// Grades lists the known journal grades in rank order.
func Grades() []JournalGrade {
	return []JournalGrade{GradeSCIQ1, GradeSCIQ2, GradeSCIQ3, GradeSCIQ4, GradeEI, GradeOther}
}

// Valid reports whether the grade is a known tier.
func (g JournalGrade) Valid() bool {
	for _, known := range Grades() {
		if g == known {
			return true
		}
	}
	return false
}

// Journal is a publication venue with a workload-relevant grade.
type Journal struct {
	ID          int64        `db:"id" json:"id"`
	Name        string       `db:"name" json:"name"`
	Grade       JournalGrade `db:"grade" json:"grade"`
	Description string       `db:"description" json:"description"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// GradeInfo pairs a grade tier with its workload base score.
type GradeInfo struct {
	Grade JournalGrade `json:"grade"`
	Score float64      `json:"score"`
}

// JournalFilter captures list filters for journals.
type JournalFilter struct {
	Name  string
	Grade JournalGrade
	Skip  int
	Limit int
}
