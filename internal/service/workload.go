package service

import "github.com/paperdesk/paperdesk/internal/models"

// gradeScores maps journal tiers to workload base scores. An author's share
// of a paper is the base score times their contribution ratio.
var gradeScores = map[models.JournalGrade]float64{
	models.GradeSCIQ1: 10.0,
	models.GradeSCIQ2: 8.0,
	models.GradeSCIQ3: 6.0,
	models.GradeSCIQ4: 4.0,
	models.GradeEI:    3.0,
	models.GradeOther: 1.0,
}

// GradeScore returns the workload base score for a journal grade. Unknown or
// missing grades score as OTHER.
func GradeScore(grade models.JournalGrade) float64 {
	if score, ok := gradeScores[grade]; ok {
		return score
	}
	return gradeScores[models.GradeOther]
}

// WorkloadScore computes one author's workload share for a paper.
func WorkloadScore(grade models.JournalGrade, contributionRatio float64) float64 {
	if contributionRatio < 0 {
		contributionRatio = 0
	}
	return GradeScore(grade) * contributionRatio
}

// normalizeGrade maps a nullable stored grade to the tier used for scoring.
func normalizeGrade(grade *string) models.JournalGrade {
	if grade == nil {
		return models.GradeOther
	}
	g := models.JournalGrade(*grade)
	if !g.Valid() {
		return models.GradeOther
	}
	return g
}
