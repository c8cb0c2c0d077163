package requirement

import "github.com/noah-isme/exam-surveillance-api/internal/models"

// CoverageResult is the invigilator-equivalent count already provided for an exam.
type CoverageResult struct {
	TeacherPresent int       `json:"teacher_present"`
	HelpersCounted int       `json:"helpers_counted"`
	PreAssigned    int       `json:"pre_assigned"`
	Warnings       []Warning `json:"warnings,omitempty"`
}

// Total returns the sum of the three coverage terms.
func (c CoverageResult) Total() int {
	return c.TeacherPresent + c.HelpersCounted + c.PreAssigned
}

// Coverage combines teacher presence, eligible helpers and locked attributions.
//
// Helpers and attributions belonging to another exam are ignored. When no
// attribution rows are given the stored pre-assigned counter is used; otherwise
// distinct invigilators with a locked attribution are counted.
func Coverage(exam models.Exam, helpers []models.HelperPerson, attributions []models.Attribution) CoverageResult {
	var res CoverageResult
	if exam.TeacherPresent {
		res.TeacherPresent = 1
	}

	for _, h := range helpers {
		if h.ExamID != "" && h.ExamID != exam.ID {
			continue
		}
		if h.Counts() {
			res.HelpersCounted++
		}
	}

	if len(attributions) == 0 {
		pre, negative := clamp(exam.PreAssignedCount)
		if negative {
			res.Warnings = append(res.Warnings, negativeWarning(exam.ID, "pre-assigned count", exam.PreAssignedCount))
		}
		res.PreAssigned = pre
		return res
	}

	seen := make(map[string]struct{}, len(attributions))
	for _, a := range attributions {
		if a.ExamID != exam.ID || !a.Locked() {
			continue
		}
		if _, dup := seen[a.InvigilatorID]; dup {
			continue
		}
		seen[a.InvigilatorID] = struct{}{}
	}
	res.PreAssigned = len(seen)
	return res
}
