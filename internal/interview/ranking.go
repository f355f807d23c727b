package interview

import (
	"sort"
	"strings"
)

// CheckResult is the outcome of one check question.
type CheckResult struct {
	Question string `json:"question"`
	Expected YesNo  `json:"expected"`
	Given    YesNo  `json:"given,omitempty"`
	Passed   bool   `json:"passed"`
}

// GradeChecks grades every check question of qs by equality with the
// candidate's answer. A missing answer fails the check.
func GradeChecks(qs []Question, answers []CheckAnswer) []CheckResult {
	var results []CheckResult
	for _, q := range qs {
		if !q.IsCheck() {
			continue
		}

		res := CheckResult{Question: q.Text, Expected: q.ExpectedAnswer}
		for _, a := range answers {
			if a.Question != q.Text {
				continue
			}
			if given, ok := ParseYesNo(string(a.Answer)); ok {
				res.Given = given
				res.Passed = given == q.ExpectedAnswer
			}
			break
		}
		results = append(results, res)
	}
	return results
}

// PassedAll reports whether every check passed.
func PassedAll(results []CheckResult) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// RankEntry is one candidate's position within a vacancy.
type RankEntry struct {
	Position     int      `json:"position"`
	CandidateID  string   `json:"candidateId"`
	Name         string   `json:"name"`
	PassedChecks bool     `json:"passedChecks"`
	GlobalGrade  *float64 `json:"globalGrade,omitempty"`
	MatchScore   *float64 `json:"matchScore,omitempty"`
}

// RankCandidates orders the candidates of vacancy: candidates passing every
// check first, then by global grade (unevaluated last), then by CV match
// score, then by id.
func RankCandidates(vacancy *Vacancy, candidates []*CandidateResult) []RankEntry {
	entries := make([]RankEntry, 0, len(candidates))
	for _, c := range candidates {
		if c == nil {
			continue
		}
		entry := RankEntry{
			CandidateID:  c.ID,
			Name:         c.Name,
			PassedChecks: PassedAll(GradeChecks(vacancy.Questions, c.CheckAnswers)),
		}
		if c.Evaluation != nil {
			grade := c.Evaluation.GlobalGrade
			entry.GlobalGrade = &grade
		}
		if c.CVEvaluation != nil {
			score := c.CVEvaluation.MatchScore
			entry.MatchScore = &score
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.PassedChecks != b.PassedChecks {
			return a.PassedChecks
		}
		if c := compareOptional(a.GlobalGrade, b.GlobalGrade); c != 0 {
			return c > 0
		}
		if c := compareOptional(a.MatchScore, b.MatchScore); c != 0 {
			return c > 0
		}
		return strings.Compare(a.CandidateID, b.CandidateID) < 0
	})

	for i := range entries {
		entries[i].Position = i + 1
	}
	return entries
}

// compareOptional orders present values above missing ones.
func compareOptional(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case *a > *b:
		return 1
	case *a < *b:
		return -1
	default:
		return 0
	}
}
