package domain

import "slices"

// SyncQuestionRefs rebuilds every Question.QuizIDs from Quiz.Questions, which is
// the authoritative side of the relation. It returns the number of questions
// whose back-references changed.
func SyncQuestionRefs(doc *Document) int {
	owners := make(map[string][]string, len(doc.Questions))
	for _, quiz := range doc.Quizzes {
		for _, qid := range quiz.Questions {
			if !slices.Contains(owners[qid], quiz.ID) {
				owners[qid] = append(owners[qid], quiz.ID)
			}
		}
	}

	changed := 0
	for i := range doc.Questions {
		want := owners[doc.Questions[i].ID]
		if want == nil {
			want = []string{}
		}
		if !slices.Equal(doc.Questions[i].QuizIDs, want) {
			doc.Questions[i].QuizIDs = want
			changed++
		}
	}
	return changed
}
