package wire

import "github.com/orms-project/orms/internal/form"

// The backend and AI services identify question kinds by their original
// French display labels; answer_type carries the label verbatim while
// question_type collapses everything into "text" or "select".

var answerTypeLabels = map[form.QuestionType]string{
	form.ShortText:    "question courte",
	form.LongText:     "question longue",
	form.FileUpload:   "document",
	form.Phone:        "numéro de téléphone",
	form.Number:       "nombre",
	form.SingleChoice: "choix unique",
	form.Date:         "date",
	form.Dropdown:     "dropdown",
	form.Email:        "email",
	form.Region:       "wilaya",
}

var labelTypes = func() map[string]form.QuestionType {
	m := make(map[string]form.QuestionType, len(answerTypeLabels))
	for t, label := range answerTypeLabels {
		m[label] = t
	}
	return m
}()

// AnswerTypeLabel returns the wire label for a question type.
func AnswerTypeLabel(t form.QuestionType) string {
	return answerTypeLabels[t]
}

// TypeForLabel resolves a wire answer_type label. Labels the service does
// not recognize fall back to short text rather than failing the whole
// decode; the AI service is not strict about its own vocabulary.
func TypeForLabel(label string) form.QuestionType {
	if t, ok := labelTypes[label]; ok {
		return t
	}
	return form.ShortText
}

// QuestionTypeOf collapses a question type into the backend's generic
// category: choice-bearing types are "select", everything else "text".
func QuestionTypeOf(t form.QuestionType) string {
	if t.HasChoices() {
		return "select"
	}
	return "text"
}
