package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Records written by older versions omit fields freely, so every default is
// applied here once instead of at each call site.

// UnmarshalJSON decodes a question and fills in absent fields.
func (q *Question) UnmarshalJSON(data []byte) error {
	type alias Question
	aux := struct {
		*alias
		Score         *decimal.Decimal `json:"score"`
		CorrectAnswer json.RawMessage  `json:"correct_answer"`
	}{alias: (*alias)(q)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	q.Type = QuestionType(strings.ToUpper(strings.TrimSpace(string(q.Type))))
	if aux.Score != nil {
		q.Score = *aux.Score
	} else {
		q.Score = decimal.NewFromInt(1)
	}

	keys, err := decodeAnswerKey(aux.CorrectAnswer)
	if err != nil {
		return fmt.Errorf("question %s: correct_answer: %w", q.ID, err)
	}
	q.CorrectAnswer = keys

	q.ShortAnswerReviewMode = ReviewMode(strings.ToLower(strings.TrimSpace(string(q.ShortAnswerReviewMode))))
	if q.Type == QuestionShortText && q.ShortAnswerReviewMode != ReviewAuto {
		q.ShortAnswerReviewMode = ReviewManual
	}
	if q.QuizIDs == nil {
		q.QuizIDs = []string{}
	}
	if q.Options == nil {
		q.Options = []Option{}
	}
	return nil
}

// decodeAnswerKey accepts a list of option ids or a bare string.
func decodeAnswerKey(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []string{}, nil
	}
	var list []any
	if err := json.Unmarshal(raw, &list); err == nil {
		keys := make([]string, 0, len(list))
		for _, v := range list {
			keys = append(keys, fmt.Sprint(v))
		}
		return keys, nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, err
	}
	if single == "" {
		return []string{}, nil
	}
	return []string{single}, nil
}

// UnmarshalJSON decodes a config, normalizing the presentation mode and
// dropping non-positive durations.
func (c *QuizConfig) UnmarshalJSON(data []byte) error {
	type alias QuizConfig
	if err := json.Unmarshal(data, (*alias)(c)); err != nil {
		return err
	}
	if c.PresentationMode != PresentOneByOne {
		c.PresentationMode = PresentAll
	}
	if c.Duration != nil && *c.Duration <= 0 {
		c.Duration = nil
	}
	return nil
}

// UnmarshalJSON decodes a quiz, falling back to the legacy question_ids list.
func (q *Quiz) UnmarshalJSON(data []byte) error {
	type alias Quiz
	aux := struct {
		*alias
		LegacyQuestionIDs []string `json:"question_ids"`
	}{alias: (*alias)(q)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if q.Questions == nil {
		q.Questions = aux.LegacyQuestionIDs
	}
	if q.Questions == nil {
		q.Questions = []string{}
	}
	if q.Config.PresentationMode == "" {
		q.Config.PresentationMode = PresentAll
	}
	return nil
}

// UnmarshalJSON decodes a document, guaranteeing all three collections exist.
func (d *Document) UnmarshalJSON(data []byte) error {
	type alias Document
	if err := json.Unmarshal(data, (*alias)(d)); err != nil {
		return err
	}
	d.fillCollections()
	return nil
}

// EmptyDocument returns a document with empty, non-nil collections.
func EmptyDocument() Document {
	var d Document
	d.fillCollections()
	return d
}

func (d *Document) fillCollections() {
	if d.Quizzes == nil {
		d.Quizzes = []Quiz{}
	}
	if d.Questions == nil {
		d.Questions = []Question{}
	}
	if d.Attempts == nil {
		d.Attempts = []Attempt{}
	}
}
