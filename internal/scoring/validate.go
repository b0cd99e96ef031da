package scoring

import (
	"fmt"
	"math"
	"slices"

	"CaseLifecycle/internal/models/domain"
)

// ValidateAnswers checks a batch of answers against the rubric before they are
// stored. An empty answer is accepted and clears the question.
func ValidateAnswers(r *domain.Rubric, answers map[string]domain.Answer) error {
	var unknown []string
	for id := range answers {
		if _, _, ok := r.Question(id); !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return &domain.Error{
			Kind:        domain.KindUnknownQuestion,
			QuestionIDs: unknown,
			Reason:      fmt.Sprintf("not part of the %s rubric", r.VehicleType),
		}
	}

	ids := make([]string, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		q, _, _ := r.Question(id)
		if err := validateAnswer(q, answers[id]); err != nil {
			return &domain.Error{
				Kind:        domain.KindInvalidAnswer,
				QuestionIDs: []string{id},
				Reason:      err.Error(),
			}
		}
	}
	return nil
}

// IsEmpty reports whether an answer carries no value at all.
func IsEmpty(a domain.Answer) bool {
	return len(a.Values) == 0 && a.Number == nil && a.Text == "" && len(a.Photos) == 0
}

func validateAnswer(q *domain.Question, a domain.Answer) error {
	if IsEmpty(a) {
		return nil
	}

	switch q.Type {
	case domain.QuestionRadio, domain.QuestionYesNo:
		if len(a.Values) != 1 {
			return fmt.Errorf("%s takes exactly one value", q.Type)
		}
		if _, ok := q.Option(a.Values[0]); !ok {
			return fmt.Errorf("unknown option %q", a.Values[0])
		}
	case domain.QuestionCheckbox:
		seen := make(map[string]bool, len(a.Values))
		for _, v := range a.Values {
			if _, ok := q.Option(v); !ok {
				return fmt.Errorf("unknown option %q", v)
			}
			if seen[v] {
				return fmt.Errorf("option %q selected twice", v)
			}
			seen[v] = true
		}
	case domain.QuestionRating:
		if a.Number == nil {
			return fmt.Errorf("rating requires a number")
		}
		n := *a.Number
		if n != math.Trunc(n) || n < 0 || n > float64(q.RatingMax()) {
			return fmt.Errorf("rating must be a whole number between 0 and %d", q.RatingMax())
		}
	case domain.QuestionNumber:
		if a.Number == nil {
			return fmt.Errorf("number requires a numeric value")
		}
		if math.IsNaN(*a.Number) || math.IsInf(*a.Number, 0) {
			return fmt.Errorf("number must be finite")
		}
	case domain.QuestionText:
		if a.Text == "" {
			return fmt.Errorf("text requires a value")
		}
	case domain.QuestionPhoto:
		if len(a.Photos) == 0 {
			return fmt.Errorf("photo requires at least one reference")
		}
	case domain.QuestionSection:
		return fmt.Errorf("section containers take no answer")
	}

	if q.Type != domain.QuestionRadio && q.Type != domain.QuestionYesNo &&
		q.Type != domain.QuestionCheckbox && len(a.Values) > 0 {
		return fmt.Errorf("%s does not take option values", q.Type)
	}
	return nil
}
