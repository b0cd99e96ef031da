package scoring

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"

	"CaseLifecycle/internal/models/domain"
	"CaseLifecycle/internal/rubric"
)

const (
	minRating = 1
	maxRating = 5
)

// Engine converts inspection answers into section and overall ratings.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	rubrics *rubric.Set
	log     *slog.Logger
}

// New creates a new scoring engine.
func New(logger *slog.Logger, rubrics *rubric.Set) *Engine {
	return &Engine{
		rubrics: rubrics,
		log:     logger.With(slog.String("component", "scoring")),
	}
}

// Result is the frozen outcome of scoring a complete inspection.
type Result struct {
	RubricVersion string
	Sections      []domain.SectionResult
	OverallRating float64
}

// Rubric returns the rubric applicable to a vehicle type.
func (e *Engine) Rubric(vt domain.VehicleType) (*domain.Rubric, error) {
	return e.rubrics.For(vt)
}

// Missing lists the reachable required questions still unanswered, in rubric order.
func (e *Engine) Missing(insp *domain.Inspection) ([]string, error) {
	r, err := e.rubrics.For(insp.VehicleType)
	if err != nil {
		return nil, err
	}
	return Missing(r, insp.Answers), nil
}

// Compute scores an inspection against the rubric of its vehicle type.
func (e *Engine) Compute(insp *domain.Inspection) (*Result, error) {
	op := "scoring.Compute"

	r, err := e.rubrics.For(insp.VehicleType)
	if err != nil {
		return nil, err
	}

	res, err := ComputeWith(r, insp)
	if err != nil {
		if kind, ok := domain.KindOf(err); ok {
			e.log.Debug("inspection not scorable",
				slog.String("op", op),
				slog.String("inspectionID", insp.ID),
				slog.String("kind", string(kind)))
		}
		return nil, err
	}

	e.log.Debug("inspection scored",
		slog.String("op", op),
		slog.String("inspectionID", insp.ID),
		slog.Float64("overallRating", res.OverallRating))
	return res, nil
}

// ComputeWith scores an inspection against an explicit rubric. The rubric must
// belong to the inspection's vehicle type and every answer must reference a
// question of that rubric.
func ComputeWith(r *domain.Rubric, insp *domain.Inspection) (*Result, error) {
	if !insp.VehicleType.Valid() {
		return nil, domain.UnknownVehicleType(insp.VehicleType)
	}
	if r.VehicleType != insp.VehicleType {
		return nil, &domain.Error{
			Kind:   domain.KindSectionMismatch,
			CaseID: insp.CaseID,
			Reason: fmt.Sprintf("%s inspection cannot be scored with the %s rubric", insp.VehicleType, r.VehicleType),
		}
	}
	if foreign := foreignAnswers(r, insp.Answers); len(foreign) > 0 {
		return nil, &domain.Error{
			Kind:        domain.KindSectionMismatch,
			CaseID:      insp.CaseID,
			QuestionIDs: foreign,
			Reason:      fmt.Sprintf("answers outside the %s rubric", r.VehicleType),
		}
	}
	if missing := Missing(r, insp.Answers); len(missing) > 0 {
		err := domain.IncompleteAnswers(missing)
		err.CaseID = insp.CaseID
		return nil, err
	}

	res := &Result{
		RubricVersion: r.Version,
		Sections:      make([]domain.SectionResult, 0, len(r.Sections)),
	}
	var total float64
	for i := range r.Sections {
		sr := ScoreSection(&r.Sections[i], insp.Answers)
		res.Sections = append(res.Sections, sr)
		total += float64(sr.Rating)
	}
	res.OverallRating = math.Round(total/float64(len(res.Sections))*10) / 10
	return res, nil
}

// Missing lists reachable required questions without a non-empty answer.
func Missing(r *domain.Rubric, answers map[string]domain.Answer) []string {
	var missing []string
	for i := range r.Sections {
		walkReachable(&r.Sections[i], answers, func(q *domain.Question) {
			if q.Required && !IsAnswered(q, answers[q.ID]) {
				missing = append(missing, q.ID)
			}
		})
	}
	return missing
}

// ScoreSection computes the raw score, reference max and 1..5 rating of a section.
// Only reachable required nodes take part on either side of the ratio.
func ScoreSection(s *domain.Section, answers map[string]domain.Answer) domain.SectionResult {
	res := domain.SectionResult{SectionID: s.ID}
	walkReachable(s, answers, func(q *domain.Question) {
		if !q.Required {
			return
		}
		res.ReferenceMax += MaxPoints(q)
		if a, ok := answers[q.ID]; ok && IsAnswered(q, a) {
			res.RawScore += Points(q, a)
		}
	})
	res.Rating = Rating(res.RawScore, res.ReferenceMax)
	return res
}

// ReferenceMax is the best attainable score of a section's reachable required nodes.
func ReferenceMax(s *domain.Section, answers map[string]domain.Answer) float64 {
	var ref float64
	walkReachable(s, answers, func(q *domain.Question) {
		if q.Required {
			ref += MaxPoints(q)
		}
	})
	return ref
}

// Rating normalises a raw score to the 1..5 scale.
func Rating(raw, referenceMax float64) int {
	if referenceMax <= 0 {
		return minRating
	}
	r := int(math.Round(raw / referenceMax * maxRating))
	return min(max(r, minRating), maxRating)
}

// Points is the contribution of one answered question.
func Points(q *domain.Question, a domain.Answer) float64 {
	switch q.Type {
	case domain.QuestionRadio, domain.QuestionYesNo:
		if len(a.Values) == 0 {
			return 0
		}
		o, _ := q.Option(a.Values[0])
		return o.Points
	case domain.QuestionCheckbox:
		var sum float64
		seen := make(map[string]bool, len(a.Values))
		for _, v := range a.Values {
			if seen[v] {
				continue
			}
			seen[v] = true
			o, _ := q.Option(v)
			sum += o.Points
		}
		return sum
	case domain.QuestionRating:
		if a.Number == nil {
			return 0
		}
		return math.Min(math.Max(*a.Number, 0), float64(q.RatingMax()))
	case domain.QuestionNumber, domain.QuestionText, domain.QuestionPhoto, domain.QuestionSection:
		return 0
	default:
		return 0
	}
}

// MaxPoints is the best attainable contribution of a question.
// Checkbox options are independent, so every positive option counts.
func MaxPoints(q *domain.Question) float64 {
	switch q.Type {
	case domain.QuestionRadio, domain.QuestionYesNo:
		var best float64
		for _, o := range q.Options {
			best = math.Max(best, o.Points)
		}
		return best
	case domain.QuestionCheckbox:
		var sum float64
		for _, o := range q.Options {
			if o.Points > 0 {
				sum += o.Points
			}
		}
		return sum
	case domain.QuestionRating:
		return float64(q.RatingMax())
	case domain.QuestionNumber, domain.QuestionText, domain.QuestionPhoto, domain.QuestionSection:
		return 0
	default:
		return 0
	}
}

// IsAnswered reports whether a holds a non-empty value for q.
func IsAnswered(q *domain.Question, a domain.Answer) bool {
	switch q.Type {
	case domain.QuestionRadio, domain.QuestionYesNo, domain.QuestionCheckbox:
		return slices.ContainsFunc(a.Values, func(v string) bool { return v != "" })
	case domain.QuestionRating, domain.QuestionNumber:
		return a.Number != nil
	case domain.QuestionText:
		return strings.TrimSpace(a.Text) != ""
	case domain.QuestionPhoto:
		return slices.ContainsFunc(a.Photos, func(p string) bool { return p != "" })
	case domain.QuestionSection:
		return false
	default:
		return false
	}
}

// Reachable reports whether sub is relevant given the parent's current answer.
// Sub-questions of a section container are always reachable.
func Reachable(parent, sub *domain.Question, answers map[string]domain.Answer) bool {
	if parent.Type == domain.QuestionSection {
		return true
	}
	pa, ok := answers[parent.ID]
	if !ok || !IsAnswered(parent, pa) {
		return false
	}
	if len(sub.ShowWhen) == 0 {
		return true
	}
	for _, v := range pa.Values {
		if slices.Contains(sub.ShowWhen, v) {
			return true
		}
	}
	return false
}

// walkReachable visits reachable nodes of a section in rubric order.
func walkReachable(s *domain.Section, answers map[string]domain.Answer, fn func(q *domain.Question)) {
	for i := range s.Questions {
		q := &s.Questions[i]
		fn(q)
		for j := range q.SubQuestions {
			sub := &q.SubQuestions[j]
			if Reachable(q, sub, answers) {
				fn(sub)
			}
		}
	}
}

func foreignAnswers(r *domain.Rubric, answers map[string]domain.Answer) []string {
	var foreign []string
	for id := range answers {
		if _, _, ok := r.Question(id); !ok {
			foreign = append(foreign, id)
		}
	}
	slices.Sort(foreign)
	return foreign
}
