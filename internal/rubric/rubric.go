package rubric

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"CaseLifecycle/internal/models/domain"

	"gopkg.in/yaml.v3"
)

//go:embed rubrics/*.yml
var defaultFS embed.FS

const (
	defaultConventional = "rubrics/conventional.yml"
	defaultElectric     = "rubrics/electric.yml"
)

// Set holds one immutable rubric per vehicle type.
type Set struct {
	byType map[domain.VehicleType]*domain.Rubric
}

// Load reads both rubric documents. Empty paths fall back to the embedded defaults.
func Load(logger *slog.Logger, conventionalPath, electricPath string) (*Set, error) {
	op := "rubric.Load"
	log := logger.With(slog.String("op", op))

	conventional, err := readDocument(conventionalPath, defaultConventional)
	if err != nil {
		return nil, fmt.Errorf("%s: conventional: %w", op, err)
	}
	electric, err := readDocument(electricPath, defaultElectric)
	if err != nil {
		return nil, fmt.Errorf("%s: electric: %w", op, err)
	}

	set, err := NewSet(conventional, electric)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, r := range set.byType {
		log.Info("rubric loaded",
			slog.String("vehicleType", string(r.VehicleType)),
			slog.String("version", r.Version),
			slog.Int("sections", len(r.Sections)))
	}
	return set, nil
}

// Embedded returns the rubric set bundled with the binary.
func Embedded() (*Set, error) {
	conventional, err := readDocument("", defaultConventional)
	if err != nil {
		return nil, err
	}
	electric, err := readDocument("", defaultElectric)
	if err != nil {
		return nil, err
	}
	return NewSet(conventional, electric)
}

func readDocument(path, fallback string) (*domain.Rubric, error) {
	var (
		data []byte
		err  error
	)
	if path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = defaultFS.ReadFile(fallback)
	}
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates one rubric document.
func Parse(data []byte) (*domain.Rubric, error) {
	var r domain.Rubric
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode rubric: %w", err)
	}
	if err := Validate(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

// NewSet builds a set from validated rubrics. Each vehicle type must appear
// exactly once and section and question ids must not overlap between rubrics.
func NewSet(rubrics ...*domain.Rubric) (*Set, error) {
	set := &Set{byType: make(map[domain.VehicleType]*domain.Rubric, len(rubrics))}
	sections := make(map[string]domain.VehicleType)
	questions := make(map[string]domain.VehicleType)

	for _, r := range rubrics {
		if _, dup := set.byType[r.VehicleType]; dup {
			return nil, fmt.Errorf("duplicate rubric for vehicle type %q", r.VehicleType)
		}
		for _, s := range r.Sections {
			if other, taken := sections[s.ID]; taken {
				return nil, fmt.Errorf("section %q shared by %s and %s rubrics", s.ID, other, r.VehicleType)
			}
			sections[s.ID] = r.VehicleType
			for _, id := range questionIDs(&s) {
				if other, taken := questions[id]; taken {
					return nil, fmt.Errorf("question %q shared by %s and %s rubrics", id, other, r.VehicleType)
				}
				questions[id] = r.VehicleType
			}
		}
		set.byType[r.VehicleType] = r
	}

	for _, vt := range []domain.VehicleType{domain.VehicleConventional, domain.VehicleElectric} {
		if _, ok := set.byType[vt]; !ok {
			return nil, fmt.Errorf("missing rubric for vehicle type %q", vt)
		}
	}
	return set, nil
}

// For selects the rubric for a vehicle type.
func (s *Set) For(vt domain.VehicleType) (*domain.Rubric, error) {
	r, ok := s.byType[vt]
	if !ok {
		return nil, domain.UnknownVehicleType(vt)
	}
	return r, nil
}

func questionIDs(s *domain.Section) []string {
	var ids []string
	for _, q := range s.Questions {
		ids = append(ids, q.ID)
		for _, sq := range q.SubQuestions {
			ids = append(ids, sq.ID)
		}
	}
	return ids
}

// Validate checks the structural rules of a rubric document.
func Validate(r *domain.Rubric) error {
	if r.Version == "" {
		return errors.New("rubric version is required")
	}
	if !r.VehicleType.Valid() {
		return domain.UnknownVehicleType(r.VehicleType)
	}
	if len(r.Sections) == 0 {
		return fmt.Errorf("%s rubric has no sections", r.VehicleType)
	}

	seenSections := make(map[string]bool, len(r.Sections))
	seenQuestions := make(map[string]bool)
	for _, s := range r.Sections {
		if s.ID == "" {
			return errors.New("section id is required")
		}
		if seenSections[s.ID] {
			return fmt.Errorf("duplicate section id %q", s.ID)
		}
		seenSections[s.ID] = true
		if len(s.Questions) == 0 {
			return fmt.Errorf("section %q has no questions", s.ID)
		}

		for i := range s.Questions {
			q := &s.Questions[i]
			if err := validateQuestion(q, nil, seenQuestions); err != nil {
				return fmt.Errorf("section %q: %w", s.ID, err)
			}
			for j := range q.SubQuestions {
				if err := validateQuestion(&q.SubQuestions[j], q, seenQuestions); err != nil {
					return fmt.Errorf("section %q: %w", s.ID, err)
				}
			}
		}
	}
	return nil
}

func validateQuestion(q, parent *domain.Question, seen map[string]bool) error {
	if q.ID == "" {
		return errors.New("question id is required")
	}
	if seen[q.ID] {
		return fmt.Errorf("duplicate question id %q", q.ID)
	}
	seen[q.ID] = true

	switch q.Type {
	case domain.QuestionRadio, domain.QuestionCheckbox:
		if len(q.Options) == 0 {
			return fmt.Errorf("question %q: %s requires options", q.ID, q.Type)
		}
	case domain.QuestionYesNo:
		if len(q.Options) != 2 {
			return fmt.Errorf("question %q: yesno requires exactly two options", q.ID)
		}
		for _, v := range []string{"yes", "no"} {
			if _, ok := q.Option(v); !ok {
				return fmt.Errorf("question %q: yesno is missing option %q", q.ID, v)
			}
		}
	case domain.QuestionRating:
		if len(q.Options) > 0 {
			return fmt.Errorf("question %q: rating takes no options", q.ID)
		}
		if q.Max < 0 {
			return fmt.Errorf("question %q: negative rating max", q.ID)
		}
	case domain.QuestionNumber, domain.QuestionText, domain.QuestionPhoto:
		if len(q.Options) > 0 {
			return fmt.Errorf("question %q: %s takes no options", q.ID, q.Type)
		}
	case domain.QuestionSection:
		if parent != nil {
			return fmt.Errorf("question %q: section containers cannot be nested", q.ID)
		}
		if q.Required || len(q.Options) > 0 {
			return fmt.Errorf("question %q: section containers are neither required nor scored", q.ID)
		}
		if len(q.SubQuestions) == 0 {
			return fmt.Errorf("question %q: empty section container", q.ID)
		}
	default:
		return fmt.Errorf("question %q: missing or unknown type", q.ID)
	}

	seenValues := make(map[string]bool, len(q.Options))
	for _, o := range q.Options {
		if o.Value == "" {
			return fmt.Errorf("question %q: option value is required", q.ID)
		}
		if seenValues[o.Value] {
			return fmt.Errorf("question %q: duplicate option %q", q.ID, o.Value)
		}
		seenValues[o.Value] = true
	}

	if parent == nil {
		if len(q.ShowWhen) > 0 {
			return fmt.Errorf("question %q: showWhen only applies to sub-questions", q.ID)
		}
		return nil
	}

	if len(q.SubQuestions) > 0 {
		return fmt.Errorf("question %q: sub-questions nest one level only", q.ID)
	}
	for _, v := range q.ShowWhen {
		if _, ok := parent.Option(v); !ok {
			return fmt.Errorf("question %q: showWhen value %q is not an option of %q", q.ID, v, parent.ID)
		}
	}
	return nil
}
