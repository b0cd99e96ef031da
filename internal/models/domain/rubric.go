package domain

import "fmt"

// QuestionType is the closed set of rubric question kinds.
type QuestionType int

const (
	QuestionRadio QuestionType = iota + 1
	QuestionCheckbox
	QuestionYesNo
	QuestionRating
	QuestionNumber
	QuestionText
	QuestionPhoto
	QuestionSection
)

var questionTypeNames = map[QuestionType]string{
	QuestionRadio:    "radio",
	QuestionCheckbox: "checkbox",
	QuestionYesNo:    "yesno",
	QuestionRating:   "rating",
	QuestionNumber:   "number",
	QuestionText:     "text",
	QuestionPhoto:    "photo",
	QuestionSection:  "section",
}

func (t QuestionType) String() string {
	if name, ok := questionTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("QuestionType(%d)", int(t))
}

// ParseQuestionType maps a rubric document name onto a QuestionType.
func ParseQuestionType(name string) (QuestionType, error) {
	for t, n := range questionTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown question type %q", name)
}

// UnmarshalText lets rubric documents spell types by name.
func (t *QuestionType) UnmarshalText(text []byte) error {
	parsed, err := ParseQuestionType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalText writes the type by name.
func (t QuestionType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// DefaultRatingMax is the scale of a rating question without an explicit max.
const DefaultRatingMax = 5

// Option is one selectable answer carrying a point value.
type Option struct {
	Value  string  `yaml:"value"`
	Label  string  `yaml:"label"`
	Points float64 `yaml:"points"`
}

// Question is a rubric node. Sub-questions nest exactly one level.
type Question struct {
	ID           string       `yaml:"id"`
	Label        string       `yaml:"label"`
	Type         QuestionType `yaml:"type"`
	Required     bool         `yaml:"required"`
	Options      []Option     `yaml:"options"`
	Max          int          `yaml:"max"`
	ShowWhen     []string     `yaml:"showWhen"`
	SubQuestions []Question   `yaml:"subQuestions"`
}

// Option returns the option with the given value.
func (q *Question) Option(value string) (Option, bool) {
	for _, o := range q.Options {
		if o.Value == value {
			return o, true
		}
	}
	return Option{}, false
}

// RatingMax returns the upper bound of a rating question.
func (q *Question) RatingMax() int {
	if q.Max > 0 {
		return q.Max
	}
	return DefaultRatingMax
}

// Section is a themed group of questions.
type Section struct {
	ID        string     `yaml:"id"`
	Title     string     `yaml:"title"`
	Questions []Question `yaml:"questions"`
}

// Rubric is the scoring tree for one powertrain.
type Rubric struct {
	Version     string      `yaml:"version"`
	VehicleType VehicleType `yaml:"vehicleType"`
	Sections    []Section   `yaml:"sections"`
}

// Section looks up a section by id.
func (r *Rubric) Section(id string) (*Section, bool) {
	for i := range r.Sections {
		if r.Sections[i].ID == id {
			return &r.Sections[i], true
		}
	}
	return nil, false
}

// Question looks up a question or sub-question by id.
// The parent is nil for top-level questions.
func (r *Rubric) Question(id string) (q *Question, parent *Question, ok bool) {
	for si := range r.Sections {
		qs := r.Sections[si].Questions
		for qi := range qs {
			if qs[qi].ID == id {
				return &qs[qi], nil, true
			}
			for sqi := range qs[qi].SubQuestions {
				if qs[qi].SubQuestions[sqi].ID == id {
					return &qs[qi].SubQuestions[sqi], &qs[qi], true
				}
			}
		}
	}
	return nil, nil, false
}
