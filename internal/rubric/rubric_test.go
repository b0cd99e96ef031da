package rubric

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"CaseLifecycle/internal/models/domain"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const minimal = `
version: "test"
vehicleType: conventional
sections:
  - id: s1
    questions:
      - id: q1
        type: yesno
        required: true
        options:
          - { value: "yes", points: 1 }
          - { value: "no", points: 0 }
        subQuestions:
          - id: q1_detail
            type: text
            required: true
            showWhen: ["yes"]
`

var _ = Describe("Embedded", func() {
	It("loads one rubric per vehicle type", func() {
		set, err := Embedded()
		Expect(err).NotTo(HaveOccurred())

		conventional, err := set.For(domain.VehicleConventional)
		Expect(err).NotTo(HaveOccurred())
		Expect(conventional.Version).To(Equal("2024.1"))
		Expect(conventional.Sections).To(HaveLen(5))

		electric, err := set.For(domain.VehicleElectric)
		Expect(err).NotTo(HaveOccurred())
		_, ok := electric.Section("battery_drive_system")
		Expect(ok).To(BeTrue())
		_, ok = conventional.Section("battery_drive_system")
		Expect(ok).To(BeFalse())
	})

	It("decodes question types and sub-questions", func() {
		set, err := Embedded()
		Expect(err).NotTo(HaveOccurred())
		r, _ := set.For(domain.VehicleConventional)

		q, parent, ok := r.Question("warning_lights")
		Expect(ok).To(BeTrue())
		Expect(q.Type).To(Equal(domain.QuestionCheckbox))
		Expect(q.ShowWhen).To(Equal([]string{"yes"}))
		Expect(parent.ID).To(Equal("dashboard_warnings"))

		q, _, ok = r.Question("keys_and_accessories")
		Expect(ok).To(BeTrue())
		Expect(q.Type).To(Equal(domain.QuestionSection))
	})

	It("fails for an unknown vehicle type", func() {
		set, err := Embedded()
		Expect(err).NotTo(HaveOccurred())
		_, err = set.For("hybrid")
		Expect(errors.Is(err, domain.ErrUnknownVehicleType)).To(BeTrue())
	})
})

var _ = Describe("Load", func() {
	It("prefers override files over the embedded documents", func() {
		data, err := defaultFS.ReadFile(defaultElectric)
		Expect(err).NotTo(HaveOccurred())
		path := filepath.Join(GinkgoT().TempDir(), "electric.yml")
		patched := strings.Replace(string(data), `version: "2024.1"`, `version: "2025.2"`, 1)
		Expect(os.WriteFile(path, []byte(patched), 0o600)).To(Succeed())

		set, err := Load(slog.New(slog.NewTextHandler(io.Discard, nil)), "", path)
		Expect(err).NotTo(HaveOccurred())

		electric, _ := set.For(domain.VehicleElectric)
		Expect(electric.Version).To(Equal("2025.2"))
		conventional, _ := set.For(domain.VehicleConventional)
		Expect(conventional.Version).To(Equal("2024.1"))
	})

	It("reports unreadable files", func() {
		_, err := Load(slog.New(slog.NewTextHandler(io.Discard, nil)), "/does/not/exist.yml", "")
		Expect(err).To(MatchError(ContainSubstring("conventional")))
	})
})

var _ = Describe("Parse", func() {
	It("accepts a minimal rubric", func() {
		r, err := Parse([]byte(minimal))
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Sections[0].Questions[0].SubQuestions).To(HaveLen(1))
	})

	DescribeTable("rejects structural errors",
		func(from, to, message string) {
			_, err := Parse([]byte(strings.Replace(minimal, from, to, 1)))
			Expect(err).To(MatchError(ContainSubstring(message)))
		},
		Entry("unknown type", "type: text", "type: essay", "unknown question type"),
		Entry("unknown vehicle type", "vehicleType: conventional", "vehicleType: hybrid", "unknown_vehicle_type"),
		Entry("missing version", `version: "test"`, `version: ""`, "version is required"),
		Entry("showWhen outside the parent's options", `showWhen: ["yes"]`, `showWhen: ["maybe"]`, "is not an option"),
		Entry("yesno without a no option", `{ value: "no", points: 0 }`, `{ value: "nope", points: 0 }`, `missing option "no"`),
		Entry("duplicate question ids", "id: q1_detail", "id: q1", "duplicate question id"),
	)

	It("rejects nesting deeper than one level", func() {
		deep := minimal + `
            subQuestions:
              - id: q1_deeper
                type: text
`
		_, err := Parse([]byte(deep))
		Expect(err).To(MatchError(ContainSubstring("nest one level only")))
	})
})

var _ = Describe("NewSet", func() {
	var conventional, electric *domain.Rubric

	BeforeEach(func() {
		var err error
		conventional, err = readDocument("", defaultConventional)
		Expect(err).NotTo(HaveOccurred())
		electric, err = readDocument("", defaultElectric)
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires both vehicle types", func() {
		_, err := NewSet(conventional)
		Expect(err).To(MatchError(ContainSubstring(`missing rubric for vehicle type "electric"`)))
	})

	It("rejects two rubrics for one type", func() {
		_, err := NewSet(conventional, conventional)
		Expect(err).To(MatchError(ContainSubstring("duplicate rubric")))
	})

	It("rejects sections shared between rubrics", func() {
		electric.Sections[0].ID = "exterior"
		_, err := NewSet(conventional, electric)
		Expect(err).To(MatchError(ContainSubstring(`section "exterior" shared`)))
	})
})
