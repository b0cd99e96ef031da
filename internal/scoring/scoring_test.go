package scoring_test

import (
	"errors"
	"io"
	"log/slog"

	"CaseLifecycle/internal/models/domain"
	"CaseLifecycle/internal/rubric"
	"CaseLifecycle/internal/scoring"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Engine", func() {
	var (
		rubrics      *rubric.Set
		engine       *scoring.Engine
		conventional *domain.Rubric
		electric     *domain.Rubric
	)

	BeforeEach(func() {
		var err error
		rubrics, err = rubric.Embedded()
		Expect(err).NotTo(HaveOccurred())
		engine = scoring.New(slog.New(slog.NewTextHandler(io.Discard, nil)), rubrics)
		conventional, _ = rubrics.For(domain.VehicleConventional)
		electric, _ = rubrics.For(domain.VehicleElectric)
	})

	inspection := func(vt domain.VehicleType, answers map[string]domain.Answer) *domain.Inspection {
		return &domain.Inspection{ID: "insp-1", CaseID: "case-1", VehicleType: vt, Answers: answers}
	}

	Describe("section rating", func() {
		It("rates exterior 5 when paint is excellent", func() {
			exterior, _ := conventional.Section("exterior")
			res := scoring.ScoreSection(exterior, map[string]domain.Answer{
				"paint_condition": choice("excellent"),
			})
			Expect(res.RawScore).To(Equal(5.0))
			Expect(res.ReferenceMax).To(Equal(5.0))
			Expect(res.Rating).To(Equal(5))
		})

		It("ignores optional questions and their branches", func() {
			exterior, _ := conventional.Section("exterior")
			res := scoring.ScoreSection(exterior, map[string]domain.Answer{
				"paint_condition":    choice("excellent"),
				"body_panels":        choice("yes"),
				"body_damage_areas":  choice("front", "rear"),
				"body_damage_photos": photo("uploads/dent.jpg"),
			})
			Expect(res.ReferenceMax).To(Equal(5.0))
			Expect(res.Rating).To(Equal(5))
		})

		It("sums independent checkbox options", func() {
			q, _, _ := conventional.Question("fluid_leaks")
			Expect(scoring.Points(q, choice("none"))).To(Equal(4.0))
			Expect(scoring.Points(q, choice("oil", "coolant"))).To(Equal(0.0))
			Expect(scoring.MaxPoints(q)).To(Equal(4.0))
		})

		It("uses the rating itself as points", func() {
			q, _, _ := conventional.Question("brake_performance")
			Expect(scoring.Points(q, number(3))).To(Equal(3.0))
			Expect(scoring.MaxPoints(q)).To(Equal(5.0))
		})

		It("gives informational questions no points", func() {
			q, _, _ := conventional.Question("odometer_reading")
			Expect(scoring.Points(q, number(120000))).To(BeZero())
			Expect(scoring.MaxPoints(q)).To(BeZero())
		})
	})

	Describe("Compute", func() {
		It("scores a perfect conventional inspection", func() {
			res, err := engine.Compute(inspection(domain.VehicleConventional, perfectConventional()))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.RubricVersion).To(Equal("2024.1"))
			Expect(res.Sections).To(HaveLen(5))
			for _, s := range res.Sections {
				Expect(s.Rating).To(Equal(5), s.SectionID)
			}
			Expect(res.OverallRating).To(Equal(5.0))
		})

		It("averages section ratings to one decimal", func() {
			answers := with(perfectConventional(), map[string]domain.Answer{
				"paint_condition":    choice("fair"),
				"seat_condition":     choice("worn"),
				"dashboard_warnings": choice("yes"),
				"warning_lights":     choice("abs"),
				"interior_rating":    number(3),
				"tire_tread":         choice("fair"),
				"brake_performance":  number(3),
				"title_status":       choice("rebuilt"),
			})

			res, err := engine.Compute(inspection(domain.VehicleConventional, answers))
			Expect(err).NotTo(HaveOccurred())

			ratings := map[string]int{}
			for _, s := range res.Sections {
				ratings[s.SectionID] = s.Rating
			}
			Expect(ratings).To(Equal(map[string]int{
				"exterior":            2,
				"interior":            2,
				"engine_transmission": 5,
				"tires_brakes":        3,
				"documentation":       2,
			}))
			Expect(res.OverallRating).To(Equal(2.8))
		})

		It("scores an electric inspection with the electric sections only", func() {
			res, err := engine.Compute(inspection(domain.VehicleElectric, perfectElectric()))
			Expect(err).NotTo(HaveOccurred())

			ids := make([]string, 0, len(res.Sections))
			for _, s := range res.Sections {
				ids = append(ids, s.SectionID)
			}
			Expect(ids).To(ContainElement("battery_drive_system"))
			Expect(ids).NotTo(ContainElement("engine_transmission"))
			Expect(res.OverallRating).To(Equal(5.0))
		})

		It("rejects electric answers scored with the conventional rubric", func() {
			_, err := scoring.ComputeWith(conventional, inspection(domain.VehicleElectric, perfectElectric()))
			Expect(errors.Is(err, domain.ErrSectionMismatch)).To(BeTrue())
		})

		It("rejects answers from the other powertrain's rubric", func() {
			answers := with(perfectConventional(), map[string]domain.Answer{
				"battery_health": choice("above_90"),
			})
			_, err := engine.Compute(inspection(domain.VehicleConventional, answers))

			var de *domain.Error
			Expect(errors.As(err, &de)).To(BeTrue())
			Expect(de.Kind).To(Equal(domain.KindSectionMismatch))
			Expect(de.QuestionIDs).To(Equal([]string{"battery_health"}))
		})

		It("rejects unknown vehicle types", func() {
			_, err := engine.Compute(inspection("hybrid", perfectConventional()))
			Expect(errors.Is(err, domain.ErrUnknownVehicleType)).To(BeTrue())

			_, err = scoring.ComputeWith(electric, inspection("", perfectElectric()))
			Expect(errors.Is(err, domain.ErrUnknownVehicleType)).To(BeTrue())
		})

		It("lists exactly the missing required question", func() {
			_, err := engine.Compute(inspection(domain.VehicleConventional, without(perfectConventional(), "seat_condition")))

			var de *domain.Error
			Expect(errors.As(err, &de)).To(BeTrue())
			Expect(de.Kind).To(Equal(domain.KindIncompleteAnswers))
			Expect(de.QuestionIDs).To(Equal([]string{"seat_condition"}))
			Expect(de.CaseID).To(Equal("case-1"))
		})

		It("requires sub-questions inside a section container", func() {
			missing, err := engine.Missing(inspection(domain.VehicleConventional, without(perfectConventional(), "key_count")))
			Expect(err).NotTo(HaveOccurred())
			Expect(missing).To(Equal([]string{"key_count"}))
		})

		It("treats blank text as unanswered", func() {
			answers := with(perfectElectric(), map[string]domain.Answer{
				"motor_noise":             choice("yes"),
				"motor_noise_description": text("   "),
			})
			missing, err := engine.Missing(inspection(domain.VehicleElectric, answers))
			Expect(err).NotTo(HaveOccurred())
			Expect(missing).To(Equal([]string{"motor_noise_description"}))
		})
	})

	Describe("conditional sub-questions", func() {
		It("requires a follow-up only under the selected branch", func() {
			answers := with(perfectConventional(), map[string]domain.Answer{
				"dashboard_warnings": choice("yes"),
			})
			Expect(scoring.Missing(conventional, answers)).To(Equal([]string{"warning_lights"}))

			answers["dashboard_warnings"] = choice("no")
			Expect(scoring.Missing(conventional, answers)).To(BeEmpty())
		})

		It("drops a stale follow-up when the branch changes", func() {
			answers := with(perfectConventional(), map[string]domain.Answer{
				"check_engine_light": choice("yes"),
				"diagnostic_codes":   text("P0420"),
			})
			Expect(scoring.Missing(conventional, answers)).To(BeEmpty())

			answers["check_engine_light"] = choice("no")
			Expect(scoring.Missing(conventional, answers)).To(BeEmpty())

			engineSection, _ := conventional.Section("engine_transmission")
			Expect(scoring.ReferenceMax(engineSection, answers)).To(Equal(16.0))

			res, err := scoring.ComputeWith(conventional, inspection(domain.VehicleConventional, answers))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.OverallRating).To(Equal(5.0))
		})

		It("does not reach sub-questions of an unanswered parent", func() {
			parent, _, _ := conventional.Question("dashboard_warnings")
			sub, _, _ := conventional.Question("warning_lights")
			Expect(scoring.Reachable(parent, sub, map[string]domain.Answer{})).To(BeFalse())

			container, _, _ := conventional.Question("keys_and_accessories")
			keys, _, _ := conventional.Question("key_count")
			Expect(scoring.Reachable(container, keys, map[string]domain.Answer{})).To(BeTrue())
		})
	})

	Describe("invariants", func() {
		It("keeps every rating within 1..5", func() {
			for ref := 0.0; ref <= 20; ref++ {
				for raw := 0.0; raw <= ref; raw += 0.5 {
					Expect(scoring.Rating(raw, ref)).To(And(BeNumerically(">=", 1), BeNumerically("<=", 5)))
				}
			}
			Expect(scoring.Rating(0, 0)).To(Equal(1))
			Expect(scoring.Rating(7, 5)).To(Equal(5))
		})

		DescribeTable("reference max is the best score of required reachable questions",
			func(vt domain.VehicleType, section string, want float64) {
				r, err := rubrics.For(vt)
				Expect(err).NotTo(HaveOccurred())
				s, ok := r.Section(section)
				Expect(ok).To(BeTrue())
				Expect(scoring.ReferenceMax(s, nil)).To(Equal(want))
			},
			Entry(nil, domain.VehicleConventional, "exterior", 5.0),
			Entry(nil, domain.VehicleConventional, "interior", 13.0),
			Entry(nil, domain.VehicleConventional, "engine_transmission", 16.0),
			Entry(nil, domain.VehicleConventional, "tires_brakes", 9.0),
			Entry(nil, domain.VehicleConventional, "documentation", 5.0),
			Entry(nil, domain.VehicleElectric, "ev_exterior", 8.0),
			Entry(nil, domain.VehicleElectric, "ev_interior", 13.0),
			Entry(nil, domain.VehicleElectric, "battery_drive_system", 17.0),
			Entry(nil, domain.VehicleElectric, "charging", 6.0),
			Entry(nil, domain.VehicleElectric, "ev_tires_brakes", 9.0),
		)

		It("is deterministic", func() {
			insp := inspection(domain.VehicleElectric, perfectElectric())
			first, err := engine.Compute(insp)
			Expect(err).NotTo(HaveOccurred())
			second, err := engine.Compute(insp)
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(first))
		})
	})
})
