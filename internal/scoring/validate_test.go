package scoring_test

import (
	"errors"
	"math"

	"CaseLifecycle/internal/models/domain"
	"CaseLifecycle/internal/rubric"
	"CaseLifecycle/internal/scoring"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ValidateAnswers", func() {
	var conventional *domain.Rubric

	BeforeEach(func() {
		set, err := rubric.Embedded()
		Expect(err).NotTo(HaveOccurred())
		conventional, err = set.For(domain.VehicleConventional)
		Expect(err).NotTo(HaveOccurred())
	})

	It("accepts a complete answer set", func() {
		Expect(scoring.ValidateAnswers(conventional, perfectConventional())).To(Succeed())
	})

	It("accepts an empty answer as a clear", func() {
		Expect(scoring.ValidateAnswers(conventional, map[string]domain.Answer{
			"paint_condition": {},
		})).To(Succeed())
	})

	It("reports every unknown question id sorted", func() {
		err := scoring.ValidateAnswers(conventional, map[string]domain.Answer{
			"paint_condition": choice("good"),
			"zz_unknown":      choice("x"),
			"battery_health":  choice("above_90"),
		})

		var de *domain.Error
		Expect(errors.As(err, &de)).To(BeTrue())
		Expect(de.Kind).To(Equal(domain.KindUnknownQuestion))
		Expect(de.QuestionIDs).To(Equal([]string{"battery_health", "zz_unknown"}))
	})

	DescribeTable("rejects malformed answers",
		func(id string, a domain.Answer) {
			err := scoring.ValidateAnswers(conventional, map[string]domain.Answer{id: a})
			Expect(errors.Is(err, domain.ErrInvalidAnswer)).To(BeTrue())

			var de *domain.Error
			Expect(errors.As(err, &de)).To(BeTrue())
			Expect(de.QuestionIDs).To(Equal([]string{id}))
		},
		Entry("radio with two values", "paint_condition", choice("good", "fair")),
		Entry("radio with an unknown option", "paint_condition", choice("shiny")),
		Entry("yesno with a number", "dashboard_warnings", number(1)),
		Entry("checkbox with a repeated option", "fluid_leaks", choice("oil", "oil")),
		Entry("rating above max", "interior_rating", number(6)),
		Entry("fractional rating", "interior_rating", number(2.5)),
		Entry("negative rating", "brake_performance", number(-1)),
		Entry("infinite number", "odometer_reading", number(math.Inf(1))),
		Entry("photo given as text", "vin_plate_photo", text("vin.jpg")),
		Entry("answer to a section container", "keys_and_accessories", text("two keys")),
	)

	It("treats the zero answer as empty", func() {
		Expect(scoring.IsEmpty(domain.Answer{})).To(BeTrue())
		Expect(scoring.IsEmpty(number(0))).To(BeFalse())
		Expect(scoring.IsEmpty(text(" "))).To(BeFalse())
	})
})
