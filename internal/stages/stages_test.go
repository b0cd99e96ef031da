package stages_test

import (
	"errors"
	"time"

	"CaseLifecycle/internal/models/domain"
	"CaseLifecycle/internal/stages"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var (
	slot       = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	decidedAt  = time.Date(2024, 3, 6, 15, 30, 0, 0, time.UTC)
	scheduled  = &domain.Inspection{ID: "insp-1", Status: domain.InspectionPending, ScheduledAt: &slot}
	inProgress = &domain.Inspection{ID: "insp-1", Status: domain.InspectionInProgress, ScheduledAt: &slot}
	inspected  = &domain.Inspection{ID: "insp-1", Status: domain.InspectionCompleted, ScheduledAt: &slot}
)

func newCase() domain.Case {
	return stages.Open(domain.Case{
		ID:       "case-1",
		Customer: domain.Customer{Name: "Dana Reyes"},
		Vehicle:  domain.Vehicle{VIN: "1HGCM82633A004352", Type: domain.VehicleConventional},
	})
}

// advanceTo completes stages in order until target is the current stage.
func advanceTo(c domain.Case, target domain.Stage) domain.Case {
	for c.CurrentStage < target {
		var insp *domain.Inspection
		switch c.CurrentStage {
		case domain.StageScheduleInspection:
			insp = scheduled
		case domain.StageInspection:
			insp = inspected
		case domain.StageQuote:
			c.Quote = &domain.Quote{Amount: 12000, OfferDecision: &domain.OfferDecision{
				Decision: domain.DecisionAccepted, FinalAmount: 12000, DecidedAt: decidedAt,
			}}
		case domain.StagePaperwork:
			c.Payment = &domain.Payment{Method: "wire", Amount: 12000, PaidAt: decidedAt}
		case domain.StageSchedulePickup:
			c.Pickup = &domain.Pickup{ScheduledAt: slot.AddDate(0, 0, 7)}
		}
		next, err := stages.Advance(c, c.CurrentStage, insp)
		Expect(err).NotTo(HaveOccurred())
		c = next
	}
	return c
}

func activeCount(c domain.Case) int {
	n := 0
	for _, s := range domain.Stages {
		if c.StatusOf(s) == domain.StageStatusActive {
			n++
		}
	}
	return n
}

var _ = Describe("Open", func() {
	It("starts at intake with everything else pending", func() {
		c := newCase()
		Expect(c.Status).To(Equal(domain.CaseStatusNew))
		Expect(c.CurrentStage).To(Equal(domain.StageIntake))
		Expect(c.StatusOf(domain.StageIntake)).To(Equal(domain.StageStatusActive))
		for _, s := range domain.Stages[1:] {
			Expect(c.StatusOf(s)).To(Equal(domain.StageStatusPending), s.String())
		}
	})
})

var _ = Describe("Advance", func() {
	It("walks the whole pipeline with exactly one active stage", func() {
		c := newCase()
		want := []domain.CaseStatus{
			domain.CaseStatusIntakeComplete,
			domain.CaseStatusScheduled,
			domain.CaseStatusInspected,
			domain.CaseStatusOfferAccepted,
			domain.CaseStatusPaperworkComplete,
			domain.CaseStatusPickupScheduled,
		}
		for i, status := range want {
			c = advanceTo(c, domain.Stage(i+1))
			Expect(c.Status).To(Equal(status))
			Expect(activeCount(c)).To(Equal(1))
			for _, s := range domain.Stages[:i+1] {
				Expect(c.StatusOf(s)).To(Equal(domain.StageStatusComplete))
			}
		}

		done, err := stages.Advance(c, domain.StageCompletion, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(done.Status).To(Equal(domain.CaseStatusCompleted))
		Expect(done.CurrentStage).To(Equal(domain.StageCompletion))
		Expect(activeCount(done)).To(BeZero())
		Expect(stages.IsTerminal(done)).To(BeTrue())
	})

	It("does not modify its input", func() {
		c := newCase()
		_, err := stages.Advance(c, domain.StageIntake, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.StatusOf(domain.StageIntake)).To(Equal(domain.StageStatusActive))
		Expect(c.Status).To(Equal(domain.CaseStatusNew))
	})

	It("refuses to skip ahead", func() {
		_, err := stages.Advance(newCase(), domain.StageQuote, nil)
		Expect(errors.Is(err, domain.ErrInvalidTransition)).To(BeTrue())
	})

	It("refuses a stage that is not a pipeline stage", func() {
		_, err := stages.Advance(newCase(), domain.Stage(42), nil)
		Expect(errors.Is(err, domain.ErrInvalidTransition)).To(BeTrue())
	})

	DescribeTable("requires the stage's data",
		func(stage domain.Stage, prepare func(*domain.Case), insp *domain.Inspection, reason string) {
			c := advanceTo(newCase(), stage)
			prepare(&c)
			_, err := stages.Advance(c, stage, insp)

			var de *domain.Error
			Expect(errors.As(err, &de)).To(BeTrue())
			Expect(de.Kind).To(Equal(domain.KindInvalidTransition))
			Expect(*de.Stage).To(Equal(stage))
			Expect(de.Reason).To(ContainSubstring(reason))
		},
		Entry("intake without a VIN", domain.StageIntake,
			func(c *domain.Case) { c.Vehicle.VIN = "" }, nil, "VIN"),
		Entry("schedule without a slot", domain.StageScheduleInspection,
			func(*domain.Case) {}, &domain.Inspection{Status: domain.InspectionPending}, "not been scheduled"),
		Entry("inspection still in progress", domain.StageInspection,
			func(*domain.Case) {}, inProgress, "not completed"),
		Entry("quote without a decision", domain.StageQuote,
			func(c *domain.Case) { c.Quote = &domain.Quote{Amount: 9000} }, nil, "not been accepted"),
		Entry("quote accepted at zero", domain.StageQuote,
			func(c *domain.Case) {
				c.Quote = &domain.Quote{OfferDecision: &domain.OfferDecision{Decision: domain.DecisionAccepted}}
			}, nil, "no amount"),
		Entry("paperwork without payment", domain.StagePaperwork,
			func(*domain.Case) {}, nil, "payment"),
		Entry("pickup without a time", domain.StageSchedulePickup,
			func(*domain.Case) {}, nil, "pickup"),
	)

	It("rejects transitions on a closed case", func() {
		c := advanceTo(newCase(), domain.StageQuote)
		declined, err := stages.Terminate(c, "price too low", decidedAt)
		Expect(err).NotTo(HaveOccurred())

		_, err = stages.Advance(declined, domain.StageQuote, nil)
		Expect(errors.Is(err, domain.ErrInvalidTransition)).To(BeTrue())
	})
})

var _ = Describe("Terminate", func() {
	It("declines the offer during the quote stage", func() {
		c := advanceTo(newCase(), domain.StageQuote)
		c.Quote = &domain.Quote{Amount: 8500}

		declined, err := stages.Terminate(c, "price too low", decidedAt)
		Expect(err).NotTo(HaveOccurred())
		Expect(declined.Status).To(Equal(domain.CaseStatusQuoteDeclined))
		Expect(declined.StatusOf(domain.StageQuote)).To(Equal(domain.StageStatusComplete))
		Expect(declined.OfferDecision()).To(Equal(&domain.OfferDecision{
			Decision:    domain.DecisionDeclined,
			FinalAmount: 8500,
			Reason:      "price too low",
			DecidedAt:   decidedAt,
		}))
		Expect(stages.IsTerminal(declined)).To(BeTrue())

		again, err := stages.Terminate(declined, "other reason", decidedAt.Add(time.Hour))
		Expect(err).NotTo(HaveOccurred())
		Expect(again.OfferDecision().Reason).To(Equal("price too low"))
	})

	It("is illegal outside the quote stage", func() {
		_, err := stages.Terminate(advanceTo(newCase(), domain.StageInspection), "", decidedAt)
		Expect(errors.Is(err, domain.ErrInvalidTransition)).To(BeTrue())
	})
})

var _ = Describe("Reopen", func() {
	It("moves a pending inspection back to scheduling", func() {
		c := advanceTo(newCase(), domain.StageInspection)

		reopened, err := stages.Reopen(c, domain.StageScheduleInspection, inProgress)
		Expect(err).NotTo(HaveOccurred())
		Expect(reopened.CurrentStage).To(Equal(domain.StageScheduleInspection))
		Expect(reopened.Status).To(Equal(domain.CaseStatusIntakeComplete))
		Expect(reopened.StatusOf(domain.StageScheduleInspection)).To(Equal(domain.StageStatusActive))
		Expect(reopened.StatusOf(domain.StageInspection)).To(Equal(domain.StageStatusPending))
		Expect(activeCount(reopened)).To(Equal(1))

		again, err := stages.Advance(reopened, domain.StageScheduleInspection, scheduled)
		Expect(err).NotTo(HaveOccurred())
		Expect(again.CurrentStage).To(Equal(domain.StageInspection))
	})

	It("refuses once the inspection is completed", func() {
		c := advanceTo(newCase(), domain.StageQuote)
		_, err := stages.Reopen(c, domain.StageInspection, inspected)

		var de *domain.Error
		Expect(errors.As(err, &de)).To(BeTrue())
		Expect(de.Kind).To(Equal(domain.KindNotReschedulable))
		Expect(*de.Stage).To(Equal(domain.StageInspection))
	})

	It("reopens pickup scheduling before completion", func() {
		c := advanceTo(newCase(), domain.StageCompletion)

		reopened, err := stages.Reopen(c, domain.StageSchedulePickup, inspected)
		Expect(err).NotTo(HaveOccurred())
		Expect(reopened.Status).To(Equal(domain.CaseStatusPaperworkComplete))
		Expect(reopened.StatusOf(domain.StageCompletion)).To(Equal(domain.StageStatusPending))

		done, err := stages.Advance(reopened, domain.StageSchedulePickup, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(done.CurrentStage).To(Equal(domain.StageCompletion))
	})

	It("leaves the current stage as it is", func() {
		c := advanceTo(newCase(), domain.StageSchedulePickup)
		same, err := stages.Reopen(c, domain.StageSchedulePickup, inspected)
		Expect(err).NotTo(HaveOccurred())
		Expect(same.CurrentStage).To(Equal(c.CurrentStage))
		Expect(same.Status).To(Equal(c.Status))
	})

	DescribeTable("rejects stages that cannot be rescheduled",
		func(current, stage domain.Stage, insp *domain.Inspection) {
			c := advanceTo(newCase(), current)
			_, err := stages.Reopen(c, stage, insp)
			Expect(errors.Is(err, domain.ErrNotReschedulable)).To(BeTrue())
		},
		Entry("intake", domain.StageQuote, domain.StageIntake, inspected),
		Entry("quote", domain.StagePaperwork, domain.StageQuote, inspected),
		Entry("a stage not yet reached", domain.StageScheduleInspection, domain.StageInspection, scheduled),
		Entry("without an inspection", domain.StageInspection, domain.StageScheduleInspection, nil),
	)

	It("refuses on a declined case", func() {
		c := advanceTo(newCase(), domain.StageQuote)
		declined, err := stages.Terminate(c, "", decidedAt)
		Expect(err).NotTo(HaveOccurred())

		_, err = stages.Reopen(declined, domain.StageSchedulePickup, inspected)
		Expect(errors.Is(err, domain.ErrNotReschedulable)).To(BeTrue())
	})
})
