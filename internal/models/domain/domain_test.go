package domain_test

import (
	"errors"
	"fmt"
	"time"

	"CaseLifecycle/internal/models/domain"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Stage", func() {
	It("round-trips every stage through its name", func() {
		for _, s := range domain.Stages {
			parsed, ok := domain.ParseStage(s.String())
			Expect(ok).To(BeTrue())
			Expect(parsed).To(Equal(s))
		}
	})

	It("rejects unknown names and indices", func() {
		_, ok := domain.ParseStage("payment")
		Expect(ok).To(BeFalse())
		Expect(domain.Stage(42).Valid()).To(BeFalse())
		Expect(domain.Stage(42).String()).To(Equal("unknown"))
	})

	It("keeps the pipeline order", func() {
		Expect(domain.Stages).To(HaveLen(7))
		Expect(domain.Stages[0]).To(Equal(domain.StageIntake))
		Expect(domain.Stages[6]).To(Equal(domain.StageCompletion))
	})
})

var _ = Describe("Case.Clone", func() {
	It("does not share mutable state", func() {
		c := domain.Case{
			ID:            "c1",
			StageStatuses: map[domain.Stage]domain.StageStatus{domain.StageIntake: domain.StageStatusActive},
			Quote: &domain.Quote{Amount: 1000, OfferDecision: &domain.OfferDecision{
				Decision: domain.DecisionAccepted, FinalAmount: 1000,
			}},
			Pickup: &domain.Pickup{ScheduledAt: time.Now()},
		}

		cp := c.Clone()
		cp.StageStatuses[domain.StageIntake] = domain.StageStatusComplete
		cp.Quote.OfferDecision.FinalAmount = 5
		cp.Pickup.Address = "elsewhere"

		Expect(c.StageStatuses[domain.StageIntake]).To(Equal(domain.StageStatusActive))
		Expect(c.Quote.OfferDecision.FinalAmount).To(Equal(1000.0))
		Expect(c.Pickup.Address).To(BeEmpty())
	})

	It("allocates stage statuses for a zero case", func() {
		cp := domain.Case{}.Clone()
		Expect(cp.StageStatuses).NotTo(BeNil())
		Expect(cp.StatusOf(domain.StageQuote)).To(Equal(domain.StageStatusPending))
	})
})

var _ = Describe("Inspection", func() {
	It("only allows forward status transitions", func() {
		Expect(domain.InspectionPending.CanTransitionTo(domain.InspectionInProgress)).To(BeTrue())
		Expect(domain.InspectionInProgress.CanTransitionTo(domain.InspectionCompleted)).To(BeTrue())
		Expect(domain.InspectionCompleted.CanTransitionTo(domain.InspectionInProgress)).To(BeFalse())
		Expect(domain.InspectionCompleted.IsEditable()).To(BeFalse())
	})

	It("deep copies answers", func() {
		n := 3.0
		insp := domain.Inspection{Answers: map[string]domain.Answer{
			"q": {Values: []string{"a"}, Number: &n},
		}}
		cp := insp.Clone()
		cp.Answers["q"].Values[0] = "b"
		*cp.Answers["q"].Number = 4

		Expect(insp.Answers["q"].Values).To(Equal([]string{"a"}))
		Expect(*insp.Answers["q"].Number).To(Equal(3.0))
	})

	It("merges answers over existing ones", func() {
		insp := domain.Inspection{}
		insp.MergeAnswers(map[string]domain.Answer{"a": {Text: "1"}})
		insp.MergeAnswers(map[string]domain.Answer{"a": {Text: "2"}, "b": {Text: "3"}})
		Expect(insp.Answers).To(HaveLen(2))
		Expect(insp.Answers["a"].Text).To(Equal("2"))
	})
})

var _ = Describe("Error", func() {
	It("matches sentinels by kind through wrapping", func() {
		err := fmt.Errorf("cases.CompleteStage: %w", domain.InvalidTransition("c1", domain.StageQuote, "offer has not been accepted"))

		Expect(errors.Is(err, domain.ErrInvalidTransition)).To(BeTrue())
		Expect(errors.Is(err, domain.ErrNotReschedulable)).To(BeFalse())

		kind, ok := domain.KindOf(err)
		Expect(ok).To(BeTrue())
		Expect(kind).To(Equal(domain.KindInvalidTransition))
	})

	It("carries the offending stage and question ids", func() {
		err := domain.IncompleteAnswers([]string{"paint_condition"})
		err.CaseID = "c1"

		var de *domain.Error
		Expect(errors.As(err, &de)).To(BeTrue())
		Expect(de.QuestionIDs).To(Equal([]string{"paint_condition"}))
		Expect(err.Error()).To(ContainSubstring("incomplete_answers case=c1 questions=paint_condition"))

		nr := domain.NotReschedulable("c1", domain.StageInspection, "inspection is already completed")
		Expect(*nr.Stage).To(Equal(domain.StageInspection))
		Expect(nr.Error()).To(ContainSubstring("stage=inspection"))
	})

	It("separates domain rejections from infrastructure failures", func() {
		Expect(domain.IsDomainError(domain.UnknownVehicleType("hybrid"))).To(BeTrue())
		Expect(domain.IsDomainError(errors.New("connection refused"))).To(BeFalse())
		Expect(domain.IsDomainError(domain.ErrNotFound)).To(BeFalse())
	})
})

var _ = Describe("QuestionType", func() {
	It("parses document names", func() {
		var t domain.QuestionType
		Expect(t.UnmarshalText([]byte("checkbox"))).To(Succeed())
		Expect(t).To(Equal(domain.QuestionCheckbox))
		Expect(t.UnmarshalText([]byte("slider"))).To(HaveOccurred())
	})

	It("defaults the rating scale", func() {
		q := domain.Question{Type: domain.QuestionRating}
		Expect(q.RatingMax()).To(Equal(domain.DefaultRatingMax))
		q.Max = 10
		Expect(q.RatingMax()).To(Equal(10))
	})
})
