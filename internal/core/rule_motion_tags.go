package core

import (
	"context"
	"fmt"

	"flowdeck/pkg/domain"
)

// NewMotionTagPositiveRule returns the in-transaction rule rejecting motion
// definitions whose tag is zero or negative.
func NewMotionTagPositiveRule() domain.Rule {
	return motionTagPositiveRule{}
}

type motionTagPositiveRule struct{}

func (motionTagPositiveRule) Name() string { return "motion_tag_positive" }

func (motionTagPositiveRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, m := range view.ListMotions() {
		if m.Tag > 0 {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "motion_tag_positive",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("motion tag %d must be positive", m.Tag),
			Entity:   domain.EntityPrescribedMotion,
			EntityID: m.ID,
		})
	}
	return res, nil
}

// NewMotionTagUniqueRule returns the in-transaction rule rejecting duplicate
// motion tags. One violation is reported per duplicated tag.
func NewMotionTagUniqueRule() domain.Rule {
	return motionTagUniqueRule{}
}

type motionTagUniqueRule struct{}

func (motionTagUniqueRule) Name() string { return "motion_tag_unique" }

func (motionTagUniqueRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	counts := make(map[int]int)
	for _, m := range view.ListMotions() {
		counts[m.Tag]++
	}

	res := domain.Result{}
	reported := make(map[int]bool)
	for _, m := range view.ListMotions() {
		if m.Tag <= 0 || counts[m.Tag] < 2 || reported[m.Tag] {
			continue
		}
		reported[m.Tag] = true
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "motion_tag_unique",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("motion tag %d defined more than once", m.Tag),
			Entity:   domain.EntityPrescribedMotion,
			EntityID: m.ID,
		})
	}
	return res, nil
}
