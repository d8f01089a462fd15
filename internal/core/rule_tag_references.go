package core

import (
	"context"
	"fmt"

	"flowdeck/pkg/domain"
)

// NewTagReferenceRule returns the rule flagging displacement conditions that
// reference a motion tag with no definition. The finding is a warning: the
// deck can still be produced, its motion section just will not cover the tag.
func NewTagReferenceRule() domain.Rule {
	return tagReferenceRule{}
}

type tagReferenceRule struct{}

func (tagReferenceRule) Name() string { return "dangling_tag_reference" }

func (tagReferenceRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, c := range view.ListConditions() {
		if c.Kind == domain.KindNone || c.Variable.Family() != domain.FamilyMesh {
			continue
		}
		if c.MotionTag <= 0 {
			continue
		}
		if _, ok := view.FindMotionByTag(c.MotionTag); ok {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "dangling_tag_reference",
			Severity: domain.SeverityWarn,
			Message:  fmt.Sprintf("motion tag %d is not defined; the motion section will not cover it", c.MotionTag),
			Entity:   domain.EntityBoundaryCondition,
			EntityID: c.ID,
		})
	}
	return res, nil
}
