package kinematics

import (
	"github.com/argus-labs/carbon/pkg/carbon/ecs"
)

// Pose places an entity relative to ReferenceFrame. ecs.Invalid means the world frame.
type Pose struct {
	Transform      Transform    `json:"transform"`
	ReferenceFrame ecs.EntityID `json:"reference_frame"`
}

var _ ecs.Component = Pose{}

func (Pose) Name() string { return "pose" }

// WorldPose returns a world-relative pose.
func WorldPose(t Transform) Pose {
	return Pose{Transform: t}
}

// RelativeTo returns a pose expressed in frame.
func RelativeTo(frame ecs.EntityID, t Transform) Pose {
	return Pose{Transform: t, ReferenceFrame: frame}
}

// IsRoot reports whether the pose is expressed in the world frame.
func (p Pose) IsRoot() bool {
	return p.ReferenceFrame == ecs.Invalid
}
