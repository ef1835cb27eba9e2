package kinematics

import "github.com/rotisserie/eris"

var (
	// ErrJointChildWithoutPose is returned when a joint drives an entity that has no Pose.
	ErrJointChildWithoutPose = eris.New("joint child has no pose")

	// ErrJointChildNotInJointFrame is returned when a joint's child is posed in some frame other
	// than the joint's, so the joint's motion would never reach it.
	ErrJointChildNotInJointFrame = eris.New("joint child is not posed in the joint frame")

	// ErrMissingReferenceFrame is returned when a Pose is expressed in a frame that has no Pose.
	ErrMissingReferenceFrame = eris.New("reference frame has no pose")

	// ErrReferenceCycle is returned when reference frames loop back on themselves.
	ErrReferenceCycle = eris.New("reference frames form a cycle")
)
