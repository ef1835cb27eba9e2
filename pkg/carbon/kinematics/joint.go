package kinematics

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/argus-labs/carbon/pkg/carbon/ecs"
)

// JointType selects how a joint's position turns into motion.
type JointType uint8

const (
	// Fixed joints rigidly attach the child.
	Fixed JointType = iota
	// Revolute joints rotate the child about Axis by Position radians.
	Revolute
	// Continuous joints are revolute joints without limits.
	Continuous
	// Prismatic joints slide the child along Axis by Position meters.
	Prismatic
)

func (t JointType) String() string {
	switch t {
	case Fixed:
		return "fixed"
	case Revolute:
		return "revolute"
	case Continuous:
		return "continuous"
	case Prismatic:
		return "prismatic"
	default:
		return "unknown"
	}
}

// JointLimits bounds a joint's position to [Lower, Upper]. A joint without limits is unbounded.
type JointLimits struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// clamp bounds position. Nil limits leave it alone.
func (l *JointLimits) clamp(position float64) float64 {
	if l == nil {
		return position
	}
	return min(max(position, l.Lower), l.Upper)
}

// Joint couples two links. The joint entity's own Pose is relative to the parent link, and Child
// is the link whose Pose is expressed in the joint's frame and moved by the joint.
type Joint struct {
	Type     JointType    `json:"type"`
	Child    ecs.EntityID `json:"child"`
	Axis     r3.Vec       `json:"axis"`
	Limits   *JointLimits `json:"limits,omitempty"`
	Position float64      `json:"position"`
	Velocity float64      `json:"velocity"`
	Effort   float64      `json:"effort"`
}

var _ ecs.Component = Joint{}

func (Joint) Name() string { return "joint" }

// Motion returns the transform contributed by the joint at its current position.
func (j Joint) Motion() Transform {
	switch j.Type {
	case Revolute, Continuous:
		return AxisAngle(j.Axis, j.Position)
	case Prismatic:
		if r3.Norm(j.Axis) == 0 {
			return Identity()
		}
		return Translation(r3.Scale(j.Position, r3.Unit(j.Axis)))
	case Fixed:
		return Identity()
	default:
		return Identity()
	}
}

// Movable reports whether the joint has a degree of freedom.
func (j Joint) Movable() bool {
	return j.Type != Fixed
}

// SetPosition moves the joint, respecting its limits. Fixed joints stay put.
func (j *Joint) SetPosition(position float64) {
	if !j.Movable() {
		return
	}
	if j.Type == Continuous {
		j.Position = position
		return
	}
	j.Position = j.Limits.clamp(position)
}

// JointCommand requests a new joint state. Unset fields are left alone. ApplyJointCommands
// consumes it.
type JointCommand struct {
	Position *float64 `json:"position,omitempty"`
	Velocity *float64 `json:"velocity,omitempty"`
	Effort   *float64 `json:"effort,omitempty"`
}

var _ ecs.Component = JointCommand{}

func (JointCommand) Name() string { return "joint_command" }

// Float returns a pointer to v for building JointCommand values.
func Float(v float64) *float64 {
	return &v
}
