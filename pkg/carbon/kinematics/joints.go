package kinematics

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/argus-labs/carbon/pkg/carbon/ecs"
	"github.com/argus-labs/carbon/pkg/carbon/hierarchy"
)

// Clock is the simulation time resource. The app advances it once per tick.
type Clock struct {
	Elapsed time.Duration
	Delta   time.Duration
}

// Advance moves the clock forward by dt.
func (c *Clock) Advance(dt time.Duration) {
	c.Delta = dt
	c.Elapsed += dt
}

// ApplyJointCommands moves every commanded joint to its requested state and consumes the command.
// Commands on entities without a Joint are dropped with a warning.
func ApplyJointCommands(w *ecs.World, logger *zerolog.Logger) error {
	for _, e := range ecs.Entities[JointCommand](w) {
		cmd, _ := ecs.Take[JointCommand](w, e)
		joint, err := ecs.Get[Joint](w, e)
		if err != nil {
			logger.Warn().Stringer("entity", e).Msg("dropping joint command, entity has no joint")
			continue
		}

		if cmd.Position != nil {
			joint.SetPosition(*cmd.Position)
		}
		if cmd.Velocity != nil {
			joint.Velocity = *cmd.Velocity
		}
		if cmd.Effort != nil {
			joint.Effort = *cmd.Effort
		}
		if err := ecs.Set(w, e, joint); err != nil {
			return eris.Wrapf(err, "failed to apply command to joint %s", e)
		}
	}
	return nil
}

// IntegrateJoints advances every moving joint by velocity × the clock's delta. A joint that hits a
// limit stops there.
func IntegrateJoints(w *ecs.World) error {
	clock, ok := ecs.GetResource[Clock](w)
	if !ok || clock.Delta <= 0 {
		return nil
	}
	dt := clock.Delta.Seconds()

	for _, e := range ecs.Entities[Joint](w) {
		joint, err := ecs.Get[Joint](w, e)
		if err != nil {
			return err
		}
		if !joint.Movable() || joint.Velocity == 0 {
			continue
		}

		target := joint.Position + joint.Velocity*dt
		joint.SetPosition(target)
		if joint.Position != target {
			joint.Velocity = 0
		}
		if err := ecs.Set(w, e, joint); err != nil {
			return err
		}
	}
	return nil
}

// SpawnJoint creates a joint entity between two links. The joint is posed at origin in parent's
// frame, and child is re-posed in the joint's frame keeping its local transform. Both links and
// the joint are linked in the entity hierarchy as parent → joint → child.
func SpawnJoint(
	w *ecs.World, parent, child ecs.EntityID, joint Joint, origin Transform, components ...ecs.Component,
) (ecs.EntityID, error) {
	if !w.Alive(parent) {
		return ecs.Invalid, eris.Wrapf(ecs.ErrEntityNotFound, "parent link %s", parent)
	}
	if !w.Alive(child) {
		return ecs.Invalid, eris.Wrapf(ecs.ErrEntityNotFound, "child link %s", child)
	}

	local := Identity()
	if pose, err := ecs.Get[Pose](w, child); err == nil {
		local = pose.Transform
	}

	joint.Child = child
	je := w.Spawn(components...)
	if err := ecs.Set(w, je, RelativeTo(parent, origin)); err != nil {
		return ecs.Invalid, err
	}
	if err := ecs.Set(w, je, joint); err != nil {
		return ecs.Invalid, err
	}
	if err := ecs.Set(w, child, RelativeTo(je, local)); err != nil {
		return ecs.Invalid, err
	}

	hierarchy.Default.AddChild(w, parent, je)
	hierarchy.Default.AddChild(w, je, child)
	return je, nil
}
