package kinematics

import (
	"github.com/rotisserie/eris"

	"github.com/argus-labs/carbon/pkg/carbon/ecs"
)

// Propagate recomputes the world transform of every posed entity:
//
//	world(e) = world(ref) ∘ local(e)
//	world(e) = world(ref) ∘ motion(joint) ∘ local(e)  when ref is a joint driving e
//
// Every joint's child must be posed in the joint's frame.
// Frames are visited parent-first, so a pose is never read before its reference frame is resolved.
// On error the previous results are kept.
func Propagate(w *ecs.World) error {
	return ecs.MustResource[PoseTree](w).propagate()
}

func (pt *PoseTree) propagate() error {
	for e, joint := range pt.joints {
		child, ok := pt.poses[joint.Child]
		if !ok {
			return eris.Wrapf(ErrJointChildWithoutPose, "joint %s drives %s", e, joint.Child)
		}
		if child.ReferenceFrame != e {
			return eris.Wrapf(ErrJointChildNotInJointFrame, "joint %s drives %s, which is posed in %s",
				e, joint.Child, child.ReferenceFrame)
		}
	}
	for e, pose := range pt.poses {
		if pose.IsRoot() {
			continue
		}
		if _, ok := pt.poses[pose.ReferenceFrame]; !ok {
			return eris.Wrapf(ErrMissingReferenceFrame, "%s is posed in %s", e, pose.ReferenceFrame)
		}
	}

	type frame struct {
		entity ecs.EntityID
		parent Transform
	}

	resolved := make(map[ecs.EntityID]Transform, len(pt.poses))
	stack := make([]frame, 0, len(pt.frames[ecs.Invalid]))
	for _, root := range pt.frames[ecs.Invalid] {
		stack = append(stack, frame{entity: root, parent: Identity()})
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		pose := pt.poses[top.entity]
		world := top.parent
		if joint, ok := pt.drives(pose.ReferenceFrame, top.entity); ok {
			world = world.Compose(joint.Motion())
		}
		world = world.Compose(pose.Transform)
		resolved[top.entity] = world

		for _, child := range pt.frames[top.entity] {
			stack = append(stack, frame{entity: child, parent: world})
		}
	}

	if len(resolved) != len(pt.poses) {
		for e := range pt.poses {
			if _, ok := resolved[e]; !ok {
				return eris.Wrapf(ErrReferenceCycle, "%s is unreachable from the world frame", e)
			}
		}
	}

	pt.resolved = resolved
	return nil
}
