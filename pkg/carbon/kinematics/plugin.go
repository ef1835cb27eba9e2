package kinematics

import (
	"github.com/argus-labs/carbon/pkg/carbon/ecs"
	"github.com/argus-labs/carbon/pkg/carbon/hierarchy"
)

// Register installs the kinematics components, the PoseTree and Clock resources, and the systems:
//
//	PreUpdate   apply_joint_commands
//	Update      integrate_joints
//	PostUpdate  pose_propagation, transform_point_clouds
//
// Poses and joints already in the world are indexed immediately.
func Register(w *ecs.World) *PoseTree {
	hierarchy.Default.Register(w)
	ecs.RegisterComponent[Pose](w)
	ecs.RegisterComponent[Joint](w)
	ecs.RegisterComponent[JointCommand](w)
	ecs.RegisterComponent[PointCloud](w)
	ecs.RegisterComponent[WorldPointCloud](w)

	if pt, ok := ecs.GetResource[PoseTree](w); ok {
		return pt
	}

	pt := NewPoseTree()
	ecs.Each(w, func(e ecs.EntityID, p Pose) bool {
		pt.setPose(e, p)
		return true
	})
	ecs.Each(w, func(e ecs.EntityID, j Joint) bool {
		pt.setJoint(e, j)
		return true
	})
	ecs.InsertResource(w, pt)
	if _, ok := ecs.GetResource[Clock](w); !ok {
		ecs.InsertResource(w, &Clock{})
	}

	ecs.OnInsert[Pose](w, func(_ *ecs.World, e ecs.EntityID, p Pose) { pt.setPose(e, p) })
	ecs.OnRemove[Pose](w, func(_ *ecs.World, e ecs.EntityID, _ Pose) { pt.removePose(e) })
	ecs.OnInsert[Joint](w, func(_ *ecs.World, e ecs.EntityID, j Joint) { pt.setJoint(e, j) })
	ecs.OnRemove[Joint](w, func(_ *ecs.World, e ecs.EntityID, _ Joint) { pt.removeJoint(e) })

	ecs.RegisterSystem(w, "apply_joint_commands", func(ctx ecs.SystemContext) error {
		return ApplyJointCommands(ctx.World, ctx.Logger)
	}, ecs.WithHook(ecs.PreUpdate))
	ecs.RegisterSystem(w, "integrate_joints", func(ctx ecs.SystemContext) error {
		return IntegrateJoints(ctx.World)
	}, ecs.WithHook(ecs.Update))
	ecs.RegisterSystem(w, "pose_propagation", func(ctx ecs.SystemContext) error {
		return Propagate(ctx.World)
	}, ecs.WithHook(ecs.PostUpdate))
	ecs.RegisterSystem(w, "transform_point_clouds", func(ctx ecs.SystemContext) error {
		return TransformPointClouds(ctx.World)
	}, ecs.WithHook(ecs.PostUpdate))

	return pt
}
