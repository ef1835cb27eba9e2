package kinematics

import (
	"slices"

	"github.com/goccy/go-json"

	"github.com/argus-labs/carbon/pkg/carbon/ecs"
)

// PoseTree indexes every Pose and Joint in the world for constant-time lookup during propagation.
// Component hooks keep it current; Propagate fills in the world transforms.
type PoseTree struct {
	poses    map[ecs.EntityID]Pose
	joints   map[ecs.EntityID]Joint
	frames   map[ecs.EntityID][]ecs.EntityID // Reference frame -> entities posed in it
	resolved map[ecs.EntityID]Transform      // World transforms from the last propagation
}

// NewPoseTree returns an empty tree.
func NewPoseTree() *PoseTree {
	return &PoseTree{
		poses:    make(map[ecs.EntityID]Pose),
		joints:   make(map[ecs.EntityID]Joint),
		frames:   make(map[ecs.EntityID][]ecs.EntityID),
		resolved: make(map[ecs.EntityID]Transform),
	}
}

// GetPose returns the local pose of e.
func (pt *PoseTree) GetPose(e ecs.EntityID) (Pose, bool) {
	p, ok := pt.poses[e]
	return p, ok
}

// GetWorldTransform returns the world transform of e as of the last propagation.
func (pt *PoseTree) GetWorldTransform(e ecs.EntityID) (Transform, bool) {
	t, ok := pt.resolved[e]
	return t, ok
}

// GetJoint returns the joint carried by e.
func (pt *PoseTree) GetJoint(e ecs.EntityID) (Joint, bool) {
	j, ok := pt.joints[e]
	return j, ok
}

// GetChildren returns the entities whose pose is expressed in parent's frame, in the order they
// were posed there.
func (pt *PoseTree) GetChildren(parent ecs.EntityID) []ecs.EntityID {
	return slices.Clone(pt.frames[parent])
}

// Roots returns the world-relative entities.
func (pt *PoseTree) Roots() []ecs.EntityID {
	return pt.GetChildren(ecs.Invalid)
}

// Len returns the number of posed entities.
func (pt *PoseTree) Len() int {
	return len(pt.poses)
}

func (pt *PoseTree) setPose(e ecs.EntityID, pose Pose) {
	if old, ok := pt.poses[e]; ok {
		if old.ReferenceFrame != pose.ReferenceFrame {
			pt.unlinkFrame(old.ReferenceFrame, e)
			pt.frames[pose.ReferenceFrame] = append(pt.frames[pose.ReferenceFrame], e)
		}
	} else {
		pt.frames[pose.ReferenceFrame] = append(pt.frames[pose.ReferenceFrame], e)
	}
	pt.poses[e] = pose
}

func (pt *PoseTree) removePose(e ecs.EntityID) {
	old, ok := pt.poses[e]
	if !ok {
		return
	}
	pt.unlinkFrame(old.ReferenceFrame, e)
	delete(pt.poses, e)
	delete(pt.resolved, e)
}

func (pt *PoseTree) unlinkFrame(frame, e ecs.EntityID) {
	remaining := slices.DeleteFunc(pt.frames[frame], func(x ecs.EntityID) bool { return x == e })
	if len(remaining) == 0 {
		delete(pt.frames, frame)
		return
	}
	pt.frames[frame] = remaining
}

func (pt *PoseTree) setJoint(e ecs.EntityID, joint Joint) {
	pt.joints[e] = joint
}

func (pt *PoseTree) removeJoint(e ecs.EntityID) {
	delete(pt.joints, e)
}

// drives returns the joint on frame if it drives e.
func (pt *PoseTree) drives(frame, e ecs.EntityID) (Joint, bool) {
	j, ok := pt.joints[frame]
	if !ok || j.Child != e {
		return Joint{}, false
	}
	return j, true
}

type poseTreeEntry struct {
	Entity         string     `json:"entity"`
	ReferenceFrame string     `json:"reference_frame"`
	Local          Transform  `json:"local"`
	World          *Transform `json:"world,omitempty"`
	Joint          *Joint     `json:"joint,omitempty"`
}

// MarshalJSON writes every posed entity in depth-first frame order.
func (pt *PoseTree) MarshalJSON() ([]byte, error) {
	entries := make([]poseTreeEntry, 0, len(pt.poses))
	stack := pt.Roots()
	slices.Reverse(stack)
	visited := make(map[ecs.EntityID]struct{}, len(pt.poses))
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := visited[e]; seen {
			continue
		}
		visited[e] = struct{}{}

		pose := pt.poses[e]
		entry := poseTreeEntry{Entity: e.String(), ReferenceFrame: pose.ReferenceFrame.String(), Local: pose.Transform}
		if world, ok := pt.resolved[e]; ok {
			entry.World = &world
		}
		if joint, ok := pt.joints[e]; ok {
			entry.Joint = &joint
		}
		entries = append(entries, entry)

		children := pt.GetChildren(e)
		slices.Reverse(children)
		stack = append(stack, children...)
	}
	return json.Marshal(entries)
}
