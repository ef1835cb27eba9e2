package kinematics

import (
	"math"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/argus-labs/carbon/pkg/carbon/ecs"
	"github.com/argus-labs/carbon/pkg/carbon/hierarchy"
)

func newWorld(t *testing.T) (*ecs.World, *PoseTree) {
	t.Helper()
	w := ecs.NewWorld()
	return w, Register(w)
}

func worldTranslation(t *testing.T, pt *PoseTree, e ecs.EntityID) r3.Vec {
	t.Helper()
	tf, ok := pt.GetWorldTransform(e)
	require.True(t, ok, "%s has no world transform", e)
	return tf.Translation
}

// baseWithLink spawns base → joint → link where the joint revolves about z and link sits one
// meter along x in the joint frame.
func baseWithLink(t *testing.T, w *ecs.World) (base, joint, link ecs.EntityID) {
	t.Helper()
	base = w.Spawn(WorldPose(Identity()))
	link = w.Spawn(WorldPose(Translation(r3.Vec{X: 1})))
	joint, err := SpawnJoint(w, base, link, Joint{Type: Revolute, Axis: r3.Vec{Z: 1}}, Identity())
	require.NoError(t, err)
	return base, joint, link
}

func TestPropagate_QuarterTurn(t *testing.T) {
	t.Parallel()

	w, pt := newWorld(t)
	base, joint, link := baseWithLink(t, w)

	require.NoError(t, Propagate(w))
	assertVec(t, r3.Vec{X: 1}, worldTranslation(t, pt, link))

	j, err := ecs.Get[Joint](w, joint)
	require.NoError(t, err)
	j.SetPosition(math.Pi / 2)
	require.NoError(t, ecs.Set(w, joint, j))

	require.NoError(t, Propagate(w))
	assertVec(t, r3.Vec{Y: 1}, worldTranslation(t, pt, link))

	baseWorld, ok := pt.GetWorldTransform(base)
	require.True(t, ok)
	assert.True(t, baseWorld.ApproxEqual(Identity(), tol), "root must be untouched")
}

func TestPropagate_ZeroJointKeepsBasePose(t *testing.T) {
	t.Parallel()

	w, pt := newWorld(t)
	start := NewTransform(r3.Vec{X: 3, Y: -2, Z: 1}, r3.Vec{X: 1, Y: 1}, 0.3)
	base := w.Spawn(WorldPose(start))
	link := w.Spawn(WorldPose(Identity()))
	_, err := SpawnJoint(w, base, link, Joint{Type: Revolute, Axis: r3.Vec{Z: 1}}, Identity())
	require.NoError(t, err)

	require.NoError(t, Propagate(w))
	got, ok := pt.GetWorldTransform(link)
	require.True(t, ok)
	assert.True(t, start.ApproxEqual(got, tol))
}

func TestPropagate_JointOriginAndChain(t *testing.T) {
	t.Parallel()

	w, pt := newWorld(t)
	z := r3.Vec{Z: 1}

	// base at (0,0,1); shoulder joint 0.5 up; upper arm 1 along x; elbow at the arm's tip.
	base := w.Spawn(WorldPose(Translation(r3.Vec{Z: 1})))
	upper := w.Spawn()
	fore := w.Spawn(WorldPose(Translation(r3.Vec{X: 1})))
	shoulder, err := SpawnJoint(w, base, upper, Joint{Type: Revolute, Axis: z}, Translation(r3.Vec{Z: 0.5}))
	require.NoError(t, err)
	elbow, err := SpawnJoint(w, upper, fore, Joint{Type: Revolute, Axis: z}, Translation(r3.Vec{X: 1}))
	require.NoError(t, err)

	require.NoError(t, Propagate(w))
	assertVec(t, r3.Vec{Z: 1.5}, worldTranslation(t, pt, upper))
	assertVec(t, r3.Vec{X: 2, Z: 1.5}, worldTranslation(t, pt, fore))

	for _, cmd := range []struct {
		joint ecs.EntityID
		angle float64
	}{{shoulder, math.Pi / 2}, {elbow, math.Pi / 2}} {
		require.NoError(t, ecs.Set(w, cmd.joint, JointCommand{Position: Float(cmd.angle)}))
	}
	require.NoError(t, w.Tick())

	// Shoulder turns the arm to +y, the elbow folds the forearm back to -x.
	assertVec(t, r3.Vec{X: -1, Y: 1, Z: 1.5}, worldTranslation(t, pt, fore))
	assert.Equal(t, []ecs.EntityID{shoulder}, hierarchy.Default.Children(w, base))
	assert.Equal(t, []ecs.EntityID{fore}, hierarchy.Default.Children(w, elbow))
	assert.False(t, ecs.Has[JointCommand](w, shoulder), "commands are consumed")
}

func TestPropagate_Errors(t *testing.T) {
	t.Parallel()

	t.Run("joint child without pose", func(t *testing.T) {
		t.Parallel()
		w, pt := newWorld(t)
		_, _, link := baseWithLink(t, w)
		require.NoError(t, Propagate(w))

		require.NoError(t, ecs.Remove[Pose](w, link))
		err := Propagate(w)
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrJointChildWithoutPose))
		assert.Equal(t, 2, pt.Len())
	})

	t.Run("joint child posed outside the joint frame", func(t *testing.T) {
		t.Parallel()
		w, pt := newWorld(t)
		base, joint, link := baseWithLink(t, w)
		require.NoError(t, Propagate(w))

		require.NoError(t, ecs.Set(w, link, RelativeTo(base, Translation(r3.Vec{X: 1}))))
		require.NoError(t, ecs.Set(w, joint, JointCommand{Position: Float(math.Pi / 2)}))
		require.NoError(t, ApplyJointCommands(w, w.Logger()))
		err := Propagate(w)
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrJointChildNotInJointFrame), "got %v", err)
		assertVec(t, r3.Vec{X: 1}, worldTranslation(t, pt, link))
	})

	t.Run("missing reference frame", func(t *testing.T) {
		t.Parallel()
		w, _ := newWorld(t)
		frame := w.Spawn()
		w.Spawn(RelativeTo(frame, Identity()))
		err := Propagate(w)
		assert.True(t, eris.Is(err, ErrMissingReferenceFrame))
	})

	t.Run("cycle", func(t *testing.T) {
		t.Parallel()
		w, _ := newWorld(t)
		a, b := w.Spawn(), w.Spawn()
		require.NoError(t, ecs.Set(w, a, RelativeTo(b, Identity())))
		require.NoError(t, ecs.Set(w, b, RelativeTo(a, Identity())))
		w.Spawn(WorldPose(Identity()))
		err := Propagate(w)
		assert.True(t, eris.Is(err, ErrReferenceCycle))
	})

	t.Run("tick fails", func(t *testing.T) {
		t.Parallel()
		w, _ := newWorld(t)
		w.Spawn(RelativeTo(w.Spawn(), Identity()))
		err := w.Tick()
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrMissingReferenceFrame))
	})
}

func TestPropagate_KeepsLastResultOnError(t *testing.T) {
	t.Parallel()

	w, pt := newWorld(t)
	root := w.Spawn(WorldPose(Translation(r3.Vec{X: 1})))
	require.NoError(t, Propagate(w))

	w.Spawn(RelativeTo(w.Spawn(), Identity()))
	require.Error(t, Propagate(w))
	assertVec(t, r3.Vec{X: 1}, worldTranslation(t, pt, root))
}

func TestPropagate_DeepChain(t *testing.T) {
	t.Parallel()

	const depth = 10_000
	w, pt := newWorld(t)
	step := Translation(r3.Vec{X: 0.5})

	prev := w.Spawn(WorldPose(Identity()))
	for range depth {
		prev = w.Spawn(RelativeTo(prev, step))
	}

	require.NoError(t, Propagate(w))
	assert.Equal(t, depth+1, pt.Len())
	assertVec(t, r3.Vec{X: depth * 0.5}, worldTranslation(t, pt, prev))
}

func TestPoseTree_TracksComponents(t *testing.T) {
	t.Parallel()

	w, pt := newWorld(t)
	base, joint, link := baseWithLink(t, w)

	assert.Equal(t, 3, pt.Len())
	assert.Equal(t, []ecs.EntityID{base}, pt.Roots())
	assert.Equal(t, []ecs.EntityID{joint}, pt.GetChildren(base))
	assert.Equal(t, []ecs.EntityID{link}, pt.GetChildren(joint))
	j, ok := pt.GetJoint(joint)
	require.True(t, ok)
	assert.Equal(t, link, j.Child)
	pose, ok := pt.GetPose(link)
	require.True(t, ok)
	assert.Equal(t, joint, pose.ReferenceFrame)

	hierarchy.Default.DespawnRecursive(w, joint)
	assert.Equal(t, 1, pt.Len())
	_, ok = pt.GetJoint(joint)
	assert.False(t, ok)
	assert.Empty(t, pt.GetChildren(base))
	require.NoError(t, Propagate(w))
}

func TestRegister_IndexesExistingPoses(t *testing.T) {
	t.Parallel()

	w := ecs.NewWorld()
	root := w.Spawn()
	require.NoError(t, ecs.Set(w, root, WorldPose(Identity())))

	pt := Register(w)
	assert.Equal(t, 1, pt.Len())
	assert.Same(t, pt, Register(w), "registering twice reuses the tree")
}

func TestIntegrateJoints(t *testing.T) {
	t.Parallel()

	w, _ := newWorld(t)
	_, joint, _ := baseWithLink(t, w)
	clock := ecs.MustResource[Clock](w)

	j, err := ecs.Get[Joint](w, joint)
	require.NoError(t, err)
	j.Limits = &JointLimits{Lower: -1, Upper: 1}
	require.NoError(t, ecs.Set(w, joint, j))
	require.NoError(t, ecs.Set(w, joint, JointCommand{Velocity: Float(0.5), Effort: Float(2)}))

	for range 3 {
		clock.Advance(500 * time.Millisecond)
		require.NoError(t, w.Tick())
	}
	j, err = ecs.Get[Joint](w, joint)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, j.Position, tol)
	assert.InDelta(t, 2.0, j.Effort, tol)

	clock.Advance(time.Second)
	require.NoError(t, w.Tick())
	j, err = ecs.Get[Joint](w, joint)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, j.Position, tol, "clamped at the upper limit")
	assert.Zero(t, j.Velocity, "stops at the limit")
}

func TestApplyJointCommands_WithoutJoint(t *testing.T) {
	t.Parallel()

	w, _ := newWorld(t)
	e := w.Spawn(JointCommand{Position: Float(1)})
	require.NoError(t, w.Tick())
	assert.False(t, ecs.Has[JointCommand](w, e))
}

func TestTransformPointClouds(t *testing.T) {
	t.Parallel()

	w, _ := newWorld(t)
	_, joint, link := baseWithLink(t, w)
	require.NoError(t, ecs.Set(w, link, PointCloud{Points: []Point{{}, {Position: r3.Vec{X: 1}, Intensity: 0.5}}}))
	require.NoError(t, ecs.Set(w, joint, JointCommand{Position: Float(math.Pi)}))

	unposed := w.Spawn(PointCloud{Points: []Point{{Position: r3.Vec{X: 1}}}})

	require.NoError(t, w.Tick())
	cloud, err := ecs.Get[WorldPointCloud](w, link)
	require.NoError(t, err)
	require.Len(t, cloud.Points, 2)
	assertVec(t, r3.Vec{X: -1}, cloud.Points[0].Position)
	assertVec(t, r3.Vec{X: -2}, cloud.Points[1].Position)
	assert.InDelta(t, 0.5, cloud.Points[1].Intensity, tol)
	assert.Equal(t, w.CurrentTick()-1, cloud.Tick, "stamped with the tick that produced it")
	assert.False(t, ecs.Has[WorldPointCloud](w, unposed))
}

func TestSpawnJoint_DeadLinks(t *testing.T) {
	t.Parallel()

	w, _ := newWorld(t)
	alive := w.Spawn()
	dead := w.Spawn()
	w.Destroy(dead)

	_, err := SpawnJoint(w, dead, alive, Joint{}, Identity())
	assert.True(t, eris.Is(err, ecs.ErrEntityNotFound))
	_, err = SpawnJoint(w, alive, dead, Joint{}, Identity())
	assert.True(t, eris.Is(err, ecs.ErrEntityNotFound))
}

func TestPoseTree_JSON(t *testing.T) {
	t.Parallel()

	w, pt := newWorld(t)
	base, joint, link := baseWithLink(t, w)
	require.NoError(t, Propagate(w))

	data, err := json.Marshal(pt)
	require.NoError(t, err)

	var entries []struct {
		Entity string          `json:"entity"`
		World  json.RawMessage `json:"world"`
		Joint  *Joint          `json:"joint"`
	}
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, base.String(), entries[0].Entity)
	assert.Equal(t, joint.String(), entries[1].Entity)
	assert.Equal(t, link.String(), entries[2].Entity)
	require.NotNil(t, entries[1].Joint)
	assert.Equal(t, link, entries[1].Joint.Child)
	assert.NotEmpty(t, entries[2].World)
}
