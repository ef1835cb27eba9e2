package kinematics

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/argus-labs/carbon/pkg/carbon/ecs"
)

// Point is one return of a range sensor.
type Point struct {
	Position  r3.Vec
	Intensity float64
}

// PointCloud holds points measured in the carrying entity's frame, e.g. a lidar scan.
type PointCloud struct {
	Points []Point
}

var _ ecs.Component = PointCloud{}

func (PointCloud) Name() string { return "point_cloud" }

// WorldPointCloud is a PointCloud mapped into the world frame.
type WorldPointCloud struct {
	Points []Point
	Tick   uint64 // World tick the cloud was transformed on
}

var _ ecs.Component = WorldPointCloud{}

func (WorldPointCloud) Name() string { return "world_point_cloud" }

// TransformPointClouds maps every PointCloud on a resolved entity into the world frame.
func TransformPointClouds(w *ecs.World) error {
	pt := ecs.MustResource[PoseTree](w)

	type pending struct {
		entity ecs.EntityID
		cloud  WorldPointCloud
	}
	var out []pending
	ecs.Each(w, func(e ecs.EntityID, pc PointCloud) bool {
		world, ok := pt.GetWorldTransform(e)
		if !ok {
			return true
		}
		points := make([]Point, len(pc.Points))
		for i, p := range pc.Points {
			points[i] = Point{Position: world.Apply(p.Position), Intensity: p.Intensity}
		}
		out = append(out, pending{entity: e, cloud: WorldPointCloud{Points: points, Tick: w.CurrentTick()}})
		return true
	})

	for _, p := range out {
		if err := ecs.Set(w, p.entity, p.cloud); err != nil {
			return err
		}
	}
	return nil
}
