// Package robot holds the payload components a robot is described with and the loader that turns
// a YAML description into an entity tree.
package robot

import (
	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/argus-labs/carbon/pkg/carbon/ecs"
	"github.com/argus-labs/carbon/pkg/carbon/kinematics"
)

var (
	_ ecs.Component = Link{}
	_ ecs.Component = Frame{}
	_ ecs.Component = BaseFrame{}
	_ ecs.Component = Geometry{}
	_ ecs.Component = Wheel{}
	_ ecs.Component = DifferentialDrive{}
	_ ecs.Component = EncoderFeedback{}
	_ ecs.Component = CommandVelocity{}
	_ ecs.Component = Lidar{}
	_ ecs.Component = Port{}
)

// Link marks a rigid body.
type Link struct{}

func (Link) Name() string { return "link" }

// Frame names a coordinate frame.
type Frame struct {
	Label string
}

func (Frame) Name() string { return "frame" }

// BaseFrame marks the frame every other part of the robot hangs from.
type BaseFrame struct{}

func (BaseFrame) Name() string { return "base_frame" }

// Shape selects which Geometry fields are meaningful.
type Shape uint8

const (
	Cylinder Shape = iota + 1
	Sphere
	Box
	Plane
	Mesh
)

func (s Shape) String() string {
	switch s {
	case Cylinder:
		return "cylinder"
	case Sphere:
		return "sphere"
	case Box:
		return "box"
	case Plane:
		return "plane"
	case Mesh:
		return "mesh"
	default:
		return "unknown"
	}
}

// ParseShape is the inverse of Shape.String.
func ParseShape(s string) (Shape, error) {
	for shape := Cylinder; shape <= Mesh; shape++ {
		if shape.String() == s {
			return shape, nil
		}
	}
	return 0, eris.Wrapf(ErrInvalidGeometry, "unknown shape %q", s)
}

// Geometry is a link's collision and visual shape, in meters.
type Geometry struct {
	Shape    Shape
	Radius   float64 // Cylinder, Sphere
	Height   float64 // Cylinder, Box
	Width    float64 // Box, Plane
	Depth    float64 // Box, Plane
	Vertices []r3.Vec
	Indices  []uint32
}

func (Geometry) Name() string { return "geometry" }

// Validate checks that the fields the shape needs are set and positive.
func (g Geometry) Validate() error {
	positive := func(field string, v float64) error {
		if v <= 0 {
			return eris.Wrapf(ErrInvalidGeometry, "%s %s must be positive, got %g", g.Shape, field, v)
		}
		return nil
	}

	switch g.Shape {
	case Cylinder:
		return firstErr(positive("radius", g.Radius), positive("height", g.Height))
	case Sphere:
		return positive("radius", g.Radius)
	case Box:
		return firstErr(positive("height", g.Height), positive("width", g.Width), positive("depth", g.Depth))
	case Plane:
		return firstErr(positive("width", g.Width), positive("depth", g.Depth))
	case Mesh:
		if len(g.Indices)%3 != 0 {
			return eris.Wrapf(ErrInvalidGeometry, "mesh has %d indices, not a multiple of 3", len(g.Indices))
		}
		for _, i := range g.Indices {
			if int(i) >= len(g.Vertices) {
				return eris.Wrapf(ErrInvalidGeometry, "mesh index %d out of range (%d vertices)", i, len(g.Vertices))
			}
		}
		return nil
	default:
		return eris.Wrapf(ErrInvalidGeometry, "unknown shape %d", g.Shape)
	}
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Wheel marks a driven wheel link.
type Wheel struct {
	Radius float64
}

func (Wheel) Name() string { return "wheel" }

// Side is the side of a differential drive a wheel sits on.
type Side uint8

const (
	Left Side = iota + 1
	Right
)

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

// DifferentialDrive assigns a wheel to one side of a differential drive.
type DifferentialDrive struct {
	Side Side
}

func (DifferentialDrive) Name() string { return "differential_drive" }

// EncoderFeedback is the last reading of a wheel encoder. Nil means no reading yet.
type EncoderFeedback struct {
	Position *float64
	Velocity *float64
}

func (EncoderFeedback) Name() string { return "encoder_feedback" }

// CommandVelocity is the requested wheel velocity in radians per second.
type CommandVelocity struct {
	Velocity float64
}

func (CommandVelocity) Name() string { return "command_velocity" }

// LidarModel identifies a supported lidar.
type LidarModel uint8

const (
	RPLidar LidarModel = iota + 1
	VLP16
)

func (m LidarModel) String() string {
	switch m {
	case RPLidar:
		return "rplidar"
	case VLP16:
		return "vlp16"
	default:
		return "unknown"
	}
}

// ParseLidarModel is the inverse of LidarModel.String.
func ParseLidarModel(s string) (LidarModel, error) {
	for _, m := range []LidarModel{RPLidar, VLP16} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, eris.Errorf("unknown lidar model %q", s)
}

// Lidar marks a link carrying a lidar. Its scans land in a kinematics.PointCloud.
type Lidar struct {
	Model LidarModel
}

func (Lidar) Name() string { return "lidar" }

// Port is the serial device a component talks through.
type Port struct {
	Path     string
	BaudRate int
}

func (Port) Name() string { return "port" }

// BaseTransform is the resource holding the base frame's placement in the world.
type BaseTransform struct {
	kinematics.Transform
}

// Register makes the robot components known to the world and installs kinematics.
func Register(w *ecs.World) {
	kinematics.Register(w)
	ecs.RegisterComponent[Link](w)
	ecs.RegisterComponent[Frame](w)
	ecs.RegisterComponent[BaseFrame](w)
	ecs.RegisterComponent[Geometry](w)
	ecs.RegisterComponent[Wheel](w)
	ecs.RegisterComponent[DifferentialDrive](w)
	ecs.RegisterComponent[EncoderFeedback](w)
	ecs.RegisterComponent[CommandVelocity](w)
	ecs.RegisterComponent[Lidar](w)
	ecs.RegisterComponent[Port](w)
	if _, ok := ecs.GetResource[BaseTransform](w); !ok {
		ecs.InsertResource(w, &BaseTransform{Transform: kinematics.Identity()})
	}
}
