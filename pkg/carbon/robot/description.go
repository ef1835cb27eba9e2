package robot

import (
	"bytes"
	"os"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/argus-labs/carbon/pkg/carbon/ecs"
	"github.com/argus-labs/carbon/pkg/carbon/hierarchy"
	"github.com/argus-labs/carbon/pkg/carbon/kinematics"
)

// Description is a robot description file. Links hang off the base or off each other by name;
// a link with a joint is attached through a joint entity, otherwise it is rigidly posed in its
// parent's frame.
//
//	name: rover
//	base:
//	  name: base_link
//	links:
//	  - name: lidar
//	    parent: base_link
//	    origin: {xyz: [0, 0, 0.2]}
//	    geometry: {type: cylinder, radius: 0.05, height: 0.04}
//	    lidar: {model: rplidar, port: /dev/ttyUSB0, baud_rate: 115200}
type Description struct {
	Name  string            `yaml:"name"`
	Base  BaseDescription   `yaml:"base"`
	Links []LinkDescription `yaml:"links"`
}

type BaseDescription struct {
	Name     string               `yaml:"name"`
	Origin   Origin               `yaml:"origin"`
	Geometry *GeometryDescription `yaml:"geometry"`
}

type LinkDescription struct {
	Name     string               `yaml:"name"`
	Parent   string               `yaml:"parent"`
	Origin   Origin               `yaml:"origin"`
	Geometry *GeometryDescription `yaml:"geometry"`
	Joint    *JointDescription    `yaml:"joint"`
	Wheel    *WheelDescription    `yaml:"wheel"`
	Lidar    *LidarDescription    `yaml:"lidar"`
}

// Origin is a placement as translation plus fixed-axis roll, pitch and yaw.
type Origin struct {
	XYZ [3]float64 `yaml:"xyz"`
	RPY [3]float64 `yaml:"rpy"`
}

// Transform converts the origin.
func (o Origin) Transform() kinematics.Transform {
	return kinematics.FromXYZRPY(vec(o.XYZ), o.RPY[0], o.RPY[1], o.RPY[2])
}

type GeometryDescription struct {
	Type     string       `yaml:"type"`
	Radius   float64      `yaml:"radius"`
	Height   float64      `yaml:"height"`
	Width    float64      `yaml:"width"`
	Depth    float64      `yaml:"depth"`
	Vertices [][3]float64 `yaml:"vertices"`
	Indices  []uint32     `yaml:"indices"`
}

type JointDescription struct {
	Name   string             `yaml:"name"`
	Type   string             `yaml:"type"`
	Axis   [3]float64         `yaml:"axis"`
	Origin Origin             `yaml:"origin"`
	Limits *LimitsDescription `yaml:"limits"`
}

type LimitsDescription struct {
	Lower float64 `yaml:"lower"`
	Upper float64 `yaml:"upper"`
}

type WheelDescription struct {
	Radius float64 `yaml:"radius"`
	Drive  string  `yaml:"drive"` // left, right or empty
}

type LidarDescription struct {
	Model    string `yaml:"model"`
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// LoadDescription reads and validates a description file.
func LoadDescription(path string) (*Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read robot description %s", path)
	}
	d, err := ParseDescription(data)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to load robot description %s", path)
	}
	return d, nil
}

// ParseDescription decodes and validates a description. Unknown keys are rejected.
func ParseDescription(data []byte) (*Description, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var d Description
	if err := dec.Decode(&d); err != nil {
		return nil, eris.Wrap(ErrInvalidDescription, err.Error())
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks names, references and payloads without touching a world.
func (d *Description) Validate() error {
	if d.Base.Name == "" {
		return eris.Wrap(ErrInvalidDescription, "base has no name")
	}
	if d.Base.Geometry != nil {
		if _, err := d.Base.Geometry.geometry(); err != nil {
			return eris.Wrapf(err, "base %s", d.Base.Name)
		}
	}

	names := map[string]struct{}{d.Base.Name: {}}
	for _, l := range d.Links {
		if l.Name == "" {
			return eris.Wrap(ErrInvalidDescription, "link has no name")
		}
		if _, dup := names[l.Name]; dup {
			return eris.Wrapf(ErrInvalidDescription, "duplicate link %s", l.Name)
		}
		names[l.Name] = struct{}{}
		if _, err := l.components(); err != nil {
			return eris.Wrapf(err, "link %s", l.Name)
		}
		if l.Joint != nil {
			if _, err := l.Joint.joint(); err != nil {
				return eris.Wrapf(err, "link %s", l.Name)
			}
		}
	}

	for _, l := range d.Links {
		if _, ok := names[l.Parent]; !ok {
			return eris.Wrapf(ErrInvalidDescription, "link %s has unknown parent %q", l.Name, l.Parent)
		}
	}
	_, err := d.spawnOrder()
	return err
}

// spawnOrder returns the links sorted so that every parent comes before its children.
func (d *Description) spawnOrder() ([]LinkDescription, error) {
	placed := map[string]struct{}{d.Base.Name: {}}
	pending := d.Links
	order := make([]LinkDescription, 0, len(d.Links))

	for len(pending) > 0 {
		var next []LinkDescription
		for _, l := range pending {
			if _, ok := placed[l.Parent]; ok {
				order = append(order, l)
				placed[l.Name] = struct{}{}
				continue
			}
			next = append(next, l)
		}
		if len(next) == len(pending) {
			return nil, eris.Wrapf(ErrInvalidDescription, "link %s is not connected to the base", next[0].Name)
		}
		pending = next
	}
	return order, nil
}

// Robot names the entities a description was spawned into.
type Robot struct {
	Name   string
	Base   ecs.EntityID
	Links  map[string]ecs.EntityID
	Joints map[string]ecs.EntityID
}

// Spawn builds the robot in w. The base becomes a world-relative frame and BaseTransform is set
// to its origin. Nothing is spawned if the description is invalid.
func (d *Description) Spawn(w *ecs.World) (*Robot, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	order, err := d.spawnOrder()
	if err != nil {
		return nil, err
	}
	Register(w)

	baseTransform := d.Base.Origin.Transform()
	ecs.MustResource[BaseTransform](w).Transform = baseTransform

	base := []ecs.Component{Link{}, Frame{Label: d.Base.Name}, BaseFrame{}, kinematics.WorldPose(baseTransform)}
	if d.Base.Geometry != nil {
		g, _ := d.Base.Geometry.geometry()
		base = append(base, g)
	}

	r := &Robot{
		Name:   d.Name,
		Base:   w.Spawn(base...),
		Links:  make(map[string]ecs.EntityID, len(d.Links)+1),
		Joints: make(map[string]ecs.EntityID),
	}
	r.Links[d.Base.Name] = r.Base

	for _, l := range order {
		parent := r.Links[l.Parent]
		components, _ := l.components()

		if l.Joint == nil {
			pose := kinematics.RelativeTo(parent, l.Origin.Transform())
			r.Links[l.Name] = hierarchy.Default.Entity(w, parent).WithChild(append(components, pose)...)
			continue
		}

		link := w.Spawn(append(components, kinematics.WorldPose(l.Origin.Transform()))...)
		joint, _ := l.Joint.joint()
		name := l.Joint.Name
		if name == "" {
			name = l.Name + "_joint"
		}
		je, err := kinematics.SpawnJoint(w, parent, link, joint, l.Joint.Origin.Transform(), Frame{Label: name})
		if err != nil {
			return nil, eris.Wrapf(err, "failed to spawn joint %s", name)
		}
		r.Links[l.Name] = link
		r.Joints[name] = je
	}
	return r, nil
}

func (l LinkDescription) components() ([]ecs.Component, error) {
	components := []ecs.Component{Link{}, Frame{Label: l.Name}}

	if l.Geometry != nil {
		g, err := l.Geometry.geometry()
		if err != nil {
			return nil, err
		}
		components = append(components, g)
	}

	if l.Wheel != nil {
		if l.Wheel.Radius <= 0 {
			return nil, eris.Wrapf(ErrInvalidDescription, "wheel radius must be positive, got %g", l.Wheel.Radius)
		}
		components = append(components, Wheel{Radius: l.Wheel.Radius}, EncoderFeedback{}, CommandVelocity{})
		switch l.Wheel.Drive {
		case "":
		case Left.String():
			components = append(components, DifferentialDrive{Side: Left})
		case Right.String():
			components = append(components, DifferentialDrive{Side: Right})
		default:
			return nil, eris.Wrapf(ErrInvalidDescription, "unknown drive side %q", l.Wheel.Drive)
		}
	}

	if l.Lidar != nil {
		model, err := ParseLidarModel(l.Lidar.Model)
		if err != nil {
			return nil, eris.Wrap(ErrInvalidDescription, err.Error())
		}
		components = append(components, Lidar{Model: model}, kinematics.PointCloud{})
		if l.Lidar.Port != "" {
			components = append(components, Port{Path: l.Lidar.Port, BaudRate: l.Lidar.BaudRate})
		}
	}
	return components, nil
}

func (g GeometryDescription) geometry() (Geometry, error) {
	shape, err := ParseShape(g.Type)
	if err != nil {
		return Geometry{}, err
	}
	out := Geometry{
		Shape:   shape,
		Radius:  g.Radius,
		Height:  g.Height,
		Width:   g.Width,
		Depth:   g.Depth,
		Indices: g.Indices,
	}
	for _, v := range g.Vertices {
		out.Vertices = append(out.Vertices, vec(v))
	}
	return out, out.Validate()
}

func (j JointDescription) joint() (kinematics.Joint, error) {
	var typ kinematics.JointType
	switch j.Type {
	case kinematics.Fixed.String():
		typ = kinematics.Fixed
	case kinematics.Revolute.String():
		typ = kinematics.Revolute
	case kinematics.Continuous.String():
		typ = kinematics.Continuous
	case kinematics.Prismatic.String():
		typ = kinematics.Prismatic
	default:
		return kinematics.Joint{}, eris.Wrapf(ErrInvalidDescription, "unknown joint type %q", j.Type)
	}

	axis := vec(j.Axis)
	if typ != kinematics.Fixed && r3.Norm(axis) == 0 {
		return kinematics.Joint{}, eris.Wrapf(ErrInvalidDescription, "%s joint needs an axis", typ)
	}

	joint := kinematics.Joint{Type: typ, Axis: axis}
	if j.Limits != nil {
		if j.Limits.Lower > j.Limits.Upper {
			return kinematics.Joint{}, eris.Wrapf(ErrInvalidDescription,
				"joint lower limit %g above upper limit %g", j.Limits.Lower, j.Limits.Upper)
		}
		joint.Limits = &kinematics.JointLimits{Lower: j.Limits.Lower, Upper: j.Limits.Upper}
	}
	return joint, nil
}

func vec(v [3]float64) r3.Vec {
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}
