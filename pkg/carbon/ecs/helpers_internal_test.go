package ecs

type position struct{ X, Y float64 }

func (position) Name() string { return "position" }

type velocity struct{ X, Y float64 }

func (velocity) Name() string { return "velocity" }

type tag struct{}

func (*tag) Name() string { return "tag" }

type impostor struct{ X, Y float64 }

func (impostor) Name() string { return "position" }
