package robot

import "github.com/rotisserie/eris"

var (
	ErrInvalidGeometry    = eris.New("invalid geometry")
	ErrInvalidDescription = eris.New("invalid robot description")
)
