package apperr

import "errors"

var (
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrNameCollision   = errors.New("image name collision")
	ErrSymlinkCycle    = errors.New("symlink cycle")
)
