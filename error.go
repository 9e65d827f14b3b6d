package aquaprep

import "github.com/pkg/errors"

var (
	ErrSceneNotFound       = errors.New("no qualifying SR tif in scene dir")
	ErrRootNotFound        = errors.New("root dir not found")
	ErrMissingClass        = errors.New("region without class assignment")
	ErrUnsupportedShape    = errors.New("unsupported region shape")
	ErrClassCollision      = errors.New("class labels map to the same mask file")
	ErrMalformedAnnotation = errors.New("malformed annotation export")
	ErrInvalidChipSize     = errors.New("invalid chip size")
	ErrInvalidConfig       = errors.New("invalid config")
	ErrWrongWindow         = errors.New("window out of raster bounds")
	ErrInvalidTif          = errors.New("invalid tif")
	ErrWrongTif            = errors.New("wrong tif")
	ErrTifReadFailed       = errors.New("tif read failed")
	ErrTifWriteFailed      = errors.New("tif write failed")
	ErrGdalDriverCreate    = errors.New("gdal driver create err")
)
