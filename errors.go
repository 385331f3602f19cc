package tileview

import "errors"

// Sentinel errors returned by the viewer and client.
var (
	// ErrMetadata indicates that the image metadata could not be fetched or
	// decoded. This is fatal to initialization: the viewer stays
	// uninitialized and paints an error glyph instead of the image.
	ErrMetadata = errors.New("tileview: image metadata unavailable")

	// ErrInvalidDimensions indicates a zero or negative viewport or image
	// dimension passed at construction time.
	ErrInvalidDimensions = errors.New("tileview: invalid dimensions")

	// ErrViewerClosed is returned by operations on a closed viewer.
	ErrViewerClosed = errors.New("tileview: viewer is closed")

	// ErrTileStatus indicates a non-200 response from the tile endpoint.
	ErrTileStatus = errors.New("tileview: unexpected tile response status")
)
