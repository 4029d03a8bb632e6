// Package pdf binds an ordered list of page images into a PDF.
//
// Every page is sized from its own image: width and height in millimetres
// are the pixel dimensions times Geometry.PixelToMM. The image is drawn at
// the page origin without rotation. Its placement size is the size it would
// have at Geometry.PlacementDPI, multiplied by Geometry.ImageScale; with the
// default calibration this is exactly the page size, so pages are full bleed.
//
// Decoded images are mapped onto an explicit PDF colour space and bit depth
// (see ColorDescriptor) before embedding. Models without an exact mapping are
// rejected with *models.UnsupportedColorModelError.
//
// Assembly is all-or-nothing: a failure on any page returns no document.
package pdf
