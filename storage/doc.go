// Package storage keeps member images in an S3-compatible bucket and builds
// their public URLs.
//
// Keys have the form images/<owner>/<yyyy>/<mm>/<dd>/<uuid><ext>, so an owner's
// objects share a prefix and ownership can be checked from the key alone.
package storage
