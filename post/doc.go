// Package post implements the content side of the service: posts with
// attached images, a paged public listing, per-author listings and
// author-only edits.
//
// Images are uploaded to object storage under the author's key prefix and
// the keys are recorded next to the post, so removing a post or one of its
// images also removes the stored object.
package post
