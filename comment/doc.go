// Package comment stores comments left on posts. Comments are written by a
// signed-in member and listed oldest first under the post they belong to.
package comment
