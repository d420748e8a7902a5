// Package services holds cross-cutting helpers for the recording pipeline:
// sentinel error markers with stage-aware wrapping, and context annotations
// that carry recording identity into logs.
package services
