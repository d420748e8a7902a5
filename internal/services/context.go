package services

import "context"

type contextKey string

const (
	recordingIDKey contextKey = "recording_id"
	recordingKey   contextKey = "recording_name"
)

// WithRecordingID annotates context with the recording identifier.
func WithRecordingID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, recordingIDKey, id)
}

// RecordingIDFromContext extracts the recording identifier if present.
func RecordingIDFromContext(ctx context.Context) (int64, bool) {
	if v, ok := ctx.Value(recordingIDKey).(int64); ok {
		return v, true
	}
	return 0, false
}

// WithRecordingName annotates context with the recording display name.
func WithRecordingName(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, recordingKey, name)
}

// RecordingNameFromContext extracts the recording display name if present.
func RecordingNameFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(recordingKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
