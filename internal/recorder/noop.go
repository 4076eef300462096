package recorder

// NoopRecorder is a no-op implementation used when history is disabled.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordQuery(_ *QueryEvent) error    { return nil }
func (n *NoopRecorder) Recent(_ int) ([]QueryEvent, error) { return nil, nil }
func (n *NoopRecorder) Close() error                       { return nil }
