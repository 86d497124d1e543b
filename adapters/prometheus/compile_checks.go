package prometheus

import "github.com/goliatone/go-carbon/core"

var _ core.MetricsRecorder = (*Recorder)(nil)
