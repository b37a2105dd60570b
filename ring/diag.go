package ring

import "go.uber.org/zap"

// DiagSink is the diagnostic sink spec §1 abstracts logging behind. Any
// structured logger satisfying this subset of zap.SugaredLogger's methods
// can be plugged in; NewZapDiagSink adapts a *zap.SugaredLogger directly,
// matching the way the teacher's modules pass a *zap.SugaredLogger into
// constructors.
type DiagSink interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
}

// NewZapDiagSink adapts a *zap.SugaredLogger to DiagSink.
func NewZapDiagSink(log *zap.SugaredLogger) DiagSink {
	return zapDiagSink{log}
}

type zapDiagSink struct {
	log *zap.SugaredLogger
}

func (z zapDiagSink) Debugw(msg string, kv ...interface{}) { z.log.Debugw(msg, kv...) }
func (z zapDiagSink) Infow(msg string, kv ...interface{})  { z.log.Infow(msg, kv...) }
func (z zapDiagSink) Warnw(msg string, kv ...interface{})  { z.log.Warnw(msg, kv...) }
func (z zapDiagSink) Errorw(msg string, kv ...interface{}) { z.log.Errorw(msg, kv...) }

type noopDiagSink struct{}

func (noopDiagSink) Debugw(string, ...interface{}) {}
func (noopDiagSink) Infow(string, ...interface{})  {}
func (noopDiagSink) Warnw(string, ...interface{})  {}
func (noopDiagSink) Errorw(string, ...interface{}) {}

// defaultDiagSink is used by constructors that receive no explicit sink.
var defaultDiagSink DiagSink = noopDiagSink{}
