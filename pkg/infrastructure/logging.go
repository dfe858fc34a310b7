// Package infrastructure provides reusable infrastructure components for Go applications.
package infrastructure

import (
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// FxLoggerAdapter adapts a zap.SugaredLogger to the fxevent.Logger interface,
// so the Fx framework's own lifecycle logging goes through Zap.
type FxLoggerAdapter struct {
	logger *zap.SugaredLogger
}

// NewFxLoggerAdapter creates a new Fx logger adapter backed by the given Zap logger.
func NewFxLoggerAdapter(logger *zap.Logger) fxevent.Logger {
	return &FxLoggerAdapter{logger: logger.Sugar()}
}

// LogEvent implements fxevent.Logger.
func (p *FxLoggerAdapter) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		p.logger.Debugf("HOOK OnStart executing: %s", e.FunctionName)
	case *fxevent.OnStartExecuted:
		p.logHook("HOOK OnStart", e.FunctionName, e.Err)
	case *fxevent.OnStopExecuting:
		p.logger.Debugf("HOOK OnStop executing: %s", e.FunctionName)
	case *fxevent.OnStopExecuted:
		p.logHook("HOOK OnStop", e.FunctionName, e.Err)
	case *fxevent.Provided:
		if e.Err != nil {
			p.logger.Errorf("PROVIDE failed: %v", e.Err)
		}
	case *fxevent.Invoked:
		if e.Err != nil {
			p.logger.Errorf("INVOKE failed: %s, error: %v", e.FunctionName, e.Err)
		} else {
			p.logger.Debugf("INVOKE successful: %s", e.FunctionName)
		}
	case *fxevent.Stopping:
		p.logger.Infof("STOPPING: %s", e.Signal)
	case *fxevent.Stopped:
		p.logSimple("STOPPED", e.Err)
	case *fxevent.RollingBack:
		p.logger.Errorf("ROLLING BACK: %v", e.StartErr)
	case *fxevent.Started:
		p.logSimple("STARTED", e.Err)
	default:
		p.logger.Debugf("Fx event: %T", event)
	}
}

func (p *FxLoggerAdapter) logHook(action, function string, err error) {
	if err != nil {
		p.logger.Errorf("%s failed: %s, error: %v", action, function, err)
	} else {
		p.logger.Debugf("%s executed: %s", action, function)
	}
}

func (p *FxLoggerAdapter) logSimple(action string, err error) {
	if err != nil {
		p.logger.Errorf("%s with error: %v", action, err)
	} else {
		p.logger.Info(action)
	}
}
