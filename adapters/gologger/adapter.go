package gologger

import (
	glog "github.com/goliatone/go-logger/glog"
)

// Resolve uses deterministic precedence provider > logger > nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(name, provider, logger)
}

// Component resolves the logger for one deployed component, named
// "<service>.<component>".
func Component(service string, component string, provider glog.LoggerProvider, logger glog.Logger) glog.Logger {
	name := service
	if component != "" {
		name = service + "." + component
	}
	_, resolved := Resolve(name, provider, logger)
	return glog.Ensure(resolved)
}

// WithFields attaches fields when the logger supports it.
func WithFields(logger glog.Logger, fields map[string]any) glog.Logger {
	logger = glog.Ensure(logger)
	if len(fields) == 0 {
		return logger
	}
	if fieldsLogger, ok := logger.(glog.FieldsLogger); ok {
		return fieldsLogger.WithFields(fields)
	}
	return logger
}
