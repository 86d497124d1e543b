package gologger

import (
	"context"
	"testing"

	glog "github.com/goliatone/go-logger/glog"
)

func TestResolveDeterministicFallback(t *testing.T) {
	loggerOnly := &capturingLogger{id: "logger"}
	providerLogger := &capturingLogger{id: "provider"}
	provider := &capturingProvider{logger: providerLogger}

	var resolvedProvider glog.LoggerProvider
	_, resolved := Resolve("carbon", provider, loggerOnly)
	got := resolved.(*capturingLogger)
	if got.id != "provider" {
		t.Fatalf("expected provider logger precedence, got %q", got.id)
	}

	resolvedProvider, resolved = Resolve("carbon", nil, loggerOnly)
	got = resolved.(*capturingLogger)
	if got.id != "logger" {
		t.Fatalf("expected direct logger when provider is nil, got %q", got.id)
	}
	if resolvedProvider == nil {
		t.Fatalf("expected provider wrapper from logger")
	}

	_, resolved = Resolve("carbon", nil, nil)
	if resolved == nil {
		t.Fatalf("expected nop logger fallback")
	}
}

func TestComponentUsesQualifiedName(t *testing.T) {
	provider := &capturingProvider{logger: &capturingLogger{id: "provider"}}

	logger := Component("carbon", "vault", provider, nil)
	if logger == nil {
		t.Fatalf("expected component logger")
	}
	if provider.lastName != "carbon.vault" {
		t.Fatalf("expected qualified logger name, got %q", provider.lastName)
	}

	Component("carbon", "", provider, nil)
	if provider.lastName != "carbon" {
		t.Fatalf("expected bare service name, got %q", provider.lastName)
	}
}

func TestWithFieldsAttachesWhenSupported(t *testing.T) {
	base := &capturingLogger{id: "fields"}
	logger := WithFields(base, map[string]any{"vault": "0xabc"})
	logger.Info("ready")
	if base.lastInfo.msg != "ready" || base.fields["vault"] != "0xabc" {
		t.Fatalf("expected fields to be attached, got %#v", base.fields)
	}

	if WithFields(nil, map[string]any{"k": "v"}) == nil {
		t.Fatalf("expected nop logger for nil input")
	}
}

var (
	_ glog.Logger         = (*capturingLogger)(nil)
	_ glog.FieldsLogger   = (*capturingLogger)(nil)
	_ glog.LoggerProvider = (*capturingProvider)(nil)
)

type capturingProvider struct {
	logger   *capturingLogger
	lastName string
}

func (p *capturingProvider) GetLogger(name string) glog.Logger {
	if p == nil || p.logger == nil {
		return glog.Nop()
	}
	p.lastName = name
	return p.logger
}

type infoCall struct {
	msg  string
	args []any
}

type capturingLogger struct {
	id       string
	lastInfo infoCall
	fields   map[string]any
}

func (l *capturingLogger) Trace(string, ...any) {}
func (l *capturingLogger) Debug(string, ...any) {}
func (l *capturingLogger) Warn(string, ...any)  {}
func (l *capturingLogger) Error(string, ...any) {}
func (l *capturingLogger) Fatal(string, ...any) {}

func (l *capturingLogger) Info(msg string, args ...any) {
	l.lastInfo = infoCall{
		msg:  msg,
		args: append([]any(nil), args...),
	}
}

func (l *capturingLogger) WithContext(context.Context) glog.Logger {
	return l
}

func (l *capturingLogger) WithFields(fields map[string]any) glog.Logger {
	if l.fields == nil {
		l.fields = map[string]any{}
	}
	for key, value := range fields {
		l.fields[key] = value
	}
	return l
}
