package main

import (
	"go.uber.org/zap"
)

// zapLogger adapts zap's sugared logger to the coldcore.Logger interface.
type zapLogger struct {
	s *zap.SugaredLogger
}

func newZapLogger(development bool) (*zapLogger, error) {
	var (
		zl  *zap.Logger
		err error
	)
	if development {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return &zapLogger{s: zl.Sugar()}, nil
}

func (l *zapLogger) Info(msg string, args ...any)  { l.s.Infow(msg, args...) }
func (l *zapLogger) Error(msg string, args ...any) { l.s.Errorw(msg, args...) }
func (l *zapLogger) Warn(msg string, args ...any)  { l.s.Warnw(msg, args...) }
func (l *zapLogger) Debug(msg string, args ...any) { l.s.Debugw(msg, args...) }

func (l *zapLogger) Sync() { _ = l.s.Sync() }
