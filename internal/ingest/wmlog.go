// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package ingest

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// watermillLogger adapts zerolog to watermill.LoggerAdapter so the
// NATS transport logs through the same structured pipeline.
type watermillLogger struct {
	logger zerolog.Logger
}

func newWatermillLogger(logger zerolog.Logger) watermill.LoggerAdapter {
	return &watermillLogger{logger: logger.With().Str("component", "watermill").Logger()}
}

func (l *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.event(l.logger.Error().Err(err), fields).Msg(msg)
}

func (l *watermillLogger) Info(msg string, fields watermill.LogFields) {
	l.event(l.logger.Info(), fields).Msg(msg)
}

func (l *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.event(l.logger.Debug(), fields).Msg(msg)
}

func (l *watermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.event(l.logger.Trace(), fields).Msg(msg)
}

func (l *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	logger := l.logger
	for k, v := range fields {
		logger = logger.With().Interface(k, v).Logger()
	}
	return &watermillLogger{logger: logger}
}

func (l *watermillLogger) event(e *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	return e
}
