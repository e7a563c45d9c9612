// Package logging is the shared structured logger for the lamp daemon,
// a thin wrapper over log/slog.
//
// One Logger is built at startup from the logging section of
// config.yaml and handed to every component; components tag their
// records by deriving children:
//
//	log := logging.New(cfg.Logging, version)
//	engineLog := log.With("component", "engine")
//	engineLog.Info("frame flushed", "seq", seq, "cells", len(cells))
//
// Records default to JSON on stdout so a supervised lamp's output can
// be shipped straight to an aggregator; the text format exists for
// watching a lamp from a terminal during development:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Every record carries service and version attributes so logs from a
// fleet stay attributable. Before configuration is loaded the process
// uses Default, a JSON logger at info level.
//
// Broker credentials and API tokens must never reach a record; log a
// redacted prefix when attribution is needed.
package logging
