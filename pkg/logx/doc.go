// Package logx configures js8bulletin's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured and rotated (lumberjack)
//   - An observer sink that mirrors log lines to the presentation layer
//   - Optional remote notice sink (Telegram; min-level + rate limiting)
package logx
