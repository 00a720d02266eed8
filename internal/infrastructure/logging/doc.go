// Package logging provides structured logging for the panel backend.
//
// It is a thin wrapper over log/slog: every record carries the service
// name and version, output is JSON in production and text in
// development, and levels filter per config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Components derive their own logger once and tag themselves:
//
//	log := logger.With("component", "collector")
//	log.Info("vm sample stored", "vmid", 101)
//
// Never log secrets: JWT secrets, Proxmox token secrets, and gateway
// passwords stay out of log fields.
package logging
