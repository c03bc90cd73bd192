// Package cli provides the gpgcloud command-line tool.
//
// It wires configuration, the local metadata store, the configured storage
// backends and the sync engine behind a small set of subcommands:
//
//   - backup: encrypt a file or directory tree and upload it
//   - restore: download, verify and decrypt an object
//   - list: show tracked objects and their sync states
//   - remove: tombstone an object and best-effort delete its remote copy
//   - reconcile: diff local records against a backend's live listing
//
// Commands run via App.Run(ctx, args), which returns the process exit code.
package cli
