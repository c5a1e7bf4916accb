// Package cli provides the interactive SessionKeeper command-line client.
//
// It wires configuration, the credential store, the identity service client,
// the session controller and its expiry timer, and runs a REPL on top of
// them. The saved session is restored at start-up; expiry warnings are
// printed as they happen and 'extend' keeps the session alive.
//
// Commands:
//   - register / login / logout
//   - status / whoami / profile
//   - refresh / extend
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
