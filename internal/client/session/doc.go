// Package session is the authoritative model of "who is logged in, with
// what token, until when".
//
// State is a value; Reduce is a pure function from (State, Event) to State;
// Machine is the single-writer container that applies events, serializes
// them and notifies subscribers with every committed state. Side effects
// such as storage writes and network calls live in the caller and happen
// around a Dispatch, never inside it.
//
// Invariants maintained by Reduce for every reachable state:
//
//	IsAuthenticated == (User != nil && AccessToken != "" && RefreshToken != "")
//	!SessionExpiry.IsZero() == IsAuthenticated
//	(Status == Authenticated) == IsAuthenticated
package session
