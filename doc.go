// Package auth is a pluggable authentication core: given swappable user
// storage, session storage, and a credential issuing strategy, it
// orchestrates signup, login, logout and current-caller resolution with
// consistent validation and error semantics.
//
// The package is meant to be embedded inside an HTTP service without
// dictating persistence technology or transport framework. Collaborators
// plug in through the UserStore, SessionStore and AuthStrategy interfaces;
// JWTStrategy (cookie or bearer transport), MemorySessionStore and
// RedisSessionStore ship as reference implementations, and bunstore
// provides a SQL backed UserStore.
package auth
