// Package authz implements the role-based authorization policy as pure
// decision functions. It performs no I/O: callers load the target resource
// and pass it in together with the acting identity.
//
// Decisions are values, never errors. A denial carries a reason so the
// transport can tell a capability gap from a tenancy violation. Unknown
// roles or actions are programming errors and panic.
package authz
