// Package authcore is the credential and verification-code engine behind an
// admin dashboard: it issues session tokens on login and drives the two
// time-boxed, single-use verification workflows (account registration and
// password recovery), each guarded by a 6-digit one-time code.
//
// Verification codes:
//   - CodeStore holds at most one pending entry per email. Issuing a new code
//     unconditionally replaces the prior one, entries expire ten minutes after
//     issuance, and a successful check consumes the entry. Put and Verify are
//     mutually exclusive per email, so a resend cannot invalidate a check
//     mid-flight.
//   - Codes leave the engine only through a CodeSender; callers receive a
//     generic acknowledgment, never the code.
//
// Flows:
//   - Registration is two-phase: RequestRegistration parks the pending fields
//     behind a code, ConfirmRegistration consumes the code, creates the
//     account, and logs the user in.
//   - Password reset is three-phase: the confirmed code is spent immediately
//     and replaced by a short-lived verified ticket, which ResetPassword
//     consumes exactly once. A leaked code cannot be replayed after the flow
//     completes.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter describing login, logout,
//     registration, and reset events. Sinks run best-effort (errors are
//     logged) so you can forward to a database or queue without blocking
//     authentication.
package authcore
