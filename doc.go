// Package registration implements the SCIONLab portal account workflow:
// sign-up, activation e-mail, activation link consumption and the login gate
// that keeps inactive accounts out.
//
// Account lifecycle:
//   - Users are created in the pending status and carry a single-use
//     ActivationKey. UserStateMachine owns the pending -> active transition
//     and publishes lifecycle events to the configured ActivitySink.
//   - ActivateAccountHandler consumes a key exactly once. Re-using a consumed
//     key, an unknown key or an expired key yields ErrAlreadyActivated,
//     ErrActivationKeyInvalid or ErrActivationKeyExpired.
//
// HTTP surface:
//   - RegisterRoutes mounts the controller on a Fiber app using an explicit
//     RouteTable; views are rendered by the Django template engine from the
//     views package.
//   - Sessions are HS256 JWTs stored in an HTTP-only cookie and validated by
//     the jwtware middleware on protected routes.
package registration
