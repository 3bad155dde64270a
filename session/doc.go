// Package session is the client-side session lifecycle: credential checks, token
// issue and renewal, the expiry and inactivity tracks, and logout with redirect.
//
// One Manager serves one kind of actor. The portal runs two of them, admin users
// and FabLab members, which differ only in their Policy. All storage access goes
// through the Manager; nothing else reads or writes the session keys.
//
// A Manager moves between two states: Anonymous and Authenticated. Login enters
// Authenticated. Logout, detected expiry or inactivity, and an authorization
// failure reported by an HTTP client return it to Anonymous. Token refresh
// replaces the token and expiry in place without an intermediate state.
package session
