// Package collabauth implements the device-side authentication core for the
// ProHub researcher collaboration network: credential resolution against a
// local registration store and a remote user directory, OAuth2 sign-in
// against academic identity providers, and process-wide session state.
//
// # Architecture
//
// Components are plain structs wired together by the caller (no globals):
//
//	SessionContext ──► Service ──► Resolver ──► RegistrationStore (local, writable)
//	                      │                └──► UserSource        (remote, read-only)
//	                      ├──► CredentialStore  (persisted token + user snapshot)
//	                      └──► oauth2.Exchange  (per-provider authorization-code flow)
//
// The Resolver tries backends in order and stops at the first one that knows
// the email, which makes the local-before-remote precedence rule explicit.
//
// # Session tokens
//
// A session token is an opaque SHA-256 digest over the authenticated user's
// id, email, a timestamp and a random nonce. Tokens are never validated
// against a server: a stored token is treated as a live session until
// Logout is called. This mirrors the deployed behavior of the mobile app
// and is intentional; see Service.ResolveSession.
//
// Storage backends live in stores/fs (JSON files, atomic writes),
// stores/sqlite (embedded database) and stores/gorm (bring your own
// *gorm.DB). The remote directory client lives in directory.
package collabauth
