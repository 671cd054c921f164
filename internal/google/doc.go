// Package google provides the Google side of the pimsync tools: OAuth
// credential handling and a Calendar client used as the sync target.
//
// Credentials come from a JSON config file holding the OAuth client ID,
// secret, scopes and the refresh token; the token is refreshed
// transparently and persisted back to the same file when Google rotates it.
// The interactive authorization flow (pimsync auth google) fills in the
// refresh token initially.
//
// The Calendar client only ever sees events it created itself: managed
// events carry a private extended property marker, and listing filters on
// that marker server-side, so user-created events are invisible to the
// reconciler and never modified or deleted.
package google
