// Package auth manages the user's hosted-auth session.
//
// Manager talks to a GoTrue-compatible REST endpoint for sign in, sign up,
// token refresh, logout, and password recovery. Sessions persist to a JSON
// file guarded by an advisory file lock so concurrent CLI invocations share
// one refresh token. Manager satisfies apiclient.SessionProvider: Token
// yields the current access token (refreshing it when the JWT exp claim is
// within the configured leeway) and SignOut tears the session down after a
// 401.
package auth
