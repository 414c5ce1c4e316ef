// Package cookie signs session identifiers into cookie values and applies the
// cookie naming and attribute policy.
//
// A cookie value is a compact HS256 JWS whose "sid" claim carries the session
// id and whose issuer is the cookie name, so a value minted for one
// environment's cookie does not verify under another. The store remains the
// authority on whether the session exists.
package cookie
