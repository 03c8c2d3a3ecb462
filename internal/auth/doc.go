// Package auth proves who is calling the API: bcrypt password hashing,
// stateless signed identity tokens, and the request-context binding the
// auth middleware uses to hand the verified identity to handlers.
package auth
