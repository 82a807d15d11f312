// Package auth signs library staff in and guards the librarian desk.
//
// Sessions are cookie based (scs, stored in the application database). Each
// request with a session is resolved once into a Principal holding the user id,
// external user code, role and library, which handlers read with GetPrincipal.
// Route access is decided by an Authorizer (see package authz).
//
// Every state-changing request is CSRF protected. Forms send the token in the
// csrf_token field, AJAX calls in the X-CSRF-Token header.
//
// Members receive a one-time setup link by email. Only the SHA-256 of the token
// is stored; following the link lets them choose a password and activates the
// account.
package auth
