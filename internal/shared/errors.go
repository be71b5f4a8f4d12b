package shared

import "errors"

// ErrInvalidCredentials indicates login failure. It deliberately covers both
// the unknown-email and wrong-password cases.
var ErrInvalidCredentials = errors.New("invalid credentials")
