package resolution

import "errors"

// ErrExamNotFound distinguishes "this exam does not exist" from the
// unavailable price result, which means "no price is configured for you".
var ErrExamNotFound = errors.New("exam not found")
