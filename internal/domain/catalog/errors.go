package catalog

import "errors"

var ErrExamNotFound = errors.New("exam not found")
