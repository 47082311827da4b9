package domain

import "errors"

// ErrDuplicateURL is returned when an article with the same URL is already stored.
var ErrDuplicateURL = errors.New("article url already exists")
