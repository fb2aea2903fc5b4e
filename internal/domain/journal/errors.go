package journal

import "errors"

var ErrEntryNotFound = errors.New("journal entry not found")
