package drug

import "errors"

var ErrPrescriptionNotFound = errors.New("drug prescription not found")
