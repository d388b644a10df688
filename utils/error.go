package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

// ErrorImportLocked is returned when another import batch holds the advisory lock.
var ErrorImportLocked = errors.New("another import is already running")
