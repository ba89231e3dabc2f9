package db

import "gorm.io/gorm"

// ErrRecordNotFound is re-exported so services need not import gorm.
var ErrRecordNotFound = gorm.ErrRecordNotFound
