package database

import "errors"

var errNotFound = errors.New("database: key not found")
