package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// IsDuplicateKeyError reports whether err came from a unique-constraint
// violation. Both production (mysql) and test (sqlite) drivers are covered;
// the string checks stay because the drivers pin gorm versions that do not
// translate every violation to gorm.ErrDuplicatedKey.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
