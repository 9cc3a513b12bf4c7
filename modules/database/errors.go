package database

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/majordome-go/majordome"
)

const errPrefix = "errors.db.sql."

// ErrNotFoundExpectedOne is returned by ExpectOne when no row matched.
func ErrNotFoundExpectedOne(entity string) *majordome.Error {
	return majordome.NewError(
		errPrefix+"not_found",
		fmt.Sprintf("%s not found", entity),
		http.StatusNotFound,
		entity,
	)
}

// ErrTooManyResultsExpectedOne is returned by ExpectOne when several rows
// matched.
func ErrTooManyResultsExpectedOne(entity string, count int) *majordome.Error {
	return majordome.NewError(
		errPrefix+"too_many_results",
		fmt.Sprintf("Too many %s, expected one but found %d.", entity, count),
		http.StatusInternalServerError,
		entity, strconv.Itoa(count),
	)
}
