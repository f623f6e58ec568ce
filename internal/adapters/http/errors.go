package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	rosterStore "directory/internal/adapters/storage/roster"
	"directory/internal/application/orchestrators"
	"directory/internal/domain/filter"
	domainRoster "directory/internal/domain/roster"
	domainSettings "directory/internal/domain/settings"
)

type errUnknownTemplate string

func (e errUnknownTemplate) Error() string {
	return fmt.Sprintf("unknown template %q", string(e))
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// statusFor maps domain errors to HTTP statuses. Unrecognised errors are 500.
func statusFor(err error) int {
	var (
		notFound  *domainRoster.NotFoundError
		unknown   *domainRoster.UnknownFieldError
		malformed *domainRoster.MalformedRowError
		source    *domainRoster.DataSourceError
		invalid   validator.ValidationErrors
	)
	switch {
	case errors.Is(err, orchestrators.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, domainRoster.ErrNotLoaded):
		return http.StatusServiceUnavailable
	case errors.Is(err, rosterStore.ErrReadOnly):
		return http.StatusConflict
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &unknown), errors.As(err, &malformed), errors.As(err, &invalid),
		errors.Is(err, orchestrators.ErrNoIdentity), errors.Is(err, domainSettings.ErrInvalid),
		errors.Is(err, filter.ErrUnknownFilter):
		return http.StatusBadRequest
	case errors.As(err, &source):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError answers with the mapped status. 5xx bodies never carry error details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch {
	case status == http.StatusInternalServerError:
		internalError(w, err)
		return
	case status == http.StatusBadGateway:
		slog.Error("roster_source_error", "path", r.URL.Path, "error", err.Error())
		msg = "the staff roster could not be reached"
	case status == http.StatusServiceUnavailable:
		msg = "the staff roster has not been loaded yet"
	case status == http.StatusForbidden:
		msg = "access denied"
	}
	if isJSONRequest(r) || wantsJSON(r) {
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}
	http.Error(w, msg, status)
}

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}
