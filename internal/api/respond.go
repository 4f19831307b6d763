package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Inspirimental/addonware-web-sub000/internal/logger"
	"github.com/Inspirimental/addonware-web-sub000/internal/middleware"
	"github.com/Inspirimental/addonware-web-sub000/internal/services"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type errorBody struct {
	Error string `json:"error"`
	State string `json:"state,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// decodeJSON reads one JSON object into dst and runs its validate tags.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return services.NewInvalidError("request body required")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return services.NewInvalidError("request body too large")
		}
		return services.NewInvalidError("invalid JSON body")
	}
	if err := validate.Struct(dst); err != nil {
		return services.NewInvalidError(validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return fmt.Sprintf("%s is invalid", field)
}

func statusFor(code services.ErrorCode) int {
	switch code {
	case services.ErrorInvalid:
		return http.StatusBadRequest
	case services.ErrorUnauthorized:
		return http.StatusUnauthorized
	case services.ErrorForbidden:
		return http.StatusForbidden
	case services.ErrorNotFound:
		return http.StatusNotFound
	case services.ErrorConflict:
		return http.StatusConflict
	case services.ErrorGone:
		return http.StatusGone
	case services.ErrorBadGateway:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeServiceError maps typed service errors to their status; anything else
// is logged and answered with a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	if se, ok := services.AsServiceError(err); ok {
		writeError(w, statusFor(se.Code), se.Message)
		return
	}
	log.WithRequestID(middleware.RequestIDFromContext(r.Context())).WithError(err).Error("request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}
