package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lamitie/server/internal/api/problem"
)

// maxBodyBytes bounds registration payloads. Nothing the frontend sends
// legitimately approaches this.
const maxBodyBytes = 1 << 20

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func pathParam(r *http.Request, key string) string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.PathValue(key))
}

// validationErrors flattens validator output into the problem errors map.
func validationErrors(err error) map[string]interface{} {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]interface{}, len(verrs))
	for _, fieldErr := range verrs {
		field := fieldErr.Field()
		if name := fieldNames[field]; name != "" {
			field = name
		}
		switch fieldErr.Tag() {
		case "required":
			out[field] = "is required"
		case "email":
			out[field] = "must be a valid email address"
		case "max":
			out[field] = "exceeds maximum length of " + fieldErr.Param()
		default:
			out[field] = "is invalid"
		}
	}
	return out
}

// fieldNames maps Go struct field names to their wire names for error
// reporting.
var fieldNames = map[string]string{
	"IndexNumber":  "index_number",
	"Email":        "email",
	"Name":         "name",
	"Combination":  "combination",
	"MobileNumber": "mobile_number",
	"Password":     "password",
	"Limit":        "limit",
}

func writeValidationProblem(w http.ResponseWriter, r *http.Request, err error, env string) {
	opts := []problem.Option{}
	if errs := validationErrors(err); errs != nil {
		opts = append(opts, problem.WithErrors(errs))
	}
	problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, env, opts...)
}
