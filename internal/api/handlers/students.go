package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	cursor "github.com/lamitie/server/internal/api/pagination"
	"github.com/lamitie/server/internal/api/problem"
	"github.com/lamitie/server/internal/domain/students"
	"github.com/lamitie/server/internal/metrics"
)

type StudentsHandler struct {
	Service *students.Service
	Env     string
}

func NewStudentsHandler(service *students.Service, env string) *StudentsHandler {
	return &StudentsHandler{Service: service, Env: env}
}

type registerRequest struct {
	IndexNumber  string `json:"index_number" validate:"required,max=64"`
	Email        string `json:"email" validate:"required,email,max=254"`
	Name         string `json:"name" validate:"required,max=200"`
	Combination  string `json:"combination" validate:"required,max=200"`
	MobileNumber string `json:"mobile_number" validate:"omitempty,max=32"`
}

type studentResponse struct {
	ID           string `json:"id"`
	IndexNumber  string `json:"index_number"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Combination  string `json:"combination"`
	MobileNumber string `json:"mobile_number,omitempty"`
	Attended     bool   `json:"attended"`
	RegisteredAt string `json:"registered_at"`
	UpdatedAt    string `json:"updated_at"`
}

func toStudentResponse(s students.Student) studentResponse {
	return studentResponse{
		ID:           s.ULID,
		IndexNumber:  s.IndexNumber,
		Email:        s.Email,
		Name:         s.Name,
		Combination:  s.Combination,
		MobileNumber: s.MobileNumber,
		Attended:     s.Attended,
		RegisteredAt: s.RegisteredAt.UTC().Format(time.RFC3339),
		UpdatedAt:    s.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// Register handles POST /api/v1/register.
func (h *StudentsHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server error", nil, h.Env)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	if err := validate.Struct(req); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		writeValidationProblem(w, r, err, h.Env)
		return
	}

	student, err := h.Service.Register(r.Context(), students.RegisterParams{
		IndexNumber:  req.IndexNumber,
		Email:        req.Email,
		Name:         req.Name,
		Combination:  req.Combination,
		MobileNumber: req.MobileNumber,
	})
	if err != nil {
		var fieldErr students.FieldError
		switch {
		case errors.Is(err, students.ErrDuplicate):
			metrics.RegistrationsTotal.WithLabelValues("duplicate").Inc()
			problem.Write(w, r, http.StatusConflict, problem.TypeDuplicate, "Already registered", err, h.Env)
		case errors.As(err, &fieldErr):
			metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env,
				problem.WithErrors(map[string]interface{}{fieldErr.Field: fieldErr.Message}))
		default:
			metrics.RegistrationsTotal.WithLabelValues("error").Inc()
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server error", err, h.Env)
		}
		return
	}

	metrics.RegistrationsTotal.WithLabelValues("created").Inc()
	writeJSON(w, http.StatusCreated, toStudentResponse(student))
}

// Update handles PUT /api/v1/students/{index_number}.
func (h *StudentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server error", nil, h.Env)
		return
	}

	indexNumber := pathParam(r, "index_number")
	if indexNumber == "" {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", students.FieldError{Field: "index_number", Message: "missing"}, h.Env)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationProblem(w, r, err, h.Env)
		return
	}

	student, err := h.Service.UpdateProfile(r.Context(), indexNumber, students.UpdateParams{
		IndexNumber:  req.IndexNumber,
		Email:        req.Email,
		Name:         req.Name,
		Combination:  req.Combination,
		MobileNumber: req.MobileNumber,
	})
	if err != nil {
		var fieldErr students.FieldError
		switch {
		case errors.Is(err, students.ErrNotFound):
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, h.Env)
		case errors.Is(err, students.ErrDuplicate):
			problem.Write(w, r, http.StatusConflict, problem.TypeDuplicate, "Already registered", err, h.Env)
		case errors.As(err, &fieldErr):
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env,
				problem.WithErrors(map[string]interface{}{fieldErr.Field: fieldErr.Message}))
		default:
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server error", err, h.Env)
		}
		return
	}

	writeJSON(w, http.StatusOK, toStudentResponse(student))
}

type scanRequest struct {
	IndexNumber string `json:"index_number" validate:"required,max=64"`
}

type scanResponse struct {
	StudentName    string `json:"student_name"`
	IndexNumber    string `json:"index_number"`
	AlreadyScanned bool   `json:"already_scanned"`
}

// Scan handles POST /api/v1/scan. The payload carries the index number
// decoded from a ticket QR code. Re-scanning the same ticket is reported,
// not rejected.
func (h *StudentsHandler) Scan(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server error", nil, h.Env)
		return
	}

	var req scanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		metrics.ScansTotal.WithLabelValues("error").Inc()
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	if err := validate.Struct(req); err != nil {
		metrics.ScansTotal.WithLabelValues("error").Inc()
		writeValidationProblem(w, r, err, h.Env)
		return
	}

	student, alreadyScanned, err := h.Service.Scan(r.Context(), req.IndexNumber)
	if err != nil {
		if errors.Is(err, students.ErrNotFound) {
			metrics.ScansTotal.WithLabelValues("not_found").Inc()
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Unknown ticket", err, h.Env)
			return
		}
		metrics.ScansTotal.WithLabelValues("error").Inc()
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server error", err, h.Env)
		return
	}

	if alreadyScanned {
		metrics.ScansTotal.WithLabelValues("already_scanned").Inc()
	} else {
		metrics.ScansTotal.WithLabelValues("attended").Inc()
	}

	writeJSON(w, http.StatusOK, scanResponse{
		StudentName:    student.Name,
		IndexNumber:    student.IndexNumber,
		AlreadyScanned: alreadyScanned,
	})
}

// Get handles GET /api/v1/students/{index_number} (admin only).
func (h *StudentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server error", nil, h.Env)
		return
	}

	indexNumber := pathParam(r, "index_number")
	if indexNumber == "" {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", students.FieldError{Field: "index_number", Message: "missing"}, h.Env)
		return
	}

	student, err := h.Service.Get(r.Context(), indexNumber)
	if err != nil {
		if errors.Is(err, students.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, toStudentResponse(student))
}

type listStudentsResponse struct {
	Items      []studentResponse `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

const maxListLimit = 200

// List handles GET /api/v1/students (admin only). Results are cursor
// paginated, newest registration first.
func (h *StudentsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server error", nil, h.Env)
		return
	}

	pagination := students.Pagination{After: r.URL.Query().Get("cursor")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxListLimit {
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", students.FieldError{Field: "limit", Message: "must be between 1 and 200"}, h.Env)
			return
		}
		pagination.Limit = limit
	}

	result, err := h.Service.List(r.Context(), pagination)
	if err != nil {
		if errors.Is(err, cursor.ErrInvalidCursor) {
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid cursor", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server error", err, h.Env)
		return
	}

	items := make([]studentResponse, 0, len(result.Students))
	for _, student := range result.Students {
		items = append(items, toStudentResponse(student))
	}
	writeJSON(w, http.StatusOK, listStudentsResponse{Items: items, NextCursor: result.NextCursor})
}
