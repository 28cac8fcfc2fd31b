package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"agendahof/internal/format"
	appLog "agendahof/internal/log"
	"agendahof/internal/model"
)

// CatalogStore is the slice of the catalog repository the HTTP layer
// needs. internal/store satisfies it; tests plug in a fake.
type CatalogStore interface {
	CreatePatient(ctx context.Context, p *model.Patient) (uuid.UUID, error)
	ListPatients(ctx context.Context) ([]model.Patient, error)
	CreateProcedure(ctx context.Context, p *model.Procedure) (uuid.UUID, error)
	ListProcedures(ctx context.Context) ([]model.Procedure, error)
}

// patientDTO carries masked presentation fields next to the raw ones so
// the UI never re-implements the pt-BR masks.
type patientDTO struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone,omitempty"`
	PhoneLabel string    `json:"phone_label,omitempty"`
	CPF        string    `json:"cpf,omitempty"`
	CPFLabel   string    `json:"cpf_label,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toPatientDTO(p model.Patient) patientDTO {
	dto := patientDTO{
		ID:        p.ID.String(),
		Name:      p.Name,
		Phone:     p.Phone,
		CPF:       p.CPF,
		CreatedAt: p.CreatedAt,
	}
	if p.Phone != "" {
		dto.PhoneLabel = format.Phone(p.Phone)
	}
	if p.CPF != "" {
		dto.CPFLabel = format.CPF(p.CPF)
	}
	return dto
}

type procedureDTO struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	PriceCents      int64     `json:"price_cents"`
	PriceLabel      string    `json:"price_label"`
	DurationMinutes int       `json:"duration_minutes"`
	DurationLabel   string    `json:"duration_label"`
	CreatedAt       time.Time `json:"created_at"`
}

func toProcedureDTO(p model.Procedure) procedureDTO {
	return procedureDTO{
		ID:              p.ID.String(),
		Name:            p.Name,
		PriceCents:      p.PriceCents,
		PriceLabel:      format.Currency(p.PriceCents),
		DurationMinutes: p.DurationMinutes,
		DurationLabel:   format.DurationLabel(time.Duration(p.DurationMinutes) * time.Minute),
		CreatedAt:       p.CreatedAt,
	}
}

// handlePatients lists patients (GET) or registers one (POST).
func (s *Server) handlePatients(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog unavailable")
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.listPatients(w, r)
	case http.MethodPost:
		s.createPatient(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := s.catalog.ListPatients(r.Context())
	if err != nil {
		appLog.Error("patient list failed", err)
		writeError(w, http.StatusInternalServerError, "failed to list patients")
		return
	}

	dtos := make([]patientDTO, 0, len(patients))
	for _, p := range patients {
		dtos = append(dtos, toPatientDTO(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"patients": dtos})
}

type createPatientRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	CPF   string `json:"cpf"`
}

func (req createPatientRequest) toModel() (model.Patient, error) {
	if req.Name == "" {
		return model.Patient{}, errors.New("name is required")
	}
	return model.Patient{Name: req.Name, Phone: req.Phone, CPF: req.CPF}, nil
}

func (s *Server) createPatient(w http.ResponseWriter, r *http.Request) {
	var req createPatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	patient, err := req.toModel()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.catalog.CreatePatient(r.Context(), &patient)
	if err != nil {
		appLog.Error("patient create failed", err)
		writeError(w, http.StatusInternalServerError, "failed to create patient")
		return
	}
	patient.ID = id

	appLog.Info("patient created", "id", id)
	writeJSON(w, http.StatusCreated, toPatientDTO(patient))
}

// handleProcedures lists the procedure catalog (GET) or adds an entry
// (POST).
func (s *Server) handleProcedures(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog unavailable")
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.listProcedures(w, r)
	case http.MethodPost:
		s.createProcedure(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listProcedures(w http.ResponseWriter, r *http.Request) {
	procs, err := s.catalog.ListProcedures(r.Context())
	if err != nil {
		appLog.Error("procedure list failed", err)
		writeError(w, http.StatusInternalServerError, "failed to list procedures")
		return
	}

	dtos := make([]procedureDTO, 0, len(procs))
	for _, p := range procs {
		dtos = append(dtos, toProcedureDTO(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"procedures": dtos})
}

type createProcedureRequest struct {
	Name            string `json:"name"`
	PriceCents      int64  `json:"price_cents"`
	DurationMinutes int    `json:"duration_minutes"`
}

func (req createProcedureRequest) toModel() (model.Procedure, error) {
	if req.Name == "" {
		return model.Procedure{}, errors.New("name is required")
	}
	if req.PriceCents < 0 {
		return model.Procedure{}, errors.New("price_cents must not be negative")
	}
	if req.DurationMinutes <= 0 {
		return model.Procedure{}, errors.New("duration_minutes must be positive")
	}
	return model.Procedure{
		Name:            req.Name,
		PriceCents:      req.PriceCents,
		DurationMinutes: req.DurationMinutes,
	}, nil
}

func (s *Server) createProcedure(w http.ResponseWriter, r *http.Request) {
	var req createProcedureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	proc, err := req.toModel()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.catalog.CreateProcedure(r.Context(), &proc)
	if err != nil {
		appLog.Error("procedure create failed", err)
		writeError(w, http.StatusInternalServerError, "failed to create procedure")
		return
	}
	proc.ID = id

	appLog.Info("procedure created", "id", id)
	writeJSON(w, http.StatusCreated, toProcedureDTO(proc))
}
