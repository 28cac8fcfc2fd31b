package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agendahof/internal/model"
)

type fakeCatalog struct {
	patients []model.Patient
	procs    []model.Procedure
	listErr  error
}

func (f *fakeCatalog) CreatePatient(_ context.Context, p *model.Patient) (uuid.UUID, error) {
	id := uuid.New()
	c := *p
	c.ID = id
	f.patients = append(f.patients, c)
	return id, nil
}

func (f *fakeCatalog) ListPatients(_ context.Context) ([]model.Patient, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.patients, nil
}

func (f *fakeCatalog) CreateProcedure(_ context.Context, p *model.Procedure) (uuid.UUID, error) {
	id := uuid.New()
	c := *p
	c.ID = id
	f.procs = append(f.procs, c)
	return id, nil
}

func (f *fakeCatalog) ListProcedures(_ context.Context) ([]model.Procedure, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.procs, nil
}

func TestListPatients_MaskedLabels(t *testing.T) {
	cat := &fakeCatalog{patients: []model.Patient{{
		ID:    uuid.New(),
		Name:  "Maria Silva",
		Phone: "11987654321",
		CPF:   "12345678909",
	}}}
	s := NewServer(testConfig(), &fakeStore{}, cat, nil, true)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/patients", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Patients []patientDTO `json:"patients"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Patients, 1)
	assert.Equal(t, "Maria Silva", resp.Patients[0].Name)
	assert.Equal(t, "(11) 98765-4321", resp.Patients[0].PhoneLabel)
	assert.Equal(t, "123.456.789-09", resp.Patients[0].CPFLabel)
}

func TestCreatePatient(t *testing.T) {
	cat := &fakeCatalog{}
	s := NewServer(testConfig(), &fakeStore{}, cat, nil, true)

	body := `{"name":"João Souza","phone":"1133334444"}`
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/patients", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, cat.patients, 1)
	assert.Equal(t, "João Souza", cat.patients[0].Name)
}

func TestCreatePatient_RequiresName(t *testing.T) {
	s := NewServer(testConfig(), &fakeStore{}, &fakeCatalog{}, nil, true)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/patients", strings.NewReader(`{"phone":"1133334444"}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListProcedures_PriceAndDurationLabels(t *testing.T) {
	cat := &fakeCatalog{procs: []model.Procedure{{
		ID:              uuid.New(),
		Name:            "Limpeza de pele",
		PriceCents:      123456,
		DurationMinutes: 90,
		CreatedAt:       time.Now(),
	}}}
	s := NewServer(testConfig(), &fakeStore{}, cat, nil, true)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/procedures", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Procedures []procedureDTO `json:"procedures"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Procedures, 1)
	assert.Equal(t, "R$ 1.234,56", resp.Procedures[0].PriceLabel)
	assert.Equal(t, "1h30", resp.Procedures[0].DurationLabel)
}

func TestCreateProcedure_RejectsBadValues(t *testing.T) {
	s := NewServer(testConfig(), &fakeStore{}, &fakeCatalog{}, nil, true)

	for _, body := range []string{
		`{"price_cents":1000,"duration_minutes":30}`,
		`{"name":"x","price_cents":-1,"duration_minutes":30}`,
		`{"name":"x","price_cents":1000,"duration_minutes":0}`,
	} {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/procedures", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestCatalogUnavailable(t *testing.T) {
	s := NewServer(testConfig(), &fakeStore{}, nil, nil, true)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/patients", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/procedures", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
