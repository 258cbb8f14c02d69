package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// OccurrenceQuery pages through occurrences.
type OccurrenceQuery struct {
	PageIndex int `validate:"gte=0"`
	PageSize  int `validate:"gte=1,lte=100"`
}

// NewOccurrence is the body of an occurrence creation.
type NewOccurrence struct {
	Titulo     string `json:"titulo" validate:"required"`
	Descricao  string `json:"descricao,omitempty"`
	Prioridade *int   `json:"prioridade,omitempty"`
}

// NewCorrection is the body of a correction creation.
type NewCorrection struct {
	OcorrenciaID string `json:"ocorrenciaId" validate:"required"`
	Descricao    string `json:"descricao" validate:"required"`
	TipoID       *int   `json:"tipoId,omitempty"`
}

// ActivityKind selects one of the activity listings.
type ActivityKind string

const (
	ActivitiesList        ActivityKind = "list"
	ActivitiesPlan        ActivityKind = "plano"
	ActivitiesApplication ActivityKind = "aplicacao"
)

// ParseActivityKind accepts list, plano or aplicacao.
func ParseActivityKind(s string) (ActivityKind, error) {
	switch ActivityKind(strings.ToLower(strings.TrimSpace(s))) {
	case ActivitiesList, "":
		return ActivitiesList, nil
	case ActivitiesPlan:
		return ActivitiesPlan, nil
	case ActivitiesApplication:
		return ActivitiesApplication, nil
	default:
		return "", fmt.Errorf("unknown activity listing %q (want list, plano or aplicacao)", s)
	}
}

func (k ActivityKind) path() string {
	switch k {
	case ActivitiesPlan:
		return "/v1/atividades/plano"
	case ActivitiesApplication:
		return "/v1/atividades/aplicacao"
	default:
		return "/v1/atividades"
	}
}

// ActivityQuery filters an activity listing. SelectedDate is YYYY-MM-DD.
type ActivityQuery struct {
	StatusID     int    `validate:"gte=0"`
	SelectedDate string `validate:"required,datetime=2006-01-02"`
}

// DefaultPlatform is the platform code recorded on settlements.
const DefaultPlatform = 8

// Settlement is the body of a write-off (baixa). A zero Plataforma is sent
// as DefaultPlatform.
type Settlement struct {
	TarefasIDs    []string `json:"tarefasIds" validate:"min=1,dive,required"`
	SiteID        string   `json:"siteId" validate:"required"`
	DataRealizada string   `json:"dataRealizada" validate:"required"`
	TempoTotal    float64  `json:"tempoTotal" validate:"gte=0"`
	Plataforma    int      `json:"plataforma"`
	StatusID      int      `json:"statusId" validate:"gte=0"`
	Observacoes   string   `json:"observacoes,omitempty"`
}

// MeasurementBatch posts measurements for a set of tasks. Medicoes must be
// a JSON array.
type MeasurementBatch struct {
	TarefasIDs []string        `json:"tarefasIds" validate:"min=1,dive,required"`
	Medicoes   json.RawMessage `json:"medicoes"`
}

// ListOccurrences lists occurrences of the configured company.
func (c *Client) ListOccurrences(ctx context.Context, q OccurrenceQuery) (*Result, error) {
	const op = "list occurrences"
	if err := c.validateInput(op, q); err != nil {
		return nil, err
	}
	st := c.session.Snapshot()
	return c.Call(ctx, RequestSpec{
		Operation: op,
		Method:    http.MethodGet,
		Path:      "/v1/ocorrencias",
		Headers:   map[string]string{HeaderEmpresaID: st.EmpresaID},
		Query:     map[string]any{"PageIndex": q.PageIndex, "PageSize": q.PageSize},
		Require:   []string{HeaderEmpresaID},
	})
}

// CreateOccurrence creates an occurrence in the configured company and unit.
func (c *Client) CreateOccurrence(ctx context.Context, in NewOccurrence) (*Result, error) {
	const op = "create occurrence"
	if err := c.validateInput(op, in); err != nil {
		return nil, err
	}
	st := c.session.Snapshot()
	return c.Call(ctx, RequestSpec{
		Operation: op,
		Method:    http.MethodPost,
		Path:      "/v1/ocorrencias",
		Headers:   map[string]string{HeaderEmpresaID: st.EmpresaID, HeaderUnidadeID: st.UnidadeID},
		Data:      in,
		Require:   []string{HeaderEmpresaID, HeaderUnidadeID},
	})
}

// ListCorrections lists the corrections of an occurrence.
func (c *Client) ListCorrections(ctx context.Context, ocorrenciaID string) (*Result, error) {
	const op = "list corrections"
	if strings.TrimSpace(ocorrenciaID) == "" {
		return nil, &InputError{Operation: op, Err: errors.New("ocorrenciaId is required")}
	}
	st := c.session.Snapshot()
	return c.Call(ctx, RequestSpec{
		Operation: op,
		Method:    http.MethodGet,
		Path:      "/v1/correcoes",
		Query:     map[string]any{"ocorrenciaId": ocorrenciaID, HeaderEmpresaID: st.EmpresaID},
		Require:   []string{HeaderEmpresaID},
	})
}

// CorrectionToEdit fetches a correction in its editable form.
func (c *Client) CorrectionToEdit(ctx context.Context, correcaoID string) (*Result, error) {
	const op = "get correction to edit"
	if strings.TrimSpace(correcaoID) == "" {
		return nil, &InputError{Operation: op, Err: errors.New("correcaoId is required")}
	}
	st := c.session.Snapshot()
	return c.Call(ctx, RequestSpec{
		Operation: op,
		Method:    http.MethodGet,
		Path:      "/v1/correcoes/" + url.PathEscape(correcaoID) + "/toedit",
		Headers:   map[string]string{HeaderEmpresaID: st.EmpresaID},
		Query:     map[string]any{HeaderEmpresaID: st.EmpresaID},
		Require:   []string{HeaderEmpresaID},
	})
}

// CorrectionTypes lists the correction types of the configured company.
func (c *Client) CorrectionTypes(ctx context.Context) (*Result, error) {
	st := c.session.Snapshot()
	return c.Call(ctx, RequestSpec{
		Operation: "list correction types",
		Method:    http.MethodGet,
		Path:      "/v1/correcoes/tipos",
		Headers:   map[string]string{HeaderEmpresaID: st.EmpresaID},
		Require:   []string{HeaderEmpresaID},
	})
}

// CreateCorrection creates a correction.
func (c *Client) CreateCorrection(ctx context.Context, in NewCorrection) (*Result, error) {
	const op = "create correction"
	if err := c.validateInput(op, in); err != nil {
		return nil, err
	}
	return c.Call(ctx, RequestSpec{
		Operation: op,
		Method:    http.MethodPost,
		Path:      "/v1/correcoes",
		Data:      in,
	})
}

// ListActivities lists activities. The application listing also filters by
// the configured site when one is set.
func (c *Client) ListActivities(ctx context.Context, kind ActivityKind, q ActivityQuery) (*Result, error) {
	op := "list activities (" + string(kind) + ")"
	if err := c.validateInput(op, q); err != nil {
		return nil, err
	}
	st := c.session.Snapshot()

	query := map[string]any{"StatusId": q.StatusID, "SelectedDate": q.SelectedDate}
	if kind == ActivitiesApplication && st.SiteID != "" {
		query[HeaderSiteID] = st.SiteID
	}

	return c.Call(ctx, RequestSpec{
		Operation: op,
		Method:    http.MethodGet,
		Path:      kind.path(),
		Headers: map[string]string{
			HeaderEmpresaID:      st.EmpresaID,
			HeaderXTransactionID: st.XTransactionID,
		},
		Query:   query,
		Require: []string{HeaderEmpresaID, HeaderXTransactionID},
	})
}

// ListSettlements lists settlement data for the given task ids.
func (c *Client) ListSettlements(ctx context.Context, ids []string) (*Result, error) {
	const op = "list settlements"
	cleaned := trimAll(ids)
	if len(cleaned) == 0 {
		return nil, &InputError{Operation: op, Err: errors.New("at least one id is required")}
	}
	return c.Call(ctx, RequestSpec{
		Operation: op,
		Method:    http.MethodGet,
		Path:      "/v1/atividades/baixa/list",
		Query:     map[string]any{"ids": cleaned},
	})
}

// Measurements lists the measurements recorded for a task.
func (c *Client) Measurements(ctx context.Context, tarefaID string) (*Result, error) {
	const op = "get measurements"
	if strings.TrimSpace(tarefaID) == "" {
		return nil, &InputError{Operation: op, Err: errors.New("tarefaId is required")}
	}
	return c.Call(ctx, RequestSpec{
		Operation: op,
		Method:    http.MethodGet,
		Path:      "/v1/atividades/" + url.PathEscape(tarefaID) + "/medicoes",
	})
}

// Justifications lists the justifications of the configured company.
func (c *Client) Justifications(ctx context.Context) (*Result, error) {
	st := c.session.Snapshot()
	return c.Call(ctx, RequestSpec{
		Operation: "list justifications",
		Method:    http.MethodGet,
		Path:      "/v1/atividades/justificativas",
		Headers:   map[string]string{HeaderEmpresaID: st.EmpresaID},
		Require:   []string{HeaderEmpresaID},
	})
}

// Settle writes off the given tasks.
func (c *Client) Settle(ctx context.Context, in Settlement) (*Result, error) {
	const op = "settle activities"
	in.TarefasIDs = trimAll(in.TarefasIDs)
	if in.Plataforma == 0 {
		in.Plataforma = DefaultPlatform
	}
	if err := c.validateInput(op, in); err != nil {
		return nil, err
	}
	return c.Call(ctx, RequestSpec{
		Operation: op,
		Method:    http.MethodPut,
		Path:      "/v1/atividades/baixa",
		Data:      in,
	})
}

// PostMeasurements records measurements for the given tasks.
func (c *Client) PostMeasurements(ctx context.Context, in MeasurementBatch) (*Result, error) {
	const op = "post measurements"
	in.TarefasIDs = trimAll(in.TarefasIDs)
	if err := c.validateInput(op, in); err != nil {
		return nil, err
	}
	var medicoes []any
	if err := json.Unmarshal(in.Medicoes, &medicoes); err != nil || medicoes == nil {
		return nil, &InputError{Operation: op, Err: errors.New("medicoes must be a JSON array")}
	}
	return c.Call(ctx, RequestSpec{
		Operation: op,
		Method:    http.MethodPost,
		Path:      "/v1/atividades/medicoes",
		Data:      in,
	})
}

// SplitIDs splits a comma separated id list, dropping blanks.
func SplitIDs(s string) []string {
	return trimAll(strings.Split(s, ","))
}

func trimAll(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
