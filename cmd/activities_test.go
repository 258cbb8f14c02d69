package cmd

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gustavo032/leankeep-api-guard/internal/domain"
)

// loggedIn returns an App with a session and the context ids configured.
func loggedIn(t *testing.T, e *testEnv, now time.Time) *App {
	t.Helper()
	a := e.newApp()
	a.now = func() time.Time { return now }
	e.login(a)
	e.mustRun(a, "env", "set", "--empresa-id", "42", "--unidade-id", "7", "--site-id", "9", "--transaction-id", "txn-1")
	return a
}

var testNow = time.Date(2024, 5, 2, 10, 30, 0, 0, time.UTC)

func TestOccurrencesList(t *testing.T) {
	e := newTestEnv(t)
	e.api.onDomain(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"items": []any{
			map[string]any{"id": 1, "titulo": "Vazamento", "email": "ana@example.com"},
		}})
	})
	a := loggedIn(t, e, testNow)

	out := e.mustRun(a, "occurrences", "list", "--page", "1", "--page-size", "10", "-o", "table")

	req := e.api.lastDomainRequest(t)
	assert.Equal(t, "/v1/ocorrencias", req.Path)
	assert.Equal(t, "1", req.Query.Get("PageIndex"))
	assert.Equal(t, "10", req.Query.Get("PageSize"))
	assert.Equal(t, "42", req.Header.Get("EmpresaId"))
	assert.Equal(t, "txn-1", req.Header.Get("X-Transaction-Id"))

	assert.Contains(t, out, "HTTP 200")
	assert.Contains(t, out, "Vazamento")
	assert.NotContains(t, out, "ana@example.com")
}

func TestOccurrencesListValidatesPageSize(t *testing.T) {
	e := newTestEnv(t)
	a := loggedIn(t, e, testNow)

	_, _, err := e.run(a, "occurrences", "list", "--page-size", "500")

	var inputErr *domain.InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, ExitCodeError, getExitCode(err))
	assert.Empty(t, e.api.domainRequests())
}

func TestOccurrencesCreate(t *testing.T) {
	e := newTestEnv(t)
	a := loggedIn(t, e, testNow)

	e.mustRun(a, "occurrences", "create", "--titulo", "Vazamento", "--prioridade", "2")

	req := e.api.lastDomainRequest(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "7", req.Header.Get("UnidadeId"))
	assert.JSONEq(t, `{"titulo": "Vazamento", "prioridade": 2}`, req.Body)
}

func TestCorrectionsCommands(t *testing.T) {
	e := newTestEnv(t)
	a := loggedIn(t, e, testNow)

	e.mustRun(a, "corrections", "list", "1234")
	req := e.api.lastDomainRequest(t)
	assert.Equal(t, "/v1/correcoes", req.Path)
	assert.Equal(t, "1234", req.Query.Get("ocorrenciaId"))

	e.mustRun(a, "corrections", "get", "987")
	assert.Equal(t, "/v1/correcoes/987/toedit", e.api.lastDomainRequest(t).Path)

	e.mustRun(a, "corrections", "types")
	assert.Equal(t, "/v1/correcoes/tipos", e.api.lastDomainRequest(t).Path)

	e.mustRun(a, "corrections", "create", "--ocorrencia-id", "1234", "--descricao", "Troca do sifao", "--tipo-id", "3")
	assert.JSONEq(t, `{"ocorrenciaId": "1234", "descricao": "Troca do sifao", "tipoId": 3}`, e.api.lastDomainRequest(t).Body)
}

func TestActivitiesList(t *testing.T) {
	e := newTestEnv(t)
	a := loggedIn(t, e, testNow)

	e.mustRun(a, "activities", "list", "aplicacao", "--status-id", "1")

	req := e.api.lastDomainRequest(t)
	assert.Equal(t, "/v1/atividades/aplicacao", req.Path)
	assert.Equal(t, "2024-05-02", req.Query.Get("SelectedDate"), "defaults to today")
	assert.Equal(t, "1", req.Query.Get("StatusId"))
	assert.Equal(t, "9", req.Query.Get("SiteId"))

	e.mustRun(a, "activities", "list", "--date", "2024-04-30")
	req = e.api.lastDomainRequest(t)
	assert.Equal(t, "/v1/atividades", req.Path)
	assert.Equal(t, "2024-04-30", req.Query.Get("SelectedDate"))

	_, _, err := e.run(a, "activities", "list", "semanal")
	assert.Error(t, err)
}

func TestActivitiesListNeedsTransactionID(t *testing.T) {
	e := newTestEnv(t)
	a := e.newApp()
	e.login(a)
	e.mustRun(a, "env", "set", "--empresa-id", "42")

	_, _, err := e.run(a, "activities", "list")

	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Missing, domain.HeaderXTransactionID)
	assert.Equal(t, ExitCodeConfigError, getExitCode(err))
}

func TestSettlementsSettleDefaults(t *testing.T) {
	e := newTestEnv(t)
	a := loggedIn(t, e, testNow)

	e.mustRun(a, "settlements", "settle", "--ids", "101, 102,", "--tempo-total", "1.5", "--status-id", "2")

	req := e.api.lastDomainRequest(t)
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/v1/atividades/baixa", req.Path)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(req.Body), &body))
	assert.Equal(t, []any{"101", "102"}, body["tarefasIds"])
	assert.Equal(t, "9", body["siteId"])
	assert.Equal(t, "2024-05-02T10:30:00Z", body["dataRealizada"])
	assert.EqualValues(t, 8, body["plataforma"])
	assert.EqualValues(t, 1.5, body["tempoTotal"])
}

func TestSettlementsList(t *testing.T) {
	e := newTestEnv(t)
	a := loggedIn(t, e, testNow)

	e.mustRun(a, "settlements", "list", "101,102")

	req := e.api.lastDomainRequest(t)
	assert.Equal(t, "/v1/atividades/baixa/list", req.Path)
	assert.Equal(t, []string{"101", "102"}, req.Query["ids"])
}

func TestMeasurements(t *testing.T) {
	e := newTestEnv(t)
	a := loggedIn(t, e, testNow)

	e.mustRun(a, "measurements", "get", "101")
	assert.Equal(t, "/v1/atividades/101/medicoes", e.api.lastDomainRequest(t).Path)

	e.mustRun(a, "measurements", "post", "--ids", "101", "--medicoes", `[{"medicaoId": 5, "valor": 21.5}]`)
	req := e.api.lastDomainRequest(t)
	assert.Equal(t, "/v1/atividades/medicoes", req.Path)
	assert.JSONEq(t, `{"tarefasIds": ["101"], "medicoes": [{"medicaoId": 5, "valor": 21.5}]}`, req.Body)

	sent := len(e.api.domainRequests())
	_, _, err := e.run(a, "measurements", "post", "--ids", "101", "--medicoes", `{"medicaoId": 5}`)
	var inputErr *domain.InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Len(t, e.api.domainRequests(), sent, "nothing is sent")
}

func TestJustificationsList(t *testing.T) {
	e := newTestEnv(t)
	a := loggedIn(t, e, testNow)

	e.mustRun(a, "justifications", "list")

	req := e.api.lastDomainRequest(t)
	assert.Equal(t, "/v1/atividades/justificativas", req.Path)
	assert.Equal(t, "42", req.Header.Get("EmpresaId"))
}
