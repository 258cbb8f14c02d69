package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/spf13/cobra"

	"github.com/Gustavo032/leankeep-api-guard/internal/domain"
	"github.com/Gustavo032/leankeep-api-guard/internal/session"
)

type callFlags struct {
	Data         string
	DataFile     string
	DataTemplate string
	Set          []string
	Query        []string
	Headers      []string
	Require      []string
}

var callMethods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete,
}

// contextHeaders maps the lower-cased --require names onto the header names
// the API expects.
var contextHeaders = map[string]string{
	"empresaid":        domain.HeaderEmpresaID,
	"unidadeid":        domain.HeaderUnidadeID,
	"siteid":           domain.HeaderSiteID,
	"x-transaction-id": domain.HeaderXTransactionID,
}

func newCallCmd(a *App) *cobra.Command {
	var f callFlags

	callCmd := &cobra.Command{
		Use:   "call METHOD PATH",
		Short: "Send an arbitrary request to the domain API",
		Long: `Send an arbitrary request to the domain API with the session's bearer token.

The body comes from --data (inline JSON), --data-file (a JSON file, - for
stdin) or --data-template (a Go template rendered to JSON). Templates get the
sprig functions, the session environment as .Env and --set values as .Vars.

--require names context identifiers (EmpresaId, UnidadeId, SiteId) that must
be configured; they are sent as headers and the request is refused when one
is missing.

Examples:
  lkp call GET /v1/ocorrencias --query PageIndex=0 --query PageSize=20 --require EmpresaId
  lkp call POST /v1/ocorrencias --data '{"titulo": "Vazamento"}' --require EmpresaId,UnidadeId
  lkp call PUT /v1/atividades/baixa --data-template baixa.tmpl --set tarefa=123 --curl`,
		Args: cobra.ExactArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return callMethods, cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := a.buildCallSpec(cmd, args[0], args[1], f)
			if err != nil {
				return err
			}
			label := spec.Method + " " + spec.Path
			return a.runDomain(cmd, label, func(ctx context.Context) (*domain.Result, error) {
				return a.domain.Call(ctx, spec)
			})
		},
	}

	callCmd.Flags().StringVarP(&f.Data, "data", "d", "", "Inline JSON body")
	callCmd.Flags().StringVar(&f.DataFile, "data-file", "", "Read the JSON body from a file (- for stdin)")
	callCmd.Flags().StringVar(&f.DataTemplate, "data-template", "", "Render the JSON body from a template file")
	callCmd.Flags().StringArrayVar(&f.Set, "set", nil, "Template variable key=value (repeatable)")
	callCmd.Flags().StringArrayVar(&f.Query, "query", nil, "Query parameter key=value (repeatable)")
	callCmd.Flags().StringArrayVarP(&f.Headers, "header", "H", nil, "Extra header key=value (repeatable)")
	callCmd.Flags().StringSliceVar(&f.Require, "require", nil, "Context identifiers that must be configured (EmpresaId, UnidadeId, SiteId)")
	callCmd.MarkFlagsMutuallyExclusive("data", "data-file", "data-template")

	return callCmd
}

func (a *App) buildCallSpec(cmd *cobra.Command, method, path string, f callFlags) (domain.RequestSpec, error) {
	method = strings.ToUpper(method)
	if !isCallMethod(method) {
		return domain.RequestSpec{}, fmt.Errorf("unsupported method %q (valid: %s)", method, strings.Join(callMethods, ", "))
	}

	spec := domain.RequestSpec{
		Method:  method,
		Path:    path,
		Headers: map[string]string{},
	}

	st := a.store.Snapshot()
	for _, name := range f.Require {
		name = strings.TrimSpace(name)
		header, ok := contextHeaders[strings.ToLower(name)]
		if !ok {
			return spec, fmt.Errorf("unknown context identifier %q (valid: EmpresaId, UnidadeId, SiteId, X-Transaction-Id)", name)
		}
		spec.Require = append(spec.Require, header)
		if v := contextValueOf(st, header); v != "" {
			spec.Headers[header] = v
		}
	}

	for _, kv := range f.Headers {
		k, v, err := splitKeyValue("header", kv)
		if err != nil {
			return spec, err
		}
		spec.Headers[k] = v
	}

	if len(f.Query) > 0 {
		spec.Query = map[string]any{}
		for _, kv := range f.Query {
			k, v, err := splitKeyValue("query", kv)
			if err != nil {
				return spec, err
			}
			switch prev := spec.Query[k].(type) {
			case nil:
				spec.Query[k] = v
			case string:
				spec.Query[k] = []string{prev, v}
			case []string:
				spec.Query[k] = append(prev, v)
			}
		}
	}

	raw, err := callBody(cmd, f, newEnvView(st))
	if err != nil {
		return spec, err
	}
	if raw != nil {
		data, err := decodeBody(raw)
		if err != nil {
			return spec, err
		}
		spec.Data = data
	}
	return spec, nil
}

func contextValueOf(st session.State, header string) string {
	switch header {
	case domain.HeaderEmpresaID:
		return st.EmpresaID
	case domain.HeaderUnidadeID:
		return st.UnidadeID
	case domain.HeaderSiteID:
		return st.SiteID
	default:
		return st.XTransactionID
	}
}

func isCallMethod(m string) bool {
	for _, known := range callMethods {
		if m == known {
			return true
		}
	}
	return false
}

func splitKeyValue(flag, kv string) (string, string, error) {
	k, v, ok := strings.Cut(kv, "=")
	k = strings.TrimSpace(k)
	if !ok || k == "" {
		return "", "", fmt.Errorf("--%s %q: want key=value", flag, kv)
	}
	return k, v, nil
}

// callBody returns the raw JSON body selected by the flags, or nil.
func callBody(cmd *cobra.Command, f callFlags, env envView) ([]byte, error) {
	switch {
	case f.Data != "":
		return []byte(f.Data), nil
	case f.DataFile == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read body from stdin: %w", err)
		}
		return data, nil
	case f.DataFile != "":
		data, err := os.ReadFile(f.DataFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read body: %w", err)
		}
		return data, nil
	case f.DataTemplate != "":
		vars := map[string]string{}
		for _, kv := range f.Set {
			k, v, err := splitKeyValue("set", kv)
			if err != nil {
				return nil, err
			}
			vars[k] = v
		}
		return renderBodyTemplate(f.DataTemplate, env, vars)
	}
	if len(f.Set) > 0 {
		return nil, errors.New("--set only applies to --data-template")
	}
	return nil, nil
}

// bodyTemplateData is what request body templates are executed against.
type bodyTemplateData struct {
	Env  envView
	Vars map[string]string
}

func renderBodyTemplate(path string, env envView, vars map[string]string) ([]byte, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}

	tmpl, err := template.New(path).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", path, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, bodyTemplateData{Env: env, Vars: vars}); err != nil {
		return nil, fmt.Errorf("failed to render template %s: %w", path, err)
	}
	return buf.Bytes(), nil
}

// decodeBody parses raw JSON keeping numbers exactly as written.
func decodeBody(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var data any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("request body is not valid JSON: %w", err)
	}
	if dec.More() {
		return nil, errors.New("request body is not valid JSON: trailing data")
	}
	return data, nil
}
