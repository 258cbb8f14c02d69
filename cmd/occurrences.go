package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Gustavo032/leankeep-api-guard/internal/domain"
)

func newOccurrencesCmd(a *App) *cobra.Command {
	occurrencesCmd := &cobra.Command{
		Use:     "occurrences",
		Aliases: []string{"ocorrencias", "occ"},
		Short:   "List and create occurrences",
		Long: `List and create occurrences (ocorrencias) of the configured company.

Both subcommands need EmpresaId; create also needs UnidadeId. Set them with
'lkp env set'.`,
	}

	var q domain.OccurrenceQuery
	listCmd := &cobra.Command{
		Use:     "list",
		Short:   "List occurrences page by page",
		Example: `  lkp occurrences list
  lkp occurrences list --page 2 --page-size 50 -o table`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDomain(cmd, "Loading occurrences", func(ctx context.Context) (*domain.Result, error) {
				return a.domain.ListOccurrences(ctx, q)
			})
		},
	}
	listCmd.Flags().IntVar(&q.PageIndex, "page", 0, "Page index, starting at 0")
	listCmd.Flags().IntVar(&q.PageSize, "page-size", 20, "Page size (1-100)")

	var (
		in         domain.NewOccurrence
		prioridade int
	)
	createCmd := &cobra.Command{
		Use:     "create",
		Short:   "Create an occurrence",
		Example: `  lkp occurrences create --titulo "Vazamento na cozinha" --descricao "Pia do 2o andar" --prioridade 2`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body := in
			if cmd.Flags().Changed("prioridade") {
				p := prioridade
				body.Prioridade = &p
			}
			return a.runDomain(cmd, "Creating occurrence", func(ctx context.Context) (*domain.Result, error) {
				return a.domain.CreateOccurrence(ctx, body)
			})
		},
	}
	createCmd.Flags().StringVar(&in.Titulo, "titulo", "", "Title")
	createCmd.Flags().StringVar(&in.Descricao, "descricao", "", "Description")
	createCmd.Flags().IntVar(&prioridade, "prioridade", 0, "Priority")
	_ = createCmd.MarkFlagRequired("titulo")

	occurrencesCmd.AddCommand(listCmd, createCmd)
	return occurrencesCmd
}

func newCorrectionsCmd(a *App) *cobra.Command {
	correctionsCmd := &cobra.Command{
		Use:     "corrections",
		Aliases: []string{"correcoes"},
		Short:   "List, inspect and create corrections",
	}

	listCmd := &cobra.Command{
		Use:     "list OCORRENCIA_ID",
		Short:   "List the corrections of an occurrence",
		Example: `  lkp corrections list 1234`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDomain(cmd, "Loading corrections", func(ctx context.Context) (*domain.Result, error) {
				return a.domain.ListCorrections(ctx, args[0])
			})
		},
	}

	getCmd := &cobra.Command{
		Use:     "get CORRECAO_ID",
		Short:   "Show a correction in its editable form",
		Example: `  lkp corrections get 987 --show-request`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDomain(cmd, "Loading correction", func(ctx context.Context) (*domain.Result, error) {
				return a.domain.CorrectionToEdit(ctx, args[0])
			})
		},
	}

	typesCmd := &cobra.Command{
		Use:   "types",
		Short: "List correction types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDomain(cmd, "Loading correction types", func(ctx context.Context) (*domain.Result, error) {
				return a.domain.CorrectionTypes(ctx)
			})
		},
	}

	var (
		in     domain.NewCorrection
		tipoID int
	)
	createCmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a correction for an occurrence",
		Example: `  lkp corrections create --ocorrencia-id 1234 --descricao "Troca do sifao" --tipo-id 3`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body := in
			if cmd.Flags().Changed("tipo-id") {
				id := tipoID
				body.TipoID = &id
			}
			return a.runDomain(cmd, "Creating correction", func(ctx context.Context) (*domain.Result, error) {
				return a.domain.CreateCorrection(ctx, body)
			})
		},
	}
	createCmd.Flags().StringVar(&in.OcorrenciaID, "ocorrencia-id", "", "Occurrence id")
	createCmd.Flags().StringVar(&in.Descricao, "descricao", "", "Description")
	createCmd.Flags().IntVar(&tipoID, "tipo-id", 0, "Correction type id (see 'lkp corrections types')")
	_ = createCmd.MarkFlagRequired("ocorrencia-id")
	_ = createCmd.MarkFlagRequired("descricao")

	correctionsCmd.AddCommand(listCmd, getCmd, typesCmd, createCmd)
	return correctionsCmd
}
