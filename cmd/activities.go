package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Gustavo032/leankeep-api-guard/internal/domain"
)

func newActivitiesCmd(a *App) *cobra.Command {
	activitiesCmd := &cobra.Command{
		Use:     "activities",
		Aliases: []string{"atividades"},
		Short:   "List scheduled activities",
	}

	var (
		q    domain.ActivityQuery
		date string
	)
	listCmd := &cobra.Command{
		Use:   "list [list|plano|aplicacao]",
		Short: "List activities, the plan or the application view",
		Long: `List activities for a day. The listing is one of list (default), plano or
aplicacao; aplicacao is filtered by the configured SiteId when one is set.

Needs EmpresaId and X-Transaction-Id (see 'lkp env set --new-transaction-id').`,
		Example: `  lkp activities list --date 2024-05-02
  lkp activities list plano --status-id 1 -o table`,
		ValidArgs: []string{string(domain.ActivitiesList), string(domain.ActivitiesPlan), string(domain.ActivitiesApplication)},
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			var kindArg string
			if len(args) == 1 {
				kindArg = args[0]
			}
			kind, err := domain.ParseActivityKind(kindArg)
			if err != nil {
				return err
			}

			query := q
			query.SelectedDate = date
			if query.SelectedDate == "" {
				query.SelectedDate = a.now().Format(time.DateOnly)
			}
			return a.runDomain(cmd, "Loading activities", func(ctx context.Context) (*domain.Result, error) {
				return a.domain.ListActivities(ctx, kind, query)
			})
		},
	}
	listCmd.Flags().IntVar(&q.StatusID, "status-id", 0, "Status id filter")
	listCmd.Flags().StringVar(&date, "date", "", "Day to list as YYYY-MM-DD (default today)")

	activitiesCmd.AddCommand(listCmd)
	return activitiesCmd
}

func newSettlementsCmd(a *App) *cobra.Command {
	settlementsCmd := &cobra.Command{
		Use:     "settlements",
		Aliases: []string{"baixa"},
		Short:   "Inspect and perform activity write-offs",
	}

	listCmd := &cobra.Command{
		Use:     "list IDS",
		Short:   "Show write-off data for comma separated task ids",
		Example: `  lkp settlements list 101,102,103`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := domain.SplitIDs(args[0])
			return a.runDomain(cmd, "Loading settlements", func(ctx context.Context) (*domain.Result, error) {
				return a.domain.ListSettlements(ctx, ids)
			})
		},
	}

	var (
		in  domain.Settlement
		ids string
	)
	settleCmd := &cobra.Command{
		Use:   "settle",
		Short: "Write off tasks",
		Long: `Write off (baixa) the given tasks. The site defaults to the configured
SiteId and the date to now.`,
		Example: `  lkp settlements settle --ids 101,102 --tempo-total 1.5 --status-id 2 --observacoes "ok"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body := in
			body.TarefasIDs = domain.SplitIDs(ids)
			if body.SiteID == "" {
				body.SiteID = a.store.Snapshot().SiteID
			}
			if body.DataRealizada == "" {
				body.DataRealizada = a.now().Format(time.RFC3339)
			}
			return a.runDomain(cmd, "Settling activities", func(ctx context.Context) (*domain.Result, error) {
				return a.domain.Settle(ctx, body)
			})
		},
	}
	settleCmd.Flags().StringVar(&ids, "ids", "", "Comma separated task ids")
	settleCmd.Flags().StringVar(&in.SiteID, "site-id", "", "Site id (default: configured SiteId)")
	settleCmd.Flags().StringVar(&in.DataRealizada, "data-realizada", "", "When the work was done, RFC 3339 (default now)")
	settleCmd.Flags().Float64Var(&in.TempoTotal, "tempo-total", 0, "Total time spent")
	settleCmd.Flags().IntVar(&in.Plataforma, "plataforma", domain.DefaultPlatform, "Platform code")
	settleCmd.Flags().IntVar(&in.StatusID, "status-id", 0, "Resulting status id")
	settleCmd.Flags().StringVar(&in.Observacoes, "observacoes", "", "Notes")
	_ = settleCmd.MarkFlagRequired("ids")

	settlementsCmd.AddCommand(listCmd, settleCmd)
	return settlementsCmd
}

func newMeasurementsCmd(a *App) *cobra.Command {
	measurementsCmd := &cobra.Command{
		Use:     "measurements",
		Aliases: []string{"medicoes"},
		Short:   "Read and record task measurements",
	}

	getCmd := &cobra.Command{
		Use:   "get TAREFA_ID",
		Short: "List the measurements of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDomain(cmd, "Loading measurements", func(ctx context.Context) (*domain.Result, error) {
				return a.domain.Measurements(ctx, args[0])
			})
		},
	}

	var ids, medicoes, medicoesFile string
	postCmd := &cobra.Command{
		Use:   "post",
		Short: "Record measurements for tasks",
		Long: `Record measurements for tasks. The measurements are a JSON array given
inline with --medicoes or read from a file with --medicoes-file (- for stdin).`,
		Example: `  lkp measurements post --ids 101 --medicoes '[{"medicaoId": 5, "valor": 21.5}]'`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := measurementsInput(cmd.InOrStdin(), medicoes, medicoesFile)
			if err != nil {
				return err
			}
			batch := domain.MeasurementBatch{TarefasIDs: domain.SplitIDs(ids), Medicoes: raw}
			return a.runDomain(cmd, "Posting measurements", func(ctx context.Context) (*domain.Result, error) {
				return a.domain.PostMeasurements(ctx, batch)
			})
		},
	}
	postCmd.Flags().StringVar(&ids, "ids", "", "Comma separated task ids")
	postCmd.Flags().StringVar(&medicoes, "medicoes", "", "Measurements as a JSON array")
	postCmd.Flags().StringVar(&medicoesFile, "medicoes-file", "", "Read the measurements from a file (- for stdin)")
	postCmd.MarkFlagsMutuallyExclusive("medicoes", "medicoes-file")
	postCmd.MarkFlagsOneRequired("medicoes", "medicoes-file")
	_ = postCmd.MarkFlagRequired("ids")

	measurementsCmd.AddCommand(getCmd, postCmd)
	return measurementsCmd
}

func measurementsInput(stdin io.Reader, inline, file string) (json.RawMessage, error) {
	switch file {
	case "":
		return json.RawMessage(inline), nil
	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read measurements from stdin: %w", err)
		}
		return data, nil
	default:
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read measurements: %w", err)
		}
		return data, nil
	}
}

func newJustificationsCmd(a *App) *cobra.Command {
	justificationsCmd := &cobra.Command{
		Use:     "justifications",
		Aliases: []string{"justificativas"},
		Short:   "List activity justifications",
	}

	justificationsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the justifications of the configured company",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDomain(cmd, "Loading justifications", func(ctx context.Context) (*domain.Result, error) {
				return a.domain.Justifications(ctx)
			})
		},
	})
	return justificationsCmd
}
