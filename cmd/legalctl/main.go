// legalctl is the administrative CLI for the legal case store. It works directly
// on the storage configured through the environment (see config.Load).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ain_oman_legal/config"
	"ain_oman_legal/services"
	"ain_oman_legal/services/jobs"

	"github.com/spf13/pflag"
)

const usage = `Usage: legalctl [--tenant ID] [--actor NAME] <command> [flags]

Commands:
  counter peek|next|reset   Inspect or override an id sequence (case, transfer, task)
  analytics                 Regenerate tenant analytics and print them
  predict --case ID         Regenerate the prediction of a case (--pdf FILE to render it)
  export --out FILE         Write the Cases/Expenses/Analytics workbook
  audit                     Print audit entries, newest first
  remind                    Send due appointment reminders once
  schedule                  Run the reminder scheduler until interrupted
`

func main() {
	cfg := config.Load()

	svc, err := services.Open(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, cfg, svc, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// execute dispatches one command. Global flags come before the command name.
func execute(ctx context.Context, cfg *config.Config, svc *services.LegalServices, args []string, out io.Writer) error {
	global := pflag.NewFlagSet("legalctl", pflag.ContinueOnError)
	global.SetInterspersed(false)
	tenant := global.String("tenant", "default", "tenant id")
	actor := global.String("actor", "legalctl", "actor recorded in the audit log")
	global.Usage = func() { fmt.Fprint(out, usage) }
	if err := global.Parse(args); err != nil {
		return err
	}

	rest := global.Args()
	if len(rest) == 0 {
		fmt.Fprint(out, usage)
		return fmt.Errorf("missing command")
	}
	ac := services.SystemAuditContext(*tenant, *actor)

	switch rest[0] {
	case "counter":
		return runCounter(ctx, svc, ac, rest[1:], out)
	case "analytics":
		a, err := svc.Analytics.Generate(ctx, ac)
		if err != nil {
			return err
		}
		return printJSON(out, a)
	case "predict":
		return runPredict(ctx, cfg, svc, ac, rest[1:], out)
	case "export":
		return runExport(ctx, svc, ac, rest[1:], out)
	case "audit":
		return runAudit(ctx, svc, ac, rest[1:], out)
	case "remind":
		result := jobs.SendAppointmentReminders(ctx, svc, tenantsFor(cfg, *tenant, global))
		return printJSON(out, result)
	case "schedule":
		c, err := jobs.StartScheduler(svc, tenantsFor(cfg, *tenant, global))
		if err != nil {
			return err
		}
		<-ctx.Done()
		<-c.Stop().Done()
		return nil
	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", rest[0])
	}
}

// tenantsFor prefers an explicit --tenant over the configured tenant list
func tenantsFor(cfg *config.Config, tenant string, global *pflag.FlagSet) []string {
	if global.Changed("tenant") || cfg == nil || len(cfg.Tenants) == 0 {
		return []string{tenant}
	}
	return cfg.Tenants
}

var counterKinds = map[string][2]string{
	"case":     {services.CounterKeyCase, services.CasePrefix},
	"transfer": {services.CounterKeyTransfer, services.TransferPrefix},
	"task":     {services.CounterKeyTask, services.TaskPrefix},
}

func runCounter(ctx context.Context, svc *services.LegalServices, ac services.AuditContext, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("counter", pflag.ContinueOnError)
	kind := fs.String("kind", "case", "sequence: case, transfer or task")
	value := fs.Float64("value", -1, "new counter value (reset only)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("counter needs one of peek, next, reset")
	}
	seq, ok := counterKinds[*kind]
	if !ok {
		return fmt.Errorf("unknown sequence %q", *kind)
	}

	switch fs.Arg(0) {
	case "peek":
		id, err := svc.Sequence.Peek(ctx, ac.TenantID, seq[0], seq[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, id)
	case "next":
		id, err := svc.Sequence.Next(ctx, ac.TenantID, seq[0], seq[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, id)
	case "reset":
		if !fs.Changed("value") {
			return fmt.Errorf("counter reset needs --value")
		}
		if err := svc.Sequence.Reset(ctx, ac.TenantID, seq[0], *value); err != nil {
			return err
		}
		id, err := svc.Sequence.Peek(ctx, ac.TenantID, seq[0], seq[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "next id: %s\n", id)
	default:
		return fmt.Errorf("unknown counter action %q", fs.Arg(0))
	}
	return nil
}

func runPredict(ctx context.Context, cfg *config.Config, svc *services.LegalServices, ac services.AuditContext, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("predict", pflag.ContinueOnError)
	caseID := fs.String("case", "", "case id")
	pdfPath := fs.String("pdf", "", "also render the prediction to this PDF file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *caseID == "" {
		return fmt.Errorf("predict needs --case")
	}

	p, err := svc.Predictions.Generate(ctx, ac, *caseID)
	if err != nil {
		return err
	}
	if *pdfPath != "" {
		c, err := svc.Cases.Get(ctx, ac.TenantID, *caseID)
		if err != nil {
			return err
		}
		chromePath := ""
		if cfg != nil {
			chromePath = cfg.ChromePath
		}
		pdf, err := services.GeneratePredictionPDF(ctx, c, p, services.DefaultPDFOptions(chromePath))
		if err != nil {
			return err
		}
		if err := os.WriteFile(*pdfPath, pdf, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", *pdfPath, err)
		}
	}
	return printJSON(out, p)
}

func runExport(ctx context.Context, svc *services.LegalServices, ac services.AuditContext, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("export", pflag.ContinueOnError)
	path := fs.StringP("out", "o", "legal-report.xlsx", "output workbook")
	if err := fs.Parse(args); err != nil {
		return err
	}
	buf, err := svc.Reports.ExportWorkbook(ctx, ac.TenantID)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", *path, err)
	}
	fmt.Fprintf(out, "wrote %s\n", *path)
	return nil
}

func runAudit(ctx context.Context, svc *services.LegalServices, ac services.AuditContext, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("audit", pflag.ContinueOnError)
	var filters services.AuditLogFilters
	fs.StringVar(&filters.EntityKind, "entity-kind", "", "filter by entity kind (e.g. LegalCase)")
	fs.StringVar(&filters.EntityID, "entity-id", "", "filter by entity id")
	fs.StringVar(&filters.ActorID, "actor-id", "", "filter by actor")
	fs.StringVar(&filters.SearchQuery, "search", "", "search descriptions")
	page := fs.Int("page", 1, "page number")
	pageSize := fs.Int("page-size", 20, "entries per page")
	if err := fs.Parse(args); err != nil {
		return err
	}

	entries, total, err := svc.Audit.GetTenantAuditLogs(ctx, ac.TenantID, filters, *page, *pageSize)
	if err != nil {
		return err
	}
	return printJSON(out, map[string]interface{}{
		"total":   total,
		"page":    *page,
		"entries": entries,
	})
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
