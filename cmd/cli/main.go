package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/nimasrn/merchant-ledger/internal/config"
	"github.com/nimasrn/merchant-ledger/internal/model"
	"github.com/nimasrn/merchant-ledger/internal/rates"
	"github.com/nimasrn/merchant-ledger/internal/repository"
	"github.com/nimasrn/merchant-ledger/migrations"
	"github.com/nimasrn/merchant-ledger/pkg/logger"
	"github.com/nimasrn/merchant-ledger/pkg/pg"
	"github.com/pkg/errors"
)

const usage = `usage: cli <command> [--env=path]

commands:
  migrate                                   apply pending migrations (default)
  status                                    print migration status
  import-plan --file=plan.yaml              create or replace a custom rate plan
  assign-plan --client=ID --plan=NAME [--plan-id=ID]
  add-profile --id=ID --name=NAME --role=client|admin [--plan=NAME] [--plan-id=ID]`

func main() {
	defer logger.Sync()

	if err := config.Load(config.PathFromArgs(os.Args)); err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := run(command(os.Args[1:]), os.Args[1:]); err != nil {
		logger.Error("cli: command failed", "error", err)
		os.Exit(1)
	}
}

func command(args []string) string {
	for _, a := range args {
		if !strings.HasPrefix(a, "--") {
			return a
		}
	}
	return "migrate"
}

func run(cmd string, args []string) error {
	pgConf := config.Get().PostgresWrite()

	switch cmd {
	case "migrate":
		return pg.Migrate(pgConf, migrations.FS, ".")
	case "status":
		return pg.MigrationStatus(pgConf, migrations.FS, ".")
	case "import-plan", "assign-plan", "add-profile":
	default:
		logger.Info(usage)
		return errors.Errorf("unknown command %q", cmd)
	}

	db, err := pg.CreateReadWrite(pgConf, pgConf, false)
	if err != nil {
		return errors.Wrap(err, "connect to pg")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cmd {
	case "import-plan":
		return importPlan(ctx, repository.NewRateRepository(db), flag(args, "file"))
	case "assign-plan":
		return assignPlan(ctx, repository.NewProfileRepository(db), repository.NewRateRepository(db),
			flag(args, "client"), flag(args, "plan"), flag(args, "plan-id"))
	default:
		return addProfile(ctx, repository.NewProfileRepository(db), model.Profile{
			ID:           flag(args, "id"),
			Name:         flag(args, "name"),
			Role:         model.Role(flag(args, "role")),
			Plan:         withDefault(flag(args, "plan"), model.PlanBasic),
			CustomPlanID: flag(args, "plan-id"),
		})
	}
}

func importPlan(ctx context.Context, repo *repository.RateRepository, path string) error {
	if path == "" {
		return errors.New("--file is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	planID, table, err := rates.ParsePlanYAML(data)
	if err != nil {
		return err
	}
	rows := table.Rows(planID)
	if err := repo.ReplacePlan(ctx, planID, rows); err != nil {
		return err
	}
	logger.Info("rate plan imported", "plan_id", planID, "rates", len(rows))
	return nil
}

func assignPlan(ctx context.Context, profiles *repository.ProfileRepository, rateRepo *repository.RateRepository, clientID, plan, planID string) error {
	if clientID == "" || plan == "" {
		return errors.New("--client and --plan are required")
	}
	if plan == model.PlanCustom {
		if planID == "" {
			return errors.New("--plan-id is required for custom plans")
		}
		rows, err := rateRepo.ListByPlan(ctx, planID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return errors.Errorf("custom plan %s has no rates; import it first", planID)
		}
	} else if _, ok := rates.StandardPlan(plan); !ok {
		return errors.Errorf("unknown plan %q", plan)
	} else {
		planID = ""
	}
	if err := profiles.UpdatePlan(ctx, clientID, plan, planID); err != nil {
		return err
	}
	logger.Info("plan assigned", "client_id", clientID, "plan", plan, "plan_id", planID)
	return nil
}

func addProfile(ctx context.Context, profiles *repository.ProfileRepository, p model.Profile) error {
	if p.ID == "" || p.Name == "" {
		return errors.New("--id and --name are required")
	}
	if p.Role != model.RoleClient && p.Role != model.RoleAdmin {
		return errors.Errorf("unknown role %q", p.Role)
	}
	if err := profiles.Create(ctx, &p); err != nil {
		return err
	}
	logger.Info("profile created", "id", p.ID, "role", p.Role, "plan", p.Plan)
	return nil
}

// flag returns the value of --name=value, or "".
func flag(args []string, name string) string {
	for _, a := range args {
		if v, ok := strings.CutPrefix(a, "--"+name+"="); ok {
			return v
		}
	}
	return ""
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
