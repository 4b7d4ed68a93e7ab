package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/example/attendance-engine/internal/application"
	"github.com/example/attendance-engine/internal/importer"
	"github.com/example/attendance-engine/internal/interval"
)

func asFlag() cli.Flag {
	return &cli.StringFlag{Name: "as", Usage: "ID of the acting user"}
}

func migrateCommand(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending database migrations.",
		Action: func(c *cli.Context) error {
			env, err := openEnvironment(c.Context, stderr)
			if err != nil {
				return err
			}
			defer env.Close()
			fmt.Fprintln(stdout, "migrations\tok")
			return nil
		},
	}
}

func registerUserCommand(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "register-user",
		Usage: "Mirror a user from the identity system.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "name", Required: true, Usage: "display name"},
			&cli.BoolFlag{Name: "admin"},
			asFlag(),
		},
		Action: func(c *cli.Context) error {
			env, err := openEnvironment(c.Context, stderr)
			if err != nil {
				return err
			}
			defer env.Close()

			principal, err := env.principal(c.Context, c.String("as"))
			if err != nil {
				return err
			}
			user, err := application.NewUserService(env.deps).RegisterUser(c.Context, application.RegisterUserParams{
				Principal: principal,
				Input: application.UserInput{
					Email:       c.String("email"),
					DisplayName: c.String("name"),
					IsAdmin:     c.Bool("admin"),
				},
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "%s\t%s\t%s\t%t\n", user.ID, user.DisplayName, user.Email, user.IsAdmin)
			return nil
		},
	}
}

func createPeriodCommand(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "create-period",
		Usage: "Create a reporting period; dates are YYYY-MM-DD and inclusive.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Required: true},
			&cli.StringFlag{Name: "start", Required: true},
			&cli.StringFlag{Name: "end", Required: true},
			asFlag(),
		},
		Action: func(c *cli.Context) error {
			start, err := interval.ParseDate(c.String("start"))
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			end, err := interval.ParseDate(c.String("end"))
			if err != nil {
				return fmt.Errorf("--end: %w", err)
			}

			env, err := openEnvironment(c.Context, stderr)
			if err != nil {
				return err
			}
			defer env.Close()

			principal, err := env.principal(c.Context, c.String("as"))
			if err != nil {
				return err
			}
			period, err := application.NewCatalogService(env.deps).CreatePeriod(c.Context, application.CreatePeriodParams{
				Principal: principal,
				Name:      c.String("name"),
				StartDate: start,
				EndDate:   end,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "%s\t%s\t%s\t%s\n", period.ID, period.Name, period.StartDate, period.EndDate)
			return nil
		},
	}
}

func importCommand(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import a historical attendance or outreach sheet exported as CSV.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Required: true},
			&cli.StringFlag{Name: "kind", Value: string(importer.KindAttendance), Usage: "attendance or outreach"},
			asFlag(),
		},
		Action: func(c *cli.Context) error {
			kind, err := importer.ParseKind(c.String("kind"))
			if err != nil {
				return err
			}
			f, err := os.Open(c.String("file"))
			if err != nil {
				return err
			}
			table, err := importer.ReadCSV(f)
			_ = f.Close()
			if err != nil {
				return fmt.Errorf("read %s: %w", c.String("file"), err)
			}

			env, err := openEnvironment(c.Context, stderr)
			if err != nil {
				return err
			}
			defer env.Close()

			principal, err := env.principal(c.Context, c.String("as"))
			if err != nil {
				return err
			}
			service := application.NewImportService(env.deps, env.importOptions())
			result, err := service.Import(c.Context, application.ImportParams{Principal: principal, Kind: kind, Table: table})
			if err != nil {
				return err
			}

			fmt.Fprintf(stdout, "batch\t%s\n", result.BatchID)
			for _, line := range []struct {
				name  string
				value int
			}{
				{"rows", result.RowsImported},
				{"meetings_created", result.MeetingsCreated},
				{"meetings_reused", result.MeetingsReused},
				{"records_created", result.RecordsCreated},
				{"records_updated", result.RecordsUpdated},
				{"excuses_created", result.ExcusesCreated},
				{"excuses_skipped", result.ExcusesSkipped},
				{"users_created", result.UsersCreated},
			} {
				fmt.Fprintf(stdout, "%s\t%d\n", line.name, line.value)
			}
			for _, diag := range result.Diagnostics {
				fmt.Fprintf(stdout, "diagnostic\t%d\t%d\t%s\n", diag.Line, diag.Column, diag.Error())
			}
			return nil
		},
	}
}

func reportCommand(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Print compliance metrics for a reporting period.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "period", Usage: "period ID; defaults to the active period"},
		},
		Action: func(c *cli.Context) error {
			env, err := openEnvironment(c.Context, stderr)
			if err != nil {
				return err
			}
			defer env.Close()

			periodID := c.String("period")
			if periodID == "" {
				active, err := application.NewCatalogService(env.deps).ActivePeriod(c.Context)
				if err != nil {
					return fmt.Errorf("no --period given and no active period: %w", err)
				}
				periodID = active.ID
			}

			report, err := application.NewReportService(env.deps, env.cfg.Thresholds).ComputePeriodReport(c.Context, periodID)
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, "user\tregular_pct\tregular_hours\teffective_regular\toutreach_hours\toverall_pct\tteam\ttravel\toutreach_team\toutreach_travel")
			for _, m := range report {
				fmt.Fprintf(stdout, "%s\t%.1f\t%.2f\t%.2f\t%.2f\t%.1f\t%t\t%t\t%t\t%t\n",
					m.DisplayName,
					m.RegularPercentage,
					m.AttendedRegularHours,
					m.EffectiveRegularTotal,
					m.AttendedOutreachHours,
					m.OverallPercentage,
					m.MeetsTeamRequirement,
					m.MeetsTravelRequirement,
					m.MeetsOutreachTeamRequirement,
					m.MeetsOutreachTravelRequirement,
				)
			}
			return nil
		},
	}
}

func repairTimesCommand(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "repair-times",
		Usage: "Find attendance saved with equal start and end times; --apply fixes them.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "apply"},
			asFlag(),
		},
		Action: func(c *cli.Context) error {
			env, err := openEnvironment(c.Context, stderr)
			if err != nil {
				return err
			}
			defer env.Close()

			principal, err := env.principal(c.Context, c.String("as"))
			if err != nil {
				return err
			}
			candidates, err := application.NewLedgerService(env.deps).RepairEqualTimeEntries(c.Context, principal, c.Bool("apply"))
			if err != nil {
				return err
			}
			for _, candidate := range candidates {
				fmt.Fprintf(stdout, "%s\t%s\t%s\t%.2f\t%t\n",
					candidate.Record.ID,
					candidate.Record.UserID,
					candidate.Record.MeetingID,
					candidate.Hours,
					candidate.Applied,
				)
			}
			fmt.Fprintf(stdout, "candidates\t%d\n", len(candidates))
			return nil
		},
	}
}
