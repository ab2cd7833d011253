package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/pledgeflow/internal/prefs"
	"pkt.systems/pledgeflow/viewmodel"
)

func newReportCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "report <project.json|->",
		Short: "Print the email and project link a report would be filed with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := readProject(cmd, args)
			if err != nil {
				return err
			}
			app, cfg, err := openApp(cmd, *cfgPath)
			if err != nil {
				return err
			}
			if err := ensureSession(app, cfg, ""); err != nil {
				return err
			}
			ctx, cancel := screenContext(cmd.Context(), cfg)
			defer cancel()
			traceSignals(ctx, app.Bus(), viewmodel.ScreenReportProject)

			vm := viewmodel.NewReportProject(app.Environment())
			out, sub := first(vm.Outputs().EmailAndProject())
			defer sub.Dispose()
			if err := vm.Create(ctx); err != nil {
				return err
			}
			defer vm.Destroy()
			vm.Inputs().ConfigureWith(project)
			select {
			case got := <-out:
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", got.Email, got.ProjectURL)
				return err
			case <-ctx.Done():
				return waitErr(ctx, "report")
			}
		},
	}
}

func newConsentCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "consent [on|off]",
		Short: "Show or change third-party analytics consent",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, _, err := openApp(cmd, *cfgPath)
			if err != nil {
				return err
			}
			store := app.Prefs()
			if len(args) == 1 {
				var value bool
				switch strings.ToLower(args[0]) {
				case "on", "true", "yes":
					value = true
				case "off", "false", "no":
				default:
					return fmt.Errorf("consent must be on or off, got %q", args[0])
				}
				if err := store.SetBool(prefs.KeyConsentManagement, value); err != nil {
					return err
				}
			}
			state := "off"
			if store.GetBool(prefs.KeyConsentManagement, false) {
				state = "on"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "consent %s, third-party events %s\n", state, enabledWord(app.ThirdPartyEvents().CanSend()))
			return err
		},
	}
}

func newLogoutCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, _, err := openApp(cmd, *cfgPath)
			if err != nil {
				return err
			}
			if !app.CurrentUser().Exists() {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "not logged in")
				return err
			}
			app.CurrentUser().Logout()
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return err
		},
	}
}

func enabledWord(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}
