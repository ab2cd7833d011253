package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/kryptograf/keymgmt"
	"pkt.systems/pledgeflow/rx"
	"pkt.systems/pledgeflow/schema"
	"pkt.systems/pledgeflow/viewmodel"
)

func newPasswordCmd(cfgPath *string) *cobra.Command {
	var passwordFromStdin bool
	var email string
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Choose a password for an account created through a third party",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cfg, err := openApp(cmd, *cfgPath)
			if err != nil {
				return err
			}
			if err := ensureSession(app, cfg, email); err != nil {
				return err
			}
			newPassword, confirm, err := readPasswords(cmd, passwordFromStdin)
			if err != nil {
				return err
			}

			ctx, cancel := screenContext(cmd.Context(), cfg)
			defer cancel()
			traceSignals(ctx, app.Bus(), viewmodel.ScreenSetPassword)

			vm := viewmodel.NewSetPassword(app.Environment())
			if err := vm.Create(ctx); err != nil {
				return err
			}
			defer vm.Destroy()
			in, out := vm.Inputs(), vm.Outputs()

			success, successSub := first(out.Success())
			defer successSub.Dispose()
			failure, failureSub := firstMatching(out.Error(), nonEmpty)
			defer failureSub.Dispose()

			if user, ok := app.CurrentUser().User(); ok && user.Email != "" {
				in.ConfigureWith(user.Email)
			}
			in.NewPassword(newPassword)
			in.ConfirmPassword(confirm)
			vm.Sync()

			if enabled, _ := latest(out.SaveButtonIsEnabled()); !enabled {
				if warning, ok := latest(out.PasswordWarning()); ok && warning != schema.PasswordWarningNone {
					return errors.New(warning.String())
				}
				return errors.New("password form is incomplete")
			}
			if masked, ok := latest(out.SetUserEmail()); ok {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Setting password for %s\n", masked)
			}
			in.ChangePasswordClicked()

			select {
			case email := <-success:
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "password set for %s\n", schema.MaskEmail(email))
				return err
			case msg := <-failure:
				return errors.New(msg)
			case <-ctx.Done():
				return waitErr(ctx, "password")
			}
		},
	}
	cmd.Flags().BoolVar(&passwordFromStdin, "password-from-stdin", false, "read the new password (and optional confirmation line) from stdin")
	cmd.Flags().StringVar(&email, "email", "", "account email used when logging in with the configured token")
	return cmd
}

func readPasswords(cmd *cobra.Command, fromStdin bool) (string, string, error) {
	if fromStdin {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", err
		}
		return splitPasswordInput(string(data))
	}
	passphrase, err := keymgmt.PromptPassphrase(cmd.InOrStdin(), "New password: ", cmd.ErrOrStderr())
	if err != nil {
		return "", "", err
	}
	confirm, err := keymgmt.PromptPassphrase(cmd.InOrStdin(), "Confirm password: ", cmd.ErrOrStderr())
	if err != nil {
		return "", "", err
	}
	return string(passphrase), string(confirm), nil
}

// splitPasswordInput reads "new\nconfirm"; a single line confirms itself.
func splitPasswordInput(data string) (string, string, error) {
	lines := strings.Split(strings.TrimRight(data, "\r\n"), "\n")
	newPassword := strings.TrimRight(lines[0], "\r")
	if newPassword == "" {
		return "", "", errors.New("password from stdin is empty")
	}
	confirm := newPassword
	if len(lines) > 1 {
		confirm = strings.TrimRight(lines[1], "\r")
	}
	return newPassword, confirm, nil
}

// latest returns the value a replaying source holds right now.
func latest[T any](src rx.Observable[T]) (T, bool) {
	var (
		value T
		has   bool
	)
	src.Subscribe(func(v T) {
		value, has = v, true
	}).Dispose()
	return value, has
}

func nonEmpty(s string) bool { return s != "" }
