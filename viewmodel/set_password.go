package viewmodel

import (
	"context"

	"pkt.systems/pledgeflow/internal/eventbus"
	"pkt.systems/pledgeflow/internal/graphql"
	"pkt.systems/pledgeflow/rx"
	"pkt.systems/pledgeflow/schema"
)

// ScreenSetPassword names the set-password screen.
const ScreenSetPassword = "set_password"

// SetPasswordInputs are the user actions of the set-password screen.
type SetPasswordInputs interface {
	// ConfigureWith passes the account email the screen was opened for.
	ConfigureWith(email string)
	NewPassword(value string)
	ConfirmPassword(value string)
	ChangePasswordClicked()
}

// SetPasswordOutputs are the values the set-password screen renders.
type SetPasswordOutputs interface {
	// Error emits display-ready messages of failed updates.
	Error() rx.Observable[string]
	// PasswordWarning emits the inline warning whenever it changes to a
	// non-empty warning.
	PasswordWarning() rx.Observable[schema.PasswordWarning]
	ProgressBarIsVisible() rx.Observable[bool]
	IsFormSubmitting() rx.Observable[bool]
	SaveButtonIsEnabled() rx.Observable[bool]
	// Success emits the account email once the password is set.
	Success() rx.Observable[string]
	// SetUserEmail emits the masked account email.
	SetUserEmail() rx.Observable[string]
}

// SetPassword lets an account created through a third party choose a password.
type SetPassword struct {
	*Lifecycle
	env Environment

	email           *rx.Subject[string]
	newPassword     *rx.Subject[string]
	confirmPassword *rx.Subject[string]
	changeClicked   *rx.Subject[rx.Void]

	errorOut    *rx.Behavior[string]
	warning     *rx.Behavior[schema.PasswordWarning]
	progress    *rx.Behavior[bool]
	submitting  *rx.Behavior[bool]
	saveEnabled *rx.Behavior[bool]
	success     *rx.Behavior[string]
	userEmail   *rx.Behavior[string]
}

// NewSetPassword builds the screen. Nothing runs until Create.
func NewSetPassword(env Environment) *SetPassword {
	vm := &SetPassword{
		env:             env,
		email:           rx.NewSubject[string](),
		newPassword:     rx.NewSubject[string](),
		confirmPassword: rx.NewSubject[string](),
		changeClicked:   rx.NewSubject[rx.Void](),
		errorOut:        rx.NewBehavior[string](),
		warning:         rx.NewBehavior[schema.PasswordWarning](),
		progress:        rx.NewBehavior[bool](),
		submitting:      rx.NewBehavior[bool](),
		saveEnabled:     rx.NewBehavior[bool](),
		success:         rx.NewBehavior[string](),
		userEmail:       rx.NewBehavior[string](),
	}
	vm.Lifecycle = newLifecycle(ScreenSetPassword, env, vm.bind)
	return vm
}

// Inputs returns the input side of the screen.
func (vm *SetPassword) Inputs() SetPasswordInputs { return vm }

// Outputs returns the output side of the screen.
func (vm *SetPassword) Outputs() SetPasswordOutputs { return vm }

func (vm *SetPassword) bind(ctx context.Context) {
	l := vm.Lifecycle

	masked := rx.Map(rx.Filter[string](vm.email, func(e string) bool { return e != "" }), schema.MaskEmail)
	subscribe(l, masked, output(l, "set_user_email", eventbus.SignalOutput, vm.userEmail))

	// Field state seeded with empty values drives warnings and the save button.
	form := rx.CombineLatest2(
		rx.StartWith[string](vm.newPassword, ""),
		rx.StartWith[string](vm.confirmPassword, ""),
		newPasswordForm,
	)
	warnings := rx.Filter(rx.Map(form, schema.NewPasswordForm.Warning), func(w schema.PasswordWarning) bool {
		return w != schema.PasswordWarningNone
	})
	subscribe(l, rx.DistinctUntilChanged(warnings), output(l, "password_warning", eventbus.SignalOutput, vm.warning))
	subscribe(l, rx.DistinctUntilChanged(rx.Map(form, schema.NewPasswordForm.IsValid)),
		output(l, "save_button_is_enabled", eventbus.SignalOutput, vm.saveEnabled))

	// Submissions need both fields to have been edited at least once.
	typed := rx.CombineLatest2[string, string](vm.newPassword, vm.confirmPassword, newPasswordForm)
	progressOut := output(l, "progress_bar_is_visible", eventbus.SignalProgress, vm.progress)
	submittingOut := output(l, "is_form_submitting", eventbus.SignalProgress, vm.submitting)
	busy := rx.NewBusy(func(v bool) {
		progressOut(v)
		submittingOut(v)
	})
	notifications := rx.Share(rx.SwitchMap(rx.TakeWhen[schema.NewPasswordForm, rx.Void](typed, vm.changeClicked),
		func(f schema.NewPasswordForm) rx.Observable[rx.Notification[schema.UpdatePasswordResult]] {
			return rx.Call(ctx, l.Scheduler(), vm.submit(f), busy.Observe)
		}))

	errs := rx.Errors(notifications)
	apiErrors := rx.Filter(rx.Map(errs, func(err error) string { return err.Error() }), nonEmpty)
	envelopeErrors := rx.Filter(rx.Map(errs, func(err error) string {
		return graphql.EnvelopeFromError(err).ErrorMessage()
	}), nonEmpty)
	subscribe(l, rx.DistinctUntilChanged(rx.Merge(apiErrors, envelopeErrors)),
		output(l, "error", eventbus.SignalError, vm.errorOut))

	updated := rx.Filter(rx.Values(notifications), func(res schema.UpdatePasswordResult) bool {
		return res.User.HasPassword
	})
	successOut := output(l, "success", eventbus.SignalOutput, vm.success)
	if vm.env.CurrentUser == nil {
		subscribe(l, rx.Map(updated, func(res schema.UpdatePasswordResult) string { return res.User.Email }), successOut)
		return
	}
	users := vm.env.CurrentUser.LoggedInUser()
	subscribe(l, rx.DistinctUntilChanged(rx.TakePairWhen(users, updated)),
		func(p rx.Pair[schema.User, schema.UpdatePasswordResult]) {
			if vm.env.CurrentUser.AccessToken() != "" {
				user := p.First
				user.NeedsPassword = false
				user.HasPassword = true
				vm.env.CurrentUser.Login(user, "")
			}
			successOut(p.Second.User.Email)
		})
}

func (vm *SetPassword) submit(f schema.NewPasswordForm) rx.CallFunc[schema.UpdatePasswordResult] {
	return func(ctx context.Context) (schema.UpdatePasswordResult, error) {
		if vm.env.API == nil {
			return schema.UpdatePasswordResult{}, schema.ErrMissingDependency
		}
		vm.log.Info("password update requested")
		return vm.env.API.UpdateUserPassword(ctx, schema.UpdatePasswordRequest{
			Password:             f.NewPassword,
			PasswordConfirmation: f.ConfirmPassword,
		})
	}
}

func newPasswordForm(newPassword, confirm string) schema.NewPasswordForm {
	return schema.NewPasswordForm{NewPassword: newPassword, ConfirmPassword: confirm}
}

func nonEmpty(s string) bool { return s != "" }

// Inputs.

func (vm *SetPassword) ConfigureWith(email string) {
	vm.post(func() { vm.email.Next(email) })
}

func (vm *SetPassword) NewPassword(value string) {
	vm.post(func() { vm.newPassword.Next(value) })
}

func (vm *SetPassword) ConfirmPassword(value string) {
	vm.post(func() { vm.confirmPassword.Next(value) })
}

func (vm *SetPassword) ChangePasswordClicked() {
	vm.post(func() { vm.changeClicked.Next(rx.Void{}) })
}

// Outputs.

func (vm *SetPassword) Error() rx.Observable[string] { return vm.errorOut }

func (vm *SetPassword) PasswordWarning() rx.Observable[schema.PasswordWarning] { return vm.warning }

func (vm *SetPassword) ProgressBarIsVisible() rx.Observable[bool] { return vm.progress }

func (vm *SetPassword) IsFormSubmitting() rx.Observable[bool] { return vm.submitting }

func (vm *SetPassword) SaveButtonIsEnabled() rx.Observable[bool] { return vm.saveEnabled }

func (vm *SetPassword) Success() rx.Observable[string] { return vm.success }

func (vm *SetPassword) SetUserEmail() rx.Observable[string] { return vm.userEmail }
