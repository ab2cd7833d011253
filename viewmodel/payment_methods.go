package viewmodel

import (
	"context"

	"pkt.systems/pledgeflow/internal/eventbus"
	"pkt.systems/pledgeflow/internal/graphql"
	"pkt.systems/pledgeflow/rx"
	"pkt.systems/pledgeflow/schema"
)

// ScreenPaymentMethods names the payment methods settings screen.
const ScreenPaymentMethods = "payment_methods"

// PaymentMethodsInputs are the user actions of the payment methods screen.
type PaymentMethodsInputs interface {
	NewCardButtonClicked()
	ConfirmDeleteCardClicked()
	DeleteCardClicked(paymentSourceID string)
	// RefreshCards reloads the stored cards.
	RefreshCards()
	// SavePaymentOption stores the card entered on the payment sheet.
	SavePaymentOption()
}

// PaymentMethodsOutputs are the values the payment methods screen renders.
type PaymentMethodsOutputs interface {
	Cards() rx.Observable[[]schema.StoredCard]
	DividerIsVisible() rx.Observable[bool]
	// Error emits the message of a failed delete.
	Error() rx.Observable[string]
	ProgressBarIsVisible() rx.Observable[bool]
	// ShowDeleteCardDialog emits the id of the card the user wants to delete.
	ShowDeleteCardDialog() rx.Observable[string]
	// Success emits the mutation id of a deleted card.
	Success() rx.Observable[string]
	// PresentPaymentSheet emits the client secret of a new setup intent.
	PresentPaymentSheet() rx.Observable[string]
	// ShowError emits the message of a failed card setup.
	ShowError() rx.Observable[string]
}

// PaymentMethods lists, adds and deletes the user's stored cards.
type PaymentMethods struct {
	*Lifecycle
	env Environment

	newCard           *rx.Subject[rx.Void]
	confirmDelete     *rx.Subject[rx.Void]
	deleteClicked     *rx.Subject[string]
	refresh           *rx.Subject[rx.Void]
	savePaymentOption *rx.Subject[rx.Void]
	busy              *rx.Subject[bool]
	calls             *rx.Busy

	cards        *rx.Behavior[[]schema.StoredCard]
	divider      *rx.Behavior[bool]
	errorOut     *rx.Behavior[string]
	progress     *rx.Behavior[bool]
	deleteDialog *rx.Behavior[string]
	success      *rx.Behavior[string]
	paymentSheet *rx.Behavior[string]
	showError    *rx.Behavior[string]
}

// NewPaymentMethods builds the screen. Cards are fetched on Create.
func NewPaymentMethods(env Environment) *PaymentMethods {
	vm := &PaymentMethods{
		env:               env,
		newCard:           rx.NewSubject[rx.Void](),
		confirmDelete:     rx.NewSubject[rx.Void](),
		deleteClicked:     rx.NewSubject[string](),
		refresh:           rx.NewSubject[rx.Void](),
		savePaymentOption: rx.NewSubject[rx.Void](),
		busy:              rx.NewSubject[bool](),
		cards:             rx.NewBehavior[[]schema.StoredCard](),
		divider:           rx.NewBehavior[bool](),
		errorOut:          rx.NewBehavior[string](),
		progress:          rx.NewBehavior[bool](),
		deleteDialog:      rx.NewBehavior[string](),
		success:           rx.NewBehavior[string](),
		paymentSheet:      rx.NewBehavior[string](),
		showError:         rx.NewBehavior[string](),
	}
	vm.calls = rx.NewBusy(vm.busy.Next)
	vm.Lifecycle = newLifecycle(ScreenPaymentMethods, env, vm.bind)
	return vm
}

// Inputs returns the input side of the screen.
func (vm *PaymentMethods) Inputs() PaymentMethodsInputs { return vm }

// Outputs returns the output side of the screen.
func (vm *PaymentMethods) Outputs() PaymentMethodsOutputs { return vm }

func (vm *PaymentMethods) bind(ctx context.Context) {
	l := vm.Lifecycle
	if vm.env.API == nil {
		l.log.Error("payment methods screen has no api client")
		return
	}
	sched := l.Scheduler()

	subscribe(l, rx.DistinctUntilChanged[bool](vm.busy),
		output(l, "progress_bar_is_visible", eventbus.SignalProgress, vm.progress))
	cardsOut := output(l, "cards", eventbus.SignalOutput, vm.cards)
	subscribe(l, rx.Map[[]schema.StoredCard](vm.cards, func(cards []schema.StoredCard) bool { return len(cards) > 0 }),
		output(l, "divider_is_visible", eventbus.SignalOutput, vm.divider))

	subscribe(l, vm.fetchCards(ctx), cardsOut)
	subscribe(l, rx.SwitchMap[rx.Void](vm.refresh, func(rx.Void) rx.Observable[[]schema.StoredCard] {
		return vm.fetchCards(ctx)
	}), cardsOut)

	subscribe(l, rx.Observable[string](vm.deleteClicked),
		output(l, "show_delete_card_dialog", eventbus.SignalOutput, vm.deleteDialog))

	deleted := rx.Share(rx.SwitchMap(rx.TakeWhen[string, rx.Void](vm.deleteClicked, vm.confirmDelete),
		func(id string) rx.Observable[rx.Notification[schema.DeletePaymentSourceResult]] {
			return rx.Call(ctx, sched, func(ctx context.Context) (schema.DeletePaymentSourceResult, error) {
				return vm.env.API.DeletePaymentSource(ctx, id)
			}, vm.calls.Observe)
		}))
	successOut := output(l, "success", eventbus.SignalOutput, vm.success)
	subscribe(l, rx.Values(deleted), func(res schema.DeletePaymentSourceResult) {
		vm.refresh.Next(rx.Void{})
		successOut(res.ClientMutationID)
	})
	subscribe(l, rx.ErrorMessages(rx.Errors(deleted), graphql.DisplayMessage),
		output(l, "error", eventbus.SignalError, vm.errorOut))

	showErrorOut := output(l, "show_error", eventbus.SignalError, vm.showError)

	intents := rx.Share(rx.SwitchMap[rx.Void](vm.newCard,
		func(rx.Void) rx.Observable[rx.Notification[schema.SetupIntent]] {
			return rx.Call(ctx, sched, vm.env.API.CreateSetupIntent, vm.calls.Observe)
		}))
	subscribe(l, rx.Map(rx.Values(intents), func(intent schema.SetupIntent) string { return intent.ClientSecret }),
		output(l, "present_payment_sheet", eventbus.SignalOutput, vm.paymentSheet))
	subscribe(l, rx.ErrorMessages(rx.Errors(intents), graphql.DisplayMessage), showErrorOut)

	// Saving needs a setup intent; taps before the first one are dropped.
	requests := rx.WithLatestFrom[rx.Void, string](vm.savePaymentOption, vm.paymentSheet,
		func(_ rx.Void, secret string) schema.SavePaymentMethodRequest {
			return schema.SavePaymentMethodRequest{Reusable: true, IntentClientSecret: secret}
		})
	saved := rx.Share(rx.SwitchMap(requests,
		func(req schema.SavePaymentMethodRequest) rx.Observable[rx.Notification[schema.StoredCard]] {
			return rx.Call(ctx, sched, func(ctx context.Context) (schema.StoredCard, error) {
				return vm.env.API.SavePaymentMethod(ctx, req)
			}, vm.calls.Observe)
		}))
	subscribe(l, rx.Values(saved), func(card schema.StoredCard) {
		vm.log.Info("payment method saved", "card", card.ID)
		vm.refresh.Next(rx.Void{})
	})
	subscribe(l, rx.ErrorMessages(rx.Errors(saved), graphql.DisplayMessage), showErrorOut)
}

// fetchCards loads the stored cards. Failures are logged and dropped so the
// current list stays on screen.
func (vm *PaymentMethods) fetchCards(ctx context.Context) rx.Observable[[]schema.StoredCard] {
	return rx.ObservableFunc[[]schema.StoredCard](func(obs rx.Observer[[]schema.StoredCard]) rx.Disposable {
		notifications := rx.Call(ctx, vm.Scheduler(), vm.env.API.StoredCards, vm.calls.Observe)
		return notifications.Subscribe(func(n rx.Notification[[]schema.StoredCard]) {
			switch {
			case n.IsError():
				vm.log.Warn("stored cards fetch failed", "err", n.Err)
			case n.IsValue():
				obs(n.Value)
			}
		})
	})
}

// Inputs.

func (vm *PaymentMethods) NewCardButtonClicked() {
	vm.post(func() { vm.newCard.Next(rx.Void{}) })
}

func (vm *PaymentMethods) ConfirmDeleteCardClicked() {
	vm.post(func() { vm.confirmDelete.Next(rx.Void{}) })
}

func (vm *PaymentMethods) DeleteCardClicked(paymentSourceID string) {
	vm.post(func() { vm.deleteClicked.Next(paymentSourceID) })
}

func (vm *PaymentMethods) RefreshCards() {
	vm.post(func() { vm.refresh.Next(rx.Void{}) })
}

func (vm *PaymentMethods) SavePaymentOption() {
	vm.post(func() { vm.savePaymentOption.Next(rx.Void{}) })
}

// Outputs.

func (vm *PaymentMethods) Cards() rx.Observable[[]schema.StoredCard] { return vm.cards }

func (vm *PaymentMethods) DividerIsVisible() rx.Observable[bool] { return vm.divider }

func (vm *PaymentMethods) Error() rx.Observable[string] { return vm.errorOut }

func (vm *PaymentMethods) ProgressBarIsVisible() rx.Observable[bool] { return vm.progress }

func (vm *PaymentMethods) ShowDeleteCardDialog() rx.Observable[string] { return vm.deleteDialog }

func (vm *PaymentMethods) Success() rx.Observable[string] { return vm.success }

func (vm *PaymentMethods) PresentPaymentSheet() rx.Observable[string] { return vm.paymentSheet }

func (vm *PaymentMethods) ShowError() rx.Observable[string] { return vm.showError }
