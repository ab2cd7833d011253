package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pkt.systems/pledgeflow"
	"pkt.systems/pledgeflow/internal/appconfig"
	"pkt.systems/pledgeflow/schema"
	"pkt.systems/pledgeflow/viewmodel"
)

func newCardsCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cards",
		Short: "Manage stored payment methods",
	}
	cmd.AddCommand(newCardsListCmd(cfgPath))
	cmd.AddCommand(newCardsDeleteCmd(cfgPath))
	cmd.AddCommand(newCardsAddCmd(cfgPath))
	return cmd
}

// cardsScreen is a created PaymentMethods screen with its first card list.
type cardsScreen struct {
	vm    *viewmodel.PaymentMethods
	cards []schema.StoredCard
}

func openCardsScreen(ctx context.Context, app *pledgeflow.App, cfg appconfig.Config) (*cardsScreen, error) {
	if err := ensureSession(app, cfg, ""); err != nil {
		return nil, err
	}
	traceSignals(ctx, app.Bus(), viewmodel.ScreenPaymentMethods)
	vm := viewmodel.NewPaymentMethods(app.Environment())
	loaded, sub := first(vm.Outputs().Cards())
	defer sub.Dispose()
	if err := vm.Create(ctx); err != nil {
		return nil, err
	}
	select {
	case cards := <-loaded:
		return &cardsScreen{vm: vm, cards: cards}, nil
	case <-ctx.Done():
		vm.Destroy()
		return nil, waitErr(ctx, "load cards")
	}
}

func printCards(w io.Writer, cards []schema.StoredCard) {
	if len(cards) == 0 {
		_, _ = fmt.Fprintln(w, "no stored cards")
		return
	}
	for _, card := range cards {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", card.ID, card)
	}
}

func newCardsListCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored cards",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cfg, err := openApp(cmd, *cfgPath)
			if err != nil {
				return err
			}
			ctx, cancel := screenContext(cmd.Context(), cfg)
			defer cancel()
			screen, err := openCardsScreen(ctx, app, cfg)
			if err != nil {
				return err
			}
			defer screen.vm.Destroy()
			printCards(cmd.OutOrStdout(), screen.cards)
			return nil
		},
	}
}

func newCardsDeleteCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cfg, err := openApp(cmd, *cfgPath)
			if err != nil {
				return err
			}
			ctx, cancel := screenContext(cmd.Context(), cfg)
			defer cancel()
			screen, err := openCardsScreen(ctx, app, cfg)
			if err != nil {
				return err
			}
			vm := screen.vm
			defer vm.Destroy()
			out := vm.Outputs()

			success, successSub := first(out.Success())
			defer successSub.Dispose()
			failure, failureSub := firstMatching(out.Error(), nonEmpty)
			defer failureSub.Dispose()
			refreshed, refreshSub := firstMatching(out.Cards(), func(cards []schema.StoredCard) bool {
				return len(cards) < len(screen.cards)
			})
			defer refreshSub.Dispose()

			vm.Inputs().DeleteCardClicked(args[0])
			vm.Inputs().ConfirmDeleteCardClicked()
			select {
			case <-success:
			case msg := <-failure:
				return errors.New(msg)
			case <-ctx.Done():
				return waitErr(ctx, "delete card")
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			select {
			case cards := <-refreshed:
				printCards(cmd.OutOrStdout(), cards)
			case <-ctx.Done():
			}
			return nil
		},
	}
}

func newCardsAddCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "add",
		Short: "Create a setup intent and save the resulting card",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cfg, err := openApp(cmd, *cfgPath)
			if err != nil {
				return err
			}
			ctx, cancel := screenContext(cmd.Context(), cfg)
			defer cancel()
			screen, err := openCardsScreen(ctx, app, cfg)
			if err != nil {
				return err
			}
			vm := screen.vm
			defer vm.Destroy()
			out := vm.Outputs()

			sheet, sheetSub := firstMatching(out.PresentPaymentSheet(), nonEmpty)
			defer sheetSub.Dispose()
			failure, failureSub := firstMatching(out.ShowError(), nonEmpty)
			defer failureSub.Dispose()
			grown, grownSub := firstMatching(out.Cards(), func(cards []schema.StoredCard) bool {
				return len(cards) > len(screen.cards)
			})
			defer grownSub.Dispose()

			vm.Inputs().NewCardButtonClicked()
			select {
			case <-sheet:
			case msg := <-failure:
				return errors.New(msg)
			case <-ctx.Done():
				return waitErr(ctx, "setup intent")
			}
			vm.Inputs().SavePaymentOption()
			select {
			case cards := <-grown:
				printCards(cmd.OutOrStdout(), cards)
				return nil
			case msg := <-failure:
				return errors.New(msg)
			case <-ctx.Done():
				return waitErr(ctx, "save card")
			}
		},
	}
}
