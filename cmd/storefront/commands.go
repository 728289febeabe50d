package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wichananm65/rosilias-store/internal/checkout"
	"github.com/wichananm65/rosilias-store/internal/idle"
)

func packagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "packages",
		Short: "List the active travel packages",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(false)
			if err != nil {
				return err
			}
			defer e.close()

			pkgs, err := e.app.Packages(cmd.Context())
			if err != nil {
				return err
			}
			for _, p := range pkgs {
				fmt.Printf("%-4d %-28s %-40s %s\n", p.ID, p.Slug, p.Title, formatCents(p.PriceCents, e.currency))
			}
			return nil
		},
	}
}

func cartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show or change the active cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(false)
			if err != nil {
				return err
			}
			defer e.close()
			printCart(e)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <slug> [qty]",
		Short: "Add a package to the cart",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty := defaultQuantity
			if len(args) == 2 {
				n, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("qty: %w", err)
				}
				qty = n
			}
			e, err := openEnv(false)
			if err != nil {
				return err
			}
			defer e.close()
			if err := e.app.AddToCart(cmd.Context(), args[0], qty); err != nil {
				return err
			}
			printCart(e)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <package-id> <qty>",
		Short: "Set the quantity of a line; 0 removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("package id: %w", err)
			}
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("qty: %w", err)
			}
			e, err := openEnv(false)
			if err != nil {
				return err
			}
			defer e.close()
			e.app.Cart.SetQuantity(id, qty)
			printCart(e)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <package-id>",
		Short: "Remove a line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("package id: %w", err)
			}
			e, err := openEnv(false)
			if err != nil {
				return err
			}
			defer e.close()
			e.app.Cart.Remove(id)
			printCart(e)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(false)
			if err != nil {
				return err
			}
			defer e.close()
			e.app.Cart.Clear()
			printCart(e)
			return nil
		},
	})

	return cmd
}

func printCart(e *env) {
	s := e.app.Cart.Snapshot()
	fmt.Printf("cart %s\n", s.Key)
	if len(s.Lines) == 0 {
		fmt.Println("  (empty)")
		return
	}
	for _, l := range s.Lines {
		fmt.Printf("  %-4d %-28s x%-3d %s\n", l.Pkg.ID, l.Pkg.Slug, l.Qty, formatCents(l.Subtotal(), e.currency))
	}
	fmt.Printf("  %d items, total %s\n", s.Count, formatCents(s.Total, e.currency))
}

func signInCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sign-in <email> <password>",
		Short: "Sign in; the guest cart is merged into the account cart",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(false)
			if err != nil {
				return err
			}
			defer e.close()
			id, err := e.app.SignIn(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("signed in as %s\n", id.Email)
			printCart(e)
			return nil
		},
	}
}

func signOutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sign-out",
		Short: "Sign out and return to the guest cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(false)
			if err != nil {
				return err
			}
			defer e.close()
			if err := e.app.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("signed out")
			return nil
		},
	}
}

func checkoutCmd() *cobra.Command {
	var paymentMethod string
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Create an order for the cart and confirm the payment",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(false)
			if err != nil {
				return err
			}
			defer e.close()

			attempt, err := e.app.Checkout.Begin(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("order %d: %s\n", attempt.OrderID, formatCents(attempt.AmountCents, attempt.Currency))

			out, err := attempt.Submit(cmd.Context(), checkout.Details{PaymentMethod: paymentMethod})
			if err != nil {
				return err
			}
			printOutcome(out)
			if out.State == checkout.StateRequiresAction {
				fmt.Printf("resume with: storefront resume %s\n", attempt.ClientSecret)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&paymentMethod, "payment-method", "pm_card_visa", "Processor payment method id")
	return cmd
}

func resumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <client-secret>",
		Short: "Check a payment after returning from a verification step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(false)
			if err != nil {
				return err
			}
			defer e.close()
			printOutcome(e.app.Checkout.Resume(cmd.Context(), args[0]))
			return nil
		},
	}
}

func printOutcome(out checkout.Outcome) {
	fmt.Printf("%s: %s\n", out.State, out.Message)
	if out.RedirectURL != "" {
		fmt.Printf("complete verification at %s\n", out.RedirectURL)
	}
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the session open; every input line counts as activity",
		Long: `Runs the idle monitor for the signed-in session. Each line read from stdin is
treated as a key press and shared with other running watchers through Redis.
When no one is active for the quiet period the session is signed out.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(true)
			if err != nil {
				return err
			}
			defer e.close()

			ctx := cmd.Context()
			if e.channel != nil {
				if err := e.channel.Start(ctx); err != nil {
					return err
				}
			}
			if e.app.Session.Current() == nil {
				return fmt.Errorf("not signed in")
			}
			e.app.Start(ctx)

			lines := make(chan string)
			go func() {
				sc := bufio.NewScanner(os.Stdin)
				for sc.Scan() {
					lines <- strings.TrimSpace(sc.Text())
				}
				close(lines)
			}()

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-e.app.Idle.Expired():
					fmt.Println("signed out after inactivity")
					return nil
				case _, ok := <-lines:
					if !ok {
						return nil
					}
					e.app.Idle.Activity(ctx, idle.KeyPress)
				}
			}
		},
	}
}
