package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"setka/internal/adapter/repo"
	"setka/internal/domain"
	"setka/internal/infra/credentials"
	"setka/internal/middleware"
	"setka/internal/sqlinline"
	"setka/internal/storage"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			sql, _, err := ctx.ensureDB(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := sql.Exec(cmd.Context(), sqlinline.QCreateSchema); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
			return nil
		},
	}
}

func newKeyCommand(ctx *commandContext) *cobra.Command {
	keyCmd := &cobra.Command{
		Use:   "key",
		Short: "Manage server-side provider keys",
	}

	var provider, value string
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Store the key used for credit-paid generations",
		RunE: func(cmd *cobra.Command, args []string) error {
			provider = strings.ToLower(strings.TrimSpace(provider))
			if provider != credentials.ProviderGemini && provider != credentials.ProviderOhMyGPT {
				return fmt.Errorf("unknown provider %q (want %s or %s)", provider, credentials.ProviderGemini, credentials.ProviderOhMyGPT)
			}
			sql, _, err := ctx.ensureDB(cmd.Context())
			if err != nil {
				return err
			}
			if err := credentials.NewStore(sql).Set(cmd.Context(), provider, value); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Stored %s key\n", provider)
			return nil
		},
	}
	setCmd.Flags().StringVar(&provider, "provider", "", "gemini or ohmygpt")
	setCmd.Flags().StringVar(&value, "value", "", "API key")
	_ = setCmd.MarkFlagRequired("provider")
	_ = setCmd.MarkFlagRequired("value")

	clearCmd := &cobra.Command{
		Use:   "clear PROVIDER",
		Short: "Remove a stored key so the environment key applies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sql, _, err := ctx.ensureDB(cmd.Context())
			if err != nil {
				return err
			}
			if err := credentials.NewStore(sql).Clear(cmd.Context(), args[0]); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Cleared %s key\n", strings.ToLower(args[0]))
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show which key each provider uses",
		RunE: func(cmd *cobra.Command, args []string) error {
			sql, cfg, err := ctx.ensureDB(cmd.Context())
			if err != nil {
				return err
			}
			store := credentials.NewStore(sql).
				WithFallback(credentials.ProviderGemini, cfg.GeminiAPIKey).
				WithFallback(credentials.ProviderOhMyGPT, cfg.OhMyGPTAPIKey)
			status, err := store.Status(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(status))
			for _, s := range status {
				rows = append(rows, []string{s.Provider, s.Source, s.Masked})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Provider", "Source", "Key"}, rows, nil))
			return nil
		},
	}

	keyCmd.AddCommand(setCmd, clearCmd, statusCmd)
	return keyCmd
}

func newUserCommand(ctx *commandContext) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	var (
		username string
		credits  int
		admin    bool
	)
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, users, err := ctx.accounts(cmd.Context())
			if err != nil {
				return err
			}
			u, err := svc.Register(cmd.Context(), username, credits)
			if err != nil {
				return err
			}
			if admin {
				if err := users.SetRole(cmd.Context(), u.ID, domain.UserRoleAdmin); err != nil {
					return fmt.Errorf("promote %s: %w", u.Username, err)
				}
				u.Role = domain.UserRoleAdmin
			}
			printf(cmd.OutOrStdout(), "Created %s (%s) role=%s credits=%d\n", u.Username, u.ID, u.Role, u.Credits)
			return nil
		},
	}
	createCmd.Flags().StringVar(&username, "username", "", "Login name")
	createCmd.Flags().IntVar(&credits, "credits", 0, "Opening balance")
	createCmd.Flags().BoolVar(&admin, "admin", false, "Grant the admin role")
	_ = createCmd.MarkFlagRequired("username")

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, users, err := ctx.accounts(cmd.Context())
			if err != nil {
				return err
			}
			list, err := users.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(list))
			for _, u := range list {
				rows = append(rows, []string{
					u.Username,
					u.ID,
					string(u.Role),
					strconv.Itoa(u.Credits),
					string(u.PaymentMode),
					yesNo(u.HasOwnKey()),
					u.CreatedAt.Format(time.DateOnly),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Username", "ID", "Role", "Credits", "Payment", "Own key", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 100, "Maximum rows")

	var (
		rename     string
		setCredits int
	)
	updateCmd := &cobra.Command{
		Use:   "update USER",
		Short: "Rename an account or set its balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changes := userChanges(cmd, rename, setCredits)
			if changes.Empty() {
				return fmt.Errorf("pass --username or --credits")
			}
			svc, _, err := ctx.accounts(cmd.Context())
			if err != nil {
				return err
			}
			u, err := svc.Lookup(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("find %s: %w", args[0], err)
			}
			if u, err = svc.UpdateUser(cmd.Context(), u.ID, changes); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Updated %s (%s) credits=%d\n", u.Username, u.ID, u.Credits)
			return nil
		},
	}
	updateCmd.Flags().StringVar(&rename, "username", "", "New login name")
	updateCmd.Flags().IntVar(&setCredits, "credits", 0, "New balance")

	deleteCmd := &cobra.Command{
		Use:   "delete USER",
		Short: "Delete an account with its favorites and history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := ctx.accounts(cmd.Context())
			if err != nil {
				return err
			}
			sql, cfg, _ := ctx.ensureDB(cmd.Context())
			u, err := svc.Lookup(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("find %s: %w", args[0], err)
			}
			entries, err := repo.NewHistoryRepo(sql).ListByUser(cmd.Context(), u.ID, maxUserImages)
			if err != nil {
				return err
			}
			if err := svc.DeleteUser(cmd.Context(), u.ID); err != nil {
				return err
			}
			removed := 0
			if store, err := storage.NewFileStore(cfg.StoragePath); err == nil {
				for _, e := range entries {
					if err := store.Delete(cmd.Context(), e.StorageKey); err != nil {
						ctx.log().Warn().Err(err).Str("storage_key", e.StorageKey).Msg("user delete: image left behind")
						continue
					}
					removed++
				}
			}
			printf(cmd.OutOrStdout(), "Deleted %s (%d images)\n", u.Username, removed)
			return nil
		},
	}

	userCmd.AddCommand(createCmd, listCmd, updateCmd, deleteCmd)
	return userCmd
}

// maxUserImages bounds the stored images removed with an account.
const maxUserImages = 10000

// userChanges keeps only the flags given on the command line, so --credits 0
// zeroes a balance while an absent flag leaves it alone.
func userChanges(cmd *cobra.Command, username string, credits int) domain.UserChanges {
	var changes domain.UserChanges
	if cmd.Flags().Changed("username") {
		changes.Username = &username
	}
	if cmd.Flags().Changed("credits") {
		changes.Credits = &credits
	}
	return changes
}

func newCreditsCommand(ctx *commandContext) *cobra.Command {
	creditsCmd := &cobra.Command{
		Use:   "credits",
		Short: "Adjust balances and payment modes",
	}

	var (
		user   string
		amount int
	)
	grantCmd := &cobra.Command{
		Use:   "grant",
		Short: "Add credits to an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := ctx.accounts(cmd.Context())
			if err != nil {
				return err
			}
			u, err := svc.Lookup(cmd.Context(), user)
			if err != nil {
				return fmt.Errorf("find %s: %w", user, err)
			}
			balance, err := svc.Grant(cmd.Context(), u.ID, amount)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s now has %d credits\n", u.Username, balance)
			return nil
		},
	}
	grantCmd.Flags().StringVar(&user, "user", "", "Username or id")
	grantCmd.Flags().IntVar(&amount, "amount", 0, "Credits to add")
	_ = grantCmd.MarkFlagRequired("user")
	_ = grantCmd.MarkFlagRequired("amount")

	var mode, apiKey string
	modeCmd := &cobra.Command{
		Use:   "mode",
		Short: "Switch between credits and the user's own key",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, ok := domain.ParsePaymentMode(mode)
			if !ok {
				return fmt.Errorf("unknown payment mode %q", mode)
			}
			svc, _, err := ctx.accounts(cmd.Context())
			if err != nil {
				return err
			}
			u, err := svc.Lookup(cmd.Context(), user)
			if err != nil {
				return fmt.Errorf("find %s: %w", user, err)
			}
			if u, err = svc.SetPayment(cmd.Context(), u.ID, parsed, apiKey); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s pays with %s\n", u.Username, u.PaymentMode)
			return nil
		},
	}
	modeCmd.Flags().StringVar(&user, "user", "", "Username or id")
	modeCmd.Flags().StringVar(&mode, "mode", "", "credits or apiKey")
	modeCmd.Flags().StringVar(&apiKey, "key", "", "The user's own Gemini key")
	_ = modeCmd.MarkFlagRequired("user")
	_ = modeCmd.MarkFlagRequired("mode")

	creditsCmd.AddCommand(grantCmd, modeCmd)
	return creditsCmd
}

func newPromoCommand(ctx *commandContext) *cobra.Command {
	promoCmd := &cobra.Command{
		Use:   "promo",
		Short: "Manage promo codes",
	}

	var (
		name    string
		credits int
	)
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a promo code",
		RunE: func(cmd *cobra.Command, args []string) error {
			if credits <= 0 {
				return fmt.Errorf("--credits must be positive")
			}
			svc, _, err := ctx.accounts(cmd.Context())
			if err != nil {
				return err
			}
			p, err := svc.CreatePromo(cmd.Context(), name, credits)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s grants %d credits\n", p.Code, p.TotalCredits)
			return nil
		},
	}
	createCmd.Flags().StringVar(&name, "name", "", "Label shown to admins")
	createCmd.Flags().IntVar(&credits, "credits", 0, "Credits granted per redemption")
	_ = createCmd.MarkFlagRequired("credits")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List promo codes",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := ctx.accounts(cmd.Context())
			if err != nil {
				return err
			}
			codes, err := svc.ListPromos(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(codes))
			for _, p := range codes {
				rows = append(rows, []string{
					p.Code,
					p.Name,
					strconv.Itoa(p.TotalCredits),
					strconv.Itoa(len(p.UsedBy)),
					p.CreatedAt.Format(time.DateOnly),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Code", "Name", "Credits", "Redeemed", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete CODE",
		Short: "Delete a promo code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := ctx.accounts(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.DeletePromo(cmd.Context(), args[0]); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Deleted %s\n", domain.NormalizePromoCode(args[0]))
			return nil
		},
	}

	promoCmd.AddCommand(createCmd, listCmd, deleteCmd)
	return promoCmd
}

func newTokenCommand(ctx *commandContext) *cobra.Command {
	var (
		user string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := ctx.accounts(cmd.Context())
			if err != nil {
				return err
			}
			_, cfg, _ := ctx.ensureDB(cmd.Context())
			u, err := svc.Lookup(cmd.Context(), user)
			if err != nil {
				return fmt.Errorf("find %s: %w", user, err)
			}
			token, err := middleware.IssueToken(cfg.JWTSecret, u.ID, string(u.Role), u.Locale, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "Username or id")
	cmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
