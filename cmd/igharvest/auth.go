package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"igharvest/pkg/auth"
	"igharvest/pkg/instagram"
	"igharvest/pkg/logger"
	"igharvest/pkg/ui"
)

var (
	loginSaveSession bool
	importCookie     string
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored Instagram sessions",
	Long: `Manage Instagram sessions kept in the credential store.

Sessions are stored in:
  - the system keychain (when available)
  - an encrypted file with PBKDF2 key derivation

Passwords are never stored. A stored session is used with
'igharvest download --account <username>'.`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Log in with a password and store the session",
	Long: `Log in with username and password, answer a two-factor challenge if
Instagram sends one, and keep the resulting session in the credential store.

The password is read from IGHARVEST_PASSWORD or prompted for.`,
	Example: `  igharvest auth login
  igharvest auth login myusername --save-session`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

// importCmd represents the auth import command
var importCmd = &cobra.Command{
	Use:   "import [username]",
	Short: "Store a session copied from a browser",
	Long: `Store a session built from the cookies of a logged-in browser, without
a password login. Paste the whole Cookie header with --cookie, or enter the
sessionid and csrftoken values when prompted.`,
	Example: `  igharvest auth import myusername
  igharvest auth import myusername --cookie "sessionid=...; csrftoken=..."`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [username]",
	Short: "Remove a stored session",
	Long: `Remove a stored session. Without a username you choose from the list
of stored accounts.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts",
	Long:  `List stored accounts with their tokens masked.`,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(importCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)

	loginCmd.Flags().BoolVar(&loginSaveSession, "save-session", false, "also write a session file to the session directory")
	importCmd.Flags().StringVar(&importCookie, "cookie", "", "Cookie header copied from the browser")
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	manager, err := auth.NewManager(credentialDir())
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}

	username, err := argOrPrompt(args, "📱 Instagram username: ")
	if err != nil {
		return err
	}
	if existing, _ := manager.Retrieve(username); existing != nil {
		if !confirm(fmt.Sprintf("⚠️  Account '%s' is already stored. Replace its session?", username), false) {
			return nil
		}
	}

	password := os.Getenv("IGHARVEST_PASSWORD")
	if password == "" {
		if password, err = readPassword("🔐 Password: "); err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
	}

	client := instagram.NewClient(instagram.Options{
		Timeout:           time.Duration(cfg.Instagram.RequestTimeout) * time.Second,
		UserAgent:         cfg.Instagram.UserAgent,
		RequestsPerMinute: cfg.Instagram.RequestsPerMinute,
	}, log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	rv := auth.NewRendezvous(0)
	authenticator := auth.NewAuthenticator(client, auth.Options{
		Mode:        auth.ModeCredentials,
		Username:    username,
		Password:    password,
		SessionDir:  cfg.Instagram.SessionDir,
		SaveSession: loginSaveSession,
		Store:       manager,
		Remember:    true,
	}, auth.Hooks{
		// Authenticate blocks on the rendezvous until the code arrives.
		TwoFactorRequired: func() {
			go func() {
				code, err := readLine("🔢 Two-factor code (empty to cancel): ")
				if err != nil {
					code = ""
				}
				rv.Submit(code)
			}()
		},
		SessionSaved: func(path string) {
			ui.PrintInfo("Session file", path)
		},
	}, rv, log)

	fmt.Println("\nLogging in...")
	res, err := authenticator.Authenticate(ctx)
	if err != nil {
		return err
	}

	// Remember stores the session but only logs a failure, so confirm it.
	if _, err := manager.Retrieve(res.Username); err != nil {
		return fmt.Errorf("logged in, but the session could not be stored: %w", err)
	}

	ui.PrintSuccess(fmt.Sprintf("\n🎉 Logged in as %s", res.Username))
	fmt.Println("\n📖 Download with this account:")
	fmt.Printf("   $ igharvest download <profile> --account %s --ignore-dates\n", res.Username)
	fmt.Println("\n⚠️  A stored session grants full access to the account. Never share it!")
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(nil); err != nil {
		return err
	}
	manager, err := auth.NewManager(credentialDir())
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}

	var cookies map[string]string
	if importCookie != "" {
		cookies = auth.ParseCookieHeader(importCookie)
	} else {
		auth.WriteCookieGuide(os.Stdout)
		if !confirm("Ready to enter your cookies?", true) {
			fmt.Println("\nRun 'igharvest auth import' when you're ready.")
			return nil
		}
		cookies = map[string]string{}
		for _, name := range []string{"sessionid", "csrftoken"} {
			value, err := readPassword(name + " cookie value: ")
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", name, err)
			}
			cookies[name] = value
		}
		if id, err := readLine("ds_user_id cookie value (optional): "); err == nil && id != "" {
			cookies["ds_user_id"] = id
		}
	}

	username, err := argOrPrompt(args, "📱 Instagram username: ")
	if err != nil {
		return err
	}
	account, err := auth.AccountFromCookies(username, cookies)
	if err != nil {
		return err
	}
	account.LastModified = time.Now()

	if err := manager.Store(account); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	ui.PrintSuccess("Session stored for " + username)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager(credentialDir())
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}

	if len(args) == 1 {
		if err := manager.Delete(args[0]); err != nil {
			return err
		}
		ui.PrintSuccess("Account removed: " + args[0])
		return nil
	}

	accounts, err := manager.List()
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		ui.PrintWarning("No stored accounts found")
		return nil
	}

	fmt.Println("Select account to remove:")
	for i, account := range accounts {
		fmt.Printf("  %d. %s\n", i+1, account.Username)
	}
	fmt.Printf("  0. Cancel\n\n")

	input, err := readLine("Choice: ")
	if err != nil {
		return err
	}
	var choice int
	if _, err := fmt.Sscanf(input, "%d", &choice); err != nil || choice < 0 || choice > len(accounts) {
		return errors.New("invalid choice")
	}
	if choice == 0 {
		return nil
	}

	username := accounts[choice-1].Username
	if err := manager.Delete(username); err != nil {
		return err
	}
	ui.PrintSuccess("Account removed: " + username)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager(credentialDir())
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}
	accounts, err := manager.List()
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "use 'igharvest auth login' to add one")
		return nil
	}

	ui.PrintHighlight("Stored Accounts")
	fmt.Println()
	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Printf("%d. Username: %s\n", i+1, sanitized.Username)
		if sanitized.UserID != "" {
			fmt.Printf("   User ID: %s\n", sanitized.UserID)
		}
		fmt.Printf("   Session ID: %s\n", sanitized.SessionID)
		fmt.Printf("   CSRF Token: %s\n", sanitized.CSRFToken)
		fmt.Printf("   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}
	return nil
}

// argOrPrompt returns the first argument or asks for it
func argOrPrompt(args []string, prompt string) (string, error) {
	value := ""
	if len(args) > 0 {
		value = args[0]
	} else {
		var err error
		if value, err = readLine(prompt); err != nil {
			return "", err
		}
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.New("username is required")
	}
	return value, nil
}
