package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/asteroid-belt/kisan/internal/cli/prompts"
	"github.com/asteroid-belt/kisan/internal/remote"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to your account",
	Long: `Sign in with email and password.

Missing values are asked for interactively. The session is kept on
this device until you run 'kisan logout'.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	Long: `Create an account so your coins, lessons and rewards are saved.

Depending on the server, you may have to confirm your email address
before you can sign in.`,
	Args: cobra.NoArgs,
	RunE: runSignup,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out of your account",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var (
	authEmail    string
	authPassword string
	authName     string
	logoutYes    bool
)

func init() {
	for _, c := range []*cobra.Command{loginCmd, signupCmd} {
		c.Flags().StringVar(&authEmail, "email", "", "Account email")
		c.Flags().StringVar(&authPassword, "password", "", "Account password (prompted when omitted)")
	}
	signupCmd.Flags().StringVar(&authName, "name", "", "Your full name")
	logoutCmd.Flags().BoolVarP(&logoutYes, "yes", "y", false, "Do not ask for confirmation")
}

// credentials fills in missing flags from an interactive form.
func credentials(title string, withName bool) (prompts.Credentials, error) {
	c := prompts.Credentials{
		Name:     strings.TrimSpace(authName),
		Email:    strings.TrimSpace(authEmail),
		Password: authPassword,
	}
	if c.Email == "" || c.Password == "" || (withName && c.Name == "") {
		if !interactive() {
			return c, errors.New("invalid credentials: --email and --password are required when not running in a terminal")
		}
		var err error
		if c, err = prompts.RunCredentialsForm(title, c, withName); err != nil {
			return c, err
		}
	}
	if err := prompts.ValidateEmail(c.Email); err != nil {
		return c, fmt.Errorf("invalid email: %w", err)
	}
	return c, nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return trackCLIError("login", err)
	}
	defer a.Close()

	if !a.remote.Configured() {
		return trackCLIError("login", fmt.Errorf("login: %w (set KISAN_BACKEND_URL)", remote.ErrNotConfigured))
	}

	c, err := credentials(a.t("login"), false)
	if err != nil {
		return trackCLIError("login", err)
	}

	fmt.Println(muted(a.t("logging_in")))
	sess, err := a.remote.SignInWithPassword(ctx, c.Email, c.Password)
	if err != nil {
		if remote.IsUnauthorized(err) {
			return trackCLIError("login", errors.New("invalid email or password"))
		}
		return trackCLIError("login", err)
	}

	// The profile may carry a language chosen on another device.
	a.languages.Resolve(ctx)
	fmt.Println(a.languages.Format("welcome_back", map[string]string{"name": sess.User.Email}))
	return nil
}

func runSignup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return trackCLIError("signup", err)
	}
	defer a.Close()

	if !a.remote.Configured() {
		return trackCLIError("signup", fmt.Errorf("signup: %w (set KISAN_BACKEND_URL)", remote.ErrNotConfigured))
	}

	c, err := credentials(a.t("signup"), true)
	if err != nil {
		return trackCLIError("signup", err)
	}
	if err := prompts.ValidatePassword(c.Password); err != nil {
		return trackCLIError("signup", fmt.Errorf("invalid password: %w", err))
	}

	sess, err := a.remote.SignUp(ctx, c.Email, c.Password, map[string]interface{}{
		"full_name": c.Name,
		"language":  a.languages.Language(),
	})
	if err != nil {
		return trackCLIError("signup", err)
	}
	if sess == nil {
		fmt.Println("Account created. Check your email to confirm it, then run 'kisan login'.")
		return nil
	}

	name := c.Name
	if name == "" {
		name = sess.User.Email
	}
	fmt.Println(a.languages.Format("welcome_back", map[string]string{"name": name}))
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return trackCLIError("logout", err)
	}
	defer a.Close()

	if a.userID() == "" {
		fmt.Println("Not signed in.")
		return nil
	}

	if !logoutYes && interactive() {
		ok, err := prompts.RunConfirm(a.t("logout"), a.t("end_session"))
		if err != nil {
			return trackCLIError("logout", err)
		}
		if !ok {
			return nil
		}
	}

	// Flush queued profile writes while the session is still valid.
	if _, err := a.mirror.DrainOnce(ctx); err != nil {
		fmt.Println(muted("Some changes could not be saved to your account yet."))
	}
	if err := a.remote.SignOut(ctx); err != nil {
		return trackCLIError("logout", err)
	}
	fmt.Println(a.t("signed_out"))
	return nil
}
