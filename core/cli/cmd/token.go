package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/semlayer/semlayer/core/domain"
	"github.com/semlayer/semlayer/core/infrastructure/transport/http/middleware"
	"github.com/semlayer/semlayer/core/logger"
)

var (
	tokenUser         string
	tokenEmail        string
	tokenOrganization string
	tokenRole         string
	tokenProjectRoles []string
	tokenTTL          time.Duration
)

// tokenCmd signs a session token with the configured secret, for local use
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a session token signed with the configured secret",
	Example: `  semlayer token --user u1 --organization org-1 --role viewer
  semlayer token -f semlayer.yaml --user u1 --organization org-1 --role member --project-role p1=editor --ttl 24h`,
	RunE:          issueToken,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	f := tokenCmd.Flags()
	f.StringVarP(&configFile, "file", "f", "", "Path to the configuration file (default semlayer.yaml)")
	f.StringVar(&tokenUser, "user", "", "User UUID (token subject)")
	f.StringVar(&tokenEmail, "email", "", "User email")
	f.StringVar(&tokenOrganization, "organization", "", "Organization UUID")
	f.StringVar(&tokenRole, "role", string(domain.RoleViewer), "Organization role")
	f.StringArrayVar(&tokenProjectRoles, "project-role", nil, "Project role as projectUuid=role (repeatable)")
	f.DurationVar(&tokenTTL, "ttl", time.Hour, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")
	_ = tokenCmd.MarkFlagRequired("organization")
}

func issueToken(cmd *cobra.Command, args []string) error {
	log := logger.New("token")

	user, err := sessionUserFromFlags()
	if err != nil {
		return log.Errorf("%w", err)
	}

	cfg, _, err := loadConfiguration()
	if err != nil {
		return err
	}

	token, err := middleware.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer).IssueToken(user, tokenTTL)
	if err != nil {
		return log.Errorf("failed to sign token: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}

func sessionUserFromFlags() (domain.SessionUser, error) {
	user := domain.SessionUser{
		UserUUID:         tokenUser,
		Email:            tokenEmail,
		OrganizationUUID: tokenOrganization,
		OrganizationRole: domain.Role(tokenRole),
	}
	if !user.OrganizationRole.Valid() {
		return user, fmt.Errorf("unknown role %q", tokenRole)
	}

	for _, raw := range tokenProjectRoles {
		project, role, ok := strings.Cut(raw, "=")
		if !ok || project == "" || !domain.Role(role).Valid() {
			return user, fmt.Errorf("invalid project role %q: expected projectUuid=role", raw)
		}
		if user.ProjectRoles == nil {
			user.ProjectRoles = make(map[string]domain.Role)
		}
		user.ProjectRoles[project] = domain.Role(role)
	}
	return user, nil
}
