package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/complyx/complyx/pkg/schema"
)

func grantsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grants",
		Short: "Manage per-document access grants",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list <document-id>",
		Short: "List a document's grants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			grants, err := a.client.ListGrants(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printJSON(grants)
		},
	})

	var (
		in      schema.GrantInput
		role    string
		noRead  bool
		expires string
	)
	add := &cobra.Command{
		Use:     "add <document-id>",
		Short:   "Grant access to a user, role or department",
		Example: "  complyx grants add doc-1 --grantee u-42 --download --expires 2027-01-31",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Role = schema.Role(role)
			if in.UserID == "" && in.Role == "" && in.Department == "" {
				return errors.New("one of --grantee, --role or --department is required")
			}
			if noRead {
				read := false
				in.CanRead = &read
			}
			var err error
			if in.ExpiresAt, err = parseDate(expires); err != nil {
				return err
			}
			g, err := a.client.PutGrant(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			return a.printJSON(g)
		},
	}
	f := add.Flags()
	f.StringVar(&in.UserID, "grantee", "", "grant to this user id")
	f.StringVar(&role, "role", "", "grant to every user with this role")
	f.StringVar(&in.Department, "department", "", "grant to every user in this department")
	f.BoolVar(&noRead, "no-read", false, "omit the read capability")
	f.BoolVar(&in.CanDownload, "download", false, "allow download")
	f.BoolVar(&in.CanEdit, "edit", false, "allow edit")
	f.BoolVar(&in.CanDelete, "delete", false, "allow delete")
	f.BoolVar(&in.CanApprove, "approve", false, "allow approve")
	f.StringVar(&expires, "expires", "", "expiry date, YYYY-MM-DD or RFC3339")
	add.MarkFlagsMutuallyExclusive("grantee", "role", "department")

	revoke := &cobra.Command{
		Use:   "revoke <document-id> <grant-id>",
		Short: "Remove a grant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.RevokeGrant(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			return a.ok()
		},
	}

	cmd.AddCommand(add, revoke)
	return cmd
}
