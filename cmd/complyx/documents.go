package main

import (
	"github.com/spf13/cobra"

	"github.com/complyx/complyx/pkg/schema"
	"github.com/complyx/complyx/pkg/sdk"
)

func documentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"docs"},
		Short:   "List, inspect and edit documents",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List documents visible to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			docs, err := a.client.ListDocuments(cmd.Context())
			if err != nil {
				return err
			}
			return a.printJSON(docs)
		},
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.client.GetDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printJSON(doc)
		},
	}

	var p sdk.SearchParams
	search := &cobra.Command{
		Use:   "search [query]",
		Short: "Search documents",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				p.Query = args[0]
			}
			res, err := a.client.Search(cmd.Context(), p)
			if err != nil {
				return err
			}
			return a.printJSON(res)
		},
	}
	f := search.Flags()
	f.StringVar(&p.Type, "type", "", "document type")
	f.StringVar(&p.Status, "status", "", "status")
	f.StringVar(&p.AccessLevel, "access-level", "", "access level")
	f.StringVar(&p.Category, "category", "", "category")
	f.StringVar(&p.OwnerID, "owner", "", "owner id")
	f.StringVar(&p.CreatedAfter, "created-after", "", "YYYY-MM-DD")
	f.StringVar(&p.CreatedBefore, "created-before", "", "YYYY-MM-DD")
	f.StringVar(&p.ExpiresBefore, "expires-before", "", "YYYY-MM-DD")
	f.BoolVar(&p.NeedsReview, "needs-review", false, "only documents due for review")
	f.IntVar(&p.Page, "page", 0, "page number")
	f.IntVar(&p.Size, "size", 0, "page size")
	f.StringVar(&p.SortBy, "sort-by", "", "sort field")
	f.StringVar(&p.SortOrder, "sort-order", "", "asc or desc")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Summarise visible documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.client.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return a.printJSON(st)
		},
	}

	var createFile string
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a document from a JSON description",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var in schema.DocumentInput
			if err := decodeFile(cmd, createFile, &in); err != nil {
				return err
			}
			doc, err := a.client.CreateDocument(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.printJSON(doc)
		},
	}
	create.Flags().StringVarP(&createFile, "file", "f", "-", "JSON file, - for stdin")

	var updateFile string
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit document metadata from a JSON patch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd schema.DocumentUpdate
			if err := decodeFile(cmd, updateFile, &upd); err != nil {
				return err
			}
			doc, err := a.client.UpdateDocument(cmd.Context(), args[0], upd)
			if err != nil {
				return err
			}
			return a.printJSON(doc)
		},
	}
	update.Flags().StringVarP(&updateFile, "file", "f", "-", "JSON file, - for stdin")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.DeleteDocument(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.ok()
		},
	}

	transfer := &cobra.Command{
		Use:   "transfer <id> <new-owner-id>",
		Short: "Hand a document to another owner",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.client.Transfer(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return a.printJSON(doc)
		},
	}

	cmd.AddCommand(list, get, search, stats, create, update, del, transfer)
	return cmd
}

func transitionCmd(a *app) *cobra.Command {
	var comment string
	cmd := &cobra.Command{
		Use:       "transition <id> <action>",
		Short:     "Move a document through its lifecycle",
		Long:      "Actions: submit-review, approve, reject, publish, archive.",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"submit-review", "approve", "reject", "publish", "archive"},
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.client.Transition(cmd.Context(), args[0], args[1], comment)
			if err != nil {
				return err
			}
			return a.printJSON(doc)
		},
	}
	cmd.Flags().StringVarP(&comment, "comment", "m", "", "comment recorded with the transition")
	return cmd
}

func permissionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "permissions <id>",
		Short: "Show your effective rights on a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.client.Permissions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printJSON(p)
		},
	}
}

func auditCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "audit <id>",
		Short: "Show a document's audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.client.AuditTrail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printJSON(entries)
		},
	}
}

func settingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "settings", Short: "Security settings"}
	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Show the security settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.client.SecuritySettings(cmd.Context())
			if err != nil {
				return err
			}
			return a.printJSON(st)
		},
	})
	return cmd
}
