package main

import (
	"fmt"

	"github.com/arthur-debert/nanomodel/nanomodel"
	"github.com/spf13/cobra"
)

var storageAnnotation = map[string]string{"storage": "true"}

func (cli *CLI) addCommands() {
	cli.rootCmd.AddCommand(
		cli.createCommand(),
		cli.upsertCommand(),
		cli.getCommand(),
		cli.updateCommand(),
		cli.deleteCommand(),
		cli.collectionsCommand(),
		cli.modelsCommand(),
	)
}

func (cli *CLI) createCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "create <model> [attr=value...]",
		Short:       "Create a document",
		Args:        cobra.MinimumNArgs(1),
		Annotations: storageAnnotation,
		RunE: func(cmd *cobra.Command, args []string) error {
			parent, _ := cmd.Flags().GetString("parent")
			merge, _ := cmd.Flags().GetBool("merge")
			m, err := cli.newModel(args[0], parent, args[1:])
			if err != nil {
				return err
			}
			ctx, cancel := cli.context(cmd)
			defer cancel()
			if _, err := m.Save(ctx, nanomodel.WriteOptions{Merge: merge}); err != nil {
				return err
			}
			return cli.print(m)
		},
	}
	cmd.Flags().StringP("parent", "p", "", "Parent document key")
	cmd.Flags().Bool("merge", false, "Merge into an existing document")
	return cmd
}

func (cli *CLI) upsertCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "upsert <model> [attr=value...]",
		Short:       "Create a document or merge into the existing one",
		Args:        cobra.MinimumNArgs(1),
		Annotations: storageAnnotation,
		RunE: func(cmd *cobra.Command, args []string) error {
			parent, _ := cmd.Flags().GetString("parent")
			m, err := cli.newModel(args[0], parent, args[1:])
			if err != nil {
				return err
			}
			ctx, cancel := cli.context(cmd)
			defer cancel()
			if _, err := m.Upsert(ctx, nil, nil); err != nil {
				return err
			}
			return cli.print(m)
		},
	}
	cmd.Flags().StringP("parent", "p", "", "Parent document key")
	return cmd
}

func (cli *CLI) getCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "get <model> <key>",
		Short:       "Print a document",
		Args:        cobra.ExactArgs(2),
		Annotations: storageAnnotation,
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := cli.lookup(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := cli.context(cmd)
			defer cancel()
			m, err := cli.manager.Get(ctx, meta, args[1])
			if err != nil {
				return err
			}
			return cli.print(m)
		},
	}
}

func (cli *CLI) updateCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "update <model> <key> attr=value...",
		Short:       "Update fields of an existing document",
		Args:        cobra.MinimumNArgs(3),
		Annotations: storageAnnotation,
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := cli.lookup(args[0])
			if err != nil {
				return err
			}
			as, err := parseAssignments(args[2:])
			if err != nil {
				return err
			}
			ctx, cancel := cli.context(cmd)
			defer cancel()
			m, err := cli.manager.Get(ctx, meta, args[1])
			if err != nil {
				return err
			}
			if err := applyAssignments(m, as); err != nil {
				return err
			}
			if _, err := m.Update(ctx, "", nil, nil); err != nil {
				return err
			}
			return cli.print(m)
		},
	}
}

func (cli *CLI) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "delete <key>",
		Short:       "Delete a document",
		Args:        cobra.ExactArgs(1),
		Annotations: storageAnnotation,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cli.context(cmd)
			defer cancel()
			return cli.manager.Delete(ctx, args[0])
		},
	}
}

func (cli *CLI) collectionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "collections [key]",
		Short:       "List top-level collections, or the sub-collections of a document",
		Args:        cobra.MaximumNArgs(1),
		Annotations: storageAnnotation,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cli.context(cmd)
			defer cancel()
			var (
				names []string
				err   error
			)
			if len(args) == 0 {
				names, err = cli.manager.Collections(ctx)
			} else {
				names, err = cli.manager.Backend().Collections(ctx, args[0])
			}
			if err != nil {
				return err
			}
			return render(cli.out, cli.cfg.Format, names)
		},
	}
}

type modelInfo struct {
	Name       string      `json:"name" yaml:"name"`
	Collection string      `json:"collection" yaml:"collection"`
	Abstract   bool        `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Fields     []fieldInfo `json:"fields" yaml:"fields"`
}

type fieldInfo struct {
	Name   string `json:"name" yaml:"name"`
	Column string `json:"column" yaml:"column"`
	Type   string `json:"type" yaml:"type"`
}

func (cli *CLI) modelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models of the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out []modelInfo
			for _, meta := range cli.registry.Metas() {
				info := modelInfo{Name: meta.Name(), Collection: meta.CollectionName(), Abstract: meta.IsAbstract()}
				for _, f := range meta.Fields() {
					info.Fields = append(info.Fields, fieldInfo{
						Name:   f.Name(),
						Column: f.ColumnName(),
						Type:   fieldType(f),
					})
				}
				out = append(out, info)
			}
			return render(cli.out, cli.cfg.Format, out)
		},
	}
}

func fieldType(f nanomodel.Field) string {
	switch f.(type) {
	case *nanomodel.IDField:
		return "id"
	case *nanomodel.TextField:
		return "text"
	case *nanomodel.NumberField:
		return "number"
	case *nanomodel.BooleanField:
		return "boolean"
	case *nanomodel.DateTimeField:
		return "datetime"
	case *nanomodel.ListField:
		return "list"
	case *nanomodel.MapField:
		return "map"
	case *nanomodel.NestedModelField:
		return "nested"
	default:
		return fmt.Sprintf("%T", f)
	}
}

func (cli *CLI) newModel(name, parent string, args []string) (*nanomodel.Model, error) {
	meta, err := cli.lookup(name)
	if err != nil {
		return nil, err
	}
	as, err := parseAssignments(args)
	if err != nil {
		return nil, err
	}
	m, err := meta.New(nanomodel.WithParent(parent))
	if err != nil {
		return nil, err
	}
	return m, applyAssignments(m, as)
}
