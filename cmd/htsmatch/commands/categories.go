package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/htsmatch/am"
	"github.com/teranos/htsmatch/catalog"
	"github.com/teranos/htsmatch/errors"
	"github.com/teranos/htsmatch/sym"
)

// CategoriesCmd groups the category browsing and selection commands.
var CategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: sym.Tree + " Browse and select storefront categories",
	Long: sym.Tree + ` categories - Choose which categories 'classify' works through

The selection is saved to catalog.selection_file (selected_categories.yaml).

Examples:
  htsmatch categories list
  htsmatch categories select --add 12 --with-children
  htsmatch categories select --remove 15
  htsmatch categories select --clear`,
}

var categoriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the category tree, marking selected categories",
	RunE:  runCategoriesList,
}

var categoriesSelectCmd = &cobra.Command{
	Use:   "select",
	Short: "Add or remove categories from the selection",
	RunE:  runCategoriesSelect,
}

var (
	selectAdd          []int64
	selectRemove       []int64
	selectClear        bool
	selectWithChildren bool
)

func init() {
	categoriesSelectCmd.Flags().Int64SliceVar(&selectAdd, "add", nil, "Category ids to add")
	categoriesSelectCmd.Flags().Int64SliceVar(&selectRemove, "remove", nil, "Category ids to remove")
	categoriesSelectCmd.Flags().BoolVar(&selectClear, "clear", false, "Clear the selection before adding")
	categoriesSelectCmd.Flags().BoolVar(&selectWithChildren, "with-children", false, "Include every descendant of the given ids")

	CategoriesCmd.AddCommand(categoriesListCmd)
	CategoriesCmd.AddCommand(categoriesSelectCmd)
}

func runCategoriesList(cmd *cobra.Command, args []string) error {
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateCredentials(false, "", true); err != nil {
		return err
	}
	tree, err := fetchTree(cmd, cfg)
	if err != nil {
		return err
	}
	sel, err := catalog.LoadSelection(cfg.Catalog.SelectionFile)
	if err != nil {
		return err
	}

	tree.Walk(func(depth int, c catalog.Category) {
		mark := " "
		if sel.Contains(c.ID) {
			mark = pterm.Green(sym.Approved)
		}
		pterm.Printf("%s %s%s %s (%d)\n", mark, strings.Repeat("  ", depth), pterm.Gray(fmt.Sprint(c.ID)), c.Name, c.Count)
	})
	pterm.Printf("\n%d categories selected\n", len(sel.Categories))
	return nil
}

func runCategoriesSelect(cmd *cobra.Command, args []string) error {
	if len(selectAdd) == 0 && len(selectRemove) == 0 && !selectClear {
		return errors.WithHint(
			errors.Wrap(errors.ErrInvalidRequest, "nothing to change"),
			"pass --add, --remove or --clear")
	}
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}

	add, remove := selectAdd, selectRemove
	if selectWithChildren {
		if err := cfg.ValidateCredentials(false, "", true); err != nil {
			return err
		}
		tree, err := fetchTree(cmd, cfg)
		if err != nil {
			return err
		}
		add = tree.WithDescendants(add...)
		remove = tree.WithDescendants(remove...)
	}

	sel, err := catalog.LoadSelection(cfg.Catalog.SelectionFile)
	if err != nil {
		return err
	}
	if selectClear {
		sel.Categories = nil
	}
	sel.Add(add...)
	sel.Remove(remove...)

	if err := sel.Save(cfg.Catalog.SelectionFile, time.Now()); err != nil {
		return err
	}
	pterm.Success.Printf("%d categories selected, saved to %s\n", len(sel.Categories), cfg.Catalog.SelectionFile)
	return nil
}

func fetchTree(cmd *cobra.Command, cfg *am.Config) (*catalog.Tree, error) {
	client, _, err := newWooClient(cfg, "")
	if err != nil {
		return nil, err
	}
	categories, err := client.ListCategories(cmd.Context())
	if err != nil {
		return nil, err
	}
	return catalog.NewTree(categories), nil
}
