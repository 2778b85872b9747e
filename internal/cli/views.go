package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Jasani8259/Final-Capstone/internal/navigation"
)

var validFormats = []string{"text", "json"}

func NewViewsCommand(_ *RootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "views",
		Short: "Print the navigation table with each view's roles and sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !isValidFormat(format) {
				return fmt.Errorf("invalid format %q: must be one of %v", format, validFormats)
			}
			registry, err := navigation.NewRegistry(navigation.DefaultViews())
			if err != nil {
				return err
			}
			views := registry.Views()

			if format == "json" {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(views)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PATH\tKIND\tROLES\tSOURCES")
			for _, view := range views {
				roles := "public"
				if !view.Public() {
					names := make([]string, len(view.Roles))
					for i, role := range view.Roles {
						names[i] = string(role)
					}
					roles = strings.Join(names, ",")
				}
				ids := make([]string, len(view.Sources))
				for i, id := range view.Sources {
					ids[i] = string(id)
				}
				sourceList := strings.Join(ids, ",")
				if sourceList == "" {
					sourceList = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", view.Path, view.Kind, roles, sourceList)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format (json|text)")
	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range validFormats {
		if f == format {
			return true
		}
	}
	return false
}
