// file: cmd/providers.go
// version: 1.0.0
// guid: e1b7c4a9-3f62-4d08-9a5e-7c2d0f8b6e14

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/jdfalk/bookmeta-orchestrator/internal/provider"
	"github.com/jdfalk/bookmeta-orchestrator/internal/service"
	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List registered providers",
	Long: `List registered providers and their capabilities. With --capability
only providers declaring it are shown; adding --available also runs their
availability checks and hides the ones that would be skipped right now.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		capName, _ := cmd.Flags().GetString("capability")
		available, _ := cmd.Flags().GetBool("available")

		svc, logger, err := openService()
		if err != nil {
			return err
		}
		defer closeService(svc, logger)

		descs, err := listProviders(cmd.Context(), svc, capName, available)
		if err != nil {
			return err
		}
		return writeProviders(cmd.OutOrStdout(), output, descs)
	},
}

func init() {
	providersCmd.Flags().StringP("output", "o", "table", "output format: table or yaml")
	providersCmd.Flags().StringP("capability", "c", "", "only list providers declaring this capability")
	providersCmd.Flags().Bool("available", false, "with --capability, only list providers available now")
}

func listProviders(ctx context.Context, svc *service.Service, capName string, available bool) ([]provider.Descriptor, error) {
	if capName == "" {
		if available {
			return nil, fmt.Errorf("--available requires --capability")
		}
		return svc.Registry.Descriptors(), nil
	}
	c, err := provider.ParseCapability(capName)
	if err != nil {
		return nil, err
	}
	if !available {
		return svc.Registry.GetByCapability(c), nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return svc.Registry.GetAvailableProviders(ctx, c, svc.NewContext()), nil
}

func writeProviders(w io.Writer, format string, descs []provider.Descriptor) error {
	switch format {
	case "yaml":
		return writeYAML(w, descs)
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tTYPE\tQUOTA KEY\tCAPABILITIES")
		for _, d := range descs {
			quotaKey := d.QuotaKey
			if quotaKey == "" {
				quotaKey = "-"
			}
			caps := make([]string, len(d.Capabilities))
			for i, c := range d.Capabilities {
				caps[i] = c.String()
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Name, d.Type, quotaKey, strings.Join(caps, ","))
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
