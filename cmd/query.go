package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/zjrosen/kitties/internal/kitty"
	"github.com/zjrosen/kitties/internal/render"
)

// kittyJSON is the scripting form of a kitty; the genome is hex.
type kittyJSON struct {
	ID     kitty.AssetID `json:"id"`
	Owner  string        `json:"owner"`
	Genome string        `json:"genome"`
}

func toJSON(k kitty.Kitty) kittyJSON {
	return kittyJSON{ID: k.ID, Owner: k.Owner.String(), Genome: k.Genome.String()}
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one kitty",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := kitty.ParseAssetID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		k, err := a.query.Kitty(cmd.Context(), id)
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(cmd.OutOrStdout(), toJSON(k))
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), render.Card(k))
		return err
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List kitties",
	Long: `List kitties in id order.

Examples:
  kitties list
  kitties list --owner alice
  kitties list --offset 100 --limit 50
  kitties list --json | jq '.[].owner'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		owner, _ := cmd.Flags().GetString("owner")
		offset, _ := cmd.Flags().GetInt("offset")
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		var ks []kitty.Kitty
		if owner != "" {
			ks, err = a.query.Owned(cmd.Context(), kitty.OwnerID(owner))
		} else {
			ks, err = a.query.List(cmd.Context(), offset, limit)
		}
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			out := make([]kittyJSON, 0, len(ks))
			for _, k := range ks {
				out = append(out, toJSON(k))
			}
			return writeJSON(cmd.OutOrStdout(), out)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), render.KittyTable(ks))
		return err
	},
}

func init() {
	showCmd.Flags().Bool("json", false, "print as JSON")
	listCmd.Flags().Bool("json", false, "print as JSON")
	listCmd.Flags().String("owner", "", "only kitties owned by this owner")
	listCmd.Flags().Int("offset", 0, "skip this many kitties")
	listCmd.Flags().Int("limit", 0, "maximum number of kitties (0 = all)")
	rootCmd.AddCommand(showCmd, listCmd)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
