package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/kitties/internal/command"
	"github.com/zjrosen/kitties/internal/kitty"
	"github.com/zjrosen/kitties/internal/render"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a kitty from block entropy",
	Long: `Create a new kitty owned by the caller. Its genome is derived from the
current block seed, the caller and the position of the operation in the block.

Examples:
  kitties create --as alice`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runCommand(cmd, func(caller kitty.OwnerID) command.Command {
			return command.NewCreateKittyCommand(command.SourceCLI, caller)
		})
	},
}

var transferCmd = &cobra.Command{
	Use:   "transfer <id>",
	Short: "Transfer a kitty to another owner",
	Long: `Transfer a kitty the caller owns to another owner.

Examples:
  kitties transfer 3 --as alice --to bob`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := kitty.ParseAssetID(args[0])
		if err != nil {
			return err
		}
		to, _ := cmd.Flags().GetString("to")
		return runCommand(cmd, func(caller kitty.OwnerID) command.Command {
			return command.NewTransferKittyCommand(command.SourceCLI, caller, kitty.OwnerID(to), id)
		})
	},
}

var breedCmd = &cobra.Command{
	Use:   "breed <parent1> <parent2>",
	Short: "Breed a new kitty from two parents",
	Long: `Breed a child from two different existing kitties. The child's genome
mixes the parents' genomes using block entropy and belongs to the caller.

Examples:
  kitties breed 0 1 --as carol`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p1, err := kitty.ParseAssetID(args[0])
		if err != nil {
			return err
		}
		p2, err := kitty.ParseAssetID(args[1])
		if err != nil {
			return err
		}
		return runCommand(cmd, func(caller kitty.OwnerID) command.Command {
			return command.NewBreedKittyCommand(command.SourceCLI, caller, p1, p2)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{createCmd, transferCmd, breedCmd} {
		c.Flags().String("as", "", "caller identity (required)")
		_ = c.MarkFlagRequired("as")
		c.Flags().Bool("json", false, "print the event as JSON")
		rootCmd.AddCommand(c)
	}
	transferCmd.Flags().String("to", "", "recipient (required)")
	_ = transferCmd.MarkFlagRequired("to")
}

// runCommand submits the command built for the --as caller and prints the
// resulting event.
func runCommand(cmd *cobra.Command, build func(kitty.OwnerID) command.Command) error {
	as, _ := cmd.Flags().GetString("as")

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ev, err := a.submit(cmd.Context(), build(kitty.OwnerID(as)))
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(cmd.OutOrStdout(), ev)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), render.Outcome(ev))
	return err
}
