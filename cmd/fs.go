package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <uss-path>",
	Short: "Create a USS directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, conn, err := openConnection()
		if err != nil {
			return err
		}
		defer conn.Close()

		return newUSSAdapter(conn).CreateFolder(cmd.Context(), args[0])
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <uss-path>",
	Short: "Remove a USS file or directory tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, conn, err := openConnection()
		if err != nil {
			return err
		}
		defer conn.Close()

		return newUSSAdapter(conn).Delete(cmd.Context(), args[0])
	},
}

var chmodCmd = &cobra.Command{
	Use:     "chmod <octal-mode> <uss-path>",
	Short:   "Change permissions of a USS file",
	Example: "  zadapt chmod 755 /u/ibmuser/run.sh",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, conn, err := openConnection()
		if err != nil {
			return err
		}
		defer conn.Close()

		return newUSSAdapter(conn).ChangePermissions(cmd.Context(), args[1], args[0])
	},
}

var existsCmd = &cobra.Command{
	Use:   "exists <uss-path>",
	Short: "Report whether a USS file exists",
	Long:  `Print true or false. Exits non-zero only when the check itself fails.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, conn, err := openConnection()
		if err != nil {
			return err
		}
		defer conn.Close()

		ok, err := newUSSAdapter(conn).Exists(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(ok)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mkdirCmd, rmCmd, chmodCmd, existsCmd)
}
