package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var catBinary bool

var catCmd = &cobra.Command{
	Use:   "cat <uss-path>",
	Short: "Display content of a USS file",
	Long: `Display the content of a USS file.

Examples:
  zadapt cat /u/ibmuser/notes.txt
  zadapt cat /u/ibmuser/prog.o --binary > prog.o`,
	Args: cobra.ExactArgs(1),
	RunE: runCat,
}

func init() {
	rootCmd.AddCommand(catCmd)
	catCmd.Flags().BoolVarP(&catBinary, "binary", "b", false, "transfer without codepage conversion")
}

func runCat(cmd *cobra.Command, args []string) error {
	_, conn, err := openConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	content, err := newUSSAdapter(conn).Read(cmd.Context(), args[0], catBinary)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(content)
	return err
}
