package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	putBinary  bool
	putCharset string
)

var putCmd = &cobra.Command{
	Use:   "put <local-file> <uss-path>",
	Short: "Upload a local file to USS",
	Long: `Upload a local file to USS. Text uploads are converted by z/OSMF;
--charset encodes the UTF-8 file locally and uploads the bytes as is.

Examples:
  zadapt put notes.txt /u/ibmuser/notes.txt
  zadapt put hello.c /u/ibmuser/hello.c --charset IBM1047`,
	Args: cobra.ExactArgs(2),
	RunE: runPut,
}

func init() {
	rootCmd.AddCommand(putCmd)
	putCmd.Flags().BoolVarP(&putBinary, "binary", "b", false, "transfer without codepage conversion")
	putCmd.Flags().StringVar(&putCharset, "charset", "", "encode the file into this charset before upload")
	putCmd.MarkFlagsMutuallyExclusive("binary", "charset")
}

func runPut(cmd *cobra.Command, args []string) error {
	local, remote := args[0], args[1]

	f, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", local, err)
	}
	defer f.Close()

	_, conn, err := openConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	uss := newUSSAdapter(conn)
	if putCharset != "" {
		err = uss.WriteCharset(cmd.Context(), remote, f, putCharset)
	} else {
		err = uss.Write(cmd.Context(), remote, f, putBinary)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Uploaded %s\n", remote)
	return nil
}
