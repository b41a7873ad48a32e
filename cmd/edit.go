package cmd

import (
	"bytes"
	"fmt"

	"zadapt/internal/editor"

	"github.com/spf13/cobra"
)

var (
	editEditor string
	editBinary bool
)

var editCmd = &cobra.Command{
	Use:   "edit <uss-path>",
	Short: "Edit a USS file",
	Long:  `Download a USS file, open it in your editor ($VISUAL, $EDITOR or vi), and upload changes.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runEdit,
}

func init() {
	rootCmd.AddCommand(editCmd)
	editCmd.Flags().StringVar(&editEditor, "editor", "", "editor command (overrides $VISUAL and $EDITOR)")
	editCmd.Flags().BoolVarP(&editBinary, "binary", "b", false, "transfer without codepage conversion")
}

func runEdit(cmd *cobra.Command, args []string) error {
	path := args[0]
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	_, conn, err := openConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx := cmd.Context()
	uss := newUSSAdapter(conn)

	content, err := uss.Read(ctx, path, editBinary)
	if err != nil {
		return err
	}

	modified, changed, err := editor.Edit(ctx, editEditor, path, content)
	if err != nil {
		return err
	}
	if !changed {
		fmt.Println("No changes, skipping upload")
		return nil
	}

	if err := uss.Write(ctx, path, bytes.NewReader(modified), editBinary); err != nil {
		return err
	}

	fmt.Printf("Uploaded %s\n", path)
	return nil
}
