package main

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"financeiro/internal/config"
	"financeiro/internal/core"
	"financeiro/internal/extraction"
	"financeiro/internal/ledger"
)

func scanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "scan receipt|statement <file>",
		Short:     "Extract a receipt or card statement and print the result",
		Long:      `Send a local file through the Gemini extraction and print the parsed JSON. Nothing is stored.`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"receipt", "statement"},
		RunE:      runScan,
	}
	cmd.Flags().String("member", string(core.MemberA), "member the statement is attributed to (member_a, member_b)")
	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	kind, path := args[0], args[1]
	member := core.Member(stringFlag(cmd, "member"))
	if !member.IsValid() {
		return fmt.Errorf("invalid member %q", member)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	file := extraction.File{Name: filepath.Base(path), MIMEType: mimeType(path, data), Data: data}

	extractor, _ := newExtractor(config.Load())
	var vocabulary []string
	for _, c := range ledger.DefaultCategories() {
		if c.Type == core.Expense {
			vocabulary = append(vocabulary, c.Name)
		}
	}

	var out any
	switch kind {
	case "receipt":
		out, err = extractor.ExtractReceipt(cmd.Context(), file, vocabulary)
	case "statement":
		out, err = extractor.ExtractStatement(cmd.Context(), file, vocabulary, member)
	default:
		return fmt.Errorf("unknown scan kind %q: want receipt or statement", kind)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func mimeType(path string, data []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return http.DetectContentType(data)
}

func stringFlag(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}
