package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/index"
	"github.com/Aman-CERP/docsearch/internal/output"
	"github.com/Aman-CERP/docsearch/internal/store"
)

// importDoc is one document in an import file. JSON files parse too.
type importDoc struct {
	ID        string     `yaml:"id"`
	Title     string     `yaml:"title"`
	Content   string     `yaml:"content"`
	Author    string     `yaml:"author"`
	CreatedAt *time.Time `yaml:"created_at"`
}

func readImportFile(path string) ([]importDoc, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read import file: %w", err)
		}
		r = bytes.NewReader(data)
	}

	var docs []importDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&docs); err != nil && !errors.Is(err, io.EOF) {
		return nil, docerrors.ValidationError("failed to parse import file", err).
			WithSuggestion("Expect a YAML or JSON list of {id, title, content, author, created_at}")
	}
	return docs, nil
}

func newImportCmd(a *app) *cobra.Command {
	var noIndex bool

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Add documents from a YAML or JSON file ('-' for stdin) and index them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			docs, err := readImportFile(args[0])
			if err != nil {
				return err
			}

			rt, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			indexer, err := index.NewInteractiveIndexer(rt.deps())
			if err != nil {
				return err
			}

			out := output.NewAuto(cmd.OutOrStdout())
			for i, d := range docs {
				doc := &store.Document{ID: d.ID, Title: d.Title, Content: d.Content, Author: d.Author, CreatedAt: d.CreatedAt}
				if err := rt.docs.Put(ctx, doc); err != nil {
					return fmt.Errorf("document %d: %w", i+1, err)
				}
				if !noIndex {
					if err := indexer.IndexDocument(ctx, doc.ID); err != nil {
						out.Errorf("indexing %s failed; run 'docsearch reindex' to retry", doc.ID)
						return err
					}
				}
				out.Statusf("", "%s  %s", doc.ID, doc.Title)
			}
			out.Successf("Imported %d documents", len(docs))
			return nil
		},
	}

	cmd.Flags().BoolVar(&noIndex, "no-index", false, "Store documents without indexing them")
	return cmd
}

func newIndexCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "index ID...",
		Short: "Index or reindex documents; embedding failures abort",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			indexer, err := index.NewInteractiveIndexer(rt.deps())
			if err != nil {
				return err
			}
			out := output.NewAuto(cmd.OutOrStdout())
			for _, id := range args {
				if err := indexer.IndexDocument(ctx, id); err != nil {
					return err
				}
				out.Successf("Indexed %s", id)
			}
			return nil
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	var indexOnly bool

	cmd := &cobra.Command{
		Use:   "delete ID...",
		Short: "Delete documents and their index records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			indexer, err := index.NewInteractiveIndexer(rt.deps())
			if err != nil {
				return err
			}
			out := output.NewAuto(cmd.OutOrStdout())
			for _, id := range args {
				if indexOnly {
					err = indexer.DeleteIndex(ctx, id)
				} else {
					err = rt.docs.Delete(ctx, id)
				}
				if err != nil {
					return err
				}
				out.Successf("Deleted %s", id)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&indexOnly, "index-only", false, "Drop only the index record and keep the document")
	return cmd
}

func newViewCmd(a *app) *cobra.Command {
	var delta int64

	cmd := &cobra.Command{
		Use:   "view ID",
		Short: "Record document views (feeds the popularity boost)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			indexer, err := index.NewInteractiveIndexer(rt.deps())
			if err != nil {
				return err
			}
			if err := indexer.IncrementViewCount(ctx, args[0], delta); err != nil {
				return err
			}
			rec, err := rt.index.Get(ctx, args[0])
			if err != nil {
				return err
			}
			output.NewAuto(cmd.OutOrStdout()).Successf("%s has %d views", args[0], rec.ViewCount)
			return nil
		},
	}

	cmd.Flags().Int64Var(&delta, "delta", 1, "Number of views to add")
	return cmd
}

func newInteractionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "interaction ID SCORE",
		Short: "Set a document's user interaction score",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return docerrors.ValidationError("score must be an integer", err)
			}

			ctx := cmd.Context()
			rt, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			indexer, err := index.NewInteractiveIndexer(rt.deps())
			if err != nil {
				return err
			}
			if err := indexer.SetUserInteractionScore(ctx, args[0], score); err != nil {
				return err
			}
			output.NewAuto(cmd.OutOrStdout()).Successf("%s interaction score set to %d", args[0], score)
			return nil
		},
	}
}
