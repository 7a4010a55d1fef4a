package main

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"ngmeta/internal/adapters/catalog"
	"ngmeta/internal/services/collector/cursor"
	"ngmeta/internal/services/collector/domain"

	"github.com/spf13/cobra"
)

type cursorView struct {
	Spec     string         `json:"spec"`
	Value    string         `json:"value"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func newCursorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cursor",
		Short: "Inspect or correct a collector cursor",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <spec>",
		Short: "Print the position a cursor spec resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCursorEnv(cmd.Context(), args[0], func(b cursor.Backends) error {
				c, err := cursor.Open(cmd.Context(), args[0], b)
				if err != nil {
					return err
				}
				return showCursor(cmd.Context(), cmd.OutOrStdout(), args[0], c)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <spec> <timestamp|min>",
		Short: "Move a writable cursor, keeping its metadata",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := parsePosition(args[1])
			if err != nil {
				return err
			}
			return withCursorEnv(cmd.Context(), args[0], func(b cursor.Backends) error {
				ctx := cmd.Context()
				c, err := cursor.OpenWritable(ctx, args[0], b)
				if err != nil {
					return err
				}
				cur, err := c.Load(ctx)
				if err != nil {
					return err
				}
				cur.Value = ts.Value
				if err := c.Save(ctx, cur); err != nil {
					return err
				}
				return showCursor(ctx, cmd.OutOrStdout(), args[0], c)
			})
		},
	})
	return cmd
}

// withCursorEnv opens just what spec needs: stores always, document storage for storage: specs
func withCursorEnv(ctx context.Context, spec string, fn func(cursor.Backends) error) error {
	withBlob := strings.HasPrefix(strings.ToLower(strings.TrimSpace(spec)), "storage:")
	e, err := bootstrap(ctx, "cursor", withBlob)
	if err != nil {
		return err
	}
	defer e.Close(ctx)

	copts, _ := catalog.OptionsFrom(e.cfg)
	return fn(cursor.Backends{
		Storage: e.blob,
		PG:      e.st.PG,
		Redis:   e.st.RDS,
		HTTP:    catalog.NewClient(copts),
	})
}

func parsePosition(s string) (domain.Position, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "min":
		return domain.Min(), nil
	case "max":
		return domain.Max(), nil
	}
	ts, err := catalog.ParseTimestamp(s)
	if err != nil {
		return domain.Position{}, err
	}
	return domain.At(ts), nil
}

func showCursor(ctx context.Context, w io.Writer, spec string, c domain.ReadCursor) error {
	p, err := c.Load(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(cursorView{Spec: spec, Value: cursor.Format(p), Metadata: p.Metadata})
}
