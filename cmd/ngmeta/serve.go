package main

import (
	"context"

	"ngmeta/internal/adapters/catalog"
	phttp "ngmeta/internal/platform/net/http"
	"ngmeta/internal/services/api"
	"ngmeta/internal/services/collector/cursor"
	"ngmeta/internal/services/collector/domain"
	collectormod "ngmeta/internal/services/collector/module"
	resolvermod "ngmeta/internal/services/resolver/module"

	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		addr       string
		collectors []string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve derived documents and collector state over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := bootstrap(ctx, "serve", true)
			if err != nil {
				return err
			}
			defer e.Close(ctx)

			settings := api.SettingsFrom(e.cfg)
			if addr != "" {
				settings.Addr = addr
			}
			cursors, err := openCursors(ctx, e, collectors)
			if err != nil {
				return err
			}

			opt := api.Options{
				Deps:       e.deps(),
				Settings:   settings,
				Namespaces: []string{resolvermod.FromConfig(e.cfg).Namespace},
				Cursors:    cursors,
			}
			if _, ch, err := e.sink(ctx); err != nil {
				return err
			} else if ch != nil {
				opt.Runs = ch
			}

			srv := phttp.NewServer(settings.Addr, nil)
			api.Mount(srv.Router(), opt)
			e.log.Info().Str("addr", srv.Addr()).Strs("collectors", collectors).Msg("serving")
			return srv.Run(ctx, settings.Grace)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :NGMETA_API_PORT)")
	cmd.Flags().StringSliceVar(&collectors, "collector", []string{resolverCollector}, "collectors whose cursors are listed")
	return cmd
}

// openCursors opens the front and back cursor of each collector read-only, keyed name.front and name.back
func openCursors(ctx context.Context, e *env, names []string) (map[string]domain.ReadCursor, error) {
	copts, _ := catalog.OptionsFrom(e.cfg)
	b := cursor.Backends{
		Storage: e.blob,
		PG:      e.st.PG,
		Redis:   e.st.RDS,
		HTTP:    catalog.NewClient(copts),
	}
	out := make(map[string]domain.ReadCursor, 2*len(names))
	for _, name := range names {
		opts := collectormod.FromConfig(e.cfg, name)
		b.HTTPPath = opts.HTTPPath
		front, err := cursor.Open(ctx, opts.Front, b)
		if err != nil {
			return nil, err
		}
		back, err := cursor.Open(ctx, opts.Back, b)
		if err != nil {
			return nil, err
		}
		out[name+".front"] = front
		out[name+".back"] = back
	}
	return out, nil
}
