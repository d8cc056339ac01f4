// Package server runs an http.Server with graceful shutdown, meant to be
// driven from an errgroup:
//
//	srv, err := server.NewFromConfig(cfg.Server, server.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(srv.Run(ctx, router))
//	return g.Wait()
//
// Cancelling ctx triggers Shutdown bounded by the configured shutdown timeout.
package server
