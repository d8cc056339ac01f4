// Package logger builds slog loggers and provides attribute helpers with
// consistent keys for the whole service.
//
//	log := logger.New(logger.WithDevelopment("servicehub"))
//	log.Info("order captured",
//		logger.Component("order"),
//		logger.OrderID(o.ID.String()),
//		logger.State(o.State.String()),
//	)
//
// Helpers return an empty slog.Attr for nil errors and empty ids, so they can
// be passed unconditionally.
package logger
