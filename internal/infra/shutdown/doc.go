// Package shutdown runs registered cleanup hooks when the process is told
// to stop.
//
// Hooks run in reverse registration order under one deadline, so resources
// started first are released last:
//
//	h := shutdown.NewHandler(15 * time.Second)
//	h.OnShutdown("storage", store.Close)
//	h.OnShutdown("http", srv.Shutdown)
//	err := h.Wait(ctx) // SIGINT, SIGTERM, ctx done or Trigger
package shutdown
