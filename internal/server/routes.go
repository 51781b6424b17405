package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	r.Get("/", s.getInfo)
	r.Get("/health", s.getHealth)

	r.Route("/api/thread", func(r chi.Router) {
		r.Get("/", s.listThreads)
		r.Post("/", s.createThread)

		r.Route("/{threadID}", func(r chi.Router) {
			r.Get("/", s.getThread)
			r.Patch("/", s.updateThread)
			r.Delete("/", s.deleteThread)

			r.Get("/message", s.getMessages)
			r.Post("/message", s.sendMessage)
			r.Post("/abort", s.abortThread)
			r.Get("/status", s.getThreadStatus)
		})
	})

	// Event streaming (SSE)
	r.Get("/event", s.streamEvents)
}
