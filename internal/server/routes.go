package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/damins0406/lets-study-now/internal/auth"
	"github.com/damins0406/lets-study-now/internal/chat"
	"github.com/damins0406/lets-study-now/internal/checklist"
	"github.com/damins0406/lets-study-now/internal/groupstudy"
	"github.com/damins0406/lets-study-now/internal/levelup"
	"github.com/damins0406/lets-study-now/internal/member"
	"github.com/damins0406/lets-study-now/internal/openstudy"
	"github.com/damins0406/lets-study-now/internal/session"
	"github.com/damins0406/lets-study-now/internal/timer"
)

type RouterConfig struct {
	MemberHandler    *member.Handler
	TimerHandler     *timer.Handler
	SessionHandler   *session.Handler
	OpenStudyHandler *openstudy.Handler
	GroupHandler     *groupstudy.Handler
	ChecklistHandler *checklist.Handler
	ChatHandler      *chat.Handler
	LevelHandler     *levelup.Handler
	AuthService      *auth.Service
}

func NewRouter(config RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware block
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Route("/api", func(r chi.Router) {
		// Auth routes (no middleware)
		r.Route("/auth", func(r chi.Router) {
			config.MemberHandler.RegisterAuthRoutes(r)
		})

		// WebSocket upgrade carries its token inline
		r.Route("/ws", func(r chi.Router) {
			config.ChatHandler.RegisterRoutes(r)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(config.AuthService))

			r.Route("/members", func(r chi.Router) {
				config.MemberHandler.RegisterRoutes(r)
			})
			r.Route("/levels", func(r chi.Router) {
				config.LevelHandler.RegisterRoutes(r)
			})
			r.Route("/timer", func(r chi.Router) {
				config.TimerHandler.RegisterRoutes(r)
			})
			r.Route("/sessions", func(r chi.Router) {
				config.SessionHandler.RegisterRoutes(r)
			})
			r.Route("/open-rooms", func(r chi.Router) {
				config.OpenStudyHandler.RegisterRoutes(r)
			})
			r.Route("/groups", func(r chi.Router) {
				config.GroupHandler.RegisterGroupRoutes(r)
			})
			r.Route("/study-rooms", func(r chi.Router) {
				config.GroupHandler.RegisterRoomRoutes(r)
			})
			r.Route("/checklists", func(r chi.Router) {
				config.ChecklistHandler.RegisterRoutes(r)
			})
			r.Route("/chats", func(r chi.Router) {
				config.ChatHandler.RegisterHistoryRoutes(r)
			})
		})
	})

	return r
}
