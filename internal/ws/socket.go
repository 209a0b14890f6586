package ws

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/kiliankoe/gptwolf/internal/config"
	"github.com/kiliankoe/gptwolf/internal/game"
	"github.com/rs/zerolog/log"
)

type ConnCtx struct {
	Code  string
	Token string
	Role  string // "host" | "spectator"
}

// OptionsFunc builds the session options for a new room. A zero seed means
// "pick one".
type OptionsFunc func(seed int64) game.Options

type Server struct {
	RM         *game.RoomManager
	newOptions OptionsFunc
	config     config.Config

	mu      sync.Mutex
	members map[string]map[string]socketio.Conn // sessionCode -> socketID -> Conn
}

func New(rm *game.RoomManager, cfg config.Config, newOptions OptionsFunc) *Server {
	return &Server{RM: rm, newOptions: newOptions, config: cfg, members: make(map[string]map[string]socketio.Conn)}
}

// CreateRoom creates a room whose state changes are pushed to its members.
func (srv *Server) CreateRoom(seed int64) (code, hostToken string, err error) {
	code, hostToken, err = srv.RM.CreateSession(srv.newOptions(seed))
	if err != nil {
		return "", "", err
	}
	room, err := srv.RM.Get(code)
	if err != nil {
		return "", "", err
	}
	room.OnLog = func(game.LogEntry) { srv.emitStateTo(code) }
	room.OnPhase = func(p game.Phase) { srv.emitStateTo(code) }
	room.OnAction = func(game.Action) { srv.emitStateTo(code) }
	room.OnGameOver = srv.export
	return code, hostToken, nil
}

func (srv *Server) export(r *game.Room) {
	if !srv.config.ExportEnabled {
		return
	}
	if err := game.ExportSession(r, srv.config.ExportFile); err != nil {
		log.Error().Err(err).Str("code", r.Code).Msg("failed to export game data")
		return
	}
	log.Info().Str("code", r.Code).Str("file", srv.config.ExportFile).Msg("exported game data")
}

// Mount attaches Socket.IO server with handlers to the given Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{})
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	// game:create
	io.OnEvent("/", "game:create", func(s socketio.Conn, payload struct {
		Seed int64 `json:"seed"`
	}) map[string]any {
		code, hostToken, err := srv.CreateRoom(payload.Seed)
		if err != nil {
			return srv.err(s, "internal", err.Error())
		}
		srv.join(s, &ConnCtx{Code: code, Token: hostToken, Role: "host"})
		log.Info().Str("sid", s.ID()).Str("code", code).Msg("game:create")
		srv.emitStateTo(code)
		return map[string]any{"sessionCode": code, "hostToken": hostToken}
	})

	// game:watch
	io.OnEvent("/", "game:watch", func(s socketio.Conn, payload struct {
		SessionCode string `json:"sessionCode"`
		HostToken   string `json:"hostToken"`
	}) map[string]any {
		room, err := srv.RM.Get(payload.SessionCode)
		if err != nil {
			return srv.err(s, "session_not_found", "Session not found")
		}
		role := "spectator"
		if payload.HostToken != "" {
			if payload.HostToken != room.HostToken {
				return srv.err(s, "unauthorized", "Invalid host token")
			}
			role = "host"
		}
		srv.join(s, &ConnCtx{Code: payload.SessionCode, Token: payload.HostToken, Role: role})
		log.Info().Str("sid", s.ID()).Str("code", payload.SessionCode).Str("role", role).Msg("game:watch")
		srv.emitStateTo(payload.SessionCode)
		return map[string]any{"ok": true, "role": role}
	})

	// game:setup (host)
	io.OnEvent("/", "game:setup", func(s socketio.Conn, payload struct {
		Config game.GameConfig `json:"config"`
	}) map[string]any {
		ctx := s.Context().(*ConnCtx)
		room, err := srv.RM.Get(ctx.Code)
		if err != nil {
			return srv.err(s, "session_not_found", "Session not found")
		}
		if err := room.Setup(ctx.Token, payload.Config); err != nil {
			code := "bad_request"
			switch {
			case errors.Is(err, game.ErrNotHost):
				code = "unauthorized"
			case errors.Is(err, game.ErrInvalidConfiguration):
				code = "invalid_config"
			}
			return srv.err(s, code, err.Error())
		}
		log.Info().Str("code", ctx.Code).Int("eliminators", payload.Config.EliminatorCount).Int("bystanders", payload.Config.BystanderCount).Msg("game:setup")
		return map[string]any{"ok": true}
	})

	// game:reset (host)
	io.OnEvent("/", "game:reset", func(s socketio.Conn) map[string]any {
		ctx := s.Context().(*ConnCtx)
		room, err := srv.RM.Get(ctx.Code)
		if err != nil {
			return srv.err(s, "session_not_found", "Session not found")
		}
		if err := room.Reset(ctx.Token); err != nil {
			return srv.err(s, "unauthorized", err.Error())
		}
		log.Info().Str("code", ctx.Code).Msg("game:reset")
		return map[string]any{"ok": true}
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})
	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		if ctx, ok := s.Context().(*ConnCtx); ok && ctx.Code != "" {
			srv.removeMember(ctx.Code, s)
		}
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go io.Serve()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))

	// Basic CORS preflight for Socket.IO POST
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}

func (srv *Server) join(s socketio.Conn, ctx *ConnCtx) {
	if old, ok := s.Context().(*ConnCtx); ok && old.Code != "" {
		srv.removeMember(old.Code, s)
	}
	s.SetContext(ctx)
	s.Join(ctx.Code)
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.members[ctx.Code] == nil {
		srv.members[ctx.Code] = make(map[string]socketio.Conn)
	}
	srv.members[ctx.Code][s.ID()] = s
}

func (srv *Server) removeMember(code string, c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if m := srv.members[code]; m != nil {
		delete(m, c.ID())
	}
}

func (srv *Server) emitStateTo(code string) {
	room, err := srv.RM.Get(code)
	if err != nil {
		return
	}
	st := room.State()
	public := PublicState(st)

	srv.mu.Lock()
	conns := make([]socketio.Conn, 0, len(srv.members[code]))
	for _, c := range srv.members[code] {
		conns = append(conns, c)
	}
	srv.mu.Unlock()

	for _, c := range conns {
		ctx, _ := c.Context().(*ConnCtx)
		if ctx == nil {
			continue
		}
		view := public
		if ctx.Role == "host" {
			view = st
		}
		c.Emit("game:state", map[string]any{
			"sessionCode": code,
			"you":         map[string]any{"role": ctx.Role},
			"state":       view,
		})
	}
}

func (srv *Server) err(s socketio.Conn, code, message string) map[string]any {
	s.Emit("error", map[string]any{"code": code, "message": message})
	return map[string]any{"error": message}
}

// PublicState hides what spectators should not see while the game runs:
// living players' roles and strategies, and the seeker's private checks.
// Everything is revealed once the game is over.
func PublicState(st game.State) game.State {
	if st.Phase == game.PhaseGameOver {
		return st
	}
	players := make([]game.Player, len(st.Players))
	for i, p := range st.Players {
		if p.Alive {
			p.Role = ""
			p.Strategy = ""
		}
		players[i] = p
	}
	entries := make([]game.LogEntry, 0, len(st.Log))
	for _, e := range st.Log {
		if _, private := e.PrivateTo(); private {
			continue
		}
		if e.Speaker != nil {
			sp := *e.Speaker
			sp.Role = ""
			e.Speaker = &sp
		}
		entries = append(entries, e)
	}
	st.Players = players
	st.Log = entries
	return st
}
