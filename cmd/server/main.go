package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kiliankoe/gptwolf/internal/agent"
	"github.com/kiliankoe/gptwolf/internal/config"
	"github.com/kiliankoe/gptwolf/internal/game"
	"github.com/kiliankoe/gptwolf/internal/ws"
	staticserver "github.com/kiliankoe/gptwolf/static"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"
)

var version = "dev" // Set at build time via -ldflags

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
		configFile  = flag.String("config", "", "YAML config file applied on top of the environment")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`gptwolf - Werewolf played by AI agents

Usage: %s [options]

Options:
  -h, --help        Show this help message
  -v, --version     Show version information
  --port PORT       Port to listen on (default: 8080 or PORT env var)
  --config FILE     YAML config file

Environment Variables:
  PORT                Port to listen on (default: 8080)
  DEFAULT_PROVIDER    Agent backend: "random", "openai" or "ollama" (default: random)
  DEFAULT_MODEL       Model for completion backends (default: gpt-4o-mini)
  SYSTEM_PROMPT       System prompt for every agent (optional)
  OPENAI_API_KEY      OpenAI API key (required for OpenAI provider)
  OPENAI_BASE_URL     Custom OpenAI API base URL (optional)
  OLLAMA_HOST         Ollama host URL (default: http://localhost:11434)
  GM_USER             GM interface username for basic auth
  GM_PASS             GM interface password for basic auth
  SINGLE_SESSION      Allow only one active session (default: true)
  DECISION_TIMEOUT    Seconds an agent may take per decision (default: 20)
  CONTEXT_WINDOW      Log entries handed to agents (default: 12)
  EXPORT_ENABLED      Export finished games to file (default: true)
  EXPORT_FILE         Path to export games (default: ./gptwolf-games.txt)
`, os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("gptwolf %s\n", version)
		return
	}

	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)

	cfg := config.FromEnv()
	if *configFile != "" {
		if err := config.LoadFile(*configFile, &cfg); err != nil {
			zerologlog.Fatal().Err(err).Msg("config")
		}
	}
	if *portFlag != "" {
		cfg.Port = *portFlag
	}
	if _, err := agent.NewProvider(cfg, nil); err != nil {
		zerologlog.Fatal().Err(err).Str("provider", cfg.DefaultProvider).Msg("agent provider")
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		zerologlog.Info().Str("path", path).Int("status", c.Writer.Status()).Dur("dur", time.Since(start)).Msg("http")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	rm := game.NewRoomManager(cfg.SingleSession)
	sock := ws.New(rm, cfg, func(seed int64) game.Options {
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		opts, err := agent.Options(cfg, seed)
		if err != nil {
			// validated at startup
			zerologlog.Error().Err(err).Msg("agent options")
		}
		return opts
	})
	io := sock.Mount(r)
	defer io.Close()

	r.GET("/api/session/active", func(c *gin.Context) {
		if code, sess := rm.Active(); sess != nil {
			c.JSON(http.StatusOK, gin.H{"sessionCode": code})
			return
		}
		c.Status(http.StatusNotFound)
	})

	r.GET("/api/session/:code", func(c *gin.Context) {
		room, err := rm.Get(c.Param("code"))
		if errors.Is(err, game.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session_not_found"})
			return
		}
		c.JSON(http.StatusOK, ws.PublicState(room.State()))
	})

	if cfg.GMUser != "" && cfg.GMPass != "" {
		auth := gin.BasicAuth(gin.Accounts{cfg.GMUser: cfg.GMPass})
		r.GET("/gm", auth, func(c *gin.Context) {
			staticserver.Handler().ServeHTTP(c.Writer, c.Request)
		})
		r.GET("/gm/*any", auth, func(c *gin.Context) {
			staticserver.Handler().ServeHTTP(c.Writer, c.Request)
		})

		type createReq struct {
			Config game.GameConfig `json:"config"`
			Seed   int64           `json:"seed"`
		}
		r.POST("/api/gm/create", auth, func(c *gin.Context) {
			var req createReq
			if err := c.BindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_config"})
				return
			}
			if req.Config == (game.GameConfig{}) {
				req.Config = game.GameConfig{EliminatorCount: cfg.Eliminators, BystanderCount: cfg.Bystanders}
			}
			code, hostToken, err := sock.CreateRoom(req.Seed)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			room, _ := rm.Get(code)
			if err := room.Setup(hostToken, req.Config); err != nil {
				rm.Delete(code)
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"sessionCode": code, "hostToken": hostToken})
		})
		r.POST("/api/gm/:code/reset", auth, func(c *gin.Context) {
			room, err := rm.Get(c.Param("code"))
			if err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "session_not_found"})
				return
			}
			room.ResetGame()
			c.JSON(http.StatusOK, gin.H{"ok": true})
		})
	}

	r.NoRoute(func(c *gin.Context) {
		staticserver.Handler().ServeHTTP(c.Writer, c.Request)
	})

	zerologlog.Info().Str("port", cfg.Port).Str("provider", cfg.DefaultProvider).Msg("listening")
	if err := r.Run(":" + cfg.Port); err != nil {
		zerologlog.Fatal().Err(err).Msg("server")
	}
}
