// Package main provides the interactive Fable binary: a knowledge-grounded
// text adventure read from stdin, one command per line.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/oakmund/fable/internal/command"
	"github.com/oakmund/fable/internal/config"
	"github.com/oakmund/fable/internal/engine"
	"github.com/oakmund/fable/internal/game/combat"
	"github.com/oakmund/fable/internal/game/dice"
	"github.com/oakmund/fable/internal/game/state"
	"github.com/oakmund/fable/internal/game/world"
	"github.com/oakmund/fable/internal/knowledge"
	kgpostgres "github.com/oakmund/fable/internal/knowledge/postgres"
	"github.com/oakmund/fable/internal/llm"
	"github.com/oakmund/fable/internal/observability"
	"github.com/oakmund/fable/internal/scripting"
	"github.com/oakmund/fable/internal/session"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/fable.yaml", "path to configuration file")
	resumeID := flag.String("session", "", "saved session id to resume; empty starts a new game")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	// Load world
	w, err := world.LoadWorldDir(cfg.Game.WorldDir)
	if err != nil {
		logger.Fatal("loading world", zap.Error(err))
	}
	worldMgr, err := world.NewManager(w)
	if err != nil {
		logger.Fatal("creating world manager", zap.Error(err))
	}
	if dangling := worldMgr.DanglingExits(); len(dangling) > 0 {
		logger.Warn("world has unconnected exits", zap.Strings("exits", dangling))
	}
	logger.Info("world loaded",
		zap.String("world", worldMgr.WorldName()),
		zap.Int("areas", worldMgr.AreaCount()))

	// Knowledge store
	var store knowledge.Store
	switch cfg.Knowledge.Backend {
	case "postgres":
		pgStore, err := kgpostgres.NewStore(ctx, cfg.Database.DSN())
		if err != nil {
			logger.Fatal("connecting knowledge store", zap.Error(err))
		}
		defer pgStore.Close()
		store = pgStore
	default:
		memStore, err := knowledge.LoadDir(cfg.Knowledge.DataDir)
		if err != nil {
			logger.Fatal("loading knowledge data", zap.Error(err))
		}
		store = memStore
	}

	// Narration
	llmMgr, err := llm.NewManager(ctx, cfg.LLM, logger)
	if err != nil {
		logger.Fatal("initializing llm manager", zap.Error(err))
	}
	retriever := engine.NewRetriever(store, cfg.Knowledge.ChunkLimit, logger)
	narrative := engine.New(retriever, llmMgr, llmMgr.Fallback(), logger)

	// Persistence and hooks
	saves, err := state.NewFileStore(cfg.Game.SavesDir)
	if err != nil {
		logger.Fatal("opening saves dir", zap.Error(err))
	}
	var scripts *scripting.Runner
	if cfg.Game.ScriptDir != "" {
		scripts, err = scripting.NewRunner(cfg.Game.ScriptDir, cfg.Game.ScriptInstructionLimit, logger)
		if err != nil {
			logger.Fatal("loading scripts", zap.Error(err))
		}
		defer scripts.Close()
	}

	processor := command.NewProcessor(
		narrative,
		combat.NewEngine(dice.NewCryptoSource()),
		saves,
		worldMgr,
		scripts,
		llmMgr,
		logger,
	)
	sessions := session.NewManager(worldMgr, processor, logger)

	var sessionID string
	if *resumeID != "" {
		st, err := saves.Load(*resumeID, worldMgr)
		if err != nil {
			logger.Fatal("resuming session", zap.String("session", *resumeID), zap.Error(err))
		}
		sessions.Resume(st)
		sessionID = *resumeID
	} else {
		sessionID = sessions.Create()
	}

	logger.Info("ready",
		zap.String("session", sessionID),
		zap.Duration("startup", time.Since(start)))

	runREPL(ctx, sessions, sessionID)
}

func runREPL(ctx context.Context, sessions *session.Manager, sessionID string) {
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	result, err := sessions.Handle(ctx, sessionID, "look")
	if err == nil {
		printResult(out, result)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(out, "\n> ")
		out.Flush()
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			fmt.Fprintln(out, "Farewell.")
			return
		}

		result, err := sessions.Handle(ctx, sessionID, line)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		printResult(out, result)
	}
}

func printResult(out *bufio.Writer, result *engine.NarrativeResult) {
	for _, seg := range result.Segments {
		switch seg.Style {
		case engine.StyleLocation:
			fmt.Fprintf(out, "\n== %s\n", seg.Text)
		case engine.StyleCombat:
			fmt.Fprintf(out, "  * %s\n", seg.Text)
		default:
			fmt.Fprintf(out, "\n%s\n", seg.Text)
		}
	}
	out.Flush()
}
