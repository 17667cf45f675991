package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"benjamins/config"
	"benjamins/core"
	"benjamins/core/types"
	"benjamins/native/token"
	"benjamins/observability/logging"
	"benjamins/rpc"
	"benjamins/state"
	"benjamins/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("BNJI_ENV"))
	logger := logging.Setup("bnjid", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	edition := token.Edition(strings.ToLower(strings.TrimSpace(cfg.Edition)))
	vault := config.Address(cfg.VaultAddress)
	owner := config.Address(cfg.OwnerAddress)
	feeReceiver := config.Address(cfg.FeeReceiverAddress)

	engine := token.NewEngine(edition, vault, owner, feeReceiver)
	engine.SetParams(token.Params{
		CurveConstant: cfg.CurveConstant,
		BlocksPerDay:  cfg.BlocksPerDay,
		MinLockBlocks: cfg.MinLockBlocks,
	})
	engine.SetFeeSchedule(feeSchedule(edition, cfg))
	engine.SetProtectedAssets(config.Address(cfg.PaymentAsset), config.Address(cfg.ReserveAsset))

	st := state.NewManager(db, vault)
	st.SetEmitter(func(evt *types.Event) {
		logger.Info("engine event", slog.String("type", evt.Type), slog.Any("attributes", evt.Attributes))
	})
	node := core.NewNode(st, engine)

	logger.Info("benjamins node ready",
		slog.String("edition", string(edition)),
		slog.String("dataDir", cfg.DataDir),
		slog.String("owner", owner.Hex()),
	)

	server := rpc.NewServer(node, logger)
	if err := server.Start(cfg.ListenAddress); err != nil {
		logger.Error("JSON-RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// feeSchedule builds the base-fee schedule for the configured edition. The
// lockbox edition charges a whole-percent fee, the levels edition a
// parts-per-million rate.
func feeSchedule(edition token.Edition, cfg *config.Config) token.FeeSchedule {
	if edition == token.EditionLevels {
		return token.LinearFeeSchedule{RatePPM: cfg.BaseFeePPM}
	}
	return token.PercentFeeSchedule{Percent: cfg.BaseFeePercent}
}
