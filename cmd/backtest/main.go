package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/quantlab/algotrader-kr/internal/backtest"
	"github.com/quantlab/algotrader-kr/internal/logger"
	"github.com/quantlab/algotrader-kr/internal/risk"
	"github.com/quantlab/algotrader-kr/internal/state"
	"github.com/quantlab/algotrader-kr/internal/strategy"
	"github.com/quantlab/algotrader-kr/pkg/config"
	"github.com/quantlab/algotrader-kr/pkg/data"
	"github.com/quantlab/algotrader-kr/pkg/reporting"
	"github.com/quantlab/algotrader-kr/pkg/types"
)

const (
	AppName    = "AlgoTrader Backtest"
	AppVersion = "1.2.0"

	dateLayout = "2006-01-02"
)

// extraWarmupBars pads the configured minimum history so a freshly listed
// instrument cannot enter the universe with barely enough bars to analyze.
const extraWarmupBars = 30

func main() {
	configFile := flag.String("config", "", "path to JSON config file")
	envFile := flag.String("env", ".env", "path to environment file")
	strategyName := flag.String("strategy", strategy.StatArbName, "strategy to run (StatArb or DualMomentum)")
	pairsFlag := flag.String("pairs", "", "comma-separated pair names to keep (StatArb only)")
	startFlag := flag.String("start", "", "backtest start date (YYYY-MM-DD)")
	endFlag := flag.String("end", "", "backtest end date (YYYY-MM-DD)")
	outputDir := flag.String("output", "results", "directory for result exports")
	tradeLimit := flag.Int("trades", 30, "number of trades to print (0 for all)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s v%s\n", AppName, AppVersion)
		return
	}

	loadEnvironment(*envFile)

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	start, end, err := parseDateRange(*startFlag, *endFlag)
	if err != nil {
		log.Fatalf("❌ Invalid date range: %v", err)
	}

	appLog, err := logger.NewLogger(*strategyName, "backtest")
	if err != nil {
		log.Printf("⚠️ File logging disabled: %v", err)
		appLog = logger.NewNop()
	}
	defer appLog.Close()

	strat, err := buildStrategy(cfg, *strategyName, appLog)
	if err != nil {
		log.Fatalf("❌ Strategy error: %v", err)
	}

	if *pairsFlag != "" {
		strat.FilterPairs(splitList(*pairsFlag))
	}

	riskMgr, err := risk.NewManager(cfg.Risk, state.NewMemoryKillSwitchStore(), true, appLog)
	if err != nil {
		log.Fatalf("❌ Risk configuration error: %v", err)
	}

	universe := loadUniverse(cfg, strat, end)
	if len(universe) == 0 {
		log.Fatalf("❌ No usable price history in %s", cfg.Data.DataDir)
	}

	engine, err := backtest.NewEngine(cfg.Backtest, strat, riskMgr, appLog)
	if err != nil {
		log.Fatalf("❌ Engine error: %v", err)
	}

	result, err := engine.Run(universe, start, end)
	if err != nil {
		log.Fatalf("❌ Backtest failed: %v", err)
	}

	metrics := backtest.Analyze(result)

	console := reporting.NewConsoleReporter()
	console.PrintMetrics(metrics)
	console.PrintTrades(result.Trades, *tradeLimit)

	exportResults(result, metrics, *outputDir, *strategyName)
}

// loadEnvironment loads the env file when present; a missing file is fine.
func loadEnvironment(envFile string) {
	if envFile == "" {
		return
	}
	if err := godotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("⚠️ Could not load %s: %v", envFile, err)
		}
		return
	}
	log.Printf("✅ Loaded environment from %s", envFile)
}

func parseDateRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error
	if startStr != "" {
		start, err = time.Parse(dateLayout, startStr)
		if err != nil {
			return start, end, fmt.Errorf("bad start date %q: %w", startStr, err)
		}
	}
	if endStr != "" {
		end, err = time.Parse(dateLayout, endStr)
		if err != nil {
			return start, end, fmt.Errorf("bad end date %q: %w", endStr, err)
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return start, end, fmt.Errorf("end %s before start %s", endStr, startStr)
	}
	return start, end, nil
}

// buildStrategy registers the configured strategies and creates the
// requested one.
func buildStrategy(cfg *config.Config, name string, appLog *logger.Logger) (strategy.Strategy, error) {
	registry := strategy.NewRegistry()
	if cfg.Strategies.StatArb != nil {
		sc := *cfg.Strategies.StatArb
		registry.Register(strategy.StatArbName, func() (strategy.Strategy, error) {
			return strategy.NewStatArb(sc, appLog)
		})
	}
	if cfg.Strategies.DualMomentum != nil {
		dc := *cfg.Strategies.DualMomentum
		registry.Register(strategy.DualMomentumName, func() (strategy.Strategy, error) {
			return strategy.NewDualMomentum(dc, appLog)
		})
	}
	return registry.Create(name)
}

// loadUniverse loads history for every instrument the strategy needs up to
// the end date, dropping codes with too little data for the strategy's
// warmup.
func loadUniverse(cfg *config.Config, strat strategy.Strategy, end time.Time) map[string][]types.PriceBar {
	minBars := cfg.Data.MinLookbackBars + extraWarmupBars

	provider := data.NewCachedProvider(data.NewCSVProvider(cfg.Data.DataDir))
	loader := data.NewLoader(provider, minBars)

	codes := make([]string, 0)
	for _, inst := range strat.RequiredInstruments() {
		codes = append(codes, inst.Code)
	}
	return loader.LoadUniverse(codes, end)
}

func exportResults(result *backtest.Result, metrics *backtest.Metrics, outputDir, strategyName string) {
	stamp := time.Now().Format("20060102_150405")
	base := filepath.Join(outputDir, fmt.Sprintf("%s_%s", strings.ToLower(strategyName), stamp))

	csvReporter := reporting.NewCSVReporter()
	if err := csvReporter.WriteTradesCSV(result, base+"_trades.csv"); err != nil {
		log.Printf("⚠️ Trades CSV export failed: %v", err)
	}
	if err := csvReporter.WriteEquityCSV(result, base+"_equity.csv"); err != nil {
		log.Printf("⚠️ Equity CSV export failed: %v", err)
	}
	if err := reporting.NewExcelReporter().WriteWorkbook(result, metrics, base+".xlsx"); err != nil {
		log.Printf("⚠️ Excel export failed: %v", err)
	}
	if err := reporting.WriteJSON(result, metrics, base+".json"); err != nil {
		log.Printf("⚠️ JSON export failed: %v", err)
	}
	log.Printf("✅ Results exported to %s_*", base)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
