// Command qnet-node runs a QNet consensus node: storage, the transaction
// executor, consensus, mempool, reward ledger, activation registry,
// cross-shard coordinator and JSON-RPC server, all wired by node.New.
//
// Grounded on cmd/kcn/main.go's urfave/cli App shape (flags, Before
// hook, Prometheus exporter goroutine), trimmed to this module's much
// smaller flag surface — no devp2p, mining, or EVM-related flags, since
// none of those subsystems exist here.
package main

import (
	"fmt"
	"net/http"
	"os"
	"runtime"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli"

	"github.com/qnet-project/qnet-core/log"
	"github.com/qnet-project/qnet-core/node"
)

var logger = log.NewModuleLogger(log.Node)

var (
	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory for account/transaction/block storage",
		Value: "./qnet-data",
	}
	dbTypeFlag = cli.StringFlag{
		Name:  "dbtype",
		Usage: "Database backend: leveldb, badger, or memory",
		Value: "leveldb",
	}
	httpAddrFlag = cli.StringFlag{
		Name:  "rpc.addr",
		Usage: "JSON-RPC HTTP listen host",
		Value: "localhost",
	}
	httpPortFlag = cli.IntFlag{
		Name:  "rpc.port",
		Usage: "JSON-RPC HTTP listen port",
		Value: 8645,
	}
	shardIDFlag = cli.IntFlag{
		Name:  "shard.id",
		Usage: "This node's shard ID",
	}
	nodeTypeFlag = cli.StringFlag{
		Name:  "nodetype",
		Usage: "Node participation tier: light, full, or super",
		Value: "full",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics.addr",
		Usage: "Prometheus /metrics listen address; empty disables the exporter",
		Value: ":9645",
	}

	nodeFlags = []cli.Flag{
		configFileFlag,
		dataDirFlag,
		dbTypeFlag,
		httpAddrFlag,
		httpPortFlag,
		shardIDFlag,
		nodeTypeFlag,
		metricsAddrFlag,
	}
)

var app = cli.NewApp()

func init() {
	app.Name = "qnet-node"
	app.Usage = "QNet consensus node"
	app.Flags = nodeFlags
	app.Action = runNode
	app.Before = func(ctx *cli.Context) error {
		runtime.GOMAXPROCS(runtime.NumCPU())
		if addr := ctx.GlobalString(metricsAddrFlag.Name); addr != "" {
			http.Handle("/metrics", promhttp.Handler())
			go func() {
				if err := http.ListenAndServe(addr, nil); err != nil {
					logger.Error("prometheus exporter failed", "addr", addr, "err", err)
				}
			}()
			logger.Info("prometheus exporter listening", "addr", addr)
		}
		return nil
	}
}

func buildConfig(ctx *cli.Context) (node.Config, error) {
	cfg := node.DefaultConfig

	if file := ctx.GlobalString(configFileFlag.Name); file != "" {
		if err := node.LoadConfig(file, &cfg); err != nil {
			return cfg, err
		}
	}

	if ctx.GlobalIsSet(dataDirFlag.Name) {
		cfg.DataDir = ctx.GlobalString(dataDirFlag.Name)
	} else if cfg.DataDir == "" {
		cfg.DataDir = dataDirFlag.Value
	}
	if ctx.GlobalIsSet(dbTypeFlag.Name) {
		cfg.DBType = ctx.GlobalString(dbTypeFlag.Name)
	}
	if ctx.GlobalIsSet(httpAddrFlag.Name) {
		cfg.HTTPHost = ctx.GlobalString(httpAddrFlag.Name)
	}
	if ctx.GlobalIsSet(httpPortFlag.Name) {
		cfg.HTTPPort = ctx.GlobalInt(httpPortFlag.Name)
	}
	if ctx.GlobalIsSet(shardIDFlag.Name) {
		cfg.ShardID = ctx.GlobalInt(shardIDFlag.Name)
	}
	if ctx.GlobalIsSet(nodeTypeFlag.Name) {
		cfg.NodeType = ctx.GlobalString(nodeTypeFlag.Name)
	}
	return cfg, nil
}

func runNode(ctx *cli.Context) error {
	cfg, err := buildConfig(ctx)
	if err != nil {
		return err
	}

	n, err := node.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize node: %w", err)
	}
	defer n.Close()

	logger.Info("starting qnet-node", "datadir", cfg.DataDir, "shard", cfg.ShardID, "nodetype", cfg.NodeType)
	return n.Serve()
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
